package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientID(t *testing.T) {
	_, err := ParseClientID("")
	require.ErrorIs(t, err, ErrEmptyID)

	id, err := ParseClientID("tablet-7")
	require.NoError(t, err)
	assert.Equal(t, "tablet-7", id.String())
	assert.False(t, id.IsEmpty())
	assert.True(t, ClientID{}.IsEmpty())
}

func TestSessionID(t *testing.T) {
	id := NewSessionID()
	parsed, err := ParseSessionID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseSessionID("not-a-uuid")
	require.ErrorIs(t, err, ErrInvalidUUID)
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		err  error
	}{
		{in: "2500000", want: "2500000.00"},
		{in: " 2,500,000 ", want: "2500000.00"},
		{in: "1500.5", want: "1500.50"},
		{in: "0", want: "0.00"},
		{in: "", err: ErrInvalidAmount},
		{in: "lots", err: ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			a, err := ParseAmount(tc.in)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, a.String())
		})
	}
}

func TestParseNonNegativeAmount(t *testing.T) {
	_, err := ParseNonNegativeAmount("-1")
	require.ErrorIs(t, err, ErrNegativeAmount)

	a, err := ParseNonNegativeAmount("0")
	require.NoError(t, err)
	assert.True(t, a.IsZero())
}
