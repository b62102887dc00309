package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "kir/internal/common/value_objects"
)

type recordPayload struct {
	RecordID string `json:"record_id"`
	Status   string `json:"status"`
}

func TestEnvelopeJSONKeepsMetadata(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	env, err := NewEventEnvelope("kir.record.created", "rec-1", vo.MustParseCorrelationID("c-1"), at, recordPayload{
		RecordID: "rec-1",
		Status:   "draft",
	})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, env.OccurredAt.Location())

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded EventEnvelope
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, env.EventID, decoded.EventID)
	assert.Equal(t, "rec-1", decoded.AggregateID)
	assert.Equal(t, "c-1", decoded.CorrelationID.String())

	var p recordPayload
	require.NoError(t, decoded.UnmarshalPayload(&p))
	assert.Equal(t, "draft", p.Status)
}

func TestEnvelopeWithoutCorrelation(t *testing.T) {
	env, err := NewEventEnvelope("kir.record.updated", "rec-2", vo.CorrelationID{}, time.Now(), map[string]string{})
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "correlation_id")

	var decoded EventEnvelope
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, decoded.CorrelationID.IsEmpty())
}

func TestEnvelopeRejectsBadEventID(t *testing.T) {
	var decoded EventEnvelope
	err := json.Unmarshal([]byte(`{"event_id":"x","event_type":"t","payload":{}}`), &decoded)
	require.ErrorIs(t, err, ErrInvalidUUID)
}
