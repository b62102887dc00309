package domain

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type FieldsSuite struct {
	suite.Suite
}

func TestFieldsSuite(t *testing.T) {
	suite.Run(t, new(FieldsSuite))
}

func (s *FieldsSuite) TestIsSatisfied() {
	s.False(TextValue("   ").IsSatisfied())
	s.True(TextValue(" x ").IsSatisfied())
	s.False(FlagValue(false).IsSatisfied())
	s.True(FlagValue(true).IsSatisfied())
	s.False(RowsValue().IsSatisfied())
	s.True(RowsValue(Row{}).IsSatisfied())
	s.False(FieldValue{}.IsSatisfied())
}

func (s *FieldsSuite) TestApplyStructuredNames() {
	s.Run("sets a cell and grows the list", func() {
		f := Fields{}
		s.True(f.Apply("members[1][name]", TextValue("Ani")))
		rows := f.Rows("members")
		s.Len(rows, 2)
		s.Equal("Ani", rows[1]["name"])
		s.Empty(rows[0])
	})

	s.Run("keeps other cells of the row", func() {
		f := Fields{}
		f.Apply("members[0][name]", TextValue("Ani"))
		f.Apply("members[0][relationship]", TextValue("child"))
		s.Equal(Row{"name": "Ani", "relationship": "child"}, f.Rows("members")[0])
	})

	s.Run("replaces a non-list value", func() {
		f := Fields{"members": TextValue("oops")}
		s.True(f.Apply("members[0][name]", TextValue("Ani")))
		s.Equal(KindRows, f["members"].Kind())
	})

	s.Run("ignores malformed names", func() {
		for _, name := range []string{"", "members[", "members[x][name]", "members[0]", "members[0][name", "[0][name]", "members[0][na-me]"} {
			f := Fields{}
			s.False(f.Apply(name, TextValue("v")), name)
			s.Empty(f, name)
		}
	})

	s.Run("ignores indexes beyond the row limit", func() {
		f := Fields{}
		s.False(f.Apply("members[50][name]", TextValue("v")))
		s.Empty(f)
	})
}

func (s *FieldsSuite) TestApplyDoesNotAliasRows() {
	rows := []Row{{"name": "Ani"}}
	f := Fields{}
	f.Apply("members", RowsValue(rows...))
	rows[0]["name"] = "changed"
	s.Equal("Ani", f.Rows("members")[0]["name"])
}

func (s *FieldsSuite) TestEqual() {
	s.True(TextValue("a").Equal(TextValue("a")))
	s.False(TextValue("a").Equal(FlagValue(true)))
	s.True(RowsValue(Row{"a": "1"}).Equal(RowsValue(Row{"a": "1"})))
	s.False(RowsValue(Row{"a": "1"}).Equal(RowsValue(Row{"a": "2"})))
}

func (s *FieldsSuite) TestNormalizeNaturalKey() {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "123456789012", want: "123456789012", ok: true},
		{in: " 1234-5678 9012 ", want: "123456789012", ok: true},
		{in: "1234.5678.9012", want: "123456789012", ok: true},
		{in: "", ok: false},
		{in: "12345678901", ok: false},
		{in: "1234567890123", ok: false},
		{in: "12345678901A", ok: false},
	}
	for _, tc := range cases {
		key, err := NormalizeNaturalKey(tc.in)
		if !tc.ok {
			s.Error(err, tc.in)
			continue
		}
		s.NoError(err, tc.in)
		s.Equal(tc.want, key.String())
	}
	key, _ := NormalizeNaturalKey("123456789012")
	s.Equal("********9012", key.Masked())
}

func (s *FieldsSuite) TestMembersFromFields() {
	id := NewRecordID()
	fields := Fields{FieldMembers: RowsValue(
		Row{"name": "Ani", "relationship": "child", "national_id": "1111-2222-3333"},
		Row{"name": " "},
		Row{"name": "Rudi", "relationship": "spouse", "national_id": "bad"},
	)}

	members := MembersFromFields(id, fields)
	s.Require().Len(members, 2)
	s.Equal("111122223333", members[0].NationalID)
	s.Equal(0, members[0].Position)
	s.Equal("Rudi", members[1].Name)
	s.Equal(1, members[1].Position)
	s.Empty(members[1].NationalID)
	s.Equal(id, members[1].RecordID)
}
