package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"rule", TypeRule, false},
		{"RULE", TypeRule, false},
		{" Modifier ", TypeModifier, false},
		{"prompt", TypePrompt, false},
		{"clone", TypeClone, false},
		{"flip", TypeFlip, false},
		{"swap", TypeSwap, false},
		{"referee", TypeReferee, false},
		{"wildcard", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestNewAssignsUniqueIDs(t *testing.T) {
	a := New(TypeRule, Definition{Name: "A", FrontText: "front"})
	b := New(TypeRule, Definition{Name: "A", FrontText: "front"})
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID, "identical definitions must still get distinct ids")
}

func TestFlipIsInvolutionOnSide(t *testing.T) {
	c := New(TypeRule, Definition{FrontText: "front text", BackText: "back text"})
	require.Equal(t, "front text", c.CurrentText())

	require.NoError(t, c.Flip())
	assert.Equal(t, SideBack, c.Side)
	assert.Equal(t, "back text", c.CurrentText())

	require.NoError(t, c.Flip())
	assert.Equal(t, SideFront, c.Side)
	assert.Equal(t, "front text", c.CurrentText())
}

func TestFlippedIsMonotonic(t *testing.T) {
	c := New(TypeRule, Definition{FrontText: "f", BackText: "b"})
	assert.False(t, c.Flipped)

	require.NoError(t, c.Flip())
	assert.True(t, c.Flipped)

	// Flipping back to the front does not reset the latch.
	require.NoError(t, c.Flip())
	assert.True(t, c.Flipped)
}

func TestFlipFailsWithoutBackSide(t *testing.T) {
	c := New(TypeRule, Definition{FrontText: "only front"})
	err := c.Flip()
	require.Error(t, err)
	assert.Equal(t, SideFront, c.Side)
	assert.False(t, c.Flipped)
}

func TestFlipFailsForPrompts(t *testing.T) {
	c := New(TypePrompt, Definition{FrontText: "f", BackText: "b", Question: "q"})
	assert.Error(t, c.Flip())
}

func TestCloneOfProvenance(t *testing.T) {
	src := New(TypeRule, Definition{Name: "Src", FrontText: "f", BackText: "b"})
	src.SetOwner("alice")

	clone := CloneOf(src, "bob")
	assert.NotEqual(t, src.ID, clone.ID)
	assert.Equal(t, "bob", clone.OwnerID)
	assert.True(t, clone.IsClone)
	assert.Equal(t, src.ID, clone.SourceCardID)
	assert.Equal(t, "alice", clone.SourceOwnerID)
	assert.Equal(t, src.FrontText, clone.FrontText)
}

func TestRecordRoundTrip(t *testing.T) {
	c := New(TypeModifier, Definition{Name: "M", FrontText: "f", BackText: "b"})
	c.SetOwner("alice")
	require.NoError(t, c.Flip())

	got, err := FromRecord(c.ToRecord())
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, c.Type, got.Type)
	assert.Equal(t, SideBack, got.Side)
	assert.True(t, got.Flipped)
	assert.Equal(t, "alice", got.OwnerID)
}

func TestFromRecordLegacyFieldNames(t *testing.T) {
	got, err := FromRecord(Record{
		ID:    "legacy-1",
		Type:  "rule",
		SideA: "legacy front",
		SideB: "legacy back",
	})
	require.NoError(t, err)
	assert.Equal(t, "legacy front", got.FrontText)
	assert.Equal(t, "legacy back", got.BackText)
	assert.Equal(t, "legacy front", got.CurrentText())
}

func TestFromRecordUnknownType(t *testing.T) {
	_, err := FromRecord(Record{ID: "x", Type: "mystery"})
	assert.Error(t, err)
}
