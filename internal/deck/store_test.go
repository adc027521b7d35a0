package deck

import (
	"errors"
	"testing"

	"github.com/partydeck/party-server-go/internal/card"
	"github.com/partydeck/party-server-go/internal/gameerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDefs(n int) []card.Definition {
	defs := make([]card.Definition, 0, n)
	for i := 0; i < n; i++ {
		defs = append(defs, card.Definition{Name: "card", FrontText: "text"})
	}
	return defs
}

func newTestStore(t *testing.T, defs map[string][]card.Definition, opts ...Option) *Store {
	t.Helper()
	s, err := NewStore(defs, zap.NewNop(), opts...)
	require.NoError(t, err)
	return s
}

func TestDrawConservesCards(t *testing.T) {
	s := newTestStore(t, map[string][]card.Definition{"rule": testDefs(10)})

	drawn := make(map[string]bool)
	for i := 0; i < 10; i++ {
		c, err := s.Draw("rule")
		require.NoError(t, err)
		assert.False(t, drawn[c.ID], "card %s drawn twice", c.ID)
		drawn[c.ID] = true
		assert.Equal(t, 10-i-1, s.Remaining("rule"))
	}
	assert.Len(t, drawn, 10)
}

func TestDrawErrors(t *testing.T) {
	s := newTestStore(t, map[string][]card.Definition{"rule": testDefs(1)})

	_, err := s.Draw("")
	assert.True(t, errors.Is(err, gameerrors.ErrInvalidDeckType))

	_, err = s.Draw("nosuch")
	assert.True(t, errors.Is(err, gameerrors.ErrDeckNotFound))

	_, err = s.Draw("rule")
	require.NoError(t, err)
	_, err = s.Draw("rule")
	assert.True(t, errors.Is(err, gameerrors.ErrDeckEmpty))

	// An empty-deck failure must not touch the discard piles.
	assert.Equal(t, 0, s.DiscardCount("rule"))
}

func TestTwoCardDrawScenario(t *testing.T) {
	s := newTestStore(t, map[string][]card.Definition{
		"rule": {
			{Name: "cardA", FrontText: "a"},
			{Name: "cardB", FrontText: "b"},
		},
	})

	first, err := s.Draw("rule")
	require.NoError(t, err)
	assert.Contains(t, []string{"cardA", "cardB"}, first.Name)
	assert.Equal(t, 1, s.Remaining("rule"))

	second, err := s.Draw("rule")
	require.NoError(t, err)
	assert.NotEqual(t, first.Name, second.Name)

	_, err = s.Draw("rule")
	assert.True(t, errors.Is(err, gameerrors.ErrDeckEmpty))
}

func TestDiscard(t *testing.T) {
	s := newTestStore(t, map[string][]card.Definition{"prompt": testDefs(2)})

	c, err := s.Draw("prompt")
	require.NoError(t, err)
	require.NoError(t, s.Discard("prompt", c))
	assert.Equal(t, 1, s.DiscardCount("prompt"))

	err = s.Discard("nosuch", c)
	assert.True(t, errors.Is(err, gameerrors.ErrDiscardPileMissing))
}

func TestNewStoreRejectsUnknownDeckType(t *testing.T) {
	_, err := NewStore(map[string][]card.Definition{"mystery": testDefs(1)}, zap.NewNop())
	assert.Error(t, err)
}

func TestDeckTypesAndSnapshot(t *testing.T) {
	s := newTestStore(t, map[string][]card.Definition{
		"rule":   testDefs(3),
		"prompt": testDefs(2),
	})

	assert.ElementsMatch(t, []string{"rule", "prompt"}, s.DeckTypes())
	assert.True(t, s.HasDeck("rule"))
	assert.False(t, s.HasDeck("swap"))

	c, err := s.Draw("rule")
	require.NoError(t, err)
	require.NoError(t, s.Discard("rule", c))

	snap := s.Snapshot()
	assert.Equal(t, Counts{Deck: 2, Discard: 1}, snap["rule"])
	assert.Equal(t, Counts{Deck: 2, Discard: 0}, snap["prompt"])
}
