package game

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/partydeck/party-server-go/internal/card"
	"github.com/partydeck/party-server-go/internal/deck"
	"github.com/partydeck/party-server-go/internal/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// zeroSource is a rand.Source whose every draw is zero, so Intn always
// returns 0 and random selection deterministically picks the first option.
type zeroSource struct{}

func (zeroSource) Int63() int64 { return 0 }
func (zeroSource) Seed(int64)   {}

// recordingBroadcaster captures published events for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []store.Event
}

func (b *recordingBroadcaster) Publish(ev store.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *recordingBroadcaster) Events() []store.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]store.Event(nil), b.events...)
}

// vetoDraws is a RestrictionEvaluator that always refuses.
type vetoDraws struct{ reason string }

func (v vetoDraws) CanDraw(string, string, string) (bool, string) { return false, v.reason }

func testDeckDefs() map[string][]card.Definition {
	return map[string][]card.Definition{
		"rule": {
			{Name: "Rule A", FrontText: "rule a front", BackText: "rule a back"},
			{Name: "Rule B", FrontText: "rule b front"},
		},
		"modifier": {
			{Name: "Mod A", FrontText: "mod a front"},
		},
		"prompt": {
			{Name: "Prompt A", Question: "question a"},
		},
	}
}

type testEnv struct {
	mgr     *Manager
	gateway *store.Memory
	bcast   *recordingBroadcaster
}

func newTestEnv(t *testing.T, opts ...ManagerOption) *testEnv {
	t.Helper()
	return newTestEnvWithDefs(t, testDeckDefs(), opts...)
}

func newTestEnvWithDefs(t *testing.T, defs map[string][]card.Definition, opts ...ManagerOption) *testEnv {
	t.Helper()
	decks, err := deck.NewStore(defs, zap.NewNop())
	require.NoError(t, err)

	gateway := store.NewMemory()
	bcast := &recordingBroadcaster{}
	base := []ManagerOption{
		WithBroadcaster(bcast),
		WithRand(rand.New(zeroSource{})),
	}
	mgr := NewManager(decks, gateway, zap.NewNop(), append(base, opts...)...)
	return &testEnv{mgr: mgr, gateway: gateway, bcast: bcast}
}

// newSessionWithPlayers creates a session with the given players joined and
// mirrored to the gateway.
func (e *testEnv) newSessionWithPlayers(t *testing.T, sessionID string, playerIDs ...string) *Session {
	t.Helper()
	s := e.mgr.CreateSession(sessionID)
	for _, id := range playerIDs {
		_, err := e.mgr.AddPlayer(context.Background(), sessionID, id, "player "+id)
		require.NoError(t, err)
	}
	return s
}

// giveCard puts a card straight into a player's hand, bypassing the deck.
func giveCard(t *testing.T, s *Session, playerID string, c *card.Card) {
	t.Helper()
	p := s.Player(playerID)
	require.NotNil(t, p)
	c.SetOwner(playerID)
	p.Hand = append(p.Hand, c)
}

// giveRuleCard puts a card into a player's rule-card collection.
func giveRuleCard(t *testing.T, s *Session, playerID string, c *card.Card) {
	t.Helper()
	p := s.Player(playerID)
	require.NotNil(t, p)
	c.SetOwner(playerID)
	p.RuleCards = append(p.RuleCards, c)
}
