package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/partydeck/party-server-go/internal/card"
	"github.com/partydeck/party-server-go/internal/deck"
	"github.com/partydeck/party-server-go/internal/store"
	"go.uber.org/zap"
)

// Broadcaster fans an event out to the other clients of a session. The ws hub
// implements it; tests use a recording stub.
type Broadcaster interface {
	Publish(ev store.Event)
}

// RestrictionEvaluator is consulted before a draw. Active rule cards can veto
// a draw; the evaluator returns false plus a human-meaningful reason code.
type RestrictionEvaluator interface {
	CanDraw(sessionID, playerID, deckType string) (allowed bool, reason string)
}

// allowAll is the default evaluator: no rule restricts anything.
type allowAll struct{}

func (allowAll) CanDraw(string, string, string) (bool, string) { return true, "" }

// Manager is the authoritative in-memory owner of session state: decks,
// hands, rule-card collections, prompts, clone bookkeeping, and referee
// assignment. Local state is mutated synchronously; durable writes are issued
// afterwards and a failed write is logged, never rolled back.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	// prompts holds the active prompt challenge per session id. Transient:
	// never persisted.
	prompts map[string]*PromptChallenge

	decks    *deck.Store
	gateway  store.Gateway
	bcast    Broadcaster
	restrict RestrictionEvaluator

	rng    *rand.Rand
	now    func() time.Time
	logger *zap.Logger

	promptTimeLimit time.Duration
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithRand substitutes the random source used for referee selection.
func WithRand(rng *rand.Rand) ManagerOption {
	return func(m *Manager) { m.rng = rng }
}

// WithClock substitutes the clock used for prompt and transfer timestamps.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithRestrictionEvaluator installs a draw-restriction evaluator.
func WithRestrictionEvaluator(re RestrictionEvaluator) ManagerOption {
	return func(m *Manager) { m.restrict = re }
}

// WithBroadcaster installs the event fan-out sink.
func WithBroadcaster(b Broadcaster) ManagerOption {
	return func(m *Manager) { m.bcast = b }
}

// WithPromptTimeLimit overrides the advisory time limit stamped on prompt
// challenges.
func WithPromptTimeLimit(d time.Duration) ManagerOption {
	return func(m *Manager) { m.promptTimeLimit = d }
}

// NewManager creates a game manager on top of a deck store and a persistence
// gateway.
func NewManager(decks *deck.Store, gateway store.Gateway, logger *zap.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions:        make(map[string]*Session),
		prompts:         make(map[string]*PromptChallenge),
		decks:           decks,
		gateway:         gateway,
		restrict:        allowAll{},
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		now:             time.Now,
		logger:          logger,
		promptTimeLimit: DefaultPromptTimeLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Decks exposes the deck store for state displays.
func (m *Manager) Decks() *deck.Store {
	return m.decks
}

// persistHand mirrors a player's hand to the durable store. Best-effort:
// local state already committed, a failure is logged and swallowed.
func (m *Manager) persistHand(ctx context.Context, sessionID string, p *Player) {
	if err := m.gateway.SaveHand(ctx, sessionID, p.ID, card.Records(p.Hand), p.HandVersion); err != nil {
		m.logger.Warn("hand persistence failed, keeping local state",
			zap.String("session_id", sessionID),
			zap.String("player_id", p.ID),
			zap.Int("hand_version", p.HandVersion),
			zap.Error(err),
		)
	}
}

// persistRuleCards mirrors a player's rule-card collection, best-effort.
func (m *Manager) persistRuleCards(ctx context.Context, p *Player) {
	if err := m.gateway.SaveRuleCards(ctx, p.ID, card.Records(p.RuleCards)); err != nil {
		m.logger.Warn("rule card persistence failed, keeping local state",
			zap.String("player_id", p.ID),
			zap.Error(err),
		)
	}
}

// publishEvent appends the event to the durable stream and fans it out to
// connected clients, both best-effort.
func (m *Manager) publishEvent(ctx context.Context, ev store.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = m.now()
	}
	if err := m.gateway.AppendEvent(ctx, ev); err != nil {
		m.logger.Warn("event persistence failed",
			zap.String("session_id", ev.SessionID),
			zap.String("event_type", ev.Type),
			zap.Error(err),
		)
	}
	if m.bcast != nil {
		m.bcast.Publish(ev)
	}
}

// broadcastRuleCardUpdate publishes the lightweight rule-card-change event
// other clients listen for.
func (m *Manager) broadcastRuleCardUpdate(ctx context.Context, sessionID string, playerID string, c *card.Card) {
	m.publishEvent(ctx, store.Event{
		Type:      "rule_card_update",
		SessionID: sessionID,
		PlayerID:  playerID,
		Payload: map[string]any{
			"ruleCard": map[string]any{
				"id":        c.ID,
				"name":      c.Name,
				"type":      string(c.Type),
				"isFlipped": c.Flipped,
			},
		},
	})
}
