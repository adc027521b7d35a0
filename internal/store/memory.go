package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/partydeck/party-server-go/internal/card"
)

// Memory is an in-process Gateway used by tests and by the server when no
// database is configured. It supports write-failure injection so the core's
// local-first persistence policy can be exercised.
type Memory struct {
	mu        sync.Mutex
	hands     map[string][]card.Record // key: sessionID + "/" + playerID
	versions  map[string]int
	ruleCards map[string][]card.Record
	referees  map[string]string
	players   map[string][]PlayerRecord
	events    []Event

	failWrites error
}

var _ Gateway = (*Memory)(nil)

// NewMemory returns an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{
		hands:     make(map[string][]card.Record),
		versions:  make(map[string]int),
		ruleCards: make(map[string][]card.Record),
		referees:  make(map[string]string),
		players:   make(map[string][]PlayerRecord),
	}
}

// FailWrites makes every subsequent write return err. A nil err restores
// normal behavior.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = err
}

func handKey(sessionID, playerID string) string { return sessionID + "/" + playerID }

func (m *Memory) SaveHand(_ context.Context, sessionID, playerID string, hand []card.Record, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	m.hands[handKey(sessionID, playerID)] = append([]card.Record(nil), hand...)
	m.versions[handKey(sessionID, playerID)] = version
	return nil
}

func (m *Memory) SaveRuleCards(_ context.Context, playerID string, ruleCards []card.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	m.ruleCards[playerID] = append([]card.Record(nil), ruleCards...)
	return nil
}

func (m *Memory) SaveReferee(_ context.Context, sessionID, refereePlayerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	m.referees[sessionID] = refereePlayerID
	return nil
}

func (m *Memory) ActivePlayers(_ context.Context, sessionID string) ([]PlayerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PlayerRecord(nil), m.players[sessionID]...), nil
}

func (m *Memory) AppendEvent(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *Memory) UpsertPlayer(_ context.Context, sessionID string, rec PlayerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	id := rec.ResolveID()
	for i, existing := range m.players[sessionID] {
		if existing.ResolveID() == id {
			m.players[sessionID][i] = rec
			return nil
		}
	}
	m.players[sessionID] = append(m.players[sessionID], rec)
	return nil
}

// Close is a no-op for the in-memory gateway.
func (m *Memory) Close() {}

// Hand returns the stored hand and its version for assertions in tests.
func (m *Memory) Hand(sessionID, playerID string) ([]card.Record, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hands[handKey(sessionID, playerID)], m.versions[handKey(sessionID, playerID)]
}

// RuleCards returns the stored rule-card collection for a player.
func (m *Memory) RuleCards(playerID string) []card.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ruleCards[playerID]
}

// Referee returns the stored referee pointer for a session.
func (m *Memory) Referee(sessionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.referees[sessionID]
}

// Events returns a copy of everything appended to the event stream.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
