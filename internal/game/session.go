package game

import (
	"context"
	"fmt"
	"time"

	"github.com/partydeck/party-server-go/internal/card"
	"github.com/partydeck/party-server-go/internal/gameerrors"
	"github.com/partydeck/party-server-go/internal/store"
	"go.uber.org/zap"
)

// PlayerStatus is a player's participation state within a session.
type PlayerStatus string

const (
	PlayerActive   PlayerStatus = "active"
	PlayerInactive PlayerStatus = "inactive"
)

// Player is a session participant. Hand and RuleCards are tracked as separate
// sequences: the hand holds everything the player owns, the rule-card set
// holds the cards whose effect is currently active on the player. A card can
// appear in both.
type Player struct {
	ID     string
	Name   string
	Status PlayerStatus

	Hand      []*card.Card
	RuleCards []*card.Card

	// HandVersion increments on every hand mutation and rides along on
	// persisted hands and broadcast events, so consumers can detect a stale
	// read deterministically instead of waiting out a refresh delay.
	HandVersion int
}

func (p *Player) hasHandCard(cardID string) bool {
	for _, c := range p.Hand {
		if c.ID == cardID {
			return true
		}
	}
	return false
}

func (p *Player) hasRuleCard(cardID string) bool {
	for _, c := range p.RuleCards {
		if c.ID == cardID {
			return true
		}
	}
	return false
}

func (p *Player) findHandCard(cardID string) *card.Card {
	for _, c := range p.Hand {
		if c.ID == cardID {
			return c
		}
	}
	return nil
}

func (p *Player) findRuleCard(cardID string) *card.Card {
	for _, c := range p.RuleCards {
		if c.ID == cardID {
			return c
		}
	}
	return nil
}

func (p *Player) removeHandCard(cardID string) *card.Card {
	for i, c := range p.Hand {
		if c.ID == cardID {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return c
		}
	}
	return nil
}

func (p *Player) removeRuleCard(cardID string) *card.Card {
	for i, c := range p.RuleCards {
		if c.ID == cardID {
			p.RuleCards = append(p.RuleCards[:i], p.RuleCards[i+1:]...)
			return c
		}
	}
	return nil
}

// CloneRef is a back-reference from a source card to one of its clones.
type CloneRef struct {
	OwnerID string
	CloneID string
}

// TransferRecord documents a completed card transfer for the session history.
type TransferRecord struct {
	SessionID    string    `json:"sessionId"`
	FromPlayerID string    `json:"fromPlayerId"`
	ToPlayerID   string    `json:"toPlayerId"`
	CardID       string    `json:"cardId"`
	CardType     card.Type `json:"cardType"`
	CardName     string    `json:"cardName"`
	Reason       string    `json:"reason,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Session is one running game. The manager owns the registry of sessions; a
// session's collections are mutated only by the single code path handling the
// current player action.
type Session struct {
	ID        string
	RefereeID string

	players []*Player // join order preserved

	// cloneMap maps a source card id to every clone made from it, so
	// removing the source can cascade to the clones.
	cloneMap map[string][]CloneRef

	transfers []TransferRecord
}

// Player returns the session participant with the given id, or nil.
func (s *Session) Player(playerID string) *Player {
	for _, p := range s.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// Players returns the session participants in join order.
func (s *Session) Players() []*Player {
	return append([]*Player(nil), s.players...)
}

// Transfers returns the session's transfer history.
func (s *Session) Transfers() []TransferRecord {
	return append([]TransferRecord(nil), s.transfers...)
}

// CloneRefs returns the clone back-references recorded for a source card id.
func (s *Session) CloneRefs(sourceCardID string) []CloneRef {
	return append([]CloneRef(nil), s.cloneMap[sourceCardID]...)
}

// CreateSession registers a new session under the given id. Creating an id
// that already exists returns the existing session.
func (m *Manager) CreateSession(sessionID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		return s
	}
	s := &Session{
		ID:       sessionID,
		cloneMap: make(map[string][]CloneRef),
	}
	m.sessions[sessionID] = s
	m.logger.Info("session created", zap.String("session_id", sessionID))
	return s
}

// Session returns the registered session, or nil when the id is unknown.
func (m *Manager) Session(sessionID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID]
}

func (m *Manager) session(sessionID string) (*Session, error) {
	s := m.Session(sessionID)
	if s == nil {
		return nil, fmt.Errorf("%w: %q", gameerrors.ErrSessionNotFound, sessionID)
	}
	return s, nil
}

// AddPlayer joins a player to the session and mirrors the join to the durable
// store so referee selection sees it.
func (m *Manager) AddPlayer(ctx context.Context, sessionID, playerID, name string) (*Player, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if existing := s.Player(playerID); existing != nil {
		m.mu.Unlock()
		return existing, nil
	}
	p := &Player{ID: playerID, Name: name, Status: PlayerActive}
	s.players = append(s.players, p)
	m.mu.Unlock()

	m.persistPlayer(ctx, sessionID, p)
	m.logger.Info("player joined",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
	)
	return p, nil
}

// SetPlayerStatus marks a player active or inactive and mirrors the change to
// the durable store.
func (m *Manager) SetPlayerStatus(ctx context.Context, sessionID, playerID string, status PlayerStatus) error {
	s, err := m.session(sessionID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	p := s.Player(playerID)
	if p == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", gameerrors.ErrPlayerNotFound, playerID)
	}
	p.Status = status
	m.mu.Unlock()

	m.persistPlayer(ctx, sessionID, p)
	return nil
}

// persistPlayer mirrors the player row to the durable store, best-effort.
func (m *Manager) persistPlayer(ctx context.Context, sessionID string, p *Player) {
	rec := store.PlayerRecord{PlayerID: p.ID, Name: p.Name, Status: string(p.Status)}
	if err := m.gateway.UpsertPlayer(ctx, sessionID, rec); err != nil {
		m.logger.Warn("player persistence failed, keeping local state",
			zap.String("session_id", sessionID),
			zap.String("player_id", p.ID),
			zap.Error(err),
		)
	}
}
