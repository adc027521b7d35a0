package game

import (
	"context"
	"fmt"

	"github.com/partydeck/party-server-go/internal/card"
	"github.com/partydeck/party-server-go/internal/gameerrors"
	"github.com/partydeck/party-server-go/internal/store"
	"go.uber.org/zap"
)

// NewRefereeCard builds the special non-gameplay card the referee holds.
func NewRefereeCard(name string) *card.Card {
	return card.New(card.TypeReferee, card.Definition{
		Name:      name,
		FrontText: "You judge prompt challenges and settle rule disputes",
	})
}

// AssignRefereeCard selects a referee uniformly at random among the session's
// active players and hands them the referee card. The active-player list is
// always re-fetched from the durable store; the local session player list is
// never trusted for this decision. Returns the selected player id.
//
// On any failure before selection the session's referee pointer is left
// unchanged.
func (m *Manager) AssignRefereeCard(ctx context.Context, sessionID string, refCard *card.Card) (string, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return "", err
	}
	if refCard == nil || refCard.Type != card.TypeReferee {
		return "", fmt.Errorf("%w: referee assignment needs a referee-typed card", gameerrors.ErrInvalidInput)
	}

	records, err := m.gateway.ActivePlayers(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("fetch active players: %w", err)
	}
	active := make([]store.PlayerRecord, 0, len(records))
	for _, rec := range records {
		if rec.Active() {
			active = append(active, rec)
		}
	}
	if len(active) == 0 {
		return "", fmt.Errorf("%w: session %q", gameerrors.ErrNoActivePlayers, sessionID)
	}

	// Strip the role from the outgoing referee. Best-effort: an absent card
	// is logged, not an error. Matching is by card type, not by display name,
	// so a user-named "Referee Card" can never false-match.
	var prevPlayer *Player
	m.mu.Lock()
	if s.RefereeID != "" {
		if prev := s.Player(s.RefereeID); prev != nil {
			removed := false
			for i := 0; i < len(prev.RuleCards); {
				if prev.RuleCards[i].Type == card.TypeReferee {
					prev.RuleCards = append(prev.RuleCards[:i], prev.RuleCards[i+1:]...)
					removed = true
					continue
				}
				i++
			}
			if removed {
				prevPlayer = prev
			} else {
				m.logger.Debug("previous referee held no referee card",
					zap.String("session_id", sessionID),
					zap.String("player_id", s.RefereeID),
				)
			}
		}
	}
	m.mu.Unlock()

	if prevPlayer != nil {
		m.persistRuleCards(ctx, prevPlayer)
	}

	selected := active[m.rng.Intn(len(active))]
	playerID := selected.ResolveID()
	if playerID == "" {
		m.logger.Error("selected player record carries no identifier",
			zap.String("session_id", sessionID),
			zap.String("name", selected.Name),
		)
		return "", fmt.Errorf("%w: player record has no id field", gameerrors.ErrInvalidInput)
	}

	m.mu.Lock()
	refCard.SetOwner(playerID)
	p := s.Player(playerID)
	if p != nil && !p.hasRuleCard(refCard.ID) {
		p.RuleCards = append(p.RuleCards, refCard)
	}
	s.RefereeID = playerID
	m.mu.Unlock()

	if err := m.gateway.SaveReferee(ctx, sessionID, playerID); err != nil {
		m.logger.Warn("referee persistence failed, keeping local state",
			zap.String("session_id", sessionID),
			zap.String("player_id", playerID),
			zap.Error(err),
		)
	}
	if p != nil {
		m.persistRuleCards(ctx, p)
	}

	m.logger.Info("referee assigned",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
		zap.Int("active_players", len(active)),
	)
	return playerID, nil
}
