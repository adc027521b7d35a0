package deck

import (
	"time"

	"github.com/partydeck/party-server-go/internal/card"
	"go.uber.org/zap"
)

const (
	// DefaultReplacementMemory is how long the last replacement draw counts
	// as "recent" for the anti-repeat check.
	DefaultReplacementMemory = 30 * time.Second

	// DefaultReplacementAttempts bounds the redraw loop. After the last
	// attempt the drawn card is accepted even if it repeats; the guard is
	// best-effort, not a uniqueness guarantee.
	DefaultReplacementAttempts = 3
)

type recentReplacement struct {
	cardID string
	at     time.Time
}

// DrawReplacement draws a card intended to replace one the player just lost,
// avoiding handing the player the same card twice in a row. When the drawn
// card matches the player's most recent replacement (and that memory has not
// expired), the card goes back under the deck and another attempt is made, up
// to maxAttempts total.
// maxAttempts <= 0 selects the default. Draw failures propagate unchanged.
func (s *Store) DrawReplacement(deckType, playerID string, maxAttempts int) (*card.Card, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultReplacementAttempts
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 1; ; attempt++ {
		c, err := s.drawLocked(deckType)
		if err != nil {
			return nil, err
		}

		if attempt < maxAttempts && s.isRecentLocked(playerID, c.ID) {
			// Put the repeat under the deck so the next pop is a different
			// card whenever the deck holds more than one.
			s.decks[deckType] = append([]*card.Card{c}, s.decks[deckType]...)
			s.logger.Debug("replacement draw repeated, redrawing",
				zap.String("deck_type", deckType),
				zap.String("player_id", playerID),
				zap.String("card_id", c.ID),
				zap.Int("attempt", attempt),
			)
			continue
		}

		s.recent[playerID] = recentReplacement{cardID: c.ID, at: s.now()}
		return c, nil
	}
}

func (s *Store) isRecentLocked(playerID, cardID string) bool {
	rec, ok := s.recent[playerID]
	if !ok || rec.cardID != cardID {
		return false
	}
	return s.now().Sub(rec.at) <= s.replacementMemory
}

// ClearRecentReplacements drops the replacement memory for one player.
func (s *Store) ClearRecentReplacements(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recent, playerID)
}

// ClearAllRecentReplacements drops the replacement memory for every player.
func (s *Store) ClearAllRecentReplacements() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = make(map[string]recentReplacement)
}
