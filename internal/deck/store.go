package deck

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/partydeck/party-server-go/internal/card"
	"github.com/partydeck/party-server-go/internal/gameerrors"
	"go.uber.org/zap"
)

// Store owns the undrawn decks and discard piles for every configured deck
// type. The top of a deck is the end of the slice, so a draw is a pop. All
// mutation goes through the store's mutex; the store performs no external I/O.
type Store struct {
	mu       sync.Mutex
	decks    map[string][]*card.Card
	discards map[string][]*card.Card

	rng    *rand.Rand
	now    func() time.Time
	logger *zap.Logger

	// per-player replacement-draw memory, see replacement.go
	recent            map[string]recentReplacement
	replacementMemory time.Duration
}

// Option customizes a Store. Used by tests to inject a deterministic random
// source and clock.
type Option func(*Store)

// WithRand substitutes the random source used for shuffling.
func WithRand(rng *rand.Rand) Option {
	return func(s *Store) { s.rng = rng }
}

// WithClock substitutes the clock used for replacement-draw memory expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithReplacementMemory overrides how long a replacement draw is remembered.
func WithReplacementMemory(d time.Duration) Option {
	return func(s *Store) { s.replacementMemory = d }
}

// NewStore builds one deck per entry in defs, converting raw definitions into
// card entities and shuffling each deck independently. Deck type keys must be
// valid card types. Every deck gets an empty discard pile.
func NewStore(defs map[string][]card.Definition, logger *zap.Logger, opts ...Option) (*Store, error) {
	s := &Store{
		decks:             make(map[string][]*card.Card, len(defs)),
		discards:          make(map[string][]*card.Card, len(defs)),
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
		now:               time.Now,
		logger:            logger,
		recent:            make(map[string]recentReplacement),
		replacementMemory: DefaultReplacementMemory,
	}
	for _, opt := range opts {
		opt(s)
	}

	for deckType, cardDefs := range defs {
		cardType, err := card.ParseType(deckType)
		if err != nil {
			return nil, fmt.Errorf("deck %q: %w", deckType, err)
		}
		cards := make([]*card.Card, 0, len(cardDefs))
		for _, def := range cardDefs {
			cards = append(cards, card.New(cardType, def))
		}
		s.shuffle(cards)
		s.decks[deckType] = cards
		s.discards[deckType] = nil
		logger.Info("deck initialized",
			zap.String("deck_type", deckType),
			zap.Int("cards", len(cards)),
		)
	}
	return s, nil
}

// shuffle applies a uniform Fisher-Yates permutation in place.
func (s *Store) shuffle(cards []*card.Card) {
	s.rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// Draw removes and returns the top card of the named deck.
func (s *Store) Draw(deckType string) (*card.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawLocked(deckType)
}

func (s *Store) drawLocked(deckType string) (*card.Card, error) {
	if deckType == "" {
		return nil, gameerrors.ErrInvalidDeckType
	}
	cards, ok := s.decks[deckType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", gameerrors.ErrDeckNotFound, deckType)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: %q", gameerrors.ErrDeckEmpty, deckType)
	}
	c := cards[len(cards)-1]
	s.decks[deckType] = cards[:len(cards)-1]
	return c, nil
}

// Discard appends a spent card to the named discard pile. Discard piles are
// append-only; nothing in the core draws from them.
func (s *Store) Discard(deckType string, c *card.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.discards[deckType]; !ok {
		return fmt.Errorf("%w: %q", gameerrors.ErrDiscardPileMissing, deckType)
	}
	s.discards[deckType] = append(s.discards[deckType], c)
	return nil
}

// DeckTypes returns the configured deck type keys.
func (s *Store) DeckTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]string, 0, len(s.decks))
	for t := range s.decks {
		types = append(types, t)
	}
	return types
}

// HasDeck reports whether deckType is configured.
func (s *Store) HasDeck(deckType string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.decks[deckType]
	return ok
}

// Remaining returns the number of undrawn cards in the named deck.
func (s *Store) Remaining(deckType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.decks[deckType])
}

// DiscardCount returns the number of cards in the named discard pile.
func (s *Store) DiscardCount(deckType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.discards[deckType])
}

// Counts is a point-in-time size snapshot of one deck type.
type Counts struct {
	Deck    int
	Discard int
}

// Snapshot returns deck and discard sizes per deck type for state displays.
func (s *Store) Snapshot() map[string]Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counts, len(s.decks))
	for t, cards := range s.decks {
		out[t] = Counts{Deck: len(cards), Discard: len(s.discards[t])}
	}
	return out
}
