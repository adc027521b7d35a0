package game

import (
	"context"
	"fmt"
	"time"

	"github.com/partydeck/party-server-go/internal/card"
	"github.com/partydeck/party-server-go/internal/gameerrors"
	"go.uber.org/zap"
)

// DefaultPromptTimeLimit is the answer window stamped on prompt challenges.
// A running prompt is never auto-cancelled, but a judgment arriving past the
// limit closes the prompt as expired rather than judged.
const DefaultPromptTimeLimit = 60 * time.Second

// EffectKind names the outcome of a dispatched card effect.
type EffectKind string

const (
	EffectRuleActivated   EffectKind = "rule_activated"
	EffectModifierApplied EffectKind = "modifier_applied"
	EffectPromptStarted   EffectKind = "prompt_started"
	EffectCardCloned      EffectKind = "card_cloned"
	EffectCardFlipped     EffectKind = "card_flipped"
	EffectCardSwapped     EffectKind = "card_swapped"
)

// EffectResult is the structured outcome of a card effect.
type EffectResult struct {
	Kind     EffectKind
	CardID   string
	PlayerID string
	Text     string

	// Prompt is set for prompt effects.
	Prompt *PromptChallenge
	// Clone is the newly created card for clone effects.
	Clone *card.Card
}

// EffectContext carries the selections an effect needs beyond the card
// itself: clone and swap effects target another player's card. Selections are
// explicit arguments, never ambient state.
type EffectContext struct {
	TargetPlayerID string
	TargetCardID   string
}

// PromptStatus is the lifecycle state of a prompt challenge.
type PromptStatus string

const (
	PromptActive   PromptStatus = "active"
	PromptJudged   PromptStatus = "judged"
	PromptExpired  PromptStatus = "expired"
)

// PromptChallenge is the ephemeral state of an in-flight prompt card. It
// lives in memory keyed by session id and is never written to the durable
// store; the referee judges it through ResolvePrompt.
type PromptChallenge struct {
	SessionID       string
	PlayerID        string
	Card            *card.Card
	Status          PromptStatus
	StartTime       time.Time
	TimeLimit       time.Duration
	EndTime         *time.Time
	RefereeJudgment *string
}

// ApplyCardEffect routes a card to its type-specific effect handler and
// returns the structured outcome. Unknown types fail with UnknownCardType.
func (m *Manager) ApplyCardEffect(ctx context.Context, sessionID, playerID string, c *card.Card, ec EffectContext) (*EffectResult, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil card", gameerrors.ErrInvalidInput)
	}

	switch c.Type {
	case card.TypeRule:
		return m.applyPersistentCard(ctx, sessionID, playerID, c, EffectRuleActivated, gameerrors.ErrNoRuleText)
	case card.TypeModifier:
		return m.applyPersistentCard(ctx, sessionID, playerID, c, EffectModifierApplied, gameerrors.ErrNoModifierText)
	case card.TypePrompt:
		return m.applyPrompt(sessionID, playerID, c)
	case card.TypeClone:
		return m.applyClone(ctx, sessionID, playerID, ec)
	case card.TypeFlip:
		return m.applyFlip(ctx, sessionID, playerID, c)
	case card.TypeSwap:
		return m.applySwap(ctx, sessionID, playerID, ec)
	case card.TypeReferee:
		// Referee cards are assigned through AssignRefereeCard, never drawn
		// as an effect.
		return nil, fmt.Errorf("%w: %q", gameerrors.ErrUnknownCardType, c.Type)
	default:
		return nil, fmt.Errorf("%w: %q", gameerrors.ErrUnknownCardType, c.Type)
	}
}

// applyPersistentCard handles rule and modifier cards, which attach to the
// player as an ongoing effect. The append is idempotent by card id, not by
// content: the same text on two different cards is two effects.
func (m *Manager) applyPersistentCard(ctx context.Context, sessionID, playerID string, c *card.Card, kind EffectKind, missingText error) (*EffectResult, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	text := c.CurrentText()
	if text == "" {
		return nil, fmt.Errorf("%w: card %s", missingText, c.ID)
	}

	m.mu.Lock()
	p := s.Player(playerID)
	if p == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", gameerrors.ErrPlayerNotFound, playerID)
	}
	c.SetOwner(playerID)
	if !p.hasRuleCard(c.ID) {
		p.RuleCards = append(p.RuleCards, c)
	}
	if !p.hasHandCard(c.ID) {
		p.Hand = append(p.Hand, c)
		p.HandVersion++
	}
	m.mu.Unlock()

	m.broadcastRuleCardUpdate(ctx, sessionID, playerID, c)
	m.persistRuleCards(ctx, p)
	m.persistHand(ctx, sessionID, p)

	m.logger.Info("card effect applied",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
		zap.String("card_id", c.ID),
		zap.String("kind", string(kind)),
	)
	return &EffectResult{Kind: kind, CardID: c.ID, PlayerID: playerID, Text: text}, nil
}

// applyPrompt opens a prompt challenge for the session. One active prompt per
// session; starting a new one replaces a stale predecessor.
func (m *Manager) applyPrompt(sessionID, playerID string, c *card.Card) (*EffectResult, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}
	if s.Player(playerID) == nil {
		return nil, fmt.Errorf("%w: %q", gameerrors.ErrPlayerNotFound, playerID)
	}

	pc := &PromptChallenge{
		SessionID: sessionID,
		PlayerID:  playerID,
		Card:      c,
		Status:    PromptActive,
		StartTime: m.now(),
		TimeLimit: m.promptTimeLimit,
	}

	m.mu.Lock()
	m.prompts[sessionID] = pc
	m.mu.Unlock()

	text := c.Question
	if text == "" {
		text = c.CurrentText()
	}
	return &EffectResult{Kind: EffectPromptStarted, CardID: c.ID, PlayerID: playerID, Text: text, Prompt: pc}, nil
}

// applyClone delegates to the ledger's clone operation using the selections
// in the effect context.
func (m *Manager) applyClone(ctx context.Context, sessionID, playerID string, ec EffectContext) (*EffectResult, error) {
	if ec.TargetPlayerID == "" || ec.TargetCardID == "" {
		return nil, fmt.Errorf("%w: clone effect needs a target player and card", gameerrors.ErrInvalidInput)
	}
	clone, err := m.CloneCard(ctx, sessionID, playerID, ec.TargetPlayerID, ec.TargetCardID)
	if err != nil {
		return nil, err
	}
	return &EffectResult{Kind: EffectCardCloned, CardID: clone.ID, PlayerID: playerID, Text: clone.CurrentText(), Clone: clone}, nil
}

// applyFlip flips the card in place. When the card lives in the player's
// rule-card collection the collection is persisted; a hand-only card is not
// separately persisted (active rule cards are the durable source of truth).
func (m *Manager) applyFlip(ctx context.Context, sessionID, playerID string, c *card.Card) (*EffectResult, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	if err := c.Flip(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	p := s.Player(playerID)
	inRuleCards := p != nil && p.hasRuleCard(c.ID)
	m.mu.RUnlock()

	if inRuleCards {
		m.broadcastRuleCardUpdate(ctx, sessionID, playerID, c)
		m.persistRuleCards(ctx, p)
	}
	return &EffectResult{Kind: EffectCardFlipped, CardID: c.ID, PlayerID: playerID, Text: c.CurrentText()}, nil
}

// applySwap executes the atomic single-card swap primitive using the
// selections in the effect context. The dual-selection swap flow is the
// caller's orchestration; only this primitive is in-core.
func (m *Manager) applySwap(ctx context.Context, sessionID, playerID string, ec EffectContext) (*EffectResult, error) {
	if ec.TargetPlayerID == "" || ec.TargetCardID == "" {
		return nil, fmt.Errorf("%w: swap effect needs a source player and card", gameerrors.ErrInvalidInput)
	}
	moved, err := m.SwapCard(ctx, sessionID, playerID, ec.TargetPlayerID, ec.TargetCardID)
	if err != nil {
		return nil, err
	}
	return &EffectResult{Kind: EffectCardSwapped, CardID: moved.ID, PlayerID: playerID, Text: moved.CurrentText()}, nil
}

// FlipCard flips a card the player already holds, located by id in their hand
// and rule-card collection.
func (m *Manager) FlipCard(ctx context.Context, sessionID, playerID, cardID string) (*EffectResult, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	p := s.Player(playerID)
	if p == nil {
		m.mu.RUnlock()
		return nil, fmt.Errorf("%w: %q", gameerrors.ErrPlayerNotFound, playerID)
	}
	c := p.findHandCard(cardID)
	if c == nil {
		c = p.findRuleCard(cardID)
	}
	m.mu.RUnlock()
	if c == nil {
		return nil, fmt.Errorf("%w: %q on player %q", gameerrors.ErrCardNotFound, cardID, playerID)
	}
	return m.applyFlip(ctx, sessionID, playerID, c)
}

// ActivePrompt returns the session's in-flight prompt challenge, or nil.
func (m *Manager) ActivePrompt(sessionID string) *PromptChallenge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prompts[sessionID]
}

// ResolvePrompt records the referee's judgment on the session's active prompt
// and closes it. A judgment arriving after the prompt's time limit closes it
// as expired instead of judged; the judgment is still recorded.
func (m *Manager) ResolvePrompt(sessionID, judgment string) (*PromptChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pc, ok := m.prompts[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: no active prompt for session %q", gameerrors.ErrCardNotFound, sessionID)
	}
	end := m.now()
	pc.Status = PromptJudged
	if end.Sub(pc.StartTime) > pc.TimeLimit {
		pc.Status = PromptExpired
	}
	pc.EndTime = &end
	pc.RefereeJudgment = &judgment
	delete(m.prompts, sessionID)
	return pc, nil
}

// DrawCheck is the gating result consulted before a draw.
type DrawCheck struct {
	CanDraw bool
	Reason  string
}

// CanDrawCard reports whether a draw from deckType is currently allowed for
// the player: the deck type must exist, deck and discard must not both be
// exhausted, and no active rule restriction may veto the draw.
func (m *Manager) CanDrawCard(sessionID, playerID, deckType string) DrawCheck {
	if deckType == "" {
		return DrawCheck{Reason: "invalid deck type"}
	}
	if !m.decks.HasDeck(deckType) {
		return DrawCheck{Reason: fmt.Sprintf("unknown deck type %q", deckType)}
	}
	if m.decks.Remaining(deckType) == 0 && m.decks.DiscardCount(deckType) == 0 {
		return DrawCheck{Reason: fmt.Sprintf("no cards left in %q", deckType)}
	}
	if allowed, reason := m.restrict.CanDraw(sessionID, playerID, deckType); !allowed {
		return DrawCheck{Reason: reason}
	}
	return DrawCheck{CanDraw: true}
}

// DrawAndActivate composes the full draw path: gating check, draw, effect
// dispatch. A failed check short-circuits with DrawRestricted carrying the
// reason. Cards that do not attach to the player (anything but rule and
// modifier) are discarded after their effect resolves, so the per-deck card
// count is conserved.
func (m *Manager) DrawAndActivate(ctx context.Context, sessionID, playerID, deckType string, ec EffectContext) (*card.Card, *EffectResult, error) {
	if check := m.CanDrawCard(sessionID, playerID, deckType); !check.CanDraw {
		return nil, nil, fmt.Errorf("%w: %s", gameerrors.ErrDrawRestricted, check.Reason)
	}

	c, err := m.decks.Draw(deckType)
	if err != nil {
		return nil, nil, err
	}
	return m.activateDrawn(ctx, sessionID, playerID, deckType, c, ec)
}

// ReplacementDrawAndActivate is the replacement-draw variant of
// DrawAndActivate: the card comes through the deck store's anti-repeat guard,
// and the same gating and discard bookkeeping apply so the drawn card always
// ends up in exactly one place.
func (m *Manager) ReplacementDrawAndActivate(ctx context.Context, sessionID, playerID, deckType string, maxAttempts int, ec EffectContext) (*card.Card, *EffectResult, error) {
	if check := m.CanDrawCard(sessionID, playerID, deckType); !check.CanDraw {
		return nil, nil, fmt.Errorf("%w: %s", gameerrors.ErrDrawRestricted, check.Reason)
	}

	c, err := m.decks.DrawReplacement(deckType, playerID, maxAttempts)
	if err != nil {
		return nil, nil, err
	}
	return m.activateDrawn(ctx, sessionID, playerID, deckType, c, ec)
}

// activateDrawn dispatches the effect of a freshly drawn card and settles
// where the card lives afterwards: rule and modifier cards attach to the
// player, everything else goes to the discard pile, including cards whose
// effect failed.
func (m *Manager) activateDrawn(ctx context.Context, sessionID, playerID, deckType string, c *card.Card, ec EffectContext) (*card.Card, *EffectResult, error) {
	res, err := m.ApplyCardEffect(ctx, sessionID, playerID, c, ec)
	if err != nil {
		// The effect did not take; the card is spent either way.
		if derr := m.decks.Discard(deckType, c); derr != nil {
			m.logger.Warn("discard after failed effect", zap.Error(derr))
		}
		return c, nil, err
	}

	if c.Type != card.TypeRule && c.Type != card.TypeModifier {
		if derr := m.decks.Discard(deckType, c); derr != nil {
			m.logger.Warn("discard after effect", zap.Error(derr))
		}
	}
	return c, res, nil
}
