package game

import (
	"context"
	"fmt"

	"github.com/partydeck/party-server-go/internal/card"
	"github.com/partydeck/party-server-go/internal/gameerrors"
	"github.com/partydeck/party-server-go/internal/store"
	"go.uber.org/zap"
)

// AssignCardOwnership stamps playerID as owner on every card in the list.
// A nil list is rejected; an empty one is a no-op success.
func (m *Manager) AssignCardOwnership(playerID string, cards []*card.Card) error {
	if cards == nil {
		return fmt.Errorf("%w: nil card list", gameerrors.ErrInvalidInput)
	}
	for _, c := range cards {
		if c != nil {
			c.SetOwner(playerID)
		}
	}
	return nil
}

// CloneCard creates an independently-owned copy of another player's card for
// the requesting player. The target card is looked up in the target player's
// hand first, then their rule-card collection. The clone gets a fresh id,
// records its provenance, lands in the requester's hand and rule-card
// collection, and is registered in the session's clone map so removal of the
// source cascades.
func (m *Manager) CloneCard(ctx context.Context, sessionID, requesterID, targetPlayerID, targetCardID string) (*card.Card, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	requester := s.Player(requesterID)
	if requester == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", gameerrors.ErrPlayerNotFound, requesterID)
	}
	target := s.Player(targetPlayerID)
	if target == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", gameerrors.ErrTargetNotFound, targetPlayerID)
	}
	src := target.findHandCard(targetCardID)
	if src == nil {
		src = target.findRuleCard(targetCardID)
	}
	if src == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q on player %q", gameerrors.ErrCardNotFound, targetCardID, targetPlayerID)
	}

	clone := card.CloneOf(src, requesterID)
	requester.Hand = append(requester.Hand, clone)
	requester.HandVersion++
	requester.RuleCards = append(requester.RuleCards, clone)
	s.cloneMap[src.ID] = append(s.cloneMap[src.ID], CloneRef{OwnerID: requesterID, CloneID: clone.ID})
	m.mu.Unlock()

	m.persistHand(ctx, sessionID, requester)
	m.persistRuleCards(ctx, requester)

	m.logger.Info("card cloned",
		zap.String("session_id", sessionID),
		zap.String("requester_id", requesterID),
		zap.String("source_card_id", src.ID),
		zap.String("clone_id", clone.ID),
	)
	return clone, nil
}

// TransferCard moves a card from one player's hand to another's, reassigning
// ownership and recording the transfer in the session history. Only the
// source hand is searched; rule-card collections are not touched here. The
// operation succeeds even when the durable writes fail: local state is the
// source of truth for the remainder of the session.
func (m *Manager) TransferCard(ctx context.Context, sessionID, fromPlayerID, toPlayerID, cardID, reason string) (*card.Card, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	from := s.Player(fromPlayerID)
	if from == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", gameerrors.ErrFromPlayerNotFound, fromPlayerID)
	}
	to := s.Player(toPlayerID)
	if to == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", gameerrors.ErrToPlayerNotFound, toPlayerID)
	}
	c := from.removeHandCard(cardID)
	if c == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q in hand of %q", gameerrors.ErrCardNotFound, cardID, fromPlayerID)
	}
	from.HandVersion++
	c.SetOwner(toPlayerID)
	to.Hand = append(to.Hand, c)
	to.HandVersion++

	rec := TransferRecord{
		SessionID:    sessionID,
		FromPlayerID: fromPlayerID,
		ToPlayerID:   toPlayerID,
		CardID:       c.ID,
		CardType:     c.Type,
		CardName:     c.Name,
		Reason:       reason,
		Timestamp:    m.now(),
	}
	s.transfers = append(s.transfers, rec)
	m.mu.Unlock()

	m.persistHand(ctx, sessionID, from)
	m.persistHand(ctx, sessionID, to)
	m.publishEvent(ctx, store.Event{
		Type:      "card_transfer",
		SessionID: sessionID,
		PlayerID:  fromPlayerID,
		Payload: map[string]any{
			"toPlayerId": toPlayerID,
			"cardId":     c.ID,
			"cardType":   string(c.Type),
			"cardName":   c.Name,
			"reason":     reason,
		},
	})

	m.logger.Info("card transferred",
		zap.String("session_id", sessionID),
		zap.String("from", fromPlayerID),
		zap.String("to", toPlayerID),
		zap.String("card_id", c.ID),
		zap.String("reason", reason),
	)
	return c, nil
}

// SwapCard is the atomic one-directional half of a swap: it moves a single
// card from the original player to the receiving player's hand. The original
// player's hand is searched first, then their rule-card collection. A card
// sourced from the rule-card collection is removed there, but the receiving
// side only ever gains a hand card; the rule-card collection is deliberately
// not mirrored (see DESIGN.md on the swap asymmetry).
func (m *Manager) SwapCard(ctx context.Context, sessionID, receivingPlayerID, originalPlayerID, cardID string) (*card.Card, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	receiving := s.Player(receivingPlayerID)
	if receiving == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", gameerrors.ErrToPlayerNotFound, receivingPlayerID)
	}
	original := s.Player(originalPlayerID)
	if original == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", gameerrors.ErrFromPlayerNotFound, originalPlayerID)
	}

	fromRuleCards := false
	c := original.removeHandCard(cardID)
	if c == nil {
		c = original.removeRuleCard(cardID)
		fromRuleCards = c != nil
	} else {
		original.HandVersion++
	}
	if c == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q on player %q", gameerrors.ErrCardNotFound, cardID, originalPlayerID)
	}

	c.SetOwner(receivingPlayerID)
	receiving.Hand = append(receiving.Hand, c)
	receiving.HandVersion++
	m.mu.Unlock()

	m.persistHand(ctx, sessionID, original)
	m.persistHand(ctx, sessionID, receiving)
	if fromRuleCards {
		m.persistRuleCards(ctx, original)
	}

	m.logger.Info("card swapped",
		zap.String("session_id", sessionID),
		zap.String("receiving", receivingPlayerID),
		zap.String("original", originalPlayerID),
		zap.String("card_id", c.ID),
		zap.Bool("from_rule_cards", fromRuleCards),
	)
	return c, nil
}

// RemoveCardFromPlayer removes a card from a player's hand and rule-card
// collection. Removal cascades: every clone registered for the card is
// removed from its owner's collections, and when the removed card is itself a
// clone its back-reference is pruned from the source's clone list.
func (m *Manager) RemoveCardFromPlayer(ctx context.Context, sessionID, playerID, cardID string) error {
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

	removed := p.removeHandCard(cardID)
	if removed != nil {
		p.HandVersion++
	}
	if rc := p.removeRuleCard(cardID); removed == nil {
		removed = rc
	}
	if removed == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q on player %q", gameerrors.ErrCardNotFound, cardID, playerID)
	}

	touched := map[string]*Player{playerID: p}

	// Cascade to clones of the removed card.
	for _, ref := range s.cloneMap[cardID] {
		owner := s.Player(ref.OwnerID)
		if owner == nil {
			continue
		}
		if owner.removeHandCard(ref.CloneID) != nil {
			owner.HandVersion++
		}
		owner.removeRuleCard(ref.CloneID)
		touched[owner.ID] = owner
	}
	delete(s.cloneMap, cardID)

	// Prune the back-reference when the removed card was itself a clone.
	if removed.IsClone && removed.SourceCardID != "" {
		refs := s.cloneMap[removed.SourceCardID]
		for i, ref := range refs {
			if ref.CloneID == cardID {
				refs = append(refs[:i], refs[i+1:]...)
				break
			}
		}
		if len(refs) == 0 {
			delete(s.cloneMap, removed.SourceCardID)
		} else {
			s.cloneMap[removed.SourceCardID] = refs
		}
	}
	m.mu.Unlock()

	for _, player := range touched {
		m.persistHand(ctx, sessionID, player)
		m.persistRuleCards(ctx, player)
	}

	m.logger.Info("card removed",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
		zap.String("card_id", cardID),
		zap.Int("cascaded_clones", len(touched)-1),
	)
	return nil
}

// PlayerOwnedCards returns the player's hand, re-asserting ownership on the
// way out: a card whose recorded owner drifted from the holding player is
// corrected in place. A self-healing read, not a pure accessor.
func (m *Manager) PlayerOwnedCards(sessionID, playerID string) ([]*card.Card, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p := s.Player(playerID)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", gameerrors.ErrPlayerNotFound, playerID)
	}
	for _, c := range p.Hand {
		if c.OwnerID != playerID {
			m.logger.Warn("correcting card ownership drift",
				zap.String("card_id", c.ID),
				zap.String("recorded_owner", c.OwnerID),
				zap.String("holder", playerID),
			)
			c.SetOwner(playerID)
		}
	}
	return append([]*card.Card(nil), p.Hand...), nil
}
