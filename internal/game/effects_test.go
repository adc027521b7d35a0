package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/partydeck/party-server-go/internal/card"
	"github.com/partydeck/party-server-go/internal/gameerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRuleCard(t *testing.T) {
	env := newTestEnv(t)
	s := env.newSessionWithPlayers(t, "sess", "alice")

	c := card.New(card.TypeRule, card.Definition{Name: "R", FrontText: "no talking"})
	res, err := env.mgr.ApplyCardEffect(context.Background(), "sess", "alice", c, EffectContext{})
	require.NoError(t, err)

	assert.Equal(t, EffectRuleActivated, res.Kind)
	assert.Equal(t, "no talking", res.Text)
	assert.Equal(t, c.ID, res.CardID)

	alice := s.Player("alice")
	assert.True(t, alice.hasRuleCard(c.ID))
	assert.True(t, alice.hasHandCard(c.ID))
	assert.Equal(t, "alice", c.OwnerID)

	// Rule-card change was broadcast and persisted.
	events := env.bcast.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "rule_card_update", events[0].Type)
	assert.Len(t, env.gateway.RuleCards("alice"), 1)
}

func TestApplyRuleCardIsIdempotentByID(t *testing.T) {
	env := newTestEnv(t)
	s := env.newSessionWithPlayers(t, "sess", "alice")

	c := card.New(card.TypeRule, card.Definition{Name: "R", FrontText: "no talking"})
	_, err := env.mgr.ApplyCardEffect(context.Background(), "sess", "alice", c, EffectContext{})
	require.NoError(t, err)
	_, err = env.mgr.ApplyCardEffect(context.Background(), "sess", "alice", c, EffectContext{})
	require.NoError(t, err)

	alice := s.Player("alice")
	assert.Len(t, alice.RuleCards, 1)
	assert.Len(t, alice.Hand, 1)

	// Same text on a different card is a different effect.
	other := card.New(card.TypeRule, card.Definition{Name: "R", FrontText: "no talking"})
	_, err = env.mgr.ApplyCardEffect(context.Background(), "sess", "alice", other, EffectContext{})
	require.NoError(t, err)
	assert.Len(t, alice.RuleCards, 2)
}

func TestApplyRuleCardRequiresText(t *testing.T) {
	env := newTestEnv(t)
	env.newSessionWithPlayers(t, "sess", "alice")

	c := card.New(card.TypeRule, card.Definition{Name: "Blank"})
	_, err := env.mgr.ApplyCardEffect(context.Background(), "sess", "alice", c, EffectContext{})
	assert.True(t, errors.Is(err, gameerrors.ErrNoRuleText))

	m := card.New(card.TypeModifier, card.Definition{Name: "Blank"})
	_, err = env.mgr.ApplyCardEffect(context.Background(), "sess", "alice", m, EffectContext{})
	assert.True(t, errors.Is(err, gameerrors.ErrNoModifierText))
}

func TestApplyModifierCard(t *testing.T) {
	env := newTestEnv(t)
	env.newSessionWithPlayers(t, "sess", "alice")

	c := card.New(card.TypeModifier, card.Definition{Name: "M", FrontText: "double stakes"})
	res, err := env.mgr.ApplyCardEffect(context.Background(), "sess", "alice", c, EffectContext{})
	require.NoError(t, err)
	assert.Equal(t, EffectModifierApplied, res.Kind)
}

func TestApplyPromptCard(t *testing.T) {
	env := newTestEnv(t, WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
	env.newSessionWithPlayers(t, "sess", "alice")

	c := card.New(card.TypePrompt, card.Definition{Name: "P", Question: "defend pineapple pizza"})
	res, err := env.mgr.ApplyCardEffect(context.Background(), "sess", "alice", c, EffectContext{})
	require.NoError(t, err)

	assert.Equal(t, EffectPromptStarted, res.Kind)
	assert.Equal(t, "defend pineapple pizza", res.Text)

	pc := env.mgr.ActivePrompt("sess")
	require.NotNil(t, pc)
	assert.Equal(t, PromptActive, pc.Status)
	assert.Equal(t, "alice", pc.PlayerID)
	assert.Equal(t, time.Unix(1700000000, 0), pc.StartTime)
	assert.Equal(t, DefaultPromptTimeLimit, pc.TimeLimit)
	assert.Nil(t, pc.EndTime)
	assert.Nil(t, pc.RefereeJudgment)

	// Prompt challenges are transient: nothing hits the durable store.
	assert.Empty(t, env.gateway.Events())
}

func TestResolvePrompt(t *testing.T) {
	env := newTestEnv(t)
	env.newSessionWithPlayers(t, "sess", "alice")

	c := card.New(card.TypePrompt, card.Definition{Name: "P", Question: "q"})
	_, err := env.mgr.ApplyCardEffect(context.Background(), "sess", "alice", c, EffectContext{})
	require.NoError(t, err)

	pc, err := env.mgr.ResolvePrompt("sess", "passed")
	require.NoError(t, err)
	assert.Equal(t, PromptJudged, pc.Status)
	require.NotNil(t, pc.RefereeJudgment)
	assert.Equal(t, "passed", *pc.RefereeJudgment)
	assert.NotNil(t, pc.EndTime)

	assert.Nil(t, env.mgr.ActivePrompt("sess"))
	_, err = env.mgr.ResolvePrompt("sess", "again")
	assert.Error(t, err)
}

func TestResolvePromptPastTimeLimitExpires(t *testing.T) {
	now := time.Unix(1700000000, 0)
	env := newTestEnv(t, WithClock(func() time.Time { return now }))
	env.newSessionWithPlayers(t, "sess", "alice")

	c := card.New(card.TypePrompt, card.Definition{Name: "P", Question: "q"})
	_, err := env.mgr.ApplyCardEffect(context.Background(), "sess", "alice", c, EffectContext{})
	require.NoError(t, err)

	now = now.Add(DefaultPromptTimeLimit + time.Second)
	pc, err := env.mgr.ResolvePrompt("sess", "passed")
	require.NoError(t, err)
	assert.Equal(t, PromptExpired, pc.Status)
	require.NotNil(t, pc.RefereeJudgment)
	assert.Equal(t, "passed", *pc.RefereeJudgment)
	require.NotNil(t, pc.EndTime)
	assert.Equal(t, now, *pc.EndTime)
	assert.Nil(t, env.mgr.ActivePrompt("sess"))
}

func TestApplyFlipPersistsOnlyRuleCards(t *testing.T) {
	env := newTestEnv(t)
	s := env.newSessionWithPlayers(t, "sess", "alice")

	// A hand-only card flips without touching the durable rule-card set.
	handCard := card.New(card.TypeFlip, card.Definition{Name: "H", FrontText: "f", BackText: "b"})
	giveCard(t, s, "alice", handCard)
	res, err := env.mgr.FlipCard(context.Background(), "sess", "alice", handCard.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", res.Text)
	assert.Empty(t, env.gateway.RuleCards("alice"))

	// A rule card flip is persisted and broadcast.
	ruleCard := card.New(card.TypeRule, card.Definition{Name: "R", FrontText: "f", BackText: "b"})
	giveRuleCard(t, s, "alice", ruleCard)
	_, err = env.mgr.FlipCard(context.Background(), "sess", "alice", ruleCard.ID)
	require.NoError(t, err)
	require.Len(t, env.gateway.RuleCards("alice"), 1)
	assert.True(t, env.gateway.RuleCards("alice")[0].IsFlipped)
}

func TestApplyFlipFailsWithoutBackSide(t *testing.T) {
	env := newTestEnv(t)
	s := env.newSessionWithPlayers(t, "sess", "alice")

	c := card.New(card.TypeFlip, card.Definition{Name: "F", FrontText: "only front"})
	giveCard(t, s, "alice", c)

	_, err := env.mgr.FlipCard(context.Background(), "sess", "alice", c.ID)
	assert.True(t, errors.Is(err, gameerrors.ErrFlipFailed))
}

func TestApplyCloneEffectNeedsTargets(t *testing.T) {
	env := newTestEnv(t)
	env.newSessionWithPlayers(t, "sess", "alice", "bob")

	c := card.New(card.TypeClone, card.Definition{Name: "Copycat", FrontText: "copy"})
	_, err := env.mgr.ApplyCardEffect(context.Background(), "sess", "alice", c, EffectContext{})
	assert.True(t, errors.Is(err, gameerrors.ErrInvalidInput))
}

func TestApplyCloneEffect(t *testing.T) {
	env := newTestEnv(t)
	s := env.newSessionWithPlayers(t, "sess", "alice", "bob")

	src := card.New(card.TypeRule, card.Definition{Name: "Src", FrontText: "f"})
	giveCard(t, s, "bob", src)

	c := card.New(card.TypeClone, card.Definition{Name: "Copycat", FrontText: "copy"})
	res, err := env.mgr.ApplyCardEffect(context.Background(), "sess", "alice", c,
		EffectContext{TargetPlayerID: "bob", TargetCardID: src.ID})
	require.NoError(t, err)
	assert.Equal(t, EffectCardCloned, res.Kind)
	require.NotNil(t, res.Clone)
	assert.Equal(t, "alice", res.Clone.OwnerID)
}

func TestApplySwapEffect(t *testing.T) {
	env := newTestEnv(t)
	s := env.newSessionWithPlayers(t, "sess", "alice", "bob")

	target := card.New(card.TypeRule, card.Definition{Name: "T", FrontText: "f"})
	giveCard(t, s, "bob", target)

	c := card.New(card.TypeSwap, card.Definition{Name: "Switcheroo", FrontText: "swap"})
	res, err := env.mgr.ApplyCardEffect(context.Background(), "sess", "alice", c,
		EffectContext{TargetPlayerID: "bob", TargetCardID: target.ID})
	require.NoError(t, err)
	assert.Equal(t, EffectCardSwapped, res.Kind)
	assert.True(t, s.Player("alice").hasHandCard(target.ID))
}

func TestApplyUnknownCardType(t *testing.T) {
	env := newTestEnv(t)
	env.newSessionWithPlayers(t, "sess", "alice")

	c := &card.Card{ID: "x", Type: card.Type("mystery")}
	_, err := env.mgr.ApplyCardEffect(context.Background(), "sess", "alice", c, EffectContext{})
	assert.True(t, errors.Is(err, gameerrors.ErrUnknownCardType))

	_, err = env.mgr.ApplyCardEffect(context.Background(), "sess", "alice", nil, EffectContext{})
	assert.True(t, errors.Is(err, gameerrors.ErrInvalidInput))
}

func TestCanDrawCard(t *testing.T) {
	env := newTestEnv(t)
	env.newSessionWithPlayers(t, "sess", "alice")

	assert.True(t, env.mgr.CanDrawCard("sess", "alice", "rule").CanDraw)

	check := env.mgr.CanDrawCard("sess", "alice", "")
	assert.False(t, check.CanDraw)
	assert.NotEmpty(t, check.Reason)

	check = env.mgr.CanDrawCard("sess", "alice", "nosuch")
	assert.False(t, check.CanDraw)

	// Exhaust the modifier deck (one card, rule/modifier cards are kept, not
	// discarded) and verify the gate closes.
	_, _, err := env.mgr.DrawAndActivate(context.Background(), "sess", "alice", "modifier", EffectContext{})
	require.NoError(t, err)
	check = env.mgr.CanDrawCard("sess", "alice", "modifier")
	assert.False(t, check.CanDraw)
}

func TestCanDrawCardHonorsRestriction(t *testing.T) {
	env := newTestEnv(t, WithRestrictionEvaluator(vetoDraws{reason: "house rule forbids drawing"}))
	env.newSessionWithPlayers(t, "sess", "alice")

	check := env.mgr.CanDrawCard("sess", "alice", "rule")
	assert.False(t, check.CanDraw)
	assert.Equal(t, "house rule forbids drawing", check.Reason)

	_, _, err := env.mgr.DrawAndActivate(context.Background(), "sess", "alice", "rule", EffectContext{})
	assert.True(t, errors.Is(err, gameerrors.ErrDrawRestricted))
}

func TestDrawAndActivateRuleCard(t *testing.T) {
	env := newTestEnv(t)
	s := env.newSessionWithPlayers(t, "sess", "alice")

	before := env.mgr.Decks().Remaining("rule")
	c, res, err := env.mgr.DrawAndActivate(context.Background(), "sess", "alice", "rule", EffectContext{})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, EffectRuleActivated, res.Kind)
	assert.Equal(t, before-1, env.mgr.Decks().Remaining("rule"))

	// Rule cards attach to the player instead of being discarded.
	assert.Equal(t, 0, env.mgr.Decks().DiscardCount("rule"))
	assert.True(t, s.Player("alice").hasHandCard(c.ID))
}

func TestDrawAndActivateDiscardsSpentCards(t *testing.T) {
	env := newTestEnv(t)
	env.newSessionWithPlayers(t, "sess", "alice")

	c, res, err := env.mgr.DrawAndActivate(context.Background(), "sess", "alice", "prompt", EffectContext{})
	require.NoError(t, err)
	assert.Equal(t, EffectPromptStarted, res.Kind)
	assert.Equal(t, card.TypePrompt, c.Type)
	assert.Equal(t, 1, env.mgr.Decks().DiscardCount("prompt"))
}

func TestReplacementDrawAndActivateDiscardsOnFailedEffect(t *testing.T) {
	defs := map[string][]card.Definition{
		"swap": {{Name: "Switcheroo", FrontText: "take a card from another player"}},
	}
	env := newTestEnvWithDefs(t, defs)
	s := env.newSessionWithPlayers(t, "sess", "alice")

	// A swap drawn without targets fails; the card must land in the discard
	// pile instead of vanishing from every collection.
	c, _, err := env.mgr.ReplacementDrawAndActivate(context.Background(), "sess", "alice", "swap", 3, EffectContext{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gameerrors.ErrInvalidInput))
	require.NotNil(t, c)

	assert.Equal(t, 0, env.mgr.Decks().Remaining("swap"))
	assert.Equal(t, 1, env.mgr.Decks().DiscardCount("swap"))
	assert.Empty(t, s.Player("alice").Hand)
	assert.Empty(t, s.Player("alice").RuleCards)
}

func TestReplacementDrawAndActivateDiscardsSpentCards(t *testing.T) {
	env := newTestEnv(t)
	env.newSessionWithPlayers(t, "sess", "alice")

	c, res, err := env.mgr.ReplacementDrawAndActivate(context.Background(), "sess", "alice", "prompt", 3, EffectContext{})
	require.NoError(t, err)
	assert.Equal(t, EffectPromptStarted, res.Kind)
	assert.Equal(t, card.TypePrompt, c.Type)
	assert.Equal(t, 1, env.mgr.Decks().DiscardCount("prompt"))
}

func TestReplacementDrawAndActivateHonorsRestrictions(t *testing.T) {
	env := newTestEnv(t, WithRestrictionEvaluator(vetoDraws{reason: "not your turn"}))
	env.newSessionWithPlayers(t, "sess", "alice")

	_, _, err := env.mgr.ReplacementDrawAndActivate(context.Background(), "sess", "alice", "rule", 3, EffectContext{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gameerrors.ErrDrawRestricted))
	assert.Equal(t, 0, env.mgr.Decks().DiscardCount("rule"))
}
