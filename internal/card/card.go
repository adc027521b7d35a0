package card

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/partydeck/party-server-go/internal/gameerrors"
)

// Type identifies the effect family of a card. The dispatcher switches
// exhaustively on this value; ParseType is the only place raw strings are
// accepted.
type Type string

const (
	TypeRule     Type = "rule"
	TypeModifier Type = "modifier"
	TypePrompt   Type = "prompt"
	TypeClone    Type = "clone"
	TypeFlip     Type = "flip"
	TypeSwap     Type = "swap"
	TypeReferee  Type = "referee"
)

// ParseType normalizes a raw type string (case-insensitive) to a Type.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeRule:
		return TypeRule, nil
	case TypeModifier:
		return TypeModifier, nil
	case TypePrompt:
		return TypePrompt, nil
	case TypeClone:
		return TypeClone, nil
	case TypeFlip:
		return TypeFlip, nil
	case TypeSwap:
		return TypeSwap, nil
	case TypeReferee:
		return TypeReferee, nil
	default:
		return "", fmt.Errorf("%w: %q", gameerrors.ErrUnknownCardType, s)
	}
}

// Side is the face of a card currently showing.
type Side int

const (
	SideFront Side = iota
	SideBack
)

func (s Side) String() string {
	if s == SideBack {
		return "back"
	}
	return "front"
}

// ParseSide maps a stored side string to a Side. Anything other than "back"
// means front, matching how partially-written records are read back.
func ParseSide(s string) Side {
	if strings.EqualFold(strings.TrimSpace(s), "back") {
		return SideBack
	}
	return SideFront
}

// Definition is the static input a deck is built from. Texts are optional but
// flippable types need at least one side.
type Definition struct {
	Name      string `yaml:"name" json:"name"`
	FrontText string `yaml:"front" json:"front"`
	BackText  string `yaml:"back" json:"back"`
	Question  string `yaml:"question" json:"question"`
}

// Card is a single card instance. The ID is globally unique and stable for
// the card's lifetime; clones get a fresh ID and keep a reference to their
// source. Ownership lives on the card but the game ledger is authoritative
// for which collection the card sits in.
type Card struct {
	ID        string
	Type      Type
	Name      string
	FrontText string
	BackText  string
	Question  string

	Side Side
	// Flipped records that the card has been flipped at least once. It never
	// reverts to false, even when the card is flipped back to the front.
	Flipped bool

	OwnerID string

	IsClone       bool
	SourceCardID  string
	SourceOwnerID string
}

// New creates a card of the given type from a static definition, assigning a
// fresh unique ID.
func New(t Type, def Definition) *Card {
	return &Card{
		ID:        uuid.NewString(),
		Type:      t,
		Name:      def.Name,
		FrontText: def.FrontText,
		BackText:  def.BackText,
		Question:  def.Question,
		Side:      SideFront,
	}
}

// CloneOf creates an independently-owned copy of src for ownerID. The clone
// gets a fresh ID and records its provenance so removal of the source can
// cascade.
func CloneOf(src *Card, ownerID string) *Card {
	return &Card{
		ID:            uuid.NewString(),
		Type:          src.Type,
		Name:          src.Name,
		FrontText:     src.FrontText,
		BackText:      src.BackText,
		Question:      src.Question,
		Side:          src.Side,
		Flipped:       src.Flipped,
		OwnerID:       ownerID,
		IsClone:       true,
		SourceCardID:  src.ID,
		SourceOwnerID: src.OwnerID,
	}
}

// CurrentText returns the text of the face currently showing.
func (c *Card) CurrentText() string {
	if c.Side == SideBack {
		return c.BackText
	}
	return c.FrontText
}

// Flippable reports whether Flip can succeed: the card needs a back side and
// must not be a prompt (prompts are single-faced questions).
func (c *Card) Flippable() bool {
	return c.BackText != "" && c.Type != TypePrompt
}

// Flip toggles the showing side and latches Flipped. Fails with FlipFailed
// when the card has no back side or its type is non-flippable.
func (c *Card) Flip() error {
	if !c.Flippable() {
		return fmt.Errorf("%w: card %s (%s)", gameerrors.ErrFlipFailed, c.ID, c.Type)
	}
	if c.Side == SideFront {
		c.Side = SideBack
	} else {
		c.Side = SideFront
	}
	c.Flipped = true
	return nil
}

// SetOwner assigns the owning player. The ledger calls this; nothing else
// should.
func (c *Card) SetOwner(playerID string) {
	c.OwnerID = playerID
}
