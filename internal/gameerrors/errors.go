package gameerrors

import "errors"

// Category classifies an error code for callers that branch on the class of
// failure rather than the specific code.
type Category int

const (
	CategoryInvalidInput Category = iota
	CategoryNotFound
	CategoryStateConflict
	CategoryExhaustion
	CategoryPersistence
)

func (c Category) String() string {
	switch c {
	case CategoryInvalidInput:
		return "INVALID_INPUT"
	case CategoryNotFound:
		return "NOT_FOUND"
	case CategoryStateConflict:
		return "STATE_CONFLICT"
	case CategoryExhaustion:
		return "EXHAUSTION"
	case CategoryPersistence:
		return "PERSISTENCE"
	default:
		return "UNKNOWN"
	}
}

// Error is an expected failure with a stable machine-readable code.
// Callers branch on the code (via errors.Is against a sentinel or CodeOf),
// never on message text. The UI layer maps codes to display strings.
type Error struct {
	Code     string
	Category Category
	Message  string
}

func (e *Error) Error() string { return e.Message }

// Is matches by code so errors.Is works against sentinels across wrapped chains.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New creates a typed error. Used for the package sentinels below; call sites
// wrap sentinels with fmt.Errorf("%w: ...") to attach context.
func New(code string, category Category, message string) *Error {
	return &Error{Code: code, Category: category, Message: message}
}

// Sentinel errors shared by the deck, card, and game packages. Kept in one
// package so deck and game can reference the same codes without a circular
// import.
var (
	ErrInvalidDeckType    = New("InvalidDeckType", CategoryInvalidInput, "deck type is empty")
	ErrDeckNotFound       = New("DeckNotFound", CategoryNotFound, "no deck with that type")
	ErrDeckEmpty          = New("DeckEmpty", CategoryExhaustion, "deck has no cards left")
	ErrDiscardPileMissing = New("DiscardPileMissing", CategoryNotFound, "no discard pile for that deck type")
	ErrUnknownCardType    = New("UnknownCardType", CategoryInvalidInput, "card type has no effect handler")
	ErrNoRuleText         = New("NoRuleText", CategoryStateConflict, "rule card has no text on its active side")
	ErrNoModifierText     = New("NoModifierText", CategoryStateConflict, "modifier card has no text on its active side")
	ErrFlipFailed         = New("FlipFailed", CategoryStateConflict, "card cannot be flipped")
	ErrCardNotFound       = New("CardNotFound", CategoryNotFound, "card not found on player")
	ErrPlayerNotFound     = New("PlayerNotFound", CategoryNotFound, "player not in session")
	ErrTargetNotFound     = New("TargetNotFound", CategoryNotFound, "target player not in session")
	ErrFromPlayerNotFound = New("FromPlayerNotFound", CategoryNotFound, "source player not in session")
	ErrToPlayerNotFound   = New("ToPlayerNotFound", CategoryNotFound, "destination player not in session")
	ErrSessionNotFound    = New("SessionNotFound", CategoryNotFound, "session does not exist")
	ErrNoActivePlayers    = New("NoActivePlayers", CategoryStateConflict, "session has no active players")
	ErrInvalidInput       = New("InvalidInput", CategoryInvalidInput, "malformed argument")
	ErrDrawRestricted     = New("DrawRestricted", CategoryStateConflict, "an active rule restricts this draw")
	ErrPersistence        = New("PersistenceFailure", CategoryPersistence, "durable store operation failed")
)

// CodeOf returns the stable code carried by err, or "" when err is not a
// typed game error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
