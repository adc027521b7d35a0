package store

import (
	"context"
	"time"

	"github.com/partydeck/party-server-go/internal/card"
)

// PlayerRecord is a player row as the durable store returns it. Different
// client generations wrote the player id under different keys, so all four
// are carried and ResolveID picks the first one present.
type PlayerRecord struct {
	UID      string `json:"uid,omitempty"`
	ID       string `json:"id,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
	UserID   string `json:"userId,omitempty"`
	Name     string `json:"name,omitempty"`
	Status   string `json:"status"`
}

// ResolveID returns the player's identifier, checking uid, id, playerId and
// userId in that order. Empty means no identifier was present at all.
func (r PlayerRecord) ResolveID() string {
	for _, id := range []string{r.UID, r.ID, r.PlayerID, r.UserID} {
		if id != "" {
			return id
		}
	}
	return ""
}

// Active reports whether the player counts as a live session participant.
func (r PlayerRecord) Active() bool {
	return r.Status == "active"
}

// Event is a lightweight record fanned out to other clients through the
// session's event stream.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId"`
	PlayerID  string         `json:"playerId,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Gateway is the durable-store surface the game core calls into. The core
// treats writes as best-effort: local state is mutated first and a failed
// write is logged, never rolled back. Implementations must be safe for
// concurrent use.
type Gateway interface {
	// SaveHand upserts a player's hand along with its version counter.
	SaveHand(ctx context.Context, sessionID, playerID string, hand []card.Record, version int) error

	// SaveRuleCards upserts a player's active rule-card collection.
	SaveRuleCards(ctx context.Context, playerID string, ruleCards []card.Record) error

	// SaveReferee updates the session's referee pointer.
	SaveReferee(ctx context.Context, sessionID, refereePlayerID string) error

	// ActivePlayers returns every player row attached to the session,
	// including inactive ones; callers filter by status.
	ActivePlayers(ctx context.Context, sessionID string) ([]PlayerRecord, error)

	// AppendEvent attaches a fan-out event to the session.
	AppendEvent(ctx context.Context, ev Event) error

	// UpsertPlayer writes a player row so ActivePlayers reflects joins and
	// status changes.
	UpsertPlayer(ctx context.Context, sessionID string, rec PlayerRecord) error

	// Close releases the underlying connections.
	Close()
}
