package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/partydeck/party-server-go/internal/card"
)

// SessionSnapshot is the full resync payload for a session: everything a
// reconnecting client needs to rebuild its view without replaying the event
// stream.
type SessionSnapshot struct {
	SessionID string           `json:"sessionId"`
	RefereeID string           `json:"refereeId,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Players   []PlayerSnapshot `json:"players"`
	Transfers []TransferRecord `json:"transfers,omitempty"`
}

// PlayerSnapshot is one player's state inside a session snapshot.
type PlayerSnapshot struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Status      PlayerStatus  `json:"status"`
	HandVersion int           `json:"handVersion"`
	Hand        []card.Record `json:"hand"`
	RuleCards   []card.Record `json:"ruleCards"`
}

// SnapshotChecksum is a deterministic digest of a snapshot. Clients compare it
// against their local digest after a resync to detect divergent state.
type SnapshotChecksum struct {
	Hash      string `json:"hash"`
	Timestamp string `json:"timestamp"`
	Version   int    `json:"version"`
}

// SnapshotSession captures the session's current state under the manager lock.
func (m *Manager) SnapshotSession(sessionID string) (*SessionSnapshot, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := &SessionSnapshot{
		SessionID: s.ID,
		RefereeID: s.RefereeID,
		Timestamp: m.now(),
		Transfers: append([]TransferRecord(nil), s.transfers...),
	}
	for _, p := range s.players {
		snap.Players = append(snap.Players, PlayerSnapshot{
			ID:          p.ID,
			Name:        p.Name,
			Status:      p.Status,
			HandVersion: p.HandVersion,
			Hand:        card.Records(p.Hand),
			RuleCards:   card.Records(p.RuleCards),
		})
	}
	return snap, nil
}

// ComputeChecksum digests the snapshot's deterministic fields. Timestamps and
// insertion order are excluded so two snapshots of identical state always hash
// the same.
func (snap *SessionSnapshot) ComputeChecksum() *SnapshotChecksum {
	sum := sha256.Sum256([]byte(snap.canonical()))
	return &SnapshotChecksum{
		Hash:      hex.EncodeToString(sum[:]),
		Timestamp: snap.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"),
		Version:   1,
	}
}

// canonical builds an order-independent string form of the snapshot. Players
// are sorted by id, cards by id inside each collection.
func (snap *SessionSnapshot) canonical() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "SESSION:%s|%s\n", snap.SessionID, snap.RefereeID)

	players := append([]PlayerSnapshot(nil), snap.Players...)
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	for _, p := range players {
		fmt.Fprintf(&buf, "PLAYER:%s|%s|%s|%d\n", p.ID, p.Name, p.Status, p.HandVersion)
		writeCanonicalCards(&buf, "HAND", p.Hand)
		writeCanonicalCards(&buf, "RULES", p.RuleCards)
	}
	for _, tr := range snap.Transfers {
		fmt.Fprintf(&buf, "TRANSFER:%s|%s|%s|%s\n", tr.CardID, tr.FromPlayerID, tr.ToPlayerID, tr.Reason)
	}
	return buf.String()
}

func writeCanonicalCards(buf *bytes.Buffer, label string, cards []card.Record) {
	sorted := append([]card.Record(nil), cards...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, c := range sorted {
		fmt.Fprintf(buf, "%s:%s|%s|%s|%t|%t\n", label, c.ID, c.Type, c.CurrentSide, c.IsFlipped, c.IsClone)
	}
}
