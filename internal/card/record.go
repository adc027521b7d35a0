package card

// Record is the plain persisted shape of a card. It is the single
// serialization boundary between the durable store and the rich Card entity:
// the core never handles bare records directly, it converts at the edge with
// FromRecord/ToRecord. omitempty keeps absent fields out of stored documents.
type Record struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	IsFlipped bool   `json:"isFlipped"`

	Name        string `json:"name,omitempty"`
	FrontRule   string `json:"frontRule,omitempty"`
	BackRule    string `json:"backRule,omitempty"`
	Question    string `json:"question,omitempty"`
	CurrentSide string `json:"currentSide,omitempty"`

	// Legacy field names written by older clients. Read as synonyms of
	// FrontRule/BackRule, never written.
	SideA string `json:"sideA,omitempty"`
	SideB string `json:"sideB,omitempty"`

	Owner         string `json:"owner,omitempty"`
	IsClone       bool   `json:"isClone,omitempty"`
	SourceCardID  string `json:"sourceCardId,omitempty"`
	SourceOwnerID string `json:"sourceOwnerId,omitempty"`
}

// ToRecord flattens a card to its persisted shape.
func (c *Card) ToRecord() Record {
	return Record{
		ID:            c.ID,
		Type:          string(c.Type),
		IsFlipped:     c.Flipped,
		Name:          c.Name,
		FrontRule:     c.FrontText,
		BackRule:      c.BackText,
		Question:      c.Question,
		CurrentSide:   c.Side.String(),
		Owner:         c.OwnerID,
		IsClone:       c.IsClone,
		SourceCardID:  c.SourceCardID,
		SourceOwnerID: c.SourceOwnerID,
	}
}

// FromRecord rebuilds a card entity from its persisted shape. Legacy sideA/
// sideB fields are accepted when the canonical frontRule/backRule are absent.
// An unknown type string is surfaced so damaged records fail loudly instead
// of dispatching to nothing.
func FromRecord(r Record) (*Card, error) {
	t, err := ParseType(r.Type)
	if err != nil {
		return nil, err
	}
	front := r.FrontRule
	if front == "" {
		front = r.SideA
	}
	back := r.BackRule
	if back == "" {
		back = r.SideB
	}
	return &Card{
		ID:            r.ID,
		Type:          t,
		Name:          r.Name,
		FrontText:     front,
		BackText:      back,
		Question:      r.Question,
		Side:          ParseSide(r.CurrentSide),
		Flipped:       r.IsFlipped,
		OwnerID:       r.Owner,
		IsClone:       r.IsClone,
		SourceCardID:  r.SourceCardID,
		SourceOwnerID: r.SourceOwnerID,
	}, nil
}

// Records flattens a card list for persistence.
func Records(cards []*Card) []Record {
	out := make([]Record, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ToRecord())
	}
	return out
}
