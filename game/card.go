package game

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Card is a single playing card. Its value is fixed at creation; visibility
// only ever goes from hidden to revealed.
type Card struct {
	ID      uuid.UUID
	Value   int
	Visible bool
}

func NewCard(value int) *Card {
	return &Card{
		ID:    uuid.New(),
		Value: value,
	}
}

// Reveal flips the card face up. A revealed card never flips back.
func (c *Card) Reveal() {
	c.Visible = true
}

// MarshalJSON hides the value of face-down cards so snapshots never leak
// information the clients should not have.
func (c *Card) MarshalJSON() ([]byte, error) {
	out := struct {
		ID        string `json:"id"`
		Value     *int   `json:"value,omitempty"`
		IsVisible bool   `json:"isVisible"`
	}{
		ID:        c.ID.String(),
		IsVisible: c.Visible,
	}
	if c.Visible {
		out.Value = &c.Value
	}
	return json.Marshal(out)
}
