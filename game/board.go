package game

// Board is a player's grid of cards, indexed [column][row]. Slots become
// nil when a cleared column or row moves its cards to the discard pile.
type Board [][]*Card

func newBoard(columns, rows int) Board {
	b := make(Board, columns)
	for c := range b {
		b[c] = make([]*Card, rows)
	}
	return b
}

func (b Board) inRange(col, row int) bool {
	return col >= 0 && col < len(b) && row >= 0 && len(b) > 0 && row < len(b[0])
}

// Card returns the card at (col, row), or nil for cleared slots.
func (b Board) Card(col, row int) *Card {
	return b[col][row]
}

// CardCount counts the cards still sitting on the board.
func (b Board) CardCount() int {
	n := 0
	for _, col := range b {
		for _, card := range col {
			if card != nil {
				n++
			}
		}
	}
	return n
}

func (b Board) visibleCount() int {
	n := 0
	for _, col := range b {
		for _, card := range col {
			if card != nil && card.Visible {
				n++
			}
		}
	}
	return n
}

func (b Board) hasFaceDownCard() bool {
	for _, col := range b {
		for _, card := range col {
			if card != nil && !card.Visible {
				return true
			}
		}
	}
	return false
}

// FullyVisible reports whether every remaining card is face up.
func (b Board) FullyVisible() bool {
	return !b.hasFaceDownCard()
}

// VisibleSum is the sum of all face-up card values. Cleared slots
// contribute nothing.
func (b Board) VisibleSum() int {
	sum := 0
	for _, col := range b {
		for _, card := range col {
			if card != nil && card.Visible {
				sum += card.Value
			}
		}
	}
	return sum
}

func (b Board) revealAll() {
	for _, col := range b {
		for _, card := range col {
			if card != nil {
				card.Reveal()
			}
		}
	}
}

// columnMatched reports whether a column is fully visible with one value.
// A line of a single card never matches, so degenerate board dimensions
// cannot clear cards on sight.
func (b Board) columnMatched(col int) bool {
	column := b[col]
	if len(column) < 2 {
		return false
	}
	var value int
	for i, card := range column {
		if card == nil || !card.Visible {
			return false
		}
		if i == 0 {
			value = card.Value
		} else if card.Value != value {
			return false
		}
	}
	return true
}

func (b Board) rowMatched(row int) bool {
	if len(b) < 2 {
		return false
	}
	var value int
	for c := range b {
		card := b[c][row]
		if card == nil || !card.Visible {
			return false
		}
		if c == 0 {
			value = card.Value
		} else if card.Value != value {
			return false
		}
	}
	return true
}

func (b Board) takeColumn(col int) []*Card {
	taken := make([]*Card, 0, len(b[col]))
	for r, card := range b[col] {
		if card != nil {
			taken = append(taken, card)
			b[col][r] = nil
		}
	}
	return taken
}

func (b Board) takeRow(row int) []*Card {
	taken := make([]*Card, 0, len(b))
	for c := range b {
		if card := b[c][row]; card != nil {
			taken = append(taken, card)
			b[c][row] = nil
		}
	}
	return taken
}

// applyClears removes every fully matched column and row, honoring the
// session toggles, and returns the removed cards in clearing order.
func (b Board) applyClears(clearColumns, clearRows bool) []*Card {
	var removed []*Card
	if clearColumns {
		for c := range b {
			if b.columnMatched(c) {
				removed = append(removed, b.takeColumn(c)...)
			}
		}
	}
	if clearRows && len(b) > 0 {
		for r := range b[0] {
			if b.rowMatched(r) {
				removed = append(removed, b.takeRow(r)...)
			}
		}
	}
	return removed
}
