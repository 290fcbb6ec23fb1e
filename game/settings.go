package game

import "fmt"

// Settings hold the per-session configuration. Only the admin may change
// them, and only while the session is still in the lobby.
type Settings struct {
	Private            bool `json:"isPrivate"`
	MaxPlayers         int  `json:"maxPlayers"`
	AllowClearColumn   bool `json:"allowClearColumn"`
	AllowClearRow      bool `json:"allowClearRow"`
	InitialRevealCount int  `json:"initialRevealCount"`
	RowsPerBoard       int  `json:"rowsPerBoard"`
	ColumnsPerBoard    int  `json:"columnsPerBoard"`
}

const (
	minPlayersToStart = 2
	maxPlayerCap      = 8
)

func DefaultSettings() Settings {
	return Settings{
		Private:            false,
		MaxPlayers:         maxPlayerCap,
		AllowClearColumn:   true,
		AllowClearRow:      false,
		InitialRevealCount: 2,
		RowsPerBoard:       3,
		ColumnsPerBoard:    4,
	}
}

func (s Settings) Validate() error {
	if s.MaxPlayers < minPlayersToStart || s.MaxPlayers > maxPlayerCap {
		return fmt.Errorf("%w: maxPlayers must be between %d and %d", ErrInvalidSettings, minPlayersToStart, maxPlayerCap)
	}
	if s.RowsPerBoard < 1 || s.ColumnsPerBoard < 1 {
		return fmt.Errorf("%w: board must have at least one row and one column", ErrInvalidSettings)
	}
	cells := s.RowsPerBoard * s.ColumnsPerBoard
	if s.InitialRevealCount < 0 || s.InitialRevealCount >= cells {
		return fmt.Errorf("%w: initialRevealCount must be lower than the board size", ErrInvalidSettings)
	}
	// Every player must be dealt a full board from one deck, plus the
	// card flipped onto the discard pile.
	if s.MaxPlayers*cells+1 > DeckSize() {
		return fmt.Errorf("%w: boards for %d players do not fit in the deck", ErrInvalidSettings, s.MaxPlayers)
	}
	return nil
}
