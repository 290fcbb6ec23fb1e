package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSettingsAreValid(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())
}

func TestSettingsValidation(t *testing.T) {
	assert := assert.New(t)

	s := DefaultSettings()
	s.InitialRevealCount = s.RowsPerBoard * s.ColumnsPerBoard
	assert.ErrorIs(s.Validate(), ErrInvalidSettings, "reveal count must stay below the board size")

	s = DefaultSettings()
	s.MaxPlayers = 1
	assert.ErrorIs(s.Validate(), ErrInvalidSettings)

	s = DefaultSettings()
	s.MaxPlayers = 9
	assert.ErrorIs(s.Validate(), ErrInvalidSettings)

	s = DefaultSettings()
	s.RowsPerBoard = 0
	assert.ErrorIs(s.Validate(), ErrInvalidSettings)

	// 8 players x 5x4 boards need more cards than one deck holds.
	s = DefaultSettings()
	s.RowsPerBoard = 5
	assert.ErrorIs(s.Validate(), ErrInvalidSettings)
}
