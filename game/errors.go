package game

import "errors"

var (
	ErrGameNotFound       = errors.New("game not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrNotAllowed         = errors.New("action not allowed")
	ErrInvalidTurnState   = errors.New("invalid turn state")
	ErrTooFewPlayers      = errors.New("not enough players to start")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrGameIsFull         = errors.New("game is full")
	ErrInvalidSettings    = errors.New("invalid settings")
)
