package handlers

import (
	"errors"
	"net/http"

	"skyjo/game"
	"skyjo/services"

	"github.com/gin-gonic/gin"
)

type GameHandler struct {
	lobby *services.LobbyService
	games *services.GameService
	hub   *services.Hub
}

func NewGameHandler(lobby *services.LobbyService, games *services.GameService, hub *services.Hub) *GameHandler {
	return &GameHandler{
		lobby: lobby,
		games: games,
		hub:   hub,
	}
}

// CreateGame opens a private session with the requester as admin.
func (h *GameHandler) CreateGame(c *gin.Context) {
	var req services.JoinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.lobby.CreatePrivate(&req, h.hub)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// FindGame seats the requester in an open public session, creating one
// when none exists.
func (h *GameHandler) FindGame(c *gin.Context) {
	var req services.JoinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.lobby.Find(&req, h.hub)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// JoinGame seats the requester in the session matching the code. Join
// failures are a distinguished signal so clients can show a proper
// message instead of a generic error.
func (h *GameHandler) JoinGame(c *gin.Context) {
	code := c.Param("code")

	var req services.JoinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.lobby.Join(code, &req, h.hub)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrGameNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "join_failed", "reason": "not_found"})
		case errors.Is(err, game.ErrGameAlreadyStarted):
			c.JSON(http.StatusConflict, gin.H{"error": "join_failed", "reason": "already_started"})
		case errors.Is(err, game.ErrGameIsFull):
			c.JSON(http.StatusConflict, gin.H{"error": "join_failed", "reason": "full"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetGame returns the current snapshot of a session.
func (h *GameHandler) GetGame(c *gin.Context) {
	snap, err := h.games.GetCurrentState(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}

	c.JSON(http.StatusOK, snap)
}
