package routes

import (
	"log"
	"net/http"
	"strings"

	"skyjo/handlers"
	"skyjo/middleware"
	"skyjo/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	gameHandler *handlers.GameHandler,
	hub *services.Hub,
	gameService *services.GameService,
	jwtSecret string,
) {
	api := router.Group("/api")
	{
		games := api.Group("/games")
		{
			games.POST("", gameHandler.CreateGame)
			games.POST("/find", gameHandler.FindGame)
			games.POST("/:code/join", gameHandler.JoinGame)
			games.GET("/:code", gameHandler.GetGame)
		}
	}

	// WebSocket endpoint. The player token issued on join proves the
	// connection belongs to its seat, so reconnects resolve to the same
	// stable player id.
	router.GET("/ws/:code", func(c *gin.Context) {
		code := strings.ToLower(c.Param("code"))
		tokenString := c.Query("token")

		claims, err := middleware.ParsePlayerToken(jwtSecret, tokenString)
		if err != nil {
			log.Printf("WebSocket token rejected for game %s: %v", code, err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if !strings.EqualFold(claims.GameCode, code) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token does not match game"})
			return
		}

		playerName, _, err := gameService.PlayerInfo(code, claims.PlayerID)
		if err != nil {
			log.Printf("WebSocket rejected for game %s, player %s: %v", code, claims.PlayerID, err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "player not found in game"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for game %s, player %s: %v", code, claims.PlayerID, err)
			return
		}

		log.Printf("WebSocket connection established for game %s, player %s (%s)", code, claims.PlayerID, playerName)
		hub.RegisterClient(conn, code, claims.PlayerID, playerName)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
