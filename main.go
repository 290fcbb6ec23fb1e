package main

import (
	"log"

	"skyjo/config"
	"skyjo/game"
	"skyjo/handlers"
	"skyjo/middleware"
	"skyjo/models"
	"skyjo/routes"
	"skyjo/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.Game{},
		&models.Player{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Session directory and services
	registry := game.NewRegistry()
	gameService := services.NewGameService(db, redisClient, registry)
	lobbyService := services.NewLobbyService(db, redisClient, registry, gameService, cfg.JWTSecret)
	kickService := services.NewKickService(registry, gameService)

	// Initialize WebSocket hub
	hub := services.NewHub(gameService, lobbyService, kickService)
	go hub.Run()

	// Collect abandoned sessions and clean their mirrors
	registry.StartSweeper(game.DefaultSweepInterval, game.DefaultSessionIdle, func(s *game.Session) {
		snap := s.Snapshot()
		log.Printf("Collected abandoned game %s", snap.Code)
		gameService.RemoveMirror(snap)
	})
	defer registry.Close()

	// Initialize handlers
	gameHandler := handlers.NewGameHandler(lobbyService, gameService, hub)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, gameHandler, hub, gameService, cfg.JWTSecret)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
