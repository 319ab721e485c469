package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/agent-relay/afk/api/handlers"
	"github.com/agent-relay/afk/internal/db"
	"github.com/agent-relay/afk/internal/notify"
	"github.com/agent-relay/afk/internal/repository"
	"github.com/agent-relay/afk/internal/ws"
)

func main() {
	// Get configuration from environment
	port := getEnv("PORT", "8765")
	dbPath := getEnv("DB_PATH", "data/sessions.db")
	ntfyTopic := os.Getenv("NTFY_TOPIC")
	ntfyServer := os.Getenv("NTFY_SERVER")
	baseURL := os.Getenv("AFK_BASE_URL")

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	// Initialize database
	database, err := db.InitDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	// Initialize repository
	sessionRepo := repository.NewSessionRepository(database)

	// Initialize notifier
	var notifier notify.Notifier = notify.Noop{}
	if ntfyTopic != "" {
		notifier = notify.NewNtfy(ntfyServer, ntfyTopic, baseURL)
		log.Printf("Push notifications enabled for topic %q", ntfyTopic)
	}

	// Initialize relay hub
	hub := ws.NewHub(sessionRepo, notifier)

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(sessionRepo, hub)
	wsHandler := handlers.NewWebSocketHandler(hub)

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for development
	r.Use(corsMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		sessionHandler.RegisterRoutes(api)
	}

	// WebSocket routes
	wsHandler.RegisterRoutes(r)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")
		db.CloseDB()
		os.Exit(0)
	}()

	// Start server
	log.Printf("Starting relay hub on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
