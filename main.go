package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/trialogue/internal/adapter/llm"
	"github.com/xiaot623/trialogue/internal/config"
	"github.com/xiaot623/trialogue/internal/hub"
	"github.com/xiaot623/trialogue/internal/service"
	"github.com/xiaot623/trialogue/internal/store"
	handler "github.com/xiaot623/trialogue/internal/transport/http/v1"
	"github.com/xiaot623/trialogue/internal/ws"
	"github.com/xiaot623/trialogue/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting discussion engine...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("LLM Gateway: %s", cfg.GatewayURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize LLM client
	llmClient := llm.NewClient(cfg.GatewayURL, cfg.GatewayAPIKey, cfg.ModelNames, cfg.LLMTimeout)

	// Initialize submission policy engine
	ctx := context.Background()
	guard, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize observer hub
	h := hub.NewHub()

	// Initialize service
	svc := service.New(db, llmClient, guard, h, cfg)

	// Initialize handlers
	apiHandler := handler.NewHandler(svc)
	wsServer := ws.NewServer(h)

	// Create Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Register routes
	apiHandler.RegisterRoutes(e)
	e.GET("/ws", wsServer.HandleWebSocket)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down discussion engine...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Discussion engine stopped")
}
