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

	"github.com/agentpanel/agentpanel/internal/adapter/foundry"
	"github.com/agentpanel/agentpanel/internal/config"
	"github.com/agentpanel/agentpanel/internal/credential"
	"github.com/agentpanel/agentpanel/internal/hub"
	"github.com/agentpanel/agentpanel/internal/policy"
	store "github.com/agentpanel/agentpanel/internal/repository"
	"github.com/agentpanel/agentpanel/internal/service"
	handler "github.com/agentpanel/agentpanel/internal/transport/http"
)

func main() {
	// Load configuration; a missing required setting stops the process
	// before any network call.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	log.Printf("Starting control panel...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Project Endpoint: %s", cfg.ProjectEndpoint)
	log.Printf("Orchestrator Agent: %s", cfg.OrchestratorAgentID)
	log.Printf("Database: %s", cfg.DatabaseURL)

	// Initialize session store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize credential provider
	var tokens credential.TokenProvider
	if cfg.ProjectAPIKey != "" {
		tokens = credential.StaticProvider{Value: cfg.ProjectAPIKey}
	} else {
		azure, err := credential.NewAzureProvider()
		if err != nil {
			log.Fatalf("Failed to initialize credential provider: %v", err)
		}
		tokens = azure
	}

	// Initialize remote client
	remote := foundry.NewClient(cfg.ProjectEndpoint, cfg.APIVersion, tokens)

	// Initialize upload policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize websocket hub
	h := hub.NewHub()
	go h.Run()

	// Initialize service
	svc := service.New(db, remote, policyEngine, h, cfg)

	// Create HTTP server
	server := handler.NewServer(svc, h)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Control panel started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down control panel...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Control panel stopped")
}
