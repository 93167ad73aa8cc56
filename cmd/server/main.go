package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/obsidian-cms/obsidian/internal/api"
	"github.com/obsidian-cms/obsidian/internal/config"
	"github.com/obsidian-cms/obsidian/internal/credential"
	"github.com/obsidian-cms/obsidian/internal/graph"
	"github.com/obsidian-cms/obsidian/internal/repository"
	"github.com/obsidian-cms/obsidian/internal/repository/graphstore"
	"github.com/obsidian-cms/obsidian/internal/repository/localfs"
	"github.com/obsidian-cms/obsidian/internal/service"
	"github.com/obsidian-cms/obsidian/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Connect to the graph database
	ctx := context.Background()
	driver, err := graph.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err != nil {
		log.Fatalf("failed to connect to graph database: %v", err)
	}
	defer driver.Close(ctx)

	// Initialize repositories
	blobs, err := localfs.New(cfg.UploadDir)
	if err != nil {
		log.Fatalf("failed to initialize upload storage: %v", err)
	}
	repos := &repository.Repositories{
		Entities: graphstore.NewStore(driver, graphstore.Config{
			RestrictedLabels:     cfg.RestrictedLabels,
			Restrict:             cfg.RestrictGraph,
			AllowedLabels:        cfg.AllowedLabels,
			AllowedRelationships: cfg.AllowedRelationships,
		}),
		Users: graphstore.NewUserRepo(driver),
		Blobs: blobs,
	}

	// Initialize services
	creds := credential.NewManager(cfg.SaltLength, cfg.BcryptCost, cfg.ForceComplexPasswords)
	tokens, err := token.NewService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("failed to initialize token service: %v", err)
	}
	services := service.NewServices(repos, creds, tokens)

	// Initialize router
	router := api.NewRouter(services)

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
