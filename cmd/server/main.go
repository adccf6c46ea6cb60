package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/skridlevsky/gavel/internal/api"
	"github.com/skridlevsky/gavel/internal/archive"
	"github.com/skridlevsky/gavel/internal/config"
	"github.com/skridlevsky/gavel/internal/tally"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := tally.NewStore(cfg.VoteJSONDir, cfg.VoteMarkdownDir)
	if err != nil {
		log.Fatalf("Failed to open record tree: %v", err)
	}
	cache := tally.NewRecordCache(cfg.CacheTTL)

	// The snapshot archive is optional; without DATABASE_URL the server
	// runs on the record tree alone.
	var snapshots *archive.Archive
	if cfg.DatabaseURL != "" {
		snapshots, err = archive.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to archive: %v", err)
		}
		// NOTE: snapshots.Close() called explicitly in shutdown sequence below — no defer
		log.Println("Snapshot archive connected")
	}

	routerCfg := &api.RouterConfig{
		Store:        store,
		Cache:        cache,
		Archive:      snapshots,
		BadgeBaseURL: cfg.BadgeBaseURL,
	}
	if snapshots != nil {
		routerCfg.Database = snapshots
	}
	routerResult := api.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      routerResult.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	log.Println("Stopping rate limiters...")
	routerResult.RateLimiters.Stop()

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if snapshots != nil {
		log.Println("Closing archive connection...")
		snapshots.Close()
	}

	log.Println("Server exited")
}
