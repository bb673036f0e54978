package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"easel/api/internal/app"
	"easel/api/internal/board"
	"easel/api/internal/config"
	"easel/api/internal/search"
	"easel/api/internal/snapgit"
	"easel/api/internal/storage"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("durable store setup failed: %v", err)
	}
	defer store.Close()

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient)

	var snaps *snapgit.Service
	if strings.TrimSpace(cfg.SnapshotRepoDir) != "" {
		snaps = snapgit.New(cfg.SnapshotRepoDir)
	}

	engine := board.NewEngine(cfg.HistoryLimit)
	service := app.New(engine, store, searchService, snaps)
	defer service.Close()

	// Startup hydration runs off the serving path; clients poll
	// /api/board/status until it completes.
	go func() {
		hydrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		service.Hydrate(hydrateCtx)
		log.Printf("board hydrated")
	}()

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Easel API listening on %s (store=%s)", cfg.Addr, cfg.StoreBackend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.StoreBackend {
	case "redis":
		return storage.NewRedisStore(cfg.RedisURL)
	case "postgres":
		return storage.OpenPostgres(ctx, cfg.DatabaseURL)
	case "minio":
		return storage.OpenMinio(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	case "memory":
		log.Printf("WARNING: memory store selected, board state will not survive restarts")
		return storage.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
