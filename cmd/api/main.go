package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/civiclearn/game-engine/internal/config"
	"github.com/civiclearn/game-engine/internal/events"
	"github.com/civiclearn/game-engine/internal/handlers"
	"github.com/civiclearn/game-engine/internal/logger"
	"github.com/civiclearn/game-engine/internal/session"
	"github.com/civiclearn/game-engine/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logg := logger.Setup(cfg)

	logg.Info("Starting Game Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir)

	store := storage.NewRedisStorage(cfg.RedisAddr, cfg.DataDir, logg)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx); err != nil {
		logg.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}

	broadcaster := events.NewBroadcaster(store.Client(), logg)
	registry := session.NewRegistry(store, broadcaster, logg, cfg.TickInterval, cfg.AutosaveDebounce)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(store, logg))
	r.Method(http.MethodGet, "/v1/manifests", handlers.NewManifestsHandler(store, logg))
	r.Route("/v1/sessions", handlers.NewSessionHandler(registry, logg).Routes)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logg.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logg.Info("Server is shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Flush every live session's pending autosave before the storage
		// connection goes away
		registry.Shutdown(shutdownCtx)

		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := store.Close(); err != nil {
			logg.Error("Error closing storage connection", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logg.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	logg.Info("Server exited")
}
