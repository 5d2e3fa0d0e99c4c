package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pollsite/poll-api/internal/auth"
	"github.com/pollsite/poll-api/internal/config"
	"github.com/pollsite/poll-api/internal/logger"
	"github.com/pollsite/poll-api/internal/server"
	"github.com/pollsite/poll-api/internal/storage"
	"github.com/pollsite/poll-api/internal/storage/objectstore"
)

func main() {
	cfg := config.Load()

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	log := logger.Get()

	factory, err := storage.FactoryFromConfig(cfg)
	if err != nil {
		log.Fatal("Invalid storage configuration", "error", err)
	}

	repos, err := factory.CreateContainer(cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage", "type", cfg.Storage.Type, "error", err)
	}
	defer func() {
		if err := repos.Close(); err != nil {
			log.Error("Failed to close storage", "error", err)
		}
	}()

	blobs, err := objectstore.NewFromConfig(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to initialize image storage", "error", err)
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatal("Invalid auth configuration", "error", err)
	}

	srv := server.New(cfg, repos, blobs, tokens)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("Received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			log.Error("Server stopped unexpectedly", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Error("Failed to shut down server cleanly", "error", err)
	}

	log.Info("Server exited")
}
