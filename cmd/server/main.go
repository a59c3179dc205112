package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/recommender/internal/api"
	"github.com/knowledge-engine/recommender/internal/catalog"
	"github.com/knowledge-engine/recommender/internal/config"
	"github.com/knowledge-engine/recommender/internal/engine"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	// 1. Config
	cfg := config.Load()

	// Setup Logging
	logger := newLogger(cfg.Log)
	entry := logger.WithField("service", "recommender-api")

	entry.Info("Starting Product Recommender API Service")

	// 2. Catalog source
	location := cfg.Catalog.CatalogLocation()
	src := catalog.NewSource(location, catalog.HTTPSourceOptions{
		Timeout:    cfg.Catalog.FetchTimeout,
		UserAgent:  cfg.Catalog.UserAgent,
		MaxRetries: cfg.Catalog.FetchRetries,
		Backoff:    cfg.Catalog.FetchBackoff,
	}, entry)

	// 3. Engine with the initial snapshot
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.NewEngine(cfg, entry, src)
	if _, err := eng.Reload(ctx); err != nil {
		entry.Fatalf("Failed to load catalog from %s: %v", src, err)
	}

	// 4. Hot reload for local catalogs
	if cfg.Catalog.Watch {
		if _, ok := src.(*catalog.FileSource); ok {
			watcher, err := engine.NewWatcher(eng, location, cfg.Catalog.WatchDebounce)
			if err != nil {
				entry.Fatalf("Failed to watch catalog: %v", err)
			}
			go watcher.Run(ctx)
		} else {
			entry.Warn("CATALOG_WATCH only applies to file catalogs, ignoring")
		}
	}

	// 5. API Server
	server := api.NewServer(eng, cfg.Ranking, entry)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Addr, cfg.Server)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			entry.Fatal(err)
		}
	case <-ctx.Done():
		entry.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			entry.WithError(err).Error("Graceful shutdown failed")
		}
	}
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
