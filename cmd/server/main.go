package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/resilience/internal/catalog"
	"github.com/JonMunkholm/resilience/internal/config"
	"github.com/JonMunkholm/resilience/internal/logging"
	"github.com/JonMunkholm/resilience/internal/metrics"
	"github.com/JonMunkholm/resilience/internal/survey"
	"github.com/JonMunkholm/resilience/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"catalog_path", cfg.Survey.CatalogPath,
	)

	cat := catalog.Default()
	if cfg.Survey.CatalogPath != "" {
		cat, err = catalog.Load(cfg.Survey.CatalogPath)
		if err != nil {
			slog.Error("failed to load catalog", "path", cfg.Survey.CatalogPath, "error", err)
			os.Exit(1)
		}
	}
	slog.Info("catalog loaded",
		"version", cat.Version(),
		"sections", len(cat.Sections()),
		"pairs", cat.PairCount(),
	)

	m := metrics.New()
	session := survey.NewSession(cat, survey.WithObserver(m))
	slog.Info("session started", "session_id", session.ID)

	server := web.NewServer(cfg, session, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)

	// Graceful shutdown on signal or when the listener fails
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped", "session_id", session.ID)
}
