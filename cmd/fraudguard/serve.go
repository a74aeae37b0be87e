package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opensource-finance/fraudguard/internal/analysis"
	"github.com/opensource-finance/fraudguard/internal/api"
	"github.com/opensource-finance/fraudguard/internal/auth"
	"github.com/opensource-finance/fraudguard/internal/bus"
	"github.com/opensource-finance/fraudguard/internal/cache"
	"github.com/opensource-finance/fraudguard/internal/repository"
	"github.com/opensource-finance/fraudguard/internal/rules"
	"github.com/opensource-finance/fraudguard/internal/session"
	"github.com/opensource-finance/fraudguard/internal/throttle"
	"github.com/opensource-finance/fraudguard/internal/worker"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP API",
		Long: `Start the dashboard API with the configured repository, cache and event bus.

The local profile runs on SQLite, an in-memory cache and an in-process bus.
The cluster profile expects PostgreSQL, Redis and NATS.`,
		Example: `  fraudguard serve
  fraudguard serve --port 9090
  FRAUDGUARD_PROFILE=cluster fraudguard serve --config /etc/fraudguard.yaml`,
		RunE: runServe,
	}
	cmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	logger.Info("starting fraudguard",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
		"profile", cfg.Profile,
	)

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	if repo != nil {
		defer repo.Close()
	}
	logger.Info("repository initialized", "driver", cfg.Repository.Driver)

	c, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer c.Close()
	logger.Info("cache initialized", "type", cfg.Cache.Type)

	eventBus, err := bus.New(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}
	defer eventBus.Close()
	logger.Info("event bus initialized", "type", cfg.EventBus.Type)

	authn, err := auth.New(ctx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize authenticator: %w", err)
	}
	logger.Info("authenticator initialized", "mode", cfg.Auth.Mode)

	heuristic, client, err := buildHeuristic(cfg, false, logger)
	if err != nil {
		return err
	}
	defer heuristic.Engine().Close()

	var reloader api.RulesReloader
	if cfg.Analysis.RulesFile != "" {
		watcher, err := rules.NewWatcher(heuristic.Engine(), cfg.Analysis.RulesFile, logger)
		if err != nil {
			return fmt.Errorf("failed to watch rules: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			watcher.Stop()
			return err
		}
		defer watcher.Stop()
		reloader = watcher
	}
	logger.Info("rule engine initialized",
		"rules_count", heuristic.Engine().RulesCount(),
		"rules_file", cfg.Analysis.RulesFile,
	)

	sessions := session.NewManager(c, cfg.Session.TTL, logger)
	limiter := throttle.NewService(c, cfg.Session.MaxAnalysesPerWindow, cfg.Session.ThrottleWindow)
	analyzer := analysis.NewAnalyzer(heuristic, cfg.Analysis.StepDelay, logger)

	archive := worker.NewWorker(eventBus, repo, logger)
	if err := archive.Start(); err != nil {
		return fmt.Errorf("failed to start archive worker: %w", err)
	}
	defer archive.Stop()

	srv := api.NewServer(cfg.Server, api.Dependencies{
		Sessions:      sessions,
		Authenticator: authn,
		Analyzer:      analyzer,
		Throttle:      limiter,
		Engine:        heuristic.Engine(),
		Reloader:      reloader,
		Predictor:     client,
		Repository:    repo,
		Cache:         c,
		Bus:           eventBus,
		Version:       Version,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	logger.Info("fraudguard is ready",
		"addr", srv.Addr(),
		"auth", cfg.Auth.Mode,
		"behavior_scorer", cfg.Behavior.Scorer,
		"predict_endpoint", client.Endpoint(),
		"tracing", cfg.Tracing.Enabled,
		"service_name", cfg.Tracing.ServiceName,
	)
	printBanner(cmd, srv.Addr())

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("fraudguard shutdown complete")
	return nil
}

func printBanner(cmd *cobra.Command, addr string) {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "\nFraudGuard %s (%s profile)\n", Version, cfg.Profile)
	fmt.Fprintf(w, "  API:      http://%s\n", addr)
	fmt.Fprintf(w, "  Login:    POST /sessions\n")
	fmt.Fprintf(w, "  Analyze:  POST /analyses\n\n")
}
