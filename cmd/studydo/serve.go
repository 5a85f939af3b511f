package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yangwenmai/studydo/internal/api"
	"github.com/yangwenmai/studydo/internal/backend"
	"github.com/yangwenmai/studydo/internal/config"
	"github.com/yangwenmai/studydo/internal/engine"
	"github.com/yangwenmai/studydo/internal/ingest"
	"github.com/yangwenmai/studydo/internal/store"
	"github.com/yangwenmai/studydo/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the studydo HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := store.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	st, err := store.New(db)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	// Anything still generating or answering belongs to a previous run;
	// release it so the next pass or sweep can claim it again. Answering
	// questions that already carry an answer are resolved by the sweep
	// without another model call.
	startupCtx := context.Background()
	cutoff := time.Now().UTC().Format(time.RFC3339)
	if n, err := st.ResetStaleGenerating(startupCtx, cutoff); err != nil {
		logger.Warn("reset stale blocks on startup", "error", err)
	} else if n > 0 {
		logger.Info("released blocks left generating by a previous run", "count", n)
	}
	if n, err := st.ResetStaleAnswering(startupCtx, cutoff); err != nil {
		logger.Warn("reset stale questions on startup", "error", err)
	} else if n > 0 {
		logger.Info("released questions left answering by a previous run", "count", n)
	}

	// Build backends.
	local := backend.NewLocal(cfg.Local.URL, backend.WithLocalModel(cfg.Local.Model))
	remote := backend.NewRemote(cfg.Remote.ResolveAPIKey(),
		backend.WithRemoteBaseURL(cfg.Remote.BaseURL),
		backend.WithRemoteModel(cfg.Remote.Model))
	health := backend.NewHealthChecker(remote.CheckCredential, logger)

	eng := engine.New(st, local, remote, health, logger,
		engine.WithMaxContextChars(cfg.Engine.MaxContextChars))
	intake := ingest.New(st, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Probe the credential once up front so the first pass resolves
	// against a real verdict instead of unset.
	go health.Check(ctx)

	w := worker.New(st, eng, health, cfg.Worker.Interval, cfg.Worker.StalenessWindow, logger)
	go w.Start(ctx)

	srv := api.New(st, eng, intake)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Handler(),
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
		httpServer.Shutdown(context.Background())
	}()

	logger.Info("studydo server listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
