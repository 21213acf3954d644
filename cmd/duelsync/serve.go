package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/duelsync/internal/config"
	"github.com/vovakirdan/duelsync/internal/match"
	"github.com/vovakirdan/duelsync/internal/push"
	"github.com/vovakirdan/duelsync/internal/serial"
	"github.com/vovakirdan/duelsync/internal/session"
	"github.com/vovakirdan/duelsync/internal/storage"
	"github.com/vovakirdan/duelsync/internal/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the duelsync websocket server",
	Long: `Start the websocket server clients connect to.

Each client connects to the websocket endpoint with its uid in the query
string and then creates, joins, watches or plays matches through JSON
envelopes. Match starts and results are recorded to the database.

Examples:
  duelsync serve                        # Listen on :8844
  duelsync serve --addr :9000           # Listen on port 9000
  duelsync serve --db ./matches.db      # Use specific database

Clients connect to:
  ws://localhost:8844/ws?uid=<uid>`,
	RunE: runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagAddr != "" {
		cfg.Server.Addr = flagAddr
	}
	if flagDBPath != "" {
		cfg.Storage.DBPath = flagDBPath
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "duelsync",
	})
	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	registry := session.NewRegistry()
	serializer := serial.New()
	dispatcher := push.NewDispatcher(logger)

	opts := []match.Option{}
	var store *storage.Store
	if cfg.Storage.DBPath != "" {
		store, err = storage.Open(cfg.Storage.DBPath)
		if err != nil {
			logger.Warn("could not open match database", "error", err)
			// Continue without persistence
		} else {
			defer store.Close()
			opts = append(opts, match.WithRecorder(store))
		}
	}

	svc := match.NewService(registry, serializer, dispatcher, logger, opts...)
	transport := ws.NewServer(svc, dispatcher, logger, cfg.Server.SendBuffer)

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.Path, transport)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "path", cfg.Server.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
