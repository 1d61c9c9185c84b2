package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"Agent311/internal/api"
	"Agent311/internal/auth"
	"Agent311/internal/config"
	"Agent311/internal/dialog"
	"Agent311/internal/store"
	"Agent311/internal/telemetry"
)

// app holds everything a command needs, opened once per invocation.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	db     *store.Store
	auth   *auth.Client
	api    *api.Client
	ctrl   *dialog.Controller

	closers []func()
}

func newApp(ctx context.Context, cmd *cobra.Command, flags globalFlags) (*app, error) {
	cfg, err := config.Load(flags.dataDir)
	if err != nil {
		return nil, err
	}
	if flags.apiURL != "" {
		cfg.APIURL = flags.apiURL
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = flags.debug
	}

	a := &app{cfg: cfg}

	logger, closeLogger, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	a.closers = append(a.closers, closeLogger)

	tel, shutdown, err := telemetry.InitTelemetry(ctx, cfg.LogDir)
	if err != nil {
		logger.Warn("telemetry disabled", "error", err)
		tel = telemetry.Noop()
	} else {
		a.closers = append(a.closers, shutdown)
	}

	a.db, err = store.Open(cfg.DBPath())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := a.db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	})

	tokens := auth.NewTokenStore(a.db, logger)
	a.auth = auth.NewClient(cfg.APIURL, &http.Client{}, tokens, logger)
	a.api = api.New(a.auth, tel, logger)
	a.ctrl = dialog.New(a.api, tokens, dialog.Options{
		DownloadDir: cfg.DownloadDir,
		Telemetry:   tel,
		Logger:      logger,
	})

	logger.Info("agent311 started", "command", cmd.CommandPath(), "api_url", cfg.APIURL, "data_dir", cfg.DataDir)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
