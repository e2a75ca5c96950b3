// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tagforge/tagforge/internal/catalog"
	"github.com/tagforge/tagforge/internal/config"
	"github.com/tagforge/tagforge/internal/economy"
	"github.com/tagforge/tagforge/internal/entitlement"
	"github.com/tagforge/tagforge/internal/logging"
	"github.com/tagforge/tagforge/internal/observability"
	"github.com/tagforge/tagforge/internal/perms"
	"github.com/tagforge/tagforge/internal/tags"
	"github.com/tagforge/tagforge/pkg/errutil"
)

const serviceName = "tagforge"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the entitlement service",
		Long: `Start the entitlement service: load the tag catalog, open the
configured storage backend, and serve metrics and health endpoints.
SIGHUP reloads the catalog without a restart.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault(serviceName, version, cfg.LogFormat)
	logger := slog.Default()

	slog.Info("starting tagforge",
		"backend", cfg.Storage.Backend,
		"catalog", cfg.Catalog,
		"log_format", cfg.LogFormat,
	)

	store, journal, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Warn("error closing store", "error", closeErr)
		}
	}()

	// One-shot import of per-player JSON files left behind by the file
	// backend. The source directory is renamed on success, so this is a
	// no-op on every start after the first.
	if cfg.Storage.Backend != config.BackendFile && cfg.Storage.Dir != "" {
		result, importErr := entitlement.ImportLegacy(ctx, store, cfg.Storage.Dir, logger)
		if importErr != nil {
			return importErr
		}
		if result.Imported > 0 || result.Failed > 0 {
			slog.Info("legacy player data imported",
				"imported", result.Imported,
				"failed", result.Failed,
			)
		}
	}

	econ, perm, err := buildArbiters(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer *observability.Server
	engineOpts := []tags.Option{
		tags.WithJournal(journal),
		tags.WithLogger(logger),
	}
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool { return true })
		engineOpts = append(engineOpts, tags.WithMetrics(obsServer.Metrics()))
	}

	engine, err := tags.NewEngine(
		func() (*catalog.Catalog, error) { return catalog.Load(cfg.Catalog, logger) },
		store, econ, perm, engineOpts...,
	)
	if err != nil {
		return err
	}

	if obsServer != nil {
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			return startErr
		}
		// Monitor observability server errors - cancel context on error
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	reloadChan := make(chan os.Signal, 1)
	signal.Notify(reloadChan, syscall.SIGHUP)
	defer signal.Stop(reloadChan)

	cmd.Println("TagForge started")
	slog.Info("tagforge ready",
		"tags", len(engine.List()),
		"economy_available", econ.IsAnyAvailable(),
	)

loop:
	for {
		select {
		case <-reloadChan:
			if reloadErr := engine.Reload(); reloadErr != nil {
				errutil.LogError(logger, "catalog reload failed", reloadErr)
			}
		case sig := <-sigChan:
			slog.Info("received shutdown signal", "signal", sig)
			break loop
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down")
			break loop
		}
	}

	// Graceful shutdown
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// openStore opens the configured backend and runs pending schema
// migrations for the SQL dialects. The journal shares the backend's
// storage: an NDJSON file next to the player files, or the
// purchase_journal table.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (entitlement.Store, entitlement.Journal, error) {
	switch cfg.Storage.Backend {
	case config.BackendFile:
		fileStore, err := entitlement.NewFileStore(cfg.Storage.Dir, logger)
		if err != nil {
			return nil, nil, err
		}
		return fileStore, fileStore, nil

	case config.BackendSQLite:
		sqlStore, err := entitlement.OpenSQLite(cfg.Storage.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlStore.Migrate(); err != nil {
			_ = sqlStore.Close()
			return nil, nil, err
		}
		return sqlStore, sqlStore, nil

	case config.BackendMySQL:
		sqlStore, err := entitlement.OpenMySQL(ctx, cfg.Storage.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlStore.Migrate(); err != nil {
			_ = sqlStore.Close()
			return nil, nil, err
		}
		return sqlStore, sqlStore, nil

	default:
		return nil, nil, oops.In("cli").
			Code("CONFIG_INVALID").
			With("backend", cfg.Storage.Backend).
			New("unknown storage backend")
	}
}

// buildArbiters assembles the economy and permission arbiters from the
// statically configured providers. Registration order is priority order.
func buildArbiters(cfg *config.Config, logger *slog.Logger) (*economy.Arbiter, *perms.Arbiter, error) {
	var econProviders []economy.Provider
	if cfg.Economy.Static.Enabled {
		econProviders = append(econProviders,
			economy.NewMemoryProvider("static", cfg.Economy.Static.Balances))
	}

	var permProviders []perms.Provider
	if cfg.Perms.Static.Enabled {
		static, err := perms.NewStaticProvider(cfg.Perms.Static.Defaults, cfg.Perms.Static.Players)
		if err != nil {
			return nil, nil, err
		}
		permProviders = append(permProviders, static)
	}

	return economy.NewArbiter(logger, econProviders...),
		perms.NewArbiter(logger, permProviders...),
		nil
}

// monitorServerErrors monitors a server's error channel and cancels the
// context on error so a failed sidecar server takes the process down
// gracefully. It exits when an error arrives, the channel closes, or the
// context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
