// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tagforge/tagforge/internal/config"
	"github.com/tagforge/tagforge/internal/entitlement"
	"github.com/tagforge/tagforge/internal/logging"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run schema migrations and import legacy player files",
		Long: `Run all pending schema migrations for the configured SQL backend,
then import legacy per-player JSON files from storage.dir into it. The
legacy directory is renamed after a successful import, so reruns are
no-ops.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
			if err != nil {
				return err
			}
			return runMigrate(cfg, cmd)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runMigrate(cfg *config.Config, cmd *cobra.Command) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Storage.Backend == config.BackendFile {
		return oops.In("cli").
			Code("CONFIG_INVALID").
			New("migrate requires a sql backend (sqlite or mysql)")
	}

	logging.SetDefault(serviceName, version, cfg.LogFormat)
	logger := slog.Default()
	ctx := cmd.Context()

	cmd.Println("Connecting to database...")
	store, _, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Warn("error closing store", "error", closeErr)
		}
	}()

	cmd.Println("Schema is up to date")

	if cfg.Storage.Dir != "" {
		result, err := entitlement.ImportLegacy(ctx, store, cfg.Storage.Dir, logger)
		if err != nil {
			return err
		}
		cmd.Printf("Imported %d legacy records (%d failed)\n", result.Imported, result.Failed)
	}

	return nil
}
