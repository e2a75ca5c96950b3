// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tagforge/tagforge/internal/catalog"
	"github.com/tagforge/tagforge/internal/config"
)

// NewValidateCatalogCmd creates the validate-catalog subcommand.
func NewValidateCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate-catalog",
		Short: "Load and validate the tag catalog",
		Long: `Load the tag catalog file and report what a serving process would
see: how many tags loaded, how many records were skipped for missing
ids, and how many duplicate ids were collapsed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
			if err != nil {
				return err
			}
			return runValidateCatalog(cfg, cmd)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runValidateCatalog(cfg *config.Config, cmd *cobra.Command) error {
	cat, err := catalog.Load(cfg.Catalog, slog.Default())
	if err != nil {
		return err
	}

	stats := cat.Stats()
	free := 0
	for _, def := range cat.All() {
		if def.Free() {
			free++
		}
	}

	cmd.Printf("Catalog OK: %d tags (%d free, %d paid)\n", cat.Len(), free, cat.Len()-free)
	if stats.Skipped > 0 {
		cmd.Printf("Skipped %d records with missing ids\n", stats.Skipped)
	}
	if stats.Duplicates > 0 {
		cmd.Printf("Collapsed %d duplicate ids\n", stats.Duplicates)
	}
	return nil
}
