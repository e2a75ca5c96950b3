package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tagforge/tagforge/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// resolveConfigFile returns the explicit --config path, or the XDG config
// file if one exists, or empty for pure flag/default operation.
func resolveConfigFile() string {
	if configFile != "" {
		return configFile
	}
	if path := xdg.DefaultConfigFile(); fileExists(path) {
		return path
	}
	return ""
}

// fileExists returns true if the file exists. Permission errors are treated
// as "file exists" so a real read error surfaces instead of being skipped.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !os.IsNotExist(err)
}

// NewRootCmd creates the root command for the TagForge CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tagforge",
		Short: "TagForge - cosmetic tag entitlement engine",
		Long: `TagForge manages cosmetic tag catalogs, player entitlements, and
purchase flows for multiplayer game servers, with pluggable file, SQLite,
and MySQL persistence.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewValidateCatalogCmd())

	return cmd
}
