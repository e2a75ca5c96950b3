// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

// Package config loads TagForge configuration from a YAML file layered
// under command-line flags.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Backend names accepted for storage.backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

// Storage selects the persistence backend and its parameters. The backend
// is fixed for the process lifetime; switching requires a restart (and,
// for file -> SQL, the one-time legacy import).
type Storage struct {
	Backend string `koanf:"backend"`

	// Dir is the file backend's data directory. For SQL backends it is
	// the legacy import source.
	Dir string `koanf:"dir"`

	// Path is the SQLite database file.
	Path string `koanf:"path"`

	// DSN is the MySQL connection string.
	DSN string `koanf:"dsn"`
}

// StaticEconomy seeds the built-in in-memory economy provider, for hosts
// without a real currency integration.
type StaticEconomy struct {
	Enabled  bool               `koanf:"enabled"`
	Balances map[string]float64 `koanf:"balances"`
}

// StaticPerms configures the built-in glob-pattern permission provider.
type StaticPerms struct {
	Enabled  bool                `koanf:"enabled"`
	Defaults []string            `koanf:"defaults"`
	Players  map[string][]string `koanf:"players"`
}

// Config is the full TagForge configuration.
type Config struct {
	Catalog     string  `koanf:"catalog"`
	LogFormat   string  `koanf:"log_format"`
	MetricsAddr string  `koanf:"metrics_addr"`
	Storage     Storage `koanf:"storage"`

	Economy struct {
		Static StaticEconomy `koanf:"static"`
	} `koanf:"economy"`

	Perms struct {
		Static StaticPerms `koanf:"static"`
	} `koanf:"perms"`
}

// flagKeys maps flag names to config keys so flags can use conventional
// dashes while the file keeps nested YAML keys.
var flagKeys = map[string]string{
	"log-format":      "log_format",
	"metrics-addr":    "metrics_addr",
	"storage-backend": "storage.backend",
	"storage-dir":     "storage.dir",
	"storage-path":    "storage.path",
	"storage-dsn":     "storage.dsn",
}

// RegisterFlags declares the config-overriding flags on a command's flag
// set. Defaults here are the effective defaults when neither file nor flag
// sets a value.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("catalog", "tags.yaml", "catalog file path")
	flags.String("log-format", "json", "log format (json or text)")
	flags.String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	flags.String("storage-backend", BackendFile, "storage backend (file, sqlite, mysql)")
	flags.String("storage-dir", "playerdata", "file backend data directory / legacy import source")
	flags.String("storage-path", "tagforge.db", "sqlite database file")
	flags.String("storage-dsn", "", "mysql connection string")
}

// Load reads the optional config file, then overlays explicitly set flags.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, oops.In("config").
				Code("CONFIG_READ_FAILED").
				With("path", configFile).
				Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithValue(flags, ".", k,
			func(key, value string) (string, any) {
				if mapped, ok := flagKeys[key]; ok {
					return mapped, value
				}
				return key, value
			})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.In("config").Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.In("config").Code("CONFIG_PARSE_FAILED").Wrap(err)
	}
	return cfg, nil
}

// Validate checks the configuration for startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Catalog) == "" {
		return oops.In("config").Code("CONFIG_INVALID").New("catalog path is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.In("config").
			Code("CONFIG_INVALID").
			With("log_format", c.LogFormat).
			New("log_format must be 'json' or 'text'")
	}

	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Dir == "" {
			return oops.In("config").Code("CONFIG_INVALID").New("storage.dir is required for the file backend")
		}
	case BackendSQLite:
		if c.Storage.Path == "" {
			return oops.In("config").Code("CONFIG_INVALID").New("storage.path is required for the sqlite backend")
		}
	case BackendMySQL:
		if c.Storage.DSN == "" {
			return oops.In("config").Code("CONFIG_INVALID").New("storage.dsn is required for the mysql backend")
		}
	default:
		return oops.In("config").
			Code("CONFIG_INVALID").
			With("backend", c.Storage.Backend).
			New("unknown storage backend")
	}
	return nil
}
