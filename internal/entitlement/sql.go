// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

package entitlement

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migmysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migsqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	// Register database/sql drivers for the two SQL backends.
	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql
var migrationsFS embed.FS

// Dialect selects the SQL flavor for schema and upsert statements.
type Dialect string

// Supported SQL dialects.
const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

// SQLStore persists entitlements in a single table keyed by player id,
// with the serialized document in a text column. Per-player ownership sets
// are small and sparse, so one blob per row beats a normalized join table
// at this scale.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// OpenSQLite opens (or creates) an embedded SQLite database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, oops.In("entitlement").
			Code("STORE_DIR_FAILED").
			With("path", path).
			Wrap(err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, oops.In("entitlement").
			Code("STORE_OPEN_FAILED").
			With("dialect", "sqlite").
			With("path", path).
			Wrap(err)
	}

	// WAL keeps readers from blocking the synchronous writes the engine does.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close() //nolint:errcheck // open error takes precedence
		return nil, oops.In("entitlement").
			Code("STORE_OPEN_FAILED").
			With("dialect", "sqlite").
			With("operation", "enable WAL").
			Wrap(err)
	}

	logger.Info("sqlite store opened", "path", path)
	return &SQLStore{db: db, dialect: DialectSQLite, logger: logger.With("store", "sqlite")}, nil
}

// OpenMySQL connects to a networked MySQL database. The initial ping is
// retried with fibonacci backoff so a server that starts before its
// database does not immediately fail.
func OpenMySQL(ctx context.Context, dsn string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, oops.In("entitlement").
			Code("STORE_OPEN_FAILED").
			With("dialect", "mysql").
			Wrap(err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(5 * time.Minute)

	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := db.PingContext(ctx); pingErr != nil {
			logger.Warn("mysql not reachable yet, retrying", "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		_ = db.Close() //nolint:errcheck // connect error takes precedence
		return nil, oops.In("entitlement").
			Code("STORE_CONNECT_FAILED").
			With("dialect", "mysql").
			Wrap(err)
	}

	logger.Info("mysql store connected")
	return &SQLStore{db: db, dialect: DialectMySQL, logger: logger.With("store", "mysql")}, nil
}

// Migrate applies pending schema migrations from the embedded per-dialect
// migration files.
func (s *SQLStore) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations/"+string(s.dialect))
	if err != nil {
		return oops.In("entitlement").
			Code("MIGRATION_SOURCE_FAILED").
			With("dialect", string(s.dialect)).
			Wrap(err)
	}

	var driver interface {
		Close() error
	}
	var m *migrate.Migrate
	switch s.dialect {
	case DialectSQLite:
		d, derr := migsqlite.WithInstance(s.db, &migsqlite.Config{})
		if derr != nil {
			return oops.In("entitlement").Code("MIGRATION_INIT_FAILED").Wrap(derr)
		}
		driver = d
		m, err = migrate.NewWithInstance("iofs", src, "sqlite", d)
	case DialectMySQL:
		d, derr := migmysql.WithInstance(s.db, &migmysql.Config{})
		if derr != nil {
			return oops.In("entitlement").Code("MIGRATION_INIT_FAILED").Wrap(derr)
		}
		driver = d
		m, err = migrate.NewWithInstance("iofs", src, "mysql", d)
	default:
		return oops.In("entitlement").
			Code("MIGRATION_INIT_FAILED").
			With("dialect", string(s.dialect)).
			Errorf("unsupported dialect")
	}
	if err != nil {
		_ = driver.Close() //nolint:errcheck // init error takes precedence
		return oops.In("entitlement").
			Code("MIGRATION_INIT_FAILED").
			With("dialect", string(s.dialect)).
			Wrap(err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.In("entitlement").
			Code("MIGRATION_UP_FAILED").
			With("dialect", string(s.dialect)).
			Wrap(err)
	}
	return nil
}

// upsert statements per dialect. Both resolve conflicts on the primary key
// with the dialect's native clause.
const (
	upsertSQLite = `INSERT INTO player_tags (player_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	upsertMySQL = `INSERT INTO player_tags (player_id, data, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE data = VALUES(data), updated_at = VALUES(updated_at)`
)

// Load implements Store. Query failures and corrupt rows degrade to an
// empty entitlement with a warning.
func (s *SQLStore) Load(ctx context.Context, playerID string) *Entitlement {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM player_tags WHERE player_id = ?`, playerID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return New()
	}
	if err != nil {
		s.logger.Warn("failed to load entitlement, treating as empty",
			"player", playerID, "error", err)
		return New()
	}

	ent := New()
	if err := json.Unmarshal(data, ent); err != nil {
		s.logger.Warn("corrupt entitlement row, treating as empty",
			"player", playerID, "error", err)
		return New()
	}
	ent.normalize()
	return ent
}

// Save implements Store.
func (s *SQLStore) Save(ctx context.Context, playerID string, ent *Entitlement) error {
	data, err := json.Marshal(ent)
	if err != nil {
		return oops.In("entitlement").
			Code("STORE_ENCODE_FAILED").
			With("player", playerID).
			Wrap(err)
	}

	stmt := upsertSQLite
	if s.dialect == DialectMySQL {
		stmt = upsertMySQL
	}
	if _, err := s.db.ExecContext(ctx, stmt, playerID, data, time.Now().UTC()); err != nil {
		return oops.In("entitlement").
			Code("STORE_WRITE_FAILED").
			With("player", playerID).
			With("dialect", string(s.dialect)).
			Wrap(err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLStore) Delete(ctx context.Context, playerID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM player_tags WHERE player_id = ?`, playerID); err != nil {
		return oops.In("entitlement").
			Code("STORE_DELETE_FAILED").
			With("player", playerID).
			Wrap(err)
	}
	return nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return oops.In("entitlement").Code("STORE_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// Record implements Journal.
func (s *SQLStore) Record(ctx context.Context, rec TransactionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO purchase_journal (id, player_id, tag_id, price, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.PlayerID, rec.TagID, rec.Price, rec.Result, rec.At)
	if err != nil {
		return oops.In("entitlement").
			Code("JOURNAL_WRITE_FAILED").
			With("player", rec.PlayerID).
			Wrap(err)
	}
	return nil
}
