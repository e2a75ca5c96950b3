// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

package entitlement

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
)

// FileStore keeps one JSON document per player under a data directory.
// It is the default backend for small servers and the migration source for
// the SQL backends.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates the data directory if needed and returns a store
// rooted there.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, oops.In("entitlement").
			Code("STORE_DIR_FAILED").
			With("dir", dir).
			Wrap(err)
	}
	return &FileStore{dir: dir, logger: logger.With("store", "file")}, nil
}

// Dir returns the backing directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// path maps a player id to its document. Base strips any path separators a
// hostile id could carry.
func (s *FileStore) path(playerID string) string {
	return filepath.Join(s.dir, filepath.Base(playerID)+".json")
}

// Load implements Store. Unreadable or corrupt documents degrade to an
// empty entitlement with a warning; the player simply owns nothing until
// the next save overwrites the record.
func (s *FileStore) Load(_ context.Context, playerID string) *Entitlement {
	data, err := os.ReadFile(s.path(playerID))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read entitlement, treating as empty",
				"player", playerID, "error", err)
		}
		return New()
	}

	ent := New()
	if err := json.Unmarshal(data, ent); err != nil {
		s.logger.Warn("corrupt entitlement document, treating as empty",
			"player", playerID, "error", err)
		return New()
	}
	ent.normalize()
	return ent
}

// Save implements Store. The document is written to a temp file and renamed
// into place so a crash mid-write never leaves a truncated record.
func (s *FileStore) Save(_ context.Context, playerID string, ent *Entitlement) error {
	data, err := json.MarshalIndent(ent, "", "  ")
	if err != nil {
		return oops.In("entitlement").
			Code("STORE_ENCODE_FAILED").
			With("player", playerID).
			Wrap(err)
	}

	target := s.path(playerID)
	tmp, err := os.CreateTemp(s.dir, ".tag-*.tmp")
	if err != nil {
		return oops.In("entitlement").
			Code("STORE_WRITE_FAILED").
			With("player", playerID).
			Wrap(err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()       //nolint:errcheck // write error takes precedence
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return oops.In("entitlement").
			Code("STORE_WRITE_FAILED").
			With("player", playerID).
			Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return oops.In("entitlement").
			Code("STORE_WRITE_FAILED").
			With("player", playerID).
			Wrap(err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return oops.In("entitlement").
			Code("STORE_WRITE_FAILED").
			With("player", playerID).
			Wrap(err)
	}
	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(_ context.Context, playerID string) error {
	err := os.Remove(s.path(playerID))
	if err != nil && !os.IsNotExist(err) {
		return oops.In("entitlement").
			Code("STORE_DELETE_FAILED").
			With("player", playerID).
			Wrap(err)
	}
	return nil
}

// Close implements Store. The file backend holds no open handles.
func (s *FileStore) Close() error {
	return nil
}

// Record implements Journal by appending newline-delimited JSON to
// journal.ndjson in the data directory.
func (s *FileStore) Record(_ context.Context, rec TransactionRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return oops.In("entitlement").Code("JOURNAL_ENCODE_FAILED").Wrap(err)
	}
	f, err := os.OpenFile(filepath.Join(s.dir, "journal.ndjson"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return oops.In("entitlement").Code("JOURNAL_WRITE_FAILED").Wrap(err)
	}
	defer f.Close() //nolint:errcheck // append-only journal, close error not actionable
	if _, err := f.Write(append(line, '\n')); err != nil {
		return oops.In("entitlement").Code("JOURNAL_WRITE_FAILED").Wrap(err)
	}
	return nil
}

// PlayerIDs lists every player with a persisted document, for the legacy
// import. Non-JSON files and the journal are ignored.
func (s *FileStore) PlayerIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, oops.In("entitlement").
			Code("STORE_LIST_FAILED").
			With("dir", s.dir).
			Wrap(err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}
