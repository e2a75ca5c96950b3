// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

package entitlement

import (
	"context"
	"log/slog"
	"os"

	"github.com/samber/oops"
)

// ImportResult summarizes a legacy import run.
type ImportResult struct {
	Imported int
	Failed   int
}

// ImportLegacy copies every player document from a file-backend data
// directory into target, then renames the directory with a "_legacy"
// suffix so a later startup does not re-import. A missing or already
// renamed source directory is a no-op.
//
// The import is best-effort per record: one player's unreadable document
// is logged and skipped, not fatal to the batch. Target rows are
// overwritten (last write wins), so re-running against a half-imported
// table converges rather than erroring.
func ImportLegacy(ctx context.Context, target Store, sourceDir string, logger *slog.Logger) (ImportResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var result ImportResult

	if _, err := os.Stat(sourceDir); os.IsNotExist(err) {
		return result, nil
	}

	source, err := NewFileStore(sourceDir, logger)
	if err != nil {
		return result, oops.In("entitlement").
			Code("IMPORT_OPEN_FAILED").
			With("source", sourceDir).
			Wrap(err)
	}

	ids, err := source.PlayerIDs()
	if err != nil {
		return result, oops.In("entitlement").
			Code("IMPORT_LIST_FAILED").
			With("source", sourceDir).
			Wrap(err)
	}

	for _, id := range ids {
		// FileStore.Load already degrades corrupt documents to empty; an
		// empty import result for a corrupt record is acceptable, but an
		// empty record from a readable file is skipped to avoid writing
		// useless rows.
		ent := source.Load(ctx, id)
		if ent.IsEmpty() {
			continue
		}
		if err := target.Save(ctx, id, ent); err != nil {
			result.Failed++
			logger.Warn("failed to import player record, skipping",
				"player", id, "error", err)
			continue
		}
		result.Imported++
	}

	renamed := sourceDir + "_legacy"
	if err := os.Rename(sourceDir, renamed); err != nil {
		return result, oops.In("entitlement").
			Code("IMPORT_RENAME_FAILED").
			With("source", sourceDir).
			With("target", renamed).
			Wrap(err)
	}

	logger.Info("legacy entitlement import complete",
		"imported", result.Imported,
		"failed", result.Failed,
		"renamed_to", renamed,
	)
	return result, nil
}
