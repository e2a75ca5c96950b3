// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

package entitlement

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Store persists per-player entitlements.
//
// Load is fail-soft by contract: a missing record or an I/O failure yields
// an empty entitlement, never an error. Cosmetic state is not worth failing
// a request over; failures are logged by the backend. Save and Delete do
// return errors so callers can log them, but the engine treats both as
// best-effort.
type Store interface {
	// Load returns the player's entitlement, or an empty one if no record
	// exists or the backend failed. Never returns nil.
	Load(ctx context.Context, playerID string) *Entitlement

	// Save upserts the player's entitlement. Last write wins; there is no
	// concurrency token.
	Save(ctx context.Context, playerID string, ent *Entitlement) error

	// Delete removes the player's record. Deleting a missing record is not
	// an error.
	Delete(ctx context.Context, playerID string) error

	Close() error
}

// TransactionRecord is one line of the purchase journal: a successful free
// or paid unlock. Journaling is best-effort and never blocks a grant.
type TransactionRecord struct {
	ID       ulid.ULID `json:"id"`
	PlayerID string    `json:"playerId"`
	TagID    string    `json:"tagId"`
	Price    float64   `json:"price"`
	Result   string    `json:"result"`
	At       time.Time `json:"at"`
}

// NewTransactionRecord stamps a record with a fresh ULID and timestamp.
func NewTransactionRecord(playerID, tagID string, price float64, result string) TransactionRecord {
	now := time.Now().UTC()
	return TransactionRecord{
		ID:       ulid.Make(),
		PlayerID: playerID,
		TagID:    tagID,
		Price:    price,
		Result:   result,
		At:       now,
	}
}

// Journal appends purchase records. Both storage backends implement it.
type Journal interface {
	Record(ctx context.Context, rec TransactionRecord) error
}
