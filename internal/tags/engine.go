// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

// Package tags implements the tag entitlement engine: the state machine
// governing ownership and equip transitions, layered over the catalog,
// the storage backends, and the economy/permission arbiters.
//
// All infrastructure failures degrade to safe defaults inside the engine;
// callers only ever see Result values. Persistence is synchronous: a
// result is returned only after the save attempt completed.
package tags

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tagforge/tagforge/internal/catalog"
	"github.com/tagforge/tagforge/internal/economy"
	"github.com/tagforge/tagforge/internal/entitlement"
	"github.com/tagforge/tagforge/internal/observability"
	"github.com/tagforge/tagforge/internal/perms"
	"github.com/tagforge/tagforge/pkg/errutil"
)

// CatalogLoader produces a fresh catalog snapshot. Called once at
// construction and again on every Reload.
type CatalogLoader func() (*catalog.Catalog, error)

// Engine orchestrates the toggle/purchase/equip state machine.
type Engine struct {
	loadCatalog CatalogLoader
	cat         atomic.Pointer[catalog.Catalog]

	store   entitlement.Store
	journal entitlement.Journal
	econ    *economy.Arbiter
	perm    *perms.Arbiter

	decisions    *DecisionCache
	entitlements sync.Map // playerID -> *entitlement.Entitlement
	locks        *playerLocks

	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithJournal attaches a best-effort purchase journal.
func WithJournal(j entitlement.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithMetrics attaches Prometheus counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine loads the initial catalog and wires the engine together. All
// collaborators are injected; the engine holds no process-wide state.
func NewEngine(load CatalogLoader, store entitlement.Store, econ *economy.Arbiter, perm *perms.Arbiter, opts ...Option) (*Engine, error) {
	e := &Engine{
		loadCatalog: load,
		store:       store,
		econ:        econ,
		perm:        perm,
		decisions:   NewDecisionCache(),
		locks:       newPlayerLocks(),
		logger:      slog.Default().With("component", "tags"),
	}
	for _, opt := range opts {
		opt(e)
	}

	cat, err := load()
	if err != nil {
		return nil, err
	}
	e.cat.Store(cat)
	return e, nil
}

// catalogSnapshot returns the current immutable catalog.
func (e *Engine) catalogSnapshot() *catalog.Catalog {
	return e.cat.Load()
}

// Reload swaps in a freshly loaded catalog and clears the decision cache.
// Cached player entitlements are untouched: ownership data does not depend
// on the catalog.
func (e *Engine) Reload() error {
	cat, err := e.loadCatalog()
	if err != nil {
		return err
	}
	e.cat.Store(cat)
	e.decisions.InvalidateAll()
	e.logger.Info("catalog reloaded", "tags", cat.Len())
	return nil
}

// Get returns the tag definition for id, case-insensitively.
func (e *Engine) Get(tagID string) (catalog.Definition, bool) {
	return e.catalogSnapshot().Get(tagID)
}

// List returns every tag definition in stable catalog order.
func (e *Engine) List() []catalog.Definition {
	return e.catalogSnapshot().All()
}

// Page returns one clamped page of the catalog plus the index served.
func (e *Engine) Page(index, size int) ([]catalog.Definition, int) {
	return e.catalogSnapshot().Page(index, size)
}

// TotalPages returns the page count for the given page size.
func (e *Engine) TotalPages(size int) int {
	return e.catalogSnapshot().TotalPages(size)
}

// Equipped returns the player's equipped tag id, or empty.
func (e *Engine) Equipped(ctx context.Context, playerID string) string {
	return e.current(ctx, playerID).Equipped
}

// Owns reports whether the player owns the tag.
func (e *Engine) Owns(ctx context.Context, playerID, tagID string) bool {
	return e.current(ctx, playerID).Owns(tagID)
}

// CanUse reports whether the player may display the tag: owned, or gated
// by a permission node the player holds. Memoized per (player, tag).
func (e *Engine) CanUse(ctx context.Context, playerID, tagID string) bool {
	if decision, ok := e.decisions.Get(playerID, tagID); ok {
		return decision
	}

	def, ok := e.catalogSnapshot().Get(tagID)
	if !ok {
		return false
	}

	decision := e.current(ctx, playerID).Owns(def.ID)
	if !decision && def.Permission != "" {
		decision = e.perm.Has(ctx, playerID, def.Permission)
	}
	e.decisions.Put(playerID, tagID, decision)
	return decision
}

// Toggle equips, unequips, or purchases the tag depending on current state:
// an equipped tag comes off; anything else goes through the purchase path.
func (e *Engine) Toggle(ctx context.Context, playerID, tagID string) Result {
	unlock := e.locks.acquire(playerID)
	defer unlock()

	result := e.toggleLocked(ctx, playerID, tagID)
	e.metrics.ObserveResult("toggle", result.String())
	return result
}

func (e *Engine) toggleLocked(ctx context.Context, playerID, tagID string) Result {
	def, ok := e.catalogSnapshot().Get(tagID)
	if !ok {
		return ResultNotFound
	}

	ent := e.current(ctx, playerID)
	if ent.IsEquipped(def.ID) {
		next := ent.Clone()
		next.Unequip()
		e.persist(ctx, playerID, next)
		return ResultUnequipped
	}

	return e.purchaseLocked(ctx, playerID, def)
}

// PurchaseAndEquip runs the full grant ladder for the tag: permission gate,
// ownership short-circuit, free unlock, then the paid path.
func (e *Engine) PurchaseAndEquip(ctx context.Context, playerID, tagID string) Result {
	unlock := e.locks.acquire(playerID)
	defer unlock()

	def, ok := e.catalogSnapshot().Get(tagID)
	if !ok {
		e.metrics.ObserveResult("purchase", ResultNotFound.String())
		return ResultNotFound
	}

	result := e.purchaseLocked(ctx, playerID, def)
	e.metrics.ObserveResult("purchase", result.String())
	return result
}

// purchaseLocked implements the grant ladder. Caller holds the player lock.
//
// The permission gate runs before the ownership short-circuit: a tag whose
// node was revoked stays blocked even if a stale grant left it owned.
func (e *Engine) purchaseLocked(ctx context.Context, playerID string, def catalog.Definition) Result {
	if def.Permission != "" && !e.perm.Has(ctx, playerID, def.Permission) {
		return ResultNoPermission
	}

	ent := e.current(ctx, playerID)
	if ent.Owns(def.ID) {
		next := ent.Clone()
		next.Equip(def.ID)
		e.persist(ctx, playerID, next)
		return ResultEquippedAlreadyOwned
	}

	if def.Free() {
		next := ent.Clone()
		next.Equip(def.ID)
		e.persist(ctx, playerID, next)
		e.decisions.Invalidate(playerID)
		e.record(ctx, playerID, def, ResultUnlockedFree)
		return ResultUnlockedFree
	}

	// Paid path. The whole transaction goes through one provider; no
	// re-arbitration between the balance check and the withdrawal.
	provider, ok := e.econ.Active()
	if !ok {
		return ResultNoEconomy
	}
	if provider.Balance(ctx, playerID) < def.Price {
		return ResultNotEnoughMoney
	}
	if !provider.Withdraw(ctx, playerID, def.Price) {
		return ResultTransactionFailed
	}

	// A failed save after a successful withdraw charges the player without
	// a durable grant. There is no compensation; persist logs loudly and
	// the in-memory grant stands until restart.
	next := ent.Clone()
	next.Equip(def.ID)
	e.persist(ctx, playerID, next)
	e.decisions.Invalidate(playerID)
	e.record(ctx, playerID, def, ResultUnlockedPaid)
	return ResultUnlockedPaid
}

// AdminGive force-grants and equips the tag, bypassing the permission gate
// and the economy. Returns false only for an unknown tag id.
func (e *Engine) AdminGive(ctx context.Context, playerID, tagID string) bool {
	unlock := e.locks.acquire(playerID)
	defer unlock()

	def, ok := e.catalogSnapshot().Get(tagID)
	if !ok {
		e.metrics.ObserveResult("admin_give", ResultNotFound.String())
		return false
	}

	next := e.current(ctx, playerID).Clone()
	next.Equip(def.ID)
	e.persist(ctx, playerID, next)
	e.decisions.Invalidate(playerID)
	e.metrics.ObserveResult("admin_give", ResultUnlockedFree.String())
	return true
}

// AdminRemove drops the tag from the player's owned set, clearing the
// equipped slot if it was the removed tag. Returns false for an unknown
// tag id.
func (e *Engine) AdminRemove(ctx context.Context, playerID, tagID string) bool {
	unlock := e.locks.acquire(playerID)
	defer unlock()

	def, ok := e.catalogSnapshot().Get(tagID)
	if !ok {
		return false
	}

	next := e.current(ctx, playerID).Clone()
	next.Remove(def.ID)
	e.persist(ctx, playerID, next)
	e.decisions.Invalidate(playerID)
	return true
}

// AdminReset clears the player's owned set and equipped tag. With
// revokePermissions set, it also asks the permission arbiter to revoke the
// node of every owned tag that has one.
func (e *Engine) AdminReset(ctx context.Context, playerID string, revokePermissions bool) {
	unlock := e.locks.acquire(playerID)
	defer unlock()

	ent := e.current(ctx, playerID)
	if revokePermissions {
		cat := e.catalogSnapshot()
		for _, owned := range ent.Owned {
			def, ok := cat.Get(owned)
			if !ok || def.Permission == "" {
				continue
			}
			if !e.perm.Revoke(ctx, playerID, def.Permission) {
				e.logger.Warn("failed to revoke permission node on reset",
					"player", playerID, "node", def.Permission)
			}
		}
	}

	e.persist(ctx, playerID, entitlement.New())
	e.decisions.Invalidate(playerID)
}

// AdminDelete hard-deletes the player's durable record and evicts all
// cached state. Best-effort: the storage error is returned for the admin
// surface to report, but caches are dropped regardless.
func (e *Engine) AdminDelete(ctx context.Context, playerID string) error {
	unlock := e.locks.acquire(playerID)
	defer unlock()

	err := e.store.Delete(ctx, playerID)
	e.entitlements.Delete(playerID)
	e.decisions.Invalidate(playerID)
	if err != nil {
		errutil.LogError(e.logger, "failed to delete entitlement record", err)
		e.metrics.ObserveStorageFailure("delete")
	}
	return err
}

// HandleDisconnect evicts the player's cached state. The durable record
// survives until an explicit admin delete.
func (e *Engine) HandleDisconnect(playerID string) {
	e.entitlements.Delete(playerID)
	e.decisions.Invalidate(playerID)
}

// current returns the player's entitlement, loading and caching it on
// first access. Store failures already degrade to an empty entitlement
// inside the backend.
func (e *Engine) current(ctx context.Context, playerID string) *entitlement.Entitlement {
	if cached, ok := e.entitlements.Load(playerID); ok {
		return cached.(*entitlement.Entitlement)
	}
	loaded, _ := e.entitlements.LoadOrStore(playerID, e.store.Load(ctx, playerID))
	return loaded.(*entitlement.Entitlement)
}

// persist writes the new entitlement synchronously and swaps the cache
// pointer. A save failure is logged and counted but not surfaced: cosmetic
// state is not worth failing the operation, and the in-memory state keeps
// the session consistent until the next successful save.
func (e *Engine) persist(ctx context.Context, playerID string, next *entitlement.Entitlement) {
	if err := e.store.Save(ctx, playerID, next); err != nil {
		errutil.LogError(e.logger, "failed to persist entitlement", err)
		e.metrics.ObserveStorageFailure("save")
	}
	e.entitlements.Store(playerID, next)
}

// record appends a journal line for a successful unlock. Best-effort.
func (e *Engine) record(ctx context.Context, playerID string, def catalog.Definition, result Result) {
	if e.journal == nil {
		return
	}
	price := 0.0
	if result == ResultUnlockedPaid {
		price = def.Price
	}
	rec := entitlement.NewTransactionRecord(playerID, strings.ToLower(def.ID), price, result.String())
	if err := e.journal.Record(ctx, rec); err != nil {
		errutil.LogWarn(e.logger, "failed to journal purchase", err)
		e.metrics.ObserveJournalFailure()
	}
}
