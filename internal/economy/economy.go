// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

// Package economy arbitrates across optional currency integrations.
//
// Hosts register zero or more providers at startup, in priority order. The
// arbiter picks the first one reporting itself available and routes a whole
// transaction through it; availability is not re-checked mid-transaction,
// so a purchase never splits across two providers.
package economy

import (
	"context"
	"log/slog"
)

// Provider adapts one host economy integration.
//
// Adapters must fail soft: an internal failure returns 0 or false, never a
// panic or an error escaping the adapter. Amounts are plain currency values;
// formatting and rounding are the caller's problem.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// Available reports whether the host integration is present and
	// initialized. Checked once per transaction.
	Available() bool

	// Balance returns the player's current balance, or 0 on failure.
	Balance(ctx context.Context, playerID string) float64

	// Withdraw removes amount from the player's balance. Returns false if
	// the withdrawal was rejected or the backend failed.
	Withdraw(ctx context.Context, playerID string, amount float64) bool
}

// Arbiter holds providers in priority order. Registration happens at
// startup; the provider list is immutable afterwards, so reads need no
// synchronization.
type Arbiter struct {
	providers []Provider
	logger    *slog.Logger
}

// NewArbiter builds an arbiter over the given providers, highest priority
// first.
func NewArbiter(logger *slog.Logger, providers ...Provider) *Arbiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Arbiter{providers: providers, logger: logger.With("component", "economy")}
}

// Active returns the first available provider in priority order. Callers
// performing a multi-step transaction should hold on to the returned
// provider for every step.
func (a *Arbiter) Active() (Provider, bool) {
	for _, p := range a.providers {
		if p.Available() {
			return p, true
		}
	}
	return nil, false
}

// IsAnyAvailable reports whether any provider can serve transactions.
func (a *Arbiter) IsAnyAvailable() bool {
	_, ok := a.Active()
	return ok
}

// Balance returns the player's balance from the active provider, or 0 when
// no provider is available.
func (a *Arbiter) Balance(ctx context.Context, playerID string) float64 {
	p, ok := a.Active()
	if !ok {
		return 0
	}
	return p.Balance(ctx, playerID)
}

// Has reports whether the player's balance covers amount.
func (a *Arbiter) Has(ctx context.Context, playerID string, amount float64) bool {
	p, ok := a.Active()
	if !ok {
		return false
	}
	return p.Balance(ctx, playerID) >= amount
}

// Withdraw removes amount from the player's balance via the active
// provider. Returns false when no provider is available or the provider
// rejected the withdrawal.
func (a *Arbiter) Withdraw(ctx context.Context, playerID string, amount float64) bool {
	p, ok := a.Active()
	if !ok {
		return false
	}
	if !p.Withdraw(ctx, playerID, amount) {
		a.logger.Warn("withdraw rejected",
			"provider", p.Name(), "player", playerID, "amount", amount)
		return false
	}
	return true
}

// Providers returns the registered provider names in priority order, for
// status output.
func (a *Arbiter) Providers() []string {
	names := make([]string, 0, len(a.providers))
	for _, p := range a.providers {
		names = append(names, p.Name())
	}
	return names
}
