// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

// Package perms arbitrates permission-node checks across optional host
// permission integrations.
package perms

import (
	"context"
	"log/slog"
)

// Provider adapts one host permission integration. Adapters fail soft:
// internal failures return false, never a panic or an escaping error.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// Available reports whether the host integration is present and
	// initialized.
	Available() bool

	// Has reports whether the player holds the permission node.
	Has(ctx context.Context, playerID, node string) bool

	// Grant gives the player the node. Returns false if the provider
	// cannot grant (read-only integration or backend failure).
	Grant(ctx context.Context, playerID, node string) bool

	// Revoke removes the node from the player. Returns false on failure.
	Revoke(ctx context.Context, playerID, node string) bool
}

// Arbiter holds providers in priority order; the first available one
// answers every check.
//
// Fail-open: when no provider is available at all, Has returns true
// unconditionally. A server with no permission plugin cannot enforce
// gated tags, and locking every gated tag on such a server is worse than
// permitting them. Deliberate, documented behavior, not a bug.
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
	return &Arbiter{providers: providers, logger: logger.With("component", "perms")}
}

// Active returns the first available provider in priority order.
func (a *Arbiter) Active() (Provider, bool) {
	for _, p := range a.providers {
		if p.Available() {
			return p, true
		}
	}
	return nil, false
}

// Has reports whether the player holds the node. See the fail-open note on
// Arbiter.
func (a *Arbiter) Has(ctx context.Context, playerID, node string) bool {
	p, ok := a.Active()
	if !ok {
		return true
	}
	return p.Has(ctx, playerID, node)
}

// Grant gives the player the node via the active provider. Returns false
// when no provider is available; fail-open does not extend to writes.
func (a *Arbiter) Grant(ctx context.Context, playerID, node string) bool {
	p, ok := a.Active()
	if !ok {
		a.logger.Warn("grant requested with no permission provider",
			"player", playerID, "node", node)
		return false
	}
	return p.Grant(ctx, playerID, node)
}

// Revoke removes the node from the player via the active provider.
func (a *Arbiter) Revoke(ctx context.Context, playerID, node string) bool {
	p, ok := a.Active()
	if !ok {
		return false
	}
	return p.Revoke(ctx, playerID, node)
}

// Providers returns the registered provider names in priority order.
func (a *Arbiter) Providers() []string {
	names := make([]string, 0, len(a.providers))
	for _, p := range a.providers {
		names = append(names, p.Name())
	}
	return names
}
