// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

package economy

import (
	"context"
	"sync"
)

// MemoryProvider is an in-process economy backed by a balance map. It
// serves hosts that run without a real currency plugin and the test suite.
type MemoryProvider struct {
	name      string
	available bool

	mu       sync.RWMutex
	balances map[string]float64
}

// NewMemoryProvider builds a provider seeded with the given balances.
// A nil map starts everyone at zero.
func NewMemoryProvider(name string, balances map[string]float64) *MemoryProvider {
	if name == "" {
		name = "memory"
	}
	copied := make(map[string]float64, len(balances))
	for player, balance := range balances {
		copied[player] = balance
	}
	return &MemoryProvider{name: name, available: true, balances: copied}
}

// Name implements Provider.
func (p *MemoryProvider) Name() string {
	return p.name
}

// Available implements Provider.
func (p *MemoryProvider) Available() bool {
	return p.available
}

// SetAvailable toggles availability, letting tests model an integration
// that is registered but failed to initialize.
func (p *MemoryProvider) SetAvailable(available bool) {
	p.available = available
}

// Balance implements Provider.
func (p *MemoryProvider) Balance(_ context.Context, playerID string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balances[playerID]
}

// Withdraw implements Provider. Overdrafts are rejected.
func (p *MemoryProvider) Withdraw(_ context.Context, playerID string, amount float64) bool {
	if amount < 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.balances[playerID] < amount {
		return false
	}
	p.balances[playerID] -= amount
	return true
}

// Deposit adds to a player's balance.
func (p *MemoryProvider) Deposit(playerID string, amount float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[playerID] += amount
}
