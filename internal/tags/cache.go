// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

package tags

import (
	"strings"
	"sync"
)

// DecisionCache memoizes per-player "can use this tag" answers so that
// rendering a paginated catalog view does not repeat cross-integration
// permission checks for every row.
//
// Entries stay valid until the catalog is reloaded (InvalidateAll) or the
// player's state changes (Invalidate): disconnect, admin mutation, or a
// permission-affecting event reported by the host.
type DecisionCache struct {
	mu      sync.RWMutex
	players map[string]map[string]bool // playerID -> lower tagID -> decision
}

// NewDecisionCache returns an empty cache.
func NewDecisionCache() *DecisionCache {
	return &DecisionCache{players: make(map[string]map[string]bool)}
}

// Get returns the memoized decision and whether one exists.
func (c *DecisionCache) Get(playerID, tagID string) (decision, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	decisions, ok := c.players[playerID]
	if !ok {
		return false, false
	}
	decision, ok = decisions[strings.ToLower(tagID)]
	return decision, ok
}

// Put memoizes a decision.
func (c *DecisionCache) Put(playerID, tagID string, decision bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	decisions, ok := c.players[playerID]
	if !ok {
		decisions = make(map[string]bool)
		c.players[playerID] = decisions
	}
	decisions[strings.ToLower(tagID)] = decision
}

// Invalidate drops every decision for one player.
func (c *DecisionCache) Invalidate(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.players, playerID)
}

// InvalidateAll drops every decision. Called on catalog reload: a simple
// clear, not a transactional snapshot, so a check racing the reload may see
// slightly stale data. Benign for cosmetic content.
func (c *DecisionCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.players = make(map[string]map[string]bool)
}
