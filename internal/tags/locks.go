// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

package tags

import "sync"

// playerLocks hands out one mutex per player id so that all
// entitlement-mutating operations for a player are serialized. Two
// concurrent purchase clicks must not both pass the balance check before
// either withdraws.
//
// Locks are never reclaimed; the map is bounded by the number of distinct
// players seen since startup, which is fine at game-server scale.
type playerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPlayerLocks() *playerLocks {
	return &playerLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the player's mutex and returns the unlock func.
func (l *playerLocks) acquire(playerID string) func() {
	l.mu.Lock()
	m, ok := l.locks[playerID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[playerID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
