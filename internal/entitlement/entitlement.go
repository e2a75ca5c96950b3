// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

// Package entitlement holds the per-player tag ownership model and its
// persistence backends.
package entitlement

import (
	"slices"
	"strings"
)

// CurrentDataVersion is the persisted schema version written by this build.
// Readers ignore unknown fields, so adding fields bumps this only when the
// meaning of existing fields changes.
const CurrentDataVersion = 1

// Entitlement is one player's tag state: the set of owned tag ids plus at
// most one equipped tag.
//
// Invariant: Equipped is either empty or a member of Owned. All ids are
// stored lower-cased; lookups are case-insensitive.
type Entitlement struct {
	DataVersion int      `json:"dataVersion"`
	Owned       []string `json:"owned"`
	Equipped    string   `json:"equipped,omitempty"`
}

// New returns an empty entitlement at the current data version.
func New() *Entitlement {
	return &Entitlement{DataVersion: CurrentDataVersion}
}

// Owns reports whether the player owns the tag, case-insensitively.
func (e *Entitlement) Owns(tagID string) bool {
	return slices.Contains(e.Owned, strings.ToLower(tagID))
}

// Add inserts the tag into the owned set. Adding an already-owned tag is a
// no-op, preserving set semantics.
func (e *Entitlement) Add(tagID string) {
	id := strings.ToLower(tagID)
	if !slices.Contains(e.Owned, id) {
		e.Owned = append(e.Owned, id)
	}
}

// Remove drops the tag from the owned set. If the removed tag was equipped,
// the equipped slot is cleared to keep the equipped-implies-owned invariant.
func (e *Entitlement) Remove(tagID string) {
	id := strings.ToLower(tagID)
	e.Owned = slices.DeleteFunc(e.Owned, func(owned string) bool {
		return owned == id
	})
	if e.Equipped == id {
		e.Equipped = ""
	}
}

// Equip marks the tag as equipped, adding it to the owned set first if
// needed so the invariant holds.
func (e *Entitlement) Equip(tagID string) {
	id := strings.ToLower(tagID)
	e.Add(id)
	e.Equipped = id
}

// Unequip clears the equipped slot without touching ownership.
func (e *Entitlement) Unequip() {
	e.Equipped = ""
}

// IsEquipped reports whether the given tag is the equipped one.
func (e *Entitlement) IsEquipped(tagID string) bool {
	return e.Equipped != "" && e.Equipped == strings.ToLower(tagID)
}

// IsEmpty reports whether the player has no tag state worth keeping.
func (e *Entitlement) IsEmpty() bool {
	return len(e.Owned) == 0 && e.Equipped == ""
}

// Clone returns a deep copy. The engine hands out clones so callers can
// never mutate cached state behind its back.
func (e *Entitlement) Clone() *Entitlement {
	return &Entitlement{
		DataVersion: e.DataVersion,
		Owned:       slices.Clone(e.Owned),
		Equipped:    e.Equipped,
	}
}

// normalize repairs state loaded from storage: lower-cases ids, drops
// duplicates, and clears an equipped tag that is not owned. Old records
// written before versioning get the current version stamped on next save.
func (e *Entitlement) normalize() {
	seen := make(map[string]struct{}, len(e.Owned))
	owned := e.Owned[:0]
	for _, id := range e.Owned {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		owned = append(owned, id)
	}
	e.Owned = owned
	e.Equipped = strings.ToLower(e.Equipped)
	if e.Equipped != "" {
		if _, ok := seen[e.Equipped]; !ok {
			e.Equipped = ""
		}
	}
	if e.DataVersion == 0 {
		e.DataVersion = CurrentDataVersion
	}
}
