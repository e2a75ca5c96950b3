// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

// Package catalog loads and serves the set of purchasable tag definitions.
//
// The catalog is an immutable snapshot: a reload builds a whole new Catalog
// and the engine swaps it atomically. Malformed entries degrade gracefully
// (skipped or overwritten with a warning) rather than blocking startup.
package catalog

import (
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
)

// Definition describes a single cosmetic tag.
// Immutable once loaded.
type Definition struct {
	// ID is the unique, case-insensitive catalog key.
	ID string `koanf:"id"`

	// Display is the template rendered next to the player's name.
	Display string `koanf:"display"`

	// Description is shown in the catalog browser.
	Description string `koanf:"description"`

	// Price in whatever currency the active economy provider speaks.
	Price float64 `koanf:"price"`

	// Purchasable gates the paid path. Non-purchasable or zero-priced
	// tags unlock for free.
	Purchasable bool `koanf:"purchasable"`

	// Permission is an optional node gating use of this tag.
	// Empty means ungated.
	Permission string `koanf:"permission"`
}

// Free reports whether the tag unlocks without an economy transaction.
func (d Definition) Free() bool {
	return !d.Purchasable || d.Price <= 0
}

// Stats counts degraded entries encountered during a load.
type Stats struct {
	Loaded     int
	Skipped    int // entries with a blank id
	Duplicates int // case-insensitive id collisions (later entry wins)
}

// Catalog is an ordered, case-insensitively keyed set of tag definitions.
// Immutable after Load; safe for concurrent readers.
type Catalog struct {
	defs  []Definition
	index map[string]int // lower-cased id -> position in defs
	stats Stats
}

// Load reads tag definitions from a YAML file.
//
// Entries with a blank id are skipped and counted. Duplicate ids
// (case-insensitive) overwrite the earlier entry in place, keeping the
// original insertion position. Both are logged as warnings, never errors:
// a partially malformed catalog still serves its valid entries.
func Load(path string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, oops.In("catalog").
			Code("CATALOG_READ_FAILED").
			With("path", path).
			Wrap(err)
	}

	var records []Definition
	if err := k.Unmarshal("tags", &records); err != nil {
		return nil, oops.In("catalog").
			Code("CATALOG_PARSE_FAILED").
			With("path", path).
			Wrap(err)
	}

	c := build(records, logger)
	logger.Info("catalog loaded",
		"path", path,
		"tags", c.stats.Loaded,
		"skipped", c.stats.Skipped,
		"duplicates", c.stats.Duplicates,
	)
	return c, nil
}

// New builds a catalog from in-memory definitions, applying the same
// skip/overwrite policy as Load.
func New(records []Definition, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return build(records, logger)
}

func build(records []Definition, logger *slog.Logger) *Catalog {
	c := &Catalog{
		index: make(map[string]int, len(records)),
	}
	for _, rec := range records {
		id := strings.TrimSpace(rec.ID)
		if id == "" {
			c.stats.Skipped++
			logger.Warn("skipping tag with empty id", "display", rec.Display)
			continue
		}
		rec.ID = id
		key := strings.ToLower(id)
		if pos, ok := c.index[key]; ok {
			c.stats.Duplicates++
			logger.Warn("duplicate tag id, overwriting earlier entry", "id", id)
			c.defs[pos] = rec
			continue
		}
		c.index[key] = len(c.defs)
		c.defs = append(c.defs, rec)
	}
	c.stats.Loaded = len(c.defs)
	return c
}

// Get returns the definition for id, matched case-insensitively.
func (c *Catalog) Get(id string) (Definition, bool) {
	pos, ok := c.index[strings.ToLower(id)]
	if !ok {
		return Definition{}, false
	}
	return c.defs[pos], true
}

// All returns the definitions in stable insertion order.
// Callers must not mutate the returned slice.
func (c *Catalog) All() []Definition {
	return c.defs
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// TotalPages returns the page count for the given page size, minimum 1.
func (c *Catalog) TotalPages(size int) int {
	if size <= 0 {
		return 1
	}
	pages := (len(c.defs) + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// Stats returns the degradation counters from the load.
func (c *Catalog) Stats() Stats {
	return c.stats
}

// Page returns a zero-copy view of one page of the catalog plus the index
// actually served. The index is clamped into [0, TotalPages-1], so an
// out-of-range request returns the nearest valid page instead of failing.
func (c *Catalog) Page(index, size int) ([]Definition, int) {
	if size <= 0 {
		return nil, 0
	}
	last := c.TotalPages(size) - 1
	if index < 0 {
		index = 0
	}
	if index > last {
		index = last
	}
	start := index * size
	if start >= len(c.defs) {
		return nil, index
	}
	end := start + size
	if end > len(c.defs) {
		end = len(c.defs)
	}
	return c.defs[start:end], index
}
