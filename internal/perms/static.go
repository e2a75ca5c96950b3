// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

package perms

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// StaticProvider answers permission checks from config-defined node
// patterns, for hosts that run without a permission plugin. Patterns use
// glob syntax with '.' as the separator, so "tag.*" covers every tag node.
//
// Thread-safety: defaults are immutable after construction; the per-player
// map is mutable (Grant/Revoke) and protected by mu.
type StaticProvider struct {
	defaults []compiledNode

	mu      sync.RWMutex
	players map[string][]compiledNode
}

// compiledNode pairs a node pattern with its compiled glob.
type compiledNode struct {
	pattern string
	glob    glob.Glob
}

// NewStaticProvider compiles the given defaults (applied to every player)
// and per-player pattern lists. Returns an error for invalid glob syntax.
func NewStaticProvider(defaults []string, players map[string][]string) (*StaticProvider, error) {
	compiledDefaults, err := compileNodes("", defaults)
	if err != nil {
		return nil, err
	}

	compiledPlayers := make(map[string][]compiledNode, len(players))
	for player, patterns := range players {
		compiled, err := compileNodes(player, patterns)
		if err != nil {
			return nil, err
		}
		compiledPlayers[player] = compiled
	}

	return &StaticProvider{
		defaults: compiledDefaults,
		players:  compiledPlayers,
	}, nil
}

func compileNodes(player string, patterns []string) ([]compiledNode, error) {
	compiled := make([]compiledNode, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, oops.In("perms").
				Code("INVALID_NODE_PATTERN").
				With("player", player).
				With("pattern", pattern).
				Wrap(err)
		}
		compiled = append(compiled, compiledNode{pattern: pattern, glob: g})
	}
	return compiled, nil
}

// Name implements Provider.
func (p *StaticProvider) Name() string {
	return "static"
}

// Available implements Provider. A static provider is always available.
func (p *StaticProvider) Available() bool {
	return true
}

// Has implements Provider.
func (p *StaticProvider) Has(_ context.Context, playerID, node string) bool {
	for _, n := range p.defaults {
		if n.glob.Match(node) {
			return true
		}
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, n := range p.players[playerID] {
		if n.glob.Match(node) {
			return true
		}
	}
	return false
}

// Grant implements Provider by adding the node as a literal pattern.
func (p *StaticProvider) Grant(_ context.Context, playerID, node string) bool {
	g, err := glob.Compile(node, '.')
	if err != nil {
		slog.Warn("cannot grant unparseable node", "player", playerID, "node", node, "error", err)
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range p.players[playerID] {
		if n.pattern == node {
			return true
		}
	}
	p.players[playerID] = append(p.players[playerID], compiledNode{pattern: node, glob: g})
	return true
}

// Revoke implements Provider by removing the exact pattern. Nodes covered
// only by a wildcard default cannot be revoked per player.
func (p *StaticProvider) Revoke(_ context.Context, playerID, node string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	nodes := p.players[playerID]
	for i, n := range nodes {
		if n.pattern == node {
			p.players[playerID] = append(nodes[:i], nodes[i+1:]...)
			return true
		}
	}
	return false
}
