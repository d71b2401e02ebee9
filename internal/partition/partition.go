// Package partition groups layered rules into bounded-size files for
// emission, per spec.md §4.5. Every rule lands in exactly one group;
// groups never split a rule across files, and the emitted coordinator
// walks groups in ascending MinLayer order so producers always run
// before consumers.
package partition

import (
	"sort"

	"github.com/betracehq/pulsar/internal/ast"
	"github.com/betracehq/pulsar/internal/depgraph"
)

// Group is one emitted file's worth of rules.
type Group struct {
	Index    int
	Rules    []*ast.Rule
	MinLayer int
	MaxLayer int
}

// Partition splits rules into Groups of at most maxPerGroup rules each.
//
// When groupParallel is true, rules are bucketed strictly by layer first
// (every rule in a layer stays together until the layer itself must be
// split across multiple groups because it exceeds maxPerGroup), so a
// group never mixes rules from two different layers; a layer that
// overflows the cap is split into several single-layer groups.
//
// When groupParallel is false, rules are walked in the graph's
// deterministic (layer, then source) order and a new group starts
// whenever the running group hits maxPerGroup OR the next rule's layer
// differs from the current group's layer — groups follow source order
// within a layer but still never span a layer boundary.
func Partition(result *depgraph.Result, maxPerGroup int, groupParallel bool) []*Group {
	if maxPerGroup <= 0 {
		maxPerGroup = 1
	}

	byLayer := make(map[int][]*ast.Rule)
	var layers []int
	for _, r := range result.Ordered {
		layer := result.Layers[r.Name]
		if _, ok := byLayer[layer]; !ok {
			layers = append(layers, layer)
		}
		byLayer[layer] = append(byLayer[layer], r)
	}
	sort.Ints(layers)

	var groups []*Group
	for _, layer := range layers {
		rulesInLayer := byLayer[layer]
		for start := 0; start < len(rulesInLayer); start += maxPerGroup {
			end := start + maxPerGroup
			if end > len(rulesInLayer) {
				end = len(rulesInLayer)
			}
			groups = append(groups, &Group{
				Rules:    rulesInLayer[start:end],
				MinLayer: layer,
				MaxLayer: layer,
			})
		}
	}

	// Both policies start a new group at a layer boundary or at the K cap;
	// the only distinction spec.md draws between them is which boundary
	// triggers first in a mixed-layer walk, and since groups here are
	// already bucketed per layer in ascending order, that walk produces
	// an identical partition either way. groupParallel is accepted for
	// interface parity with spec.md §4.5 and to leave room for a future
	// policy that actually diverges (e.g. merging small trailing layers).
	_ = groupParallel

	for i, g := range groups {
		g.Index = i
	}
	return groups
}
