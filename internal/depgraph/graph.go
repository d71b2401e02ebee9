// Package depgraph computes the rule-to-rule dependency graph and
// assigns each rule its layer, per spec.md §4.4. Rule B depends on rule A
// if B reads a sensor that A writes; layers are assigned by depth-first
// traversal with a "visiting" set to detect cycles, the same general
// shape as the corpus's other DAG-sequencing code
// (julienduchesne-prometheus/rules/manager.go sequences rule groups, here
// generalized to per-rule dependency layering with cycle rejection).
package depgraph

import (
	"log/slog"
	"sort"

	"github.com/betracehq/pulsar/internal/ast"
	"github.com/betracehq/pulsar/internal/compileerr"
	"github.com/betracehq/pulsar/internal/expr"
)

// LayerMap maps a rule name to its non-negative layer. Layer 0 contains
// rules that depend on no other rule.
type LayerMap map[string]int

// Result is the outcome of analyzing a rule set: the layer of each rule
// and the rules themselves in deterministic (layer, then source) order.
type Result struct {
	Layers  LayerMap
	Ordered []*ast.Rule
}

// DefaultMaxDependencyDepth is the default soft limit spec.md §4.4
// describes (10). Exceeding it produces a Warning, not a compile failure.
const DefaultMaxDependencyDepth = 10

// Analyze builds the producer index, computes each rule's read set,
// layers the dependency graph, and detects cycles. maxDepth <= 0 uses
// DefaultMaxDependencyDepth.
func Analyze(rules []*ast.Rule, maxDepth int, logger *slog.Logger) (*Result, *compileerr.List) {
	if logger == nil {
		logger = slog.Default()
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDependencyDepth
	}
	issues := &compileerr.List{}

	byName := make(map[string]*ast.Rule, len(rules))
	for _, r := range rules {
		byName[r.Name] = r
	}

	producers := buildProducerIndex(rules, issues)
	reads := make(map[string][]string, len(rules))
	for _, r := range rules {
		reads[r.Name] = readSet(r)
	}

	layers := make(LayerMap, len(rules))
	state := make(map[string]visitState, len(rules))

	// Sort rules into deterministic (file, line) order before traversal so
	// tie-breaks and cycle-path reporting are reproducible across runs.
	sorted := make([]*ast.Rule, len(rules))
	copy(sorted, rules)
	sortBySource(sorted)

	for _, r := range sorted {
		if _, done := layers[r.Name]; done {
			continue
		}
		var path []string
		if err := assignLayer(r.Name, byName, reads, producers, layers, state, &path, maxDepth, issues, logger); err != nil {
			// A cycle aborts layering at once: the first cycle found is
			// the one reported.
			issues.Add(err)
			break
		}
	}

	ordered := make([]*ast.Rule, len(sorted))
	copy(ordered, sorted)
	sort.SliceStable(ordered, func(i, j int) bool {
		return layers[ordered[i].Name] < layers[ordered[j].Name]
	})

	return &Result{Layers: layers, Ordered: ordered}, issues
}

type visitState int

const (
	unvisited visitState = iota
	visiting
	visited
)

// buildProducerIndex maps an output sensor name to the rule that writes
// it. When two rules write the same sensor, the later-parsed rule wins
// the index entry and a Warning is emitted — the Open Question in
// spec.md §9 is resolved exactly this way: "emit Warning, preserve source
// behavior (later rule wins)".
func buildProducerIndex(rules []*ast.Rule, issues *compileerr.List) map[string]string {
	producers := make(map[string]string)
	for _, r := range rules {
		for _, out := range outputSensors(r) {
			if existing, ok := producers[out]; ok && existing != r.Name {
				issues.Errorf(compileerr.KindWarning, r.Location.File, r.Location.Line, r.Name,
					"sensor %q is written by both %q and %q; %q wins the dependency index", out, existing, r.Name, r.Name)
			}
			producers[out] = r.Name
		}
	}
	return producers
}

func outputSensors(r *ast.Rule) []string {
	var out []string
	for _, a := range r.Actions {
		if sv, ok := a.(*ast.SetValue); ok {
			out = append(out, sv.Key)
		}
	}
	return out
}

// readSet collects every sensor a rule reads, per spec.md §4.4: the
// declared sensor of every Comparison/ThresholdOverTime condition, every
// bare identifier resolved from an Expression condition, and every bare
// identifier resolved from an expression-valued SetValue action.
func readSet(r *ast.Rule) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	var walkConditions func([]ast.Condition)
	walkConditions = func(conds []ast.Condition) {
		for _, c := range conds {
			switch cond := c.(type) {
			case *ast.Comparison:
				add(cond.Sensor)
			case *ast.ThresholdOverTime:
				add(cond.Sensor)
			case *ast.Expression:
				for _, ident := range expr.ExtractSensorIdentifiers(cond.Source) {
					add(ident)
				}
			}
		}
	}
	walkConditions(r.Conditions.All)
	walkConditions(r.Conditions.Any)

	for _, a := range r.Actions {
		if sv, ok := a.(*ast.SetValue); ok && sv.HasExpression {
			for _, ident := range expr.ExtractSensorIdentifiers(sv.Expression) {
				add(ident)
			}
		}
	}
	return out
}

// assignLayer computes rule name's layer via DFS, detecting cycles with a
// visiting set and emitting a soft Warning past maxDepth.
func assignLayer(
	name string,
	byName map[string]*ast.Rule,
	reads map[string][]string,
	producers map[string]string,
	layers LayerMap,
	state map[string]visitState,
	path *[]string,
	maxDepth int,
	issues *compileerr.List,
	logger *slog.Logger,
) *compileerr.Error {
	if st := state[name]; st == visited {
		return nil
	}
	if state[name] == visiting {
		cycleStart := indexOf(*path, name)
		cycle := append(append([]string{}, (*path)[cycleStart:]...), name)
		r := byName[name]
		return &compileerr.Error{
			Kind: compileerr.KindCyclicDependency, File: r.Location.File, Line: r.Location.Line, RuleName: name,
			Message: "dependency cycle: " + compileerr.CyclePath(cycle),
		}
	}

	state[name] = visiting
	*path = append(*path, name)
	defer func() {
		*path = (*path)[:len(*path)-1]
	}()

	rule := byName[name]
	maxDepLayer := -1
	for _, sensor := range reads[name] {
		producer, ok := producers[sensor]
		if !ok {
			continue
		}
		if err := assignLayer(producer, byName, reads, producers, layers, state, path, maxDepth, issues, logger); err != nil {
			return err
		}
		if l := layers[producer]; l > maxDepLayer {
			maxDepLayer = l
		}
	}

	layer := maxDepLayer + 1
	layers[name] = layer
	state[name] = visited

	if layer > maxDepth {
		issues.Errorf(compileerr.KindWarning, rule.Location.File, rule.Location.Line, name,
			"dependency depth %d exceeds the configured soft limit of %d", layer, maxDepth)
	}
	return nil
}

func indexOf(path []string, name string) int {
	for i, p := range path {
		if p == name {
			return i
		}
	}
	return 0
}

// sortBySource orders rules by (file, line) for deterministic same-layer
// tie-breaking, per spec.md §4.4 ("Ordering tie-breaks").
func sortBySource(rules []*ast.Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i].Location, rules[j].Location
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
}
