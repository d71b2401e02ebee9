// Package manifest renders the structured build manifest spec.md §4.6
// requires: one entry per rule with its name, source location, layer,
// description, and input/output sensors. It is serialized as YAML with
// gopkg.in/yaml.v3, the same library the rest of the compiler uses to
// read rule documents.
package manifest

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/betracehq/pulsar/internal/ast"
	"github.com/betracehq/pulsar/internal/depgraph"
	"github.com/betracehq/pulsar/internal/expr"
)

// schemaVersion is stamped into every manifest so a future Beacon
// runtime can detect an incompatible generation.
const schemaVersion = "1"

// buildIDNamespace anchors the deterministic build-id derivation below.
// It is an arbitrary fixed UUID, not a secret; its only job is to keep
// Pulsar's build ids from colliding with UUIDv5 ids minted by unrelated
// namespaces.
var buildIDNamespace = uuid.MustParse("8f14e45f-ceea-467e-a7aa-9efa66c7b5b3")

// Entry describes one compiled rule's provenance.
type Entry struct {
	Name          string   `yaml:"name"`
	SourceFile    string   `yaml:"sourceFile"`
	SourceLine    int      `yaml:"sourceLine"`
	Layer         int      `yaml:"layer"`
	Description   string   `yaml:"description,omitempty"`
	InputSensors  []string `yaml:"inputSensors"`
	OutputSensors []string `yaml:"outputSensors"`
}

// Document is the full manifest: a generation timestamp, schema version,
// build id, and every rule's Entry.
type Document struct {
	GeneratedAt   string  `yaml:"generatedAt"`
	SchemaVersion string  `yaml:"schemaVersion"`
	BuildID       string  `yaml:"buildId"`
	Rules         []Entry `yaml:"rules"`
}

// Build assembles a Document from the layered rule set. generatedAt is
// passed in (RFC3339) rather than computed here, since time.Now is an
// ambient side effect the pipeline stage owns, not this renderer.
//
// BuildID is derived with uuid.NewSHA1 over the ordered rule names and
// their layers rather than uuid.NewString's random v4 form: spec.md §8's
// idempotence law requires two compiles of the same input to produce
// byte-identical output except the timestamp, and a random build id
// would violate that on every run.
func Build(result *depgraph.Result, generatedAt string) *Document {
	doc := &Document{
		GeneratedAt:   generatedAt,
		SchemaVersion: schemaVersion,
		BuildID:       deterministicBuildID(result),
	}
	for _, r := range result.Ordered {
		doc.Rules = append(doc.Rules, Entry{
			Name:          r.Name,
			SourceFile:    r.Location.File,
			SourceLine:    r.Location.Line,
			Layer:         result.Layers[r.Name],
			Description:   r.Description,
			InputSensors:  inputSensors(r),
			OutputSensors: outputSensors(r),
		})
	}
	return doc
}

// deterministicBuildID hashes the ordered rule names and layers into a
// UUIDv5 so repeated compiles of the same rule set mint the same id.
func deterministicBuildID(result *depgraph.Result) string {
	var b strings.Builder
	for _, r := range result.Ordered {
		b.WriteString(r.Name)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(result.Layers[r.Name]))
		b.WriteByte('\n')
	}
	return uuid.NewSHA1(buildIDNamespace, []byte(b.String())).String()
}

// Marshal renders the document as YAML bytes, with rules as a mapping
// from rule name to Entry (keys in sorted order).
func (d *Document) Marshal() ([]byte, error) {
	rules := make(map[string]Entry, len(d.Rules))
	for _, e := range d.Rules {
		rules[e.Name] = e
	}
	return yaml.Marshal(struct {
		GeneratedAt   string           `yaml:"generatedAt"`
		SchemaVersion string           `yaml:"schemaVersion"`
		BuildID       string           `yaml:"buildId"`
		Rules         map[string]Entry `yaml:"rules"`
	}{d.GeneratedAt, d.SchemaVersion, d.BuildID, rules})
}

func inputSensors(r *ast.Rule) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	var walk func([]ast.Condition)
	walk = func(conds []ast.Condition) {
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
	walk(r.Conditions.All)
	walk(r.Conditions.Any)
	for _, a := range r.Actions {
		if sv, ok := a.(*ast.SetValue); ok && sv.HasExpression {
			for _, ident := range expr.ExtractSensorIdentifiers(sv.Expression) {
				add(ident)
			}
		}
	}
	return out
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
