// Package pipeline sequences the compiler's pure stages — Parser,
// Validator, Dependency Analyzer, Partitioner, Emitter — into the three
// operations a caller actually invokes: Compile, Validate, Emit. It owns
// no state of its own beyond what is threaded through each call, per
// spec.md §5's "single-threaded and offline" compiler model, and wires
// the logger, a tracer, and metrics into every stage the way the
// teacher's API handlers wire a tracer into each request
// (internal/api/rules.go's "if h.tracer != nil").
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/betracehq/pulsar/internal/ast"
	"github.com/betracehq/pulsar/internal/catalog"
	"github.com/betracehq/pulsar/internal/compileerr"
	"github.com/betracehq/pulsar/internal/compilerconfig"
	"github.com/betracehq/pulsar/internal/depgraph"
	"github.com/betracehq/pulsar/internal/emit"
	"github.com/betracehq/pulsar/internal/manifest"
	"github.com/betracehq/pulsar/internal/partition"
	"github.com/betracehq/pulsar/internal/ruledoc"
	"github.com/betracehq/pulsar/internal/validate"
	"github.com/betracehq/pulsar/pkg/fsm"
)

// Result is everything a completed Compile produces.
type Result struct {
	Rules  []*ast.Rule
	Graph  *depgraph.Result
	Groups []*partition.Group
	Issues *compileerr.List
	Stage  fsm.StageState
}

// Pipeline holds the dependencies every stage shares: a logger, a
// tracer, and the parsed options. A nil Tracer or Logger is valid; every
// stage guards its use the same way the teacher guards h.tracer.
type Pipeline struct {
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Catalog *catalog.Catalog
	Options *compilerconfig.Options
}

// New builds a Pipeline. A nil logger defaults to slog.Default(); a nil
// tracer disables span creation.
func New(cat *catalog.Catalog, opts *compilerconfig.Options, logger *slog.Logger, tracer trace.Tracer) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Logger: logger, Tracer: tracer, Catalog: cat, Options: opts}
}

func (p *Pipeline) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if p.Tracer == nil {
		return ctx, nil
	}
	return p.Tracer.Start(ctx, name)
}

func endSpan(span trace.Span) {
	if span != nil {
		span.End()
	}
}

// LoadDocuments reads every *.yaml/*.yml file directly under rulesPath
// (non-recursively — rule documents are a flat directory of files, per
// spec.md §6) into ruledoc.Document values, sorted by file name so
// parsing order is deterministic across runs.
func LoadDocuments(rulesPath string) ([]ruledoc.Document, *compileerr.List) {
	issues := &compileerr.List{}
	entries, err := os.ReadDir(rulesPath)
	if err != nil {
		issues.Errorf(compileerr.KindIO, rulesPath, 0, "", "failed to read rules directory: %v", err)
		return nil, issues
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}

	var docs []ruledoc.Document
	for _, name := range names {
		path := filepath.Join(rulesPath, name)
		content, err := os.ReadFile(path)
		if err != nil {
			issues.Errorf(compileerr.KindIO, path, 0, "", "failed to read rule document: %v", err)
			continue
		}
		docs = append(docs, ruledoc.Document{File: path, Content: content})
	}
	return docs, issues
}

// Compile runs Parser → Validator → Dependency Analyzer → Partitioner
// and returns every accumulated issue. It never writes to disk.
func (p *Pipeline) Compile(ctx context.Context, rulesPath string) (*Result, error) {
	ctx, span := p.startSpan(ctx, "pulsar.compile")
	defer endSpan(span)

	issues := &compileerr.List{}
	stage := fsm.NewStageFSM()
	mustTransition(stage, fsm.EventStageStart, p.Logger)

	docs, loadIssues := LoadDocuments(rulesPath)
	issues.Merge(loadIssues)
	if issues.HasFatal() {
		mustTransition(stage, fsm.EventStageFail, p.Logger)
		compileTotal.WithLabelValues("failure").Inc()
		return &Result{Issues: issues, Stage: stage.State()}, nil
	}

	rules, parseIssues := p.stageParse(ctx, docs)
	issues.Merge(parseIssues)
	if issues.HasFatal() {
		mustTransition(stage, fsm.EventStageFail, p.Logger)
		compileTotal.WithLabelValues("failure").Inc()
		return &Result{Rules: rules, Issues: issues, Stage: stage.State()}, nil
	}
	rulesCompiled.Set(float64(len(rules)))
	mustTransition(stage, fsm.EventStageAdvance, p.Logger)

	validateIssues := p.stageValidate(ctx, rules)
	issues.Merge(validateIssues)
	if issues.HasFatal() {
		mustTransition(stage, fsm.EventStageFail, p.Logger)
		compileTotal.WithLabelValues("failure").Inc()
		return &Result{Rules: rules, Issues: issues, Stage: stage.State()}, nil
	}
	mustTransition(stage, fsm.EventStageAdvance, p.Logger)

	graph, graphIssues := p.stageAnalyze(ctx, rules)
	issues.Merge(graphIssues)
	if issues.HasFatal() {
		mustTransition(stage, fsm.EventStageFail, p.Logger)
		compileTotal.WithLabelValues("failure").Inc()
		return &Result{Rules: rules, Issues: issues, Stage: stage.State()}, nil
	}
	mustTransition(stage, fsm.EventStageAdvance, p.Logger)

	groups := p.stagePartition(ctx, graph)
	mustTransition(stage, fsm.EventStageAdvance, p.Logger)

	for _, w := range issues.Warnings() {
		warningsTotal.WithLabelValues(stageOfMessage(w)).Inc()
	}
	compileTotal.WithLabelValues("success").Inc()

	return &Result{Rules: rules, Graph: graph, Groups: groups, Issues: issues, Stage: stage.State()}, nil
}

// mustTransition drives the pipeline's StageFSM and logs (rather than
// fails the compile on) any transition the table doesn't expect — an
// invalid transition here is a pipeline bug, not a user-facing compile
// error, so it is surfaced as a warning-level log rather than added to
// the issue list.
func mustTransition(stage *fsm.StageFSM, event fsm.StageEvent, logger *slog.Logger) {
	if err := stage.Transition(event); err != nil {
		logger.Warn("pipeline stage transition rejected", "error", err)
	}
}

// Validate runs only Parser → Validator, the subset of Compile that
// checks a rule set without committing to a dependency layering or
// emission. Used by `pulsarc validate`.
func (p *Pipeline) Validate(ctx context.Context, rulesPath string) (*compileerr.List, error) {
	ctx, span := p.startSpan(ctx, "pulsar.validate")
	defer endSpan(span)

	issues := &compileerr.List{}
	docs, loadIssues := LoadDocuments(rulesPath)
	issues.Merge(loadIssues)
	if issues.HasFatal() {
		return issues, nil
	}

	rules, parseIssues := p.stageParse(ctx, docs)
	issues.Merge(parseIssues)
	if issues.HasFatal() {
		return issues, nil
	}

	issues.Merge(p.stageValidate(ctx, rules))
	return issues, nil
}

// Emit runs the Emitter against an already-compiled Result, writing the
// group files, coordinator, and manifest to outputDir through fs.
func (p *Pipeline) Emit(ctx context.Context, result *Result, outputDir string, fs emit.FileSystem, generatedAt time.Time) *compileerr.List {
	ctx, span := p.startSpan(ctx, "pulsar.emit")
	defer endSpan(span)
	_ = ctx

	doc := manifest.Build(result.Graph, generatedAt.UTC().Format(time.RFC3339))
	groupsEmitted.Set(float64(len(result.Groups)))

	return emit.Emit(result.Groups, doc, outputDir, fs, p.Logger)
}

func (p *Pipeline) stageParse(ctx context.Context, docs []ruledoc.Document) ([]*ast.Rule, *compileerr.List) {
	_, span := p.startSpan(ctx, "pulsar.compile.parse")
	defer endSpan(span)
	start := time.Now()
	rules, issues := ruledoc.Parse(docs, p.Logger)
	compileDuration.WithLabelValues("parse").Observe(time.Since(start).Seconds())
	return rules, issues
}

func (p *Pipeline) stageValidate(ctx context.Context, rules []*ast.Rule) *compileerr.List {
	_, span := p.startSpan(ctx, "pulsar.compile.validate")
	defer endSpan(span)
	start := time.Now()
	level := compilerconfig.ValidationNormal
	if p.Options != nil {
		level = p.Options.ValidationLevel
	}
	issues := validate.Validate(rules, p.Catalog, level, p.Logger)
	compileDuration.WithLabelValues("validate").Observe(time.Since(start).Seconds())
	return issues
}

func (p *Pipeline) stageAnalyze(ctx context.Context, rules []*ast.Rule) (*depgraph.Result, *compileerr.List) {
	_, span := p.startSpan(ctx, "pulsar.compile.analyze")
	defer endSpan(span)
	start := time.Now()
	maxDepth := depgraph.DefaultMaxDependencyDepth
	if p.Options != nil && p.Options.MaxDependencyDepth > 0 {
		maxDepth = p.Options.MaxDependencyDepth
	}
	result, issues := depgraph.Analyze(rules, maxDepth, p.Logger)
	compileDuration.WithLabelValues("analyze").Observe(time.Since(start).Seconds())
	return result, issues
}

func (p *Pipeline) stagePartition(ctx context.Context, graph *depgraph.Result) []*partition.Group {
	_, span := p.startSpan(ctx, "pulsar.compile.partition")
	defer endSpan(span)
	start := time.Now()
	maxPerGroup := 100
	groupParallel := true
	if p.Options != nil {
		if p.Options.MaxRulesPerFile > 0 {
			maxPerGroup = p.Options.MaxRulesPerFile
		}
		groupParallel = p.Options.GroupParallelRules
	}
	groups := partition.Partition(graph, maxPerGroup, groupParallel)
	compileDuration.WithLabelValues("partition").Observe(time.Since(start).Seconds())
	return groups
}

func stageOfMessage(e *compileerr.Error) string {
	return e.Kind.String()
}
