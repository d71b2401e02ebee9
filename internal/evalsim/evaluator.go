package evalsim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/betracehq/pulsar/internal/ast"
	"github.com/betracehq/pulsar/internal/partition"
	"github.com/betracehq/pulsar/pkg/fsm"
)

// Store is the external key/value store contract spec.md §4.7 describes:
// a single batched read and a single batched write per cycle. The real
// evaluator's store client (connection pooling, retries, health checks)
// is explicitly out of this compiler's scope (spec.md §1); Store exists
// here only so the cycle loop has something to fetch from and write to
// in tests.
type Store interface {
	FetchAll(ctx context.Context) (map[string]float64, error)
	WriteAll(ctx context.Context, values map[string]float64) error
}

// MemoryStore is an in-memory Store, for driving the simulator in tests
// without a live key/value store.
type MemoryStore struct {
	values map[string]float64
}

// NewMemoryStore builds a MemoryStore seeded with initial sensor values.
func NewMemoryStore(initial map[string]float64) *MemoryStore {
	m := make(map[string]float64, len(initial))
	for k, v := range initial {
		m[k] = v
	}
	return &MemoryStore{values: m}
}

func (s *MemoryStore) FetchAll(_ context.Context) (map[string]float64, error) {
	out := make(map[string]float64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) WriteAll(_ context.Context, values map[string]float64) error {
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

// maxConcurrentBufferUpdates bounds how many sensors' temporal buffers
// are recorded into concurrently within one cycle. Buffer updates are
// independent per sensor (each sensor owns its own RingBuffer) so
// fanning them out is safe; the bound keeps a catalog with thousands of
// sensors from spawning thousands of goroutines per cycle.
const maxConcurrentBufferUpdates = 32

// Evaluator drives the cycle loop spec.md §4.7 specifies against groups
// produced by internal/partition, directly interpreting the ast.Rule
// values rather than executing the Emitter's generated source text.
type Evaluator struct {
	Groups      []*partition.Group
	Buffers     *BufferSet
	Store       Store
	CycleTime   time.Duration
	SendMessage func(channel, message string)
	Logger      *slog.Logger

	fsm *fsm.CycleFSM
}

// NewEvaluator builds an Evaluator. groups must already be in coordinator
// order (ascending MinLayer, tie-broken by index) as internal/emit.Emit
// produces it. A nil sendMessage is a no-op.
func NewEvaluator(groups []*partition.Group, buffers *BufferSet, store Store, cycleTime time.Duration, sendMessage func(string, string), logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	if sendMessage == nil {
		sendMessage = func(string, string) {}
	}
	return &Evaluator{
		Groups: groups, Buffers: buffers, Store: store, CycleTime: cycleTime,
		SendMessage: sendMessage, Logger: logger, fsm: fsm.NewCycleFSM(),
	}
}

// Stop asserts the cooperative stop signal; the in-flight cycle still
// completes its write before RunCycle next reports CycleStopped, per
// spec.md §5 "Cancellation".
func (e *Evaluator) Stop() {
	e.fsm.RequestStop()
}

// State returns the evaluator's current cycle-FSM state.
func (e *Evaluator) State() fsm.CycleState {
	return e.fsm.State()
}

// RunCycle executes exactly one fetch -> buffer-update -> coordinate ->
// write pass (spec.md §4.7 steps 1-4; step 5's sleep is the caller's
// concern, since it is a pure time delay with nothing to assert against).
// It returns the outputs written this cycle and whether the evaluator
// observed a stop request and should not be run again.
func (e *Evaluator) RunCycle(ctx context.Context, now time.Time) (outputs map[string]float64, stopped bool, err error) {
	if err := e.fsm.Transition(fsm.EventFetchStart); err != nil {
		return nil, false, err
	}
	inputs, err := e.Store.FetchAll(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("evalsim: fetch failed: %w", err)
	}
	if err := e.fsm.Transition(fsm.EventFetchDone); err != nil {
		return nil, false, err
	}

	if err := e.updateBuffers(ctx, inputs, now); err != nil {
		return nil, false, err
	}
	if err := e.fsm.Transition(fsm.EventBufferDone); err != nil {
		return nil, false, err
	}

	outputs = make(map[string]float64)
	for _, g := range e.Groups {
		if err := e.evaluateGroup(g, inputs, outputs, now); err != nil {
			return nil, false, fmt.Errorf("evalsim: group %d evaluation failed: %w", g.Index, err)
		}
	}
	if err := e.fsm.Transition(fsm.EventEvaluateDone); err != nil {
		return nil, false, err
	}

	if err := e.fsm.Transition(fsm.EventWriteStart); err != nil {
		return nil, false, err
	}
	if err := e.Store.WriteAll(ctx, outputs); err != nil {
		return nil, false, fmt.Errorf("evalsim: write failed: %w", err)
	}
	if err := e.fsm.Transition(fsm.EventWriteDone); err != nil {
		return nil, false, err
	}

	if err := e.fsm.Transition(fsm.EventSleepDone); err != nil {
		return nil, false, err
	}
	return outputs, e.fsm.State() == fsm.CycleStopped, nil
}

// updateBuffers records every fetched sensor value into its temporal
// buffer, fanning the per-sensor record calls out across a bounded
// worker pool with golang.org/x/sync (errgroup for the fan-out,
// semaphore.Weighted for the bound) the same way the teacher's
// internal/rules evaluation path uses errgroup to parallelize
// independent per-trace work. Each sensor owns its own RingBuffer, so
// concurrent Record calls never race with each other.
func (e *Evaluator) updateBuffers(ctx context.Context, inputs map[string]float64, now time.Time) error {
	sem := semaphore.NewWeighted(maxConcurrentBufferUpdates)
	g, gctx := errgroup.WithContext(ctx)
	for sensor, value := range inputs {
		sensor, value := sensor, value
		if err := sem.Acquire(gctx, 1); err != nil {
			return err
		}
		g.Go(func() error {
			defer sem.Release(1)
			e.Buffers.RecordAll(sensor, value, now)
			return nil
		})
	}
	return g.Wait()
}

func (e *Evaluator) evaluateGroup(g *partition.Group, inputs, outputs map[string]float64, now time.Time) error {
	merged := mergeInputs(inputs, outputs)
	for _, rule := range g.Rules {
		satisfied, err := e.evaluateConditionGroup(rule.Conditions, merged, now)
		if err != nil {
			return fmt.Errorf("rule %q: %w", rule.Name, err)
		}
		if !satisfied {
			continue
		}
		for _, action := range rule.Actions {
			if err := e.executeAction(action, merged, outputs); err != nil {
				return fmt.Errorf("rule %q: %w", rule.Name, err)
			}
		}
	}
	return nil
}

// mergeInputs layers outputs already written by earlier groups/layers
// over the cycle's fetched inputs, per spec.md §4.7 step 3: "rules in
// layer n observe outputs set by earlier layers".
func mergeInputs(inputs, outputs map[string]float64) map[string]float64 {
	merged := make(map[string]float64, len(inputs)+len(outputs))
	for k, v := range inputs {
		merged[k] = v
	}
	for k, v := range outputs {
		merged[k] = v
	}
	return merged
}

func (e *Evaluator) evaluateConditionGroup(g ast.ConditionGroup, vars map[string]float64, now time.Time) (bool, error) {
	for _, c := range g.All {
		ok, err := e.evaluateCondition(c, vars, now)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	if len(g.Any) == 0 {
		return true, nil
	}
	for _, c := range g.Any {
		ok, err := e.evaluateCondition(c, vars, now)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (e *Evaluator) evaluateCondition(c ast.Condition, vars map[string]float64, now time.Time) (bool, error) {
	switch cond := c.(type) {
	case *ast.Comparison:
		v, ok := vars[cond.Sensor]
		if !ok {
			return false, fmt.Errorf("sensor %q not present in cycle inputs", cond.Sensor)
		}
		return compare(v, cond.Op, cond.Literal), nil
	case *ast.ThresholdOverTime:
		return e.Buffers.IsAtOrAboveThresholdFor(cond.Sensor, cond.Threshold, time.Duration(cond.DurationMillis)*time.Millisecond, now), nil
	case *ast.Expression:
		v, err := evalExpression(cond.Source, vars)
		if err != nil {
			return false, err
		}
		return v != 0, nil
	default:
		return false, fmt.Errorf("unrecognized condition variant %T", c)
	}
}

func compare(v float64, op ast.CompareOp, literal float64) bool {
	switch op {
	case ast.OpLT:
		return v < literal
	case ast.OpLTE:
		return v <= literal
	case ast.OpGT:
		return v > literal
	case ast.OpGTE:
		return v >= literal
	case ast.OpEQ:
		return v == literal
	case ast.OpNEQ:
		return v != literal
	default:
		return false
	}
}

func (e *Evaluator) executeAction(a ast.Action, vars, outputs map[string]float64) error {
	switch action := a.(type) {
	case *ast.SetValue:
		if action.HasExpression {
			v, err := evalExpression(action.Expression, vars)
			if err != nil {
				return err
			}
			outputs[action.Key] = v
			vars[action.Key] = v
			return nil
		}
		outputs[action.Key] = action.Literal
		vars[action.Key] = action.Literal
		return nil
	case *ast.SendMessage:
		e.SendMessage(action.Channel, action.Message)
		return nil
	default:
		return fmt.Errorf("unrecognized action variant %T", a)
	}
}
