package fsm

import (
	"fmt"
	"sync"
)

// CycleState is a state in one evaluator cycle, per spec.md §5's
// suspension-point model: the only places a cycle may suspend are the
// batched read, the batched write, and the inter-cycle sleep, and "two
// cycles must never execute concurrently". Generalized from the
// teacher's trace lifecycle (receiving/complete/evaluating/processed)
// into the evaluator's own fetch/buffer/coordinate/write/sleep states.
type CycleState int

const (
	// CycleIdle: no cycle in flight; waiting for the next cycle boundary.
	CycleIdle CycleState = iota
	// CycleFetching: the batched read against the external store is in flight.
	CycleFetching
	// CycleBuffering: temporal buffers are being updated with fetched values.
	CycleBuffering
	// CycleEvaluating: the coordinator is running groups in layer order.
	CycleEvaluating
	// CycleWriting: the batched write against the external store is in flight.
	CycleWriting
	// CycleSleeping: the cycle has completed and is waiting out the remainder
	// of the cycle period.
	CycleSleeping
	// CycleStopped: a cooperative stop was asserted and the current cycle has
	// completed its writes. Terminal.
	CycleStopped
)

func (s CycleState) String() string {
	switch s {
	case CycleIdle:
		return "idle"
	case CycleFetching:
		return "fetching"
	case CycleBuffering:
		return "buffering"
	case CycleEvaluating:
		return "evaluating"
	case CycleWriting:
		return "writing"
	case CycleSleeping:
		return "sleeping"
	case CycleStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// CycleEvent triggers a CycleFSM transition.
type CycleEvent int

const (
	EventFetchStart CycleEvent = iota
	EventFetchDone
	EventBufferDone
	EventEvaluateDone
	EventWriteStart
	EventWriteDone
	EventSleepDone
	EventStopRequested
)

func (e CycleEvent) String() string {
	switch e {
	case EventFetchStart:
		return "fetch_start"
	case EventFetchDone:
		return "fetch_done"
	case EventBufferDone:
		return "buffer_done"
	case EventEvaluateDone:
		return "evaluate_done"
	case EventWriteStart:
		return "write_start"
	case EventWriteDone:
		return "write_done"
	case EventSleepDone:
		return "sleep_done"
	case EventStopRequested:
		return "stop_requested"
	default:
		return fmt.Sprintf("unknown_event(%d)", e)
	}
}

// InvalidCycleTransitionError indicates an illegal state transition.
type InvalidCycleTransitionError struct {
	From  CycleState
	Event CycleEvent
}

func (e *InvalidCycleTransitionError) Error() string {
	return fmt.Sprintf("cycle: invalid transition from %s via event %s", e.From, e.Event)
}

// CycleFSM enforces the evaluator's cycle-loop state machine so "two
// cycles must never execute concurrently" (spec.md §5) is an invariant
// of the transition table rather than an ad hoc flag. A cooperative stop
// is honored only once the in-flight cycle reaches CycleSleeping — "the
// current cycle completes (including writes) before the loop exits"
// (spec.md §5 "Cancellation").
type CycleFSM struct {
	mu      sync.Mutex
	state   CycleState
	stopped bool
}

// NewCycleFSM builds a CycleFSM starting at CycleIdle.
func NewCycleFSM() *CycleFSM {
	return &CycleFSM{state: CycleIdle}
}

// State returns the current state.
func (f *CycleFSM) State() CycleState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// RequestStop asserts the cooperative stop signal. It does not itself
// transition the FSM; the in-flight cycle observes it at its next
// SleepDone and transitions to CycleStopped instead of back to CycleIdle.
func (f *CycleFSM) RequestStop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

// Transition attempts a state transition via event, returning
// InvalidCycleTransitionError if the current state has no edge for it.
func (f *CycleFSM) Transition(event CycleEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next, ok := f.validTransitions()[f.state][event]
	if !ok {
		return &InvalidCycleTransitionError{From: f.state, Event: event}
	}
	if event == EventSleepDone && f.stopped {
		next = CycleStopped
	}
	f.state = next
	return nil
}

func (f *CycleFSM) validTransitions() map[CycleState]map[CycleEvent]CycleState {
	return map[CycleState]map[CycleEvent]CycleState{
		CycleIdle: {
			EventFetchStart: CycleFetching,
		},
		CycleFetching: {
			EventFetchDone: CycleBuffering,
		},
		CycleBuffering: {
			EventBufferDone: CycleEvaluating,
		},
		CycleEvaluating: {
			EventEvaluateDone: CycleWriting,
		},
		CycleWriting: {
			EventWriteStart: CycleWriting,
			EventWriteDone:  CycleSleeping,
		},
		CycleSleeping: {
			EventSleepDone: CycleIdle, // overridden to CycleStopped above when stopped
		},
		CycleStopped: {},
	}
}
