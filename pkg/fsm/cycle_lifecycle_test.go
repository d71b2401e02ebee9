package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func driveOneCycle(t *testing.T, f *CycleFSM) {
	t.Helper()
	require.NoError(t, f.Transition(EventFetchStart))
	require.NoError(t, f.Transition(EventFetchDone))
	require.NoError(t, f.Transition(EventBufferDone))
	require.NoError(t, f.Transition(EventEvaluateDone))
	require.NoError(t, f.Transition(EventWriteStart))
	require.NoError(t, f.Transition(EventWriteDone))
}

func TestCycleFSM_HappyPathReturnsToIdleWithoutStop(t *testing.T) {
	f := NewCycleFSM()
	driveOneCycle(t, f)
	assert.Equal(t, CycleSleeping, f.State())
	require.NoError(t, f.Transition(EventSleepDone))
	assert.Equal(t, CycleIdle, f.State())
}

func TestCycleFSM_StopRequestedDuringCycleStillCompletesThatCycle(t *testing.T) {
	f := NewCycleFSM()
	require.NoError(t, f.Transition(EventFetchStart))
	f.RequestStop()
	require.NoError(t, f.Transition(EventFetchDone))
	require.NoError(t, f.Transition(EventBufferDone))
	require.NoError(t, f.Transition(EventEvaluateDone))
	require.NoError(t, f.Transition(EventWriteStart))
	require.NoError(t, f.Transition(EventWriteDone))
	assert.Equal(t, CycleSleeping, f.State(), "in-flight cycle must still reach its write")

	require.NoError(t, f.Transition(EventSleepDone))
	assert.Equal(t, CycleStopped, f.State())
}

func TestCycleFSM_StoppedStateIsTerminal(t *testing.T) {
	f := NewCycleFSM()
	f.RequestStop()
	driveOneCycle(t, f)
	require.NoError(t, f.Transition(EventSleepDone))
	require.Equal(t, CycleStopped, f.State())

	err := f.Transition(EventFetchStart)
	require.Error(t, err)
	var invalid *InvalidCycleTransitionError
	assert.ErrorAs(t, err, &invalid)
}

func TestCycleFSM_InvalidTransitionIsRejected(t *testing.T) {
	f := NewCycleFSM()
	err := f.Transition(EventFetchDone) // Idle has no FetchDone edge
	require.Error(t, err)
	assert.Equal(t, CycleIdle, f.State())
}
