package evalsim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBuffer_OverwritesOldestAtCapacity(t *testing.T) {
	b := NewRingBuffer(3)
	base := time.Unix(0, 0)
	b.Record(1, base)
	b.Record(2, base.Add(time.Second))
	b.Record(3, base.Add(2*time.Second))
	b.Record(4, base.Add(3*time.Second)) // overwrites the sample at t=0

	window := b.inWindow(base, base.Add(3*time.Second))
	require.Len(t, window, 3)
	var values []float64
	for _, s := range window {
		values = append(values, s.Value)
	}
	assert.NotContains(t, values, float64(1))
	assert.Contains(t, values, float64(4))
}

func TestRingBuffer_EmptyWindowIsNeverAboveThreshold(t *testing.T) {
	b := NewRingBuffer(5)
	now := time.Unix(100, 0)
	assert.False(t, b.IsAtOrAboveThresholdFor(10, time.Second, now))
}

func TestRingBuffer_StrictDiscreteRequiresEverySampleAboveThreshold(t *testing.T) {
	b := NewRingBuffer(5)
	now := time.Unix(100, 0)
	b.Record(20, now.Add(-3*time.Second))
	b.Record(20, now.Add(-2*time.Second))
	b.Record(5, now.Add(-1*time.Second)) // dips below threshold
	b.Record(20, now)

	assert.False(t, b.IsAtOrAboveThresholdFor(10, 4*time.Second, now))
}

func TestRingBuffer_StrictDiscreteTrueWhenAllSamplesHoldThreshold(t *testing.T) {
	b := NewRingBuffer(5)
	now := time.Unix(100, 0)
	b.Record(15, now.Add(-3*time.Second))
	b.Record(12, now.Add(-2*time.Second))
	b.Record(10, now.Add(-1*time.Second))
	b.Record(20, now)

	assert.True(t, b.IsAtOrAboveThresholdFor(10, 4*time.Second, now))
}

func TestRingBuffer_SamplesOutsideWindowDoNotCount(t *testing.T) {
	b := NewRingBuffer(5)
	now := time.Unix(100, 0)
	b.Record(0, now.Add(-10*time.Second)) // well outside the 2s window, would fail if counted
	b.Record(20, now.Add(-1*time.Second))
	b.Record(20, now)

	assert.True(t, b.IsAtOrAboveThresholdFor(10, 2*time.Second, now))
}

func TestRingBuffer_ExtendedModeHoldsLastKnownSample(t *testing.T) {
	b := NewRingBuffer(5)
	now := time.Unix(100, 0)
	b.Record(20, now.Add(-5*time.Second))

	assert.False(t, b.IsAtOrAboveThresholdFor(10, time.Second, now), "strict-discrete sees no sample in window")
	assert.True(t, b.IsAtOrAboveThresholdForExtended(10, 10*time.Second, now), "extended mode carries the last sample forward within duration")
	assert.False(t, b.IsAtOrAboveThresholdForExtended(10, 2*time.Second, now), "extended mode still expires past duration")
}

func TestBufferSet_RecordsOnlyConfiguredSensors(t *testing.T) {
	bs := NewBufferSet(map[string]int{"temp": 5})
	now := time.Unix(0, 0)
	bs.RecordAll("temp", 50, now)
	bs.RecordAll("humidity", 50, now) // no buffer configured; must be a silent no-op

	assert.True(t, bs.IsAtOrAboveThresholdFor("temp", 10, time.Second, now))
	assert.False(t, bs.IsAtOrAboveThresholdFor("humidity", 10, time.Second, now))
}
