package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/betracehq/pulsar/internal/compilerconfig"
)

func TestNew_DeduplicatesSensors(t *testing.T) {
	cat := New(&compilerconfig.SystemConfig{ValidSensors: []string{"temp", "humidity", "temp"}})
	assert.Equal(t, []string{"temp", "humidity"}, cat.All())
	assert.True(t, cat.Contains("temp"))
	assert.False(t, cat.Contains("pressure"))
}

func TestBufferCapacity_FallsBackToDefaultWithoutOverride(t *testing.T) {
	cat := New(&compilerconfig.SystemConfig{ValidSensors: []string{"temp"}, BufferCapacity: 50})
	assert.Equal(t, 50, cat.BufferCapacity("temp"))

	cat.WithBufferOverride("temp", 200)
	assert.Equal(t, 200, cat.BufferCapacity("temp"))
}

func TestDefaultBufferCapacity_FloorsOverheadAndRoundsUp(t *testing.T) {
	assert.Equal(t, 12, DefaultBufferCapacity(10, 1, 1.2))
	// overhead below the 1.2 floor is clamped up to it.
	assert.Equal(t, 12, DefaultBufferCapacity(10, 1, 0.5))
	// fractional results round up.
	assert.Equal(t, 13, DefaultBufferCapacity(10, 1, 1.21))
}
