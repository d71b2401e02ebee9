// Package catalog holds the immutable set of valid sensor names and the
// evaluator sizing parameters (cycle time, buffer capacity) derived from
// a system configuration document. The catalog is built once at compiler
// startup and never mutated afterward (spec.md §3 "Lifecycles").
package catalog

import (
	"math"

	"github.com/betracehq/pulsar/internal/compilerconfig"
)

// Sensor is an opaque name drawn from the catalog.
type Sensor = string

// defaultBufferOverhead is the minimum safety margin spec.md §4.7
// requires for the derived buffer-capacity formula.
const defaultBufferOverhead = 1.2

// Catalog is the immutable set of valid sensor names plus the evaluator
// defaults (cycle time, buffer capacity) loaded from a SystemConfig.
type Catalog struct {
	sensors          map[Sensor]struct{}
	ordered          []Sensor
	cycleTimeMillis  int
	bufferCapacity   int
	bufferOverrides  map[Sensor]int
}

// New builds a Catalog from a loaded SystemConfig. Per-sensor buffer
// overrides are supplied separately since the system config document
// format only defines a single default (spec.md §4.1); callers that want
// per-sensor overrides set them with WithBufferOverride after New.
func New(cfg *compilerconfig.SystemConfig) *Catalog {
	c := &Catalog{
		sensors:         make(map[Sensor]struct{}, len(cfg.ValidSensors)),
		ordered:         make([]Sensor, 0, len(cfg.ValidSensors)),
		cycleTimeMillis: cfg.CycleTimeMillis,
		bufferCapacity:  cfg.BufferCapacity,
		bufferOverrides: make(map[Sensor]int),
	}
	for _, name := range cfg.ValidSensors {
		if _, exists := c.sensors[name]; exists {
			continue
		}
		c.sensors[name] = struct{}{}
		c.ordered = append(c.ordered, name)
	}
	return c
}

// WithBufferOverride sets a per-sensor temporal-buffer capacity
// override, returning the catalog for chaining at construction time.
func (c *Catalog) WithBufferOverride(sensor Sensor, capacity int) *Catalog {
	c.bufferOverrides[sensor] = capacity
	return c
}

// Contains reports whether sensor is a recognized catalog entry.
func (c *Catalog) Contains(sensor Sensor) bool {
	_, ok := c.sensors[sensor]
	return ok
}

// All returns every sensor name in catalog (load) order.
func (c *Catalog) All() []Sensor {
	out := make([]Sensor, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// CycleTimeMillis is the evaluator's default poll interval.
func (c *Catalog) CycleTimeMillis() int {
	return c.cycleTimeMillis
}

// BufferCapacity returns the temporal-buffer sample capacity for sensor:
// its per-sensor override if one was set, otherwise the catalog default.
func (c *Catalog) BufferCapacity(sensor Sensor) int {
	if n, ok := c.bufferOverrides[sensor]; ok {
		return n
	}
	return c.bufferCapacity
}

// DefaultBufferCapacity implements spec.md §4.7's derived-default
// formula: ceil(maxWindowSeconds * samplesPerSecond * overhead), with
// overhead floored at 1.2.
func DefaultBufferCapacity(maxWindowSeconds, samplesPerSecond, overhead float64) int {
	if overhead < defaultBufferOverhead {
		overhead = defaultBufferOverhead
	}
	return int(math.Ceil(maxWindowSeconds * samplesPerSecond * overhead))
}
