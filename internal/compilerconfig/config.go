// Package compilerconfig loads the two configuration documents Pulsar
// consumes: the system configuration (catalog bootstrap: valid sensors,
// cycle time, buffer capacity) and the compiler's own operational
// options (maxRulesPerFile, groupParallelRules, complexityThreshold,
// validationLevel). Both are loaded through spf13/viper, following the
// teacher's internal/config/config.go: defaults are set explicitly so
// the zero value of every field has a known, documented meaning, and
// environment variables (PULSAR_ prefix) override file values.
package compilerconfig

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ValidationLevel selects how strictly the Validator enforces
// description/action-count constraints. It does not change the core
// contract, only whether an issue is reported as an error or a warning.
type ValidationLevel string

const (
	ValidationStrict  ValidationLevel = "strict"
	ValidationNormal  ValidationLevel = "normal"
	ValidationRelaxed ValidationLevel = "relaxed"
)

// SystemConfig is the document described in spec.md §4.1: the sensor
// catalog plus the evaluator's default cycle period and buffer sizing.
type SystemConfig struct {
	Version         int      `mapstructure:"version"`
	ValidSensors    []string `mapstructure:"validSensors"`
	CycleTimeMillis int      `mapstructure:"cycleTime"`
	BufferCapacity  int      `mapstructure:"bufferCapacity"`
}

// Options are the compiler's operational knobs, named directly after
// spec.md §6's "options" carried by compile/validate/emit.
type Options struct {
	MaxRulesPerFile     int             `mapstructure:"maxRulesPerFile"`
	GroupParallelRules  bool            `mapstructure:"groupParallelRules"`
	ComplexityThreshold int             `mapstructure:"complexityThreshold"`
	ValidationLevel     ValidationLevel `mapstructure:"validationLevel"`
	MaxDependencyDepth  int             `mapstructure:"maxDependencyDepth"`
}

// LoadSystemConfig reads the system configuration document from
// configPath (viper auto-detects format by extension: yaml, json, toml).
// An empty configPath is only valid when requireSensors is false; spec.md
// §4.1 requires validSensors in the mode that needs a catalog.
func LoadSystemConfig(configPath string, requireSensors bool) (*SystemConfig, error) {
	v := viper.New()
	setSystemDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read system configuration: %w", err)
		}
	}

	v.SetEnvPrefix("PULSAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg SystemConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal system configuration: %w", err)
	}

	if requireSensors && len(cfg.ValidSensors) == 0 {
		return nil, fmt.Errorf("config: validSensors is required to compile")
	}

	cfg.ValidSensors = dedupe(cfg.ValidSensors)
	return &cfg, nil
}

func setSystemDefaults(v *viper.Viper) {
	v.SetDefault("version", 1)
	v.SetDefault("cycleTime", 100)
	v.SetDefault("bufferCapacity", 0) // 0 is kept as is; nothing derives a value from catalog.DefaultBufferCapacity
}

// LoadOptions reads compiler options, applying spec.md §6's defaults.
func LoadOptions(configPath string) (*Options, error) {
	v := viper.New()
	setOptionDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read compiler options: %w", err)
		}
	}

	v.SetEnvPrefix("PULSAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal compiler options: %w", err)
	}
	return &opts, nil
}

func setOptionDefaults(v *viper.Viper) {
	v.SetDefault("maxRulesPerFile", 100)
	v.SetDefault("groupParallelRules", true)
	v.SetDefault("complexityThreshold", 100)
	v.SetDefault("validationLevel", string(ValidationNormal))
	v.SetDefault("maxDependencyDepth", 10)
}

// dedupe removes repeated sensor names while preserving first-seen order,
// per spec.md §4.1's "duplicates are deduplicated silently".
func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
