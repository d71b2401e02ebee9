// Package durfmt is the documented extension point spec.md §9 calls out
// for unit-suffixed ThresholdOverTime durations ("300ms", "5s"). The core
// parser (internal/ruledoc) only accepts the bare-integer-milliseconds
// primary form; callers that want to accept the documentation-example
// unit-suffixed strings can pre-process a rule document's duration field
// through Parse before handing it to the core pipeline.
package durfmt

import (
	"fmt"
	"strconv"
	"strings"
)

// unitMillis maps a recognized suffix to its millisecond multiplier.
var unitMillis = map[string]int64{
	"ms": 1,
	"s":  1000,
	"m":  60000,
}

// Parse accepts either a bare integer ("300", meaning milliseconds) or a
// unit-suffixed string ("300ms", "5s", "1m") and returns the duration in
// milliseconds.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("durfmt: empty duration")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	for _, suffix := range []string{"ms", "s", "m"} {
		if strings.HasSuffix(s, suffix) {
			numeric := strings.TrimSuffix(s, suffix)
			n, err := strconv.ParseInt(numeric, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("durfmt: invalid duration %q: %w", s, err)
			}
			return n * unitMillis[suffix], nil
		}
	}
	return 0, fmt.Errorf("durfmt: unrecognized duration %q (expected a bare integer or one of ms/s/m)", s)
}
