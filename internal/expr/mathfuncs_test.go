package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMathFunction_CaseInsensitive(t *testing.T) {
	assert.True(t, IsMathFunction("SQRT"))
	assert.True(t, IsMathFunction("Pow"))
	assert.False(t, IsMathFunction("temp"))
}

func TestCanonicalMathFunction_NormalizesCase(t *testing.T) {
	canon, ok := CanonicalMathFunction("ROUND")
	assert.True(t, ok)
	assert.Equal(t, "round", canon)

	_, ok = CanonicalMathFunction("not_a_function")
	assert.False(t, ok)
}
