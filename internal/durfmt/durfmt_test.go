package durfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_BareIntegerIsMilliseconds(t *testing.T) {
	n, err := Parse("300")
	require.NoError(t, err)
	assert.Equal(t, int64(300), n)
}

func TestParse_UnitSuffixedForms(t *testing.T) {
	cases := map[string]int64{
		"300ms": 300,
		"5s":    5000,
		"2m":    120000,
	}
	for input, want := range cases {
		n, err := Parse(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, n, input)
	}
}

func TestParse_RejectsEmptyAndUnrecognizedInput(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)

	_, err = Parse("five seconds")
	assert.Error(t, err)

	_, err = Parse("300h")
	assert.Error(t, err)
}

func TestParse_TrimsSurroundingWhitespace(t *testing.T) {
	n, err := Parse("  250  ")
	require.NoError(t, err)
	assert.Equal(t, int64(250), n)
}
