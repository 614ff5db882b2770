package server

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

type constantRandom int

func (r constantRandom) IntN(n int) int { return int(r) % n }

func TestNameGeneratorIsDeterministicWithSource(t *testing.T) {
	require.Equal(t, "neo-chillpixel1", NewNameGenerator(constantRandom(0))())
	require.Equal(t, "lil-wavyrider4", NewNameGenerator(constantRandom(3))())
}

func TestNameGeneratorShape(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z]+-[a-z]+[1-9][0-9]{0,2}$`)
	generate := NewNameGenerator(nil)
	for i := 0; i < 100; i++ {
		require.Regexp(t, pattern, generate())
	}
}
