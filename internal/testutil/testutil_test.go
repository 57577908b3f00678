package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashStreamDeterministic(t *testing.T) {
	a := HashStream("seed", 10)
	b := HashStream("seed", 10)
	assert.Equal(t, a, b)

	c := HashStream("other-seed", 10)
	assert.NotEqual(t, a, c)
}

func TestHashRangeDeterministicAndDistinct(t *testing.T) {
	a := HashRange(0, 20)
	b := HashRange(0, 20)
	assert.Equal(t, a, b)

	seen := make(map[uint64]bool, len(a))
	for _, h := range a {
		assert.False(t, seen[h], "hash collision within HashRange output")
		seen[h] = true
	}
}
