package sketch

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
)

func minHashFrom(values []uint64) *MinHash {
	m := NewMinHash()
	for _, v := range values {
		var buf [8]byte
		for j := range buf {
			buf[j] = byte(v >> (8 * j))
		}
		m.Add(xxhash.Sum64(buf[:]))
	}
	return m
}

func TestEstimateJaccardIdenticalSketchesIsOne(t *testing.T) {
	values := make([]uint64, 2000)
	for i := range values {
		values[i] = uint64(i)
	}
	a := minHashFrom(values)
	b := minHashFrom(values)

	assert.InDelta(t, 1.0, EstimateJaccard(a, b), 1e-9)
}

func TestEstimateJaccardDisjointSketchesIsNearZero(t *testing.T) {
	a := make([]uint64, 2000)
	b := make([]uint64, 2000)
	for i := range a {
		a[i] = uint64(i)
		b[i] = uint64(i + 1_000_000)
	}

	got := EstimateJaccard(minHashFrom(a), minHashFrom(b))
	assert.Less(t, got, 0.05)
}

func TestEstimateJaccardPartialOverlap(t *testing.T) {
	a := make([]uint64, 2000)
	for i := range a {
		a[i] = uint64(i)
	}
	b := make([]uint64, 2000)
	for i := range b {
		b[i] = uint64(i + 1000) // half overlap: [1000,2000)
	}

	got := EstimateJaccard(minHashFrom(a), minHashFrom(b))
	// true Jaccard = 1000 / 3000 = 0.333...
	assert.InDelta(t, 1.0/3.0, got, 0.15)
}

func TestEstimateJaccardEmptySketchesIsZero(t *testing.T) {
	assert.Equal(t, 0.0, EstimateJaccard(NewMinHash(), NewMinHash()))
}

func TestIsValidReflectsCapacitySaturation(t *testing.T) {
	m := NewMinHash()
	assert.False(t, m.IsValid())

	values := make([]uint64, 0, MinHashSubSketches*MinHashCapacity*4)
	for i := 0; i < MinHashSubSketches*MinHashCapacity*4; i++ {
		values = append(values, uint64(i))
	}
	m = minHashFrom(values)
	assert.True(t, m.IsValid())
}

func TestFillIncompleteSketchesOnlyExtendsBelowCapacity(t *testing.T) {
	m := NewMinHash()
	m.Add(xxhash.Sum64([]byte("seed")))

	more := make([]uint64, 500)
	for i := range more {
		more[i] = uint64(i + 10000)
	}
	m.FillIncompleteSketches(more)

	for _, b := range m.buckets {
		assert.LessOrEqual(t, len(b), MinHashCapacity)
	}
}
