package bitvec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetGetClear(t *testing.T) {
	v := New(64)
	assert.False(t, v.Get(10))
	v.Set(10)
	assert.True(t, v.Get(10))
	v.Clear(10)
	assert.False(t, v.Get(10))
}

func TestSetAllAndAnd(t *testing.T) {
	a := New(64)
	a.SetAll()
	b := New(64)
	b.Set(5)
	b.Set(40)

	a.And(b)
	assert.True(t, a.Get(5))
	assert.True(t, a.Get(40))
	assert.False(t, a.Get(0))
	assert.Equal(t, 2, a.PopCount())
}

func TestForEachSetAscendingOrder(t *testing.T) {
	v := New(128)
	v.Set(3)
	v.Set(65)
	v.Set(1)

	var got []uint64
	v.ForEachSet(func(bin uint64) { got = append(got, bin) })
	assert.Equal(t, []uint64{1, 3, 65}, got)
}

// Boundary case: B=64 needs no padding; growth to 128 zero-fills the
// new bins and preserves every bit below the old B.
func TestGrowPreservesPriorBitsAndZeroFillsNew(t *testing.T) {
	v := New(64)
	v.Set(0)
	v.Set(63)

	grown := v.Grow(128)
	assert.Equal(t, uint64(128), grown.BinCount())
	assert.True(t, grown.Get(0))
	assert.True(t, grown.Get(63))
	for b := uint64(64); b < 128; b++ {
		assert.False(t, grown.Get(b), "bin %d should be zero-filled after growth", b)
	}
	// Grow must not mutate the original.
	assert.True(t, v.Get(0))
}

func TestCloneIsIndependent(t *testing.T) {
	v := New(64)
	v.Set(1)
	cp := v.Clone()
	cp.Set(2)
	assert.False(t, v.Get(2))
	assert.True(t, cp.Get(1))
}

func TestAndIntoComputesIntersection(t *testing.T) {
	a := New(64)
	a.Set(1)
	a.Set(2)
	b := New(64)
	b.Set(2)
	b.Set(3)
	dst := New(64)

	AndInto(dst, a, b)
	assert.False(t, dst.Get(1))
	assert.True(t, dst.Get(2))
	assert.False(t, dst.Get(3))
}

func TestWordsAndNextMultipleOf64(t *testing.T) {
	assert.Equal(t, uint64(1), Words(1))
	assert.Equal(t, uint64(1), Words(64))
	assert.Equal(t, uint64(2), Words(65))
	assert.Equal(t, uint64(64), NextMultipleOf64(1))
	assert.Equal(t, uint64(64), NextMultipleOf64(64))
	assert.Equal(t, uint64(128), NextMultipleOf64(65))
}

func TestFromWordsWrapsExistingSlice(t *testing.T) {
	words := []uint64{0b101}
	v := FromWords(words, 64)
	assert.True(t, v.Get(0))
	assert.False(t, v.Get(1))
	assert.True(t, v.Get(2))
}
