package sketch

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
)

func mkHash(seed int, n int) uint64 {
	var buf [8]byte
	for j := range buf {
		buf[j] = byte((seed + n) >> (8 * j))
	}
	return xxhash.Sum64(buf[:])
}

func minHashForGroup(group, n int) *MinHash {
	m := NewMinHash()
	for i := 0; i < n; i++ {
		m.Add(mkHash(group*1_000_000, i))
	}
	return m
}

func TestRearrangeGroupsSimilarSketchesAdjacently(t *testing.T) {
	// Two pairs of near-identical content, interleaved by index, all the
	// same size so similarity alone must drive the order.
	sizes := []uint64{100, 100, 100, 100}
	minhashes := []*MinHash{
		minHashForGroup(0, 5000),
		minHashForGroup(1, 5000),
		minHashForGroup(0, 5000),
		minHashForGroup(1, 5000),
	}

	order := Rearrange(minhashes, sizes, 0.0)
	assert.Len(t, order, 4)

	pos := make(map[int]int, 4)
	for i, idx := range order {
		pos[idx] = i
	}
	assert.Equal(t, 1, abs(pos[0]-pos[2]), "the two group-0 sketches should end up adjacent")
	assert.Equal(t, 1, abs(pos[1]-pos[3]), "the two group-1 sketches should end up adjacent")
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func TestRearrangeIsPermutationOfAllIndices(t *testing.T) {
	sizes := []uint64{40, 10, 30, 20, 50}
	minhashes := make([]*MinHash, len(sizes))
	for i := range minhashes {
		minhashes[i] = minHashForGroup(i, 200)
	}

	order := Rearrange(minhashes, sizes, 0.5)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, order)
}

func TestRearrangeRespectsSizeRatioWindow(t *testing.T) {
	// bin 1 is wildly smaller than bin 0; with maxRatio=1 (only exact size
	// matches qualify for the similarity scan) the fallback to next-largest
	// remaining must still produce a valid full permutation.
	sizes := []uint64{1000, 1}
	minhashes := []*MinHash{minHashForGroup(0, 200), minHashForGroup(1, 200)}

	order := Rearrange(minhashes, sizes, 1.0)
	assert.ElementsMatch(t, []int{0, 1}, order)
}

func TestEstimateKmerCountsRoundsHLLEstimate(t *testing.T) {
	h := NewHLL(12)
	for i := 0; i < 1000; i++ {
		h.Add(mkHash(7, i))
	}

	got := EstimateKmerCounts([]*HLL{h})
	assert.Len(t, got, 1)
	assert.InDelta(t, 1000, got[0], 100)
}

func TestEstimateKmerCountsEmptyInput(t *testing.T) {
	assert.Equal(t, []uint64{}, EstimateKmerCounts(nil))
}
