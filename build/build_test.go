package build

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqanlib/hibf/internal/testutil"
	"github.com/seqanlib/hibf/layout"
)

func flatUserBins(t *testing.T, counts int) *layout.Tree {
	t.Helper()
	records := make([]layout.UserBinRecord, counts)
	for i := range records {
		records[i] = layout.UserBinRecord{Idx: i, StorageTBID: uint64(i), NumberOfTechnicalBins: 1}
	}
	return &layout.Tree{Root: &layout.Node{
		NumberOfTechnicalBins: uint64(counts),
		RemainingRecords:      records,
	}}
}

func TestBuildFlatTree(t *testing.T) {
	tree := flatUserBins(t, 4)
	data := map[int][]uint64{
		0: testutil.HashRange(0, 100),
		1: testutil.HashRange(50, 150),
		2: testutil.HashRange(200, 220),
		3: testutil.HashRange(1000, 1005),
	}

	result, err := Build(tree, Config{
		HashCount:                4,
		FalsePositiveRate:        0.05,
		RelaxedFalsePositiveRate: 0.3,
		Threads:                  2,
		Input:                    func(idx int) []uint64 { return data[idx] },
	})
	require.NoError(t, err)
	require.Len(t, result.IBFs, 1)

	idx, ok := result.NodeIndex[tree.Root]
	require.True(t, ok)
	f := result.IBFs[idx]
	require.NotNil(t, f)
	assert.Equal(t, uint64(64), f.BinCount())

	agent := f.ContainmentAgent()
	for bin, hashes := range data {
		for _, h := range hashes {
			bits := agent.BulkContains(h)
			assert.True(t, bits.Get(uint64(bin)), "expected hash present in bin %d", bin)
		}
	}
}

func TestBuildSplitUserBin(t *testing.T) {
	records := []layout.UserBinRecord{
		{Idx: 0, StorageTBID: 0, NumberOfTechnicalBins: 3},
	}
	tree := &layout.Tree{Root: &layout.Node{
		NumberOfTechnicalBins: 3,
		MaxBinIndex:           0,
		RemainingRecords:      records,
	}}
	hashes := testutil.HashRange(0, 300)

	result, err := Build(tree, Config{
		HashCount:                3,
		FalsePositiveRate:        0.05,
		RelaxedFalsePositiveRate: 0.3,
		Input:                    func(idx int) []uint64 { return hashes },
	})
	require.NoError(t, err)

	idx := result.NodeIndex[tree.Root]
	f := result.IBFs[idx]
	agent := f.ContainmentAgent()
	found := 0
	for _, h := range hashes {
		bits := agent.BulkContains(h)
		for b := uint64(0); b < 3; b++ {
			if bits.Get(b) {
				found++
				break
			}
		}
	}
	assert.Equal(t, len(hashes), found, "every hash should land in at least one of the split bins")
}

func TestBuildMergedBinFoldsChildKmers(t *testing.T) {
	child := &layout.Node{
		ParentBinIndex:        0,
		NumberOfTechnicalBins: 2,
		RemainingRecords: []layout.UserBinRecord{
			{Idx: 0, StorageTBID: 0, NumberOfTechnicalBins: 1},
			{Idx: 1, StorageTBID: 1, NumberOfTechnicalBins: 1},
		},
	}
	root := &layout.Node{
		NumberOfTechnicalBins: 2,
		MaxBinIndex:           0,
		FavouriteChild:        intPtr(0),
		Children:              []*layout.Node{child},
		RemainingRecords: []layout.UserBinRecord{
			{Idx: 2, StorageTBID: 1, NumberOfTechnicalBins: 1},
		},
	}
	tree := &layout.Tree{Root: root}

	data := map[int][]uint64{
		0: testutil.HashRange(0, 50),
		1: testutil.HashRange(50, 80),
		2: testutil.HashRange(500, 520),
	}

	result, err := Build(tree, Config{
		HashCount:                4,
		FalsePositiveRate:        0.05,
		RelaxedFalsePositiveRate: 0.3,
		Threads:                  4,
		Input:                    func(idx int) []uint64 { return data[idx] },
	})
	require.NoError(t, err)
	require.Len(t, result.IBFs, 2)

	rootIdx := result.NodeIndex[root]
	rootFilter := result.IBFs[rootIdx]
	agent := rootFilter.ContainmentAgent()
	for _, h := range append(append([]uint64{}, data[0]...), data[1]...) {
		bits := agent.BulkContains(h)
		assert.True(t, bits.Get(0), "child kmers must be folded into the root's merged bin 0")
	}
}

func TestBuildRecoversPanickingCallback(t *testing.T) {
	tree := flatUserBins(t, 3)
	var calls sync.Map
	_, err := Build(tree, Config{
		HashCount:                2,
		FalsePositiveRate:        0.05,
		RelaxedFalsePositiveRate: 0.3,
		Input: func(idx int) []uint64 {
			calls.Store(idx, true)
			if idx == 1 {
				panic("simulated sequence-reader failure")
			}
			return testutil.HashRange(idx*10, idx*10+5)
		},
	})
	assert.Error(t, err)
}

func TestBuildRejectsMissingInput(t *testing.T) {
	tree := flatUserBins(t, 1)
	_, err := Build(tree, Config{HashCount: 2, FalsePositiveRate: 0.05})
	assert.Error(t, err)
}

func intPtr(i int) *int { return &i }
