package hibf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqanlib/hibf/build"
	"github.com/seqanlib/hibf/internal/testutil"
	"github.com/seqanlib/hibf/layout"
)

// U=2, hashes {1..10} and {1..5}, k=2, f=0.05.
func TestBuildAndQueryEndToEnd(t *testing.T) {
	data := map[int][]uint64{
		0: testutil.HashRange(1, 11),
		1: testutil.HashRange(1, 6),
	}

	cfg, err := NewConfig(Config{
		NumberOfUserBins:      2,
		NumberOfHashFunctions: 2,
		Input:                 func(idx int) []uint64 { return data[idx] },
	})
	require.NoError(t, err)

	idx, err := Build(cfg, UserBinInput{Counts: []uint64{10, 5}})
	require.NoError(t, err)

	query := testutil.HashRange(1, 4)
	got := idx.Query(query, 2)
	assert.Equal(t, []int{0, 1}, got)
}

func TestQueryThresholdNarrowsToOneUserBin(t *testing.T) {
	data := map[int][]uint64{
		0: testutil.HashRange(1, 11),
		1: testutil.HashRange(1, 6),
	}

	cfg, err := NewConfig(Config{
		NumberOfUserBins:      2,
		NumberOfHashFunctions: 2,
		Input:                 func(idx int) []uint64 { return data[idx] },
	})
	require.NoError(t, err)

	idx, err := Build(cfg, UserBinInput{Counts: []uint64{10, 5}})
	require.NoError(t, err)

	query := testutil.HashRange(8, 11)
	got := idx.Query(query, 2)
	assert.Equal(t, []int{0}, got)
}

func TestQueryEmptyQueryBoundaryCases(t *testing.T) {
	data := map[int][]uint64{
		0: testutil.HashRange(1, 11),
		1: testutil.HashRange(1, 6),
	}

	cfg, err := NewConfig(Config{
		NumberOfUserBins:      2,
		NumberOfHashFunctions: 2,
		Input:                 func(idx int) []uint64 { return data[idx] },
	})
	require.NoError(t, err)

	idx, err := Build(cfg, UserBinInput{Counts: []uint64{10, 5}})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, idx.Query(nil, 0))
	assert.Empty(t, idx.Query(nil, 1))
}

// A split user bin's hashes are partitioned (not duplicated) across its
// technical-bin range, so a query that matches every hash must still pass
// threshold even though no single sub-bin alone reaches it.
func TestQuerySplitUserBinAggregatesAcrossTechnicalBins(t *testing.T) {
	records := []layout.UserBinRecord{
		{Idx: 0, StorageTBID: 0, NumberOfTechnicalBins: 3},
	}
	tree := &layout.Tree{Root: &layout.Node{
		NumberOfTechnicalBins: 3,
		MaxBinIndex:           0,
		RemainingRecords:      records,
	}}
	hashes := testutil.HashRange(0, 300)

	result, err := build.Build(tree, build.Config{
		HashCount:                3,
		FalsePositiveRate:        0.05,
		RelaxedFalsePositiveRate: 0.3,
		Input:                    func(idx int) []uint64 { return hashes },
	})
	require.NoError(t, err)

	idx := &Index{tree: result.Tree, ibfs: result.IBFs, nodeIndex: result.NodeIndex}

	got := idx.Query(hashes, uint64(len(hashes)))
	assert.Equal(t, []int{0}, got)
}

func TestBuildFlatAndQueryEndToEnd(t *testing.T) {
	data := map[int][]uint64{
		0: testutil.HashRange(1, 11),
		1: testutil.HashRange(1, 6),
		2: testutil.HashRange(20, 23),
	}

	cfg, err := NewConfig(Config{
		NumberOfUserBins:      3,
		NumberOfHashFunctions: 2,
		Input:                 func(idx int) []uint64 { return data[idx] },
	})
	require.NoError(t, err)

	idx, err := BuildFlat(cfg, UserBinInput{Counts: []uint64{10, 5, 3}})
	require.NoError(t, err)
	assert.Empty(t, idx.Tree().Root.Children, "simple binning never produces merged bins")

	query := testutil.HashRange(1, 4)
	got := idx.Query(query, 2)
	assert.Equal(t, []int{0, 1}, got)
}

func TestBuildFlatRejectsTooManyUserBinsForTheBinBudget(t *testing.T) {
	cfg, err := NewConfig(Config{
		NumberOfUserBins:      4,
		NumberOfHashFunctions: 2,
		TMax:                  4,
		Input:                 func(int) []uint64 { return nil },
	})
	require.NoError(t, err)

	_, err = BuildFlat(cfg, UserBinInput{Counts: []uint64{1, 2, 3, 4}})
	require.Error(t, err)
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, LayoutInfeasible, herr.Kind)
}

func TestNewConfigRejectsZeroUserBins(t *testing.T) {
	_, err := NewConfig(Config{Input: func(int) []uint64 { return nil }})
	require.Error(t, err)
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, ConfigInvalid, herr.Kind)
}

func TestNewConfigRejectsMissingInput(t *testing.T) {
	_, err := NewConfig(Config{NumberOfUserBins: 1})
	require.Error(t, err)
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, ConfigInvalid, herr.Kind)
}

func TestNewConfigAppliesDefaults(t *testing.T) {
	cfg, err := NewConfig(Config{NumberOfUserBins: 3, Input: func(int) []uint64 { return nil }})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), cfg.NumberOfHashFunctions)
	assert.InDelta(t, 0.05, cfg.MaximumFalsePositiveRate, 1e-9)
	assert.InDelta(t, 0.3, cfg.RelaxedFalsePositiveRate, 1e-9)
	assert.Equal(t, 1, cfg.Threads)
	assert.Equal(t, 12, cfg.SketchBits)
	assert.InDelta(t, 1.2, cfg.Alpha, 1e-9)
}
