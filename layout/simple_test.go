package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqanlib/hibf/fpr"
)

func TestSimpleUsesEveryTechnicalBin(t *testing.T) {
	counts := []uint64{1000, 10, 10, 10}
	table := fpr.NewTable(0.05, 2, 8)

	records, err := Simple(counts, 8, table)
	require.NoError(t, err)
	require.Len(t, records, 4)

	var totalBins uint64
	for _, r := range records {
		totalBins += r.NumberOfTechnicalBins
	}
	assert.Equal(t, uint64(8), totalBins)

	// Records come back in increasing StorageTBID order, tiling [0,8).
	var next uint64
	for _, r := range records {
		assert.Equal(t, next, r.StorageTBID)
		next += r.NumberOfTechnicalBins
	}
}

func TestSimpleSplitsTheLargestUserBinMost(t *testing.T) {
	counts := []uint64{100000, 1, 1}
	table := fpr.NewTable(0.05, 2, 6)

	records, err := Simple(counts, 6, table)
	require.NoError(t, err)

	var byIdx = map[int]UserBinRecord{}
	for _, r := range records {
		byIdx[r.Idx] = r
	}
	assert.Greater(t, byIdx[0].NumberOfTechnicalBins, byIdx[1].NumberOfTechnicalBins)
	assert.Greater(t, byIdx[0].NumberOfTechnicalBins, byIdx[2].NumberOfTechnicalBins)
}

func TestSimpleRejectsTooManyUserBins(t *testing.T) {
	counts := []uint64{1, 2, 3, 4}
	table := fpr.NewTable(0.05, 2, 4)

	_, err := Simple(counts, 4, table)
	assert.ErrorIs(t, err, ErrTooManyUserBins)
}

func TestSimpleEmptyInputIsEmptyOutput(t *testing.T) {
	table := fpr.NewTable(0.05, 2, 8)
	records, err := Simple(nil, 8, table)
	assert.NoError(t, err)
	assert.Nil(t, records)
}

func TestSimpleTreeProducesSingleFlatNode(t *testing.T) {
	counts := []uint64{500, 50, 50}

	tree, err := SimpleTree(counts, 8, 2, 0.05)
	require.NoError(t, err)
	require.NotNil(t, tree.Root)

	assert.Empty(t, tree.Root.Children)
	assert.Nil(t, tree.Root.FavouriteChild)
	assert.Len(t, tree.Root.RemainingRecords, 3)

	for _, rec := range tree.Root.RemainingRecords {
		assert.Empty(t, rec.PreviousTBIndices, "root-level records have no path prefix")
	}

	// MaxBinIndex must name a bin actually owned by one of the records.
	var owned bool
	for _, rec := range tree.Root.RemainingRecords {
		if tree.Root.MaxBinIndex >= rec.StorageTBID && tree.Root.MaxBinIndex < rec.StorageTBID+rec.NumberOfTechnicalBins {
			owned = true
		}
	}
	assert.True(t, owned, "MaxBinIndex must fall within some record's assigned range")
}
