package layout

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSampleTree() *Tree {
	root := &Node{
		NumberOfTechnicalBins: 8,
		MaxBinIndex:           2,
		RemainingRecords: []UserBinRecord{
			{Idx: 0, StorageTBID: 0, NumberOfTechnicalBins: 1},
			{Idx: 1, StorageTBID: 1, NumberOfTechnicalBins: 2},
		},
	}
	child := &Node{
		ParentBinIndex:        2,
		NumberOfTechnicalBins: 64,
		MaxBinIndex:           0,
		RemainingRecords: []UserBinRecord{
			{Idx: 2, StorageTBID: 0, NumberOfTechnicalBins: 1},
			{Idx: 3, StorageTBID: 1, NumberOfTechnicalBins: 1},
		},
	}
	favourite := 0
	root.FavouriteChild = &favourite
	root.Children = []*Node{child}

	t := &Tree{Root: root}
	fixupPaths(t)
	return t
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tree := buildSampleTree()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, tree, nil))

	got, configLines, err := Decode(&buf)
	require.NoError(t, err)
	assert.Empty(t, configLines)
	assert.True(t, tree.Equal(got), "decoded layout must be structurally equal to the encoded original")
}

func TestEncodeDecodeRoundTripWithConfig(t *testing.T) {
	tree := buildSampleTree()
	configLines := []string{"number_of_user_bins:4", "number_of_hash_functions:2"}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, tree, configLines))

	got, gotConfig, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, configLines, gotConfig)
	assert.True(t, tree.Equal(got))
}

func TestDecodeRejectsUnrecognizedHeader(t *testing.T) {
	_, _, err := Decode(bytes.NewBufferString("#NOT_A_REAL_HEADER foo\n"))
	assert.Error(t, err)
}

func TestDecodeRejectsMalformedContentRow(t *testing.T) {
	input := "#TOP_LEVEL_IBF max_bin_id:0\n0\tonly-one-field\n"
	_, _, err := Decode(bytes.NewBufferString(input))
	assert.Error(t, err)
}

func TestTreeEqualDetectsDifference(t *testing.T) {
	a := buildSampleTree()
	b := buildSampleTree()
	assert.True(t, a.Equal(b))

	b.Root.RemainingRecords[0].Idx = 99
	assert.False(t, a.Equal(b))
}
