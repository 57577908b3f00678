package fpr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinSizeInBitsScenario(t *testing.T) {
	assert.Equal(t, uint64(7903), BinSizeInBits(1000, 2, 0.05))
}

func TestBinSizeInBitsZeroElements(t *testing.T) {
	assert.Equal(t, uint64(1), BinSizeInBits(0, 2, 0.05))
}

func TestNewTableSplitCorrectionScenario(t *testing.T) {
	table := NewTable(0.01, 5, 256)

	assert.InDelta(t, 1.0, table.At(1), 1e-9)
	assert.InDelta(t, 1.192316, table.At(2), 1e-5)
	assert.InDelta(t, 1.412390, table.At(4), 1e-5)
	assert.InDelta(t, 1.664459, table.At(8), 1e-5)
	assert.InDelta(t, 3.602093, table.At(256), 1e-5)
}

func TestNewTablePrecomputesToNextMultipleOf64(t *testing.T) {
	table := NewTable(0.05, 2, 100)
	assert.Equal(t, uint64(128), table.Len())
}

func TestRelaxedCorrectionBounds(t *testing.T) {
	c := RelaxedCorrection(0.05, 0.3, 2)
	assert.Greater(t, c, 0.0)
	assert.LessOrEqual(t, c, 1.0)
}

func TestRelaxedCorrectionEqualRatesIsIdentity(t *testing.T) {
	c := RelaxedCorrection(0.05, 0.05, 2)
	assert.InDelta(t, 1.0, c, 1e-9)
}

func TestCorrectedSizeAppliesMultiplier(t *testing.T) {
	base := BinSizeInBits(1000, 2, 0.05)
	got := CorrectedSize(1000, 2, 0.05, 2.0)
	assert.Equal(t, uint64(math.Ceil(float64(base)*2.0)), got)
}
