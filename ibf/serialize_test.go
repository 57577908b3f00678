package ibf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRowsRoundTrip(t *testing.T) {
	f := New(128, 64, 3)
	f.Emplace(126, 0)
	f.Emplace(712, 3)
	f.Emplace(237, 9)

	rows := make([][]uint64, f.BitsPerBin())
	for i := range rows {
		rows[i] = append([]uint64(nil), f.RowWords(i)...)
	}

	g := FromRows(f.BinCount(), f.Capacity(), f.BitsPerBin(), f.HashCount(), rows)
	require.NotNil(t, g)

	agentF := f.ContainmentAgent()
	agentG := g.ContainmentAgent()
	for _, h := range []uint64{126, 712, 237, 999} {
		assert.Equal(t, agentF.BulkContains(h).Words(), agentG.BulkContains(h).Words())
	}
}
