/*
 * Copyright 2019 Dgraph Labs, Inc. and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package layout

import (
	"math"

	"github.com/pkg/errors"

	"github.com/seqanlib/hibf/fpr"
)

// ErrTooManyUserBins is returned by Simple when the number of user bins is
// not strictly less than the number of technical bins.
var ErrTooManyUserBins = errors.New("layout: simple binning requires fewer user bins than technical bins")

// Simple fills a single IBF with binCount technical bins from the given
// per-user-bin kmer counts: a two-dimensional DP minimizing
// the maximum expected bin size, where splitting user bin i across s
// consecutive bins costs ceil(count_i * f_h[s] / s). It returns one
// UserBinRecord per user bin (PreviousTBIndices left empty; callers doing
// hierarchical binning fill that in), in increasing StorageTBID order,
// using every one of the binCount technical bins.
func Simple(counts []uint64, binCount uint64, table *fpr.Table) ([]UserBinRecord, error) {
	u := uint64(len(counts))
	if u == 0 {
		return nil, nil
	}
	if u >= binCount {
		return nil, ErrTooManyUserBins
	}
	maxSplit := binCount - u + 1
	if table.Len() < maxSplit {
		return nil, errors.Errorf("layout: fpr table only covers %d splits, need %d", table.Len(), maxSplit)
	}

	const inf = math.MaxFloat64

	// dp[i][j]: minimum, over ways to assign user bins 1..i to exactly j
	// technical bins, of the maximum per-bin cost. trace[i][j] records the
	// split count s chosen for user bin i in the optimal solution.
	dp := make([][]float64, u+1)
	trace := make([][]uint64, u+1)
	for i := range dp {
		dp[i] = make([]float64, binCount+1)
		trace[i] = make([]uint64, binCount+1)
		for j := range dp[i] {
			dp[i][j] = inf
		}
	}
	dp[0][0] = 0

	cost := func(userBin int, s uint64) float64 {
		return math.Ceil(float64(counts[userBin]) * table.At(s) / float64(s))
	}

	for i := uint64(1); i <= u; i++ {
		for j := i; j <= binCount; j++ {
			maxS := j - (i - 1)
			if maxS > maxSplit {
				maxS = maxSplit
			}
			best := inf
			var bestS uint64
			for s := uint64(1); s <= maxS; s++ {
				prev := dp[i-1][j-s]
				if prev == inf {
					continue
				}
				c := cost(int(i-1), s)
				candidate := math.Max(prev, c)
				if candidate < best {
					best = candidate
					bestS = s
				}
			}
			dp[i][j] = best
			trace[i][j] = bestS
		}
	}

	if dp[u][binCount] == inf {
		return nil, errors.New("layout: simple binning DP found no feasible assignment")
	}

	records := make([]UserBinRecord, u)
	j := binCount
	for i := u; i >= 1; i-- {
		s := trace[i][j]
		records[i-1] = UserBinRecord{
			Idx:                   int(i - 1),
			NumberOfTechnicalBins: s,
		}
		j -= s
	}
	storage := uint64(0)
	for i := range records {
		records[i].StorageTBID = storage
		storage += records[i].NumberOfTechnicalBins
	}
	return records, nil
}

// SimpleTree runs Simple and assembles its result into a flat, single-node
// Tree with no merged (subtree) bins: the degenerate case of hierarchical
// binning where every user bin is placed directly rather than recursed
// into.
func SimpleTree(counts []uint64, binCount uint64, hashCount uint64, falsePositiveRate float64) (*Tree, error) {
	table := fpr.NewTable(falsePositiveRate, hashCount, binCount)
	records, err := Simple(counts, binCount, table)
	if err != nil {
		return nil, err
	}

	root := &Node{NumberOfTechnicalBins: binCount, RemainingRecords: records}
	var maxVal float64 = -1
	for _, rec := range records {
		perBin := float64(counts[rec.Idx]) / float64(rec.NumberOfTechnicalBins)
		if perBin > maxVal {
			maxVal = perBin
			root.MaxBinIndex = rec.StorageTBID
		}
	}

	t := &Tree{Root: root}
	fixupPaths(t)
	return t, nil
}
