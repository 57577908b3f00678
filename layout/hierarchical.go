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
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/seqanlib/hibf/bitvec"
	"github.com/seqanlib/hibf/fpr"
	"github.com/seqanlib/hibf/sketch"
)

// ErrLayoutInfeasible is returned when hierarchical binning cannot fit the
// given user bins into the configured bin budget, even recursively. It
// never silently drops user bins.
var ErrLayoutInfeasible = errors.New("layout: hierarchical binning cannot fit user bins into the configured technical bin budget")

// minRearrangementSize is the smallest U for which rearrangement is even
// attempted; below this, similarity clustering has no meaningful effect
// and size order is kept as-is.
const minRearrangementSize = 8

// minMergeSize is the fewest user bins a merge range may span.
const minMergeSize = 2

// Config carries the subset of the HIBF configuration that the binning
// DPs need, decoupled from the root package's validated Config so this
// package has no dependency on it.
type Config struct {
	// TMax is the per-IBF technical-bin cap, used as given (it is not
	// rounded up to a multiple of 64 here); 0 means "auto-choose" the
	// smallest multiple of 64 greater than the number of user bins.
	TMax uint64
	// HashCount is k.
	HashCount uint64
	// FalsePositiveRate is f.
	FalsePositiveRate float64
	// RelaxedFalsePositiveRate is f' for merged bins.
	RelaxedFalsePositiveRate float64
	// Alpha is the merge-penalty multiplier.
	Alpha float64
	// MaxRearrangementRatio bounds how far a candidate's size may diverge
	// from the chain's current bin before similarity is allowed to place
	// it next.
	MaxRearrangementRatio float64
	// DisableEstimateUnion replaces HLL-based union pricing with a cheap
	// sum-of-counts upper bound.
	DisableEstimateUnion bool
	// DisableRearrangement skips the similarity-based permutation step.
	DisableRearrangement bool
	// EmptyBinFraction reserves this fraction of each level's technical
	// bins as permanently empty, clustered at the end of the bin range.
	EmptyBinFraction float64
	// Trace, if non-nil, receives a dump of the DP cost table for the
	// top-level call only; left nil it costs nothing.
	Trace io.Writer
}

// dataStore threads the per-level working state through the DP, avoiding
// recomputation of sketch unions across DP cells.
type dataStore struct {
	counts    []uint64
	hlls      []*sketch.HLL // may be nil if DisableEstimateUnion
	minhashes []*sketch.MinHash
	// originalIdx[i] is the UserBinId that position i (after any
	// rearrangement) corresponds to.
	originalIdx []int
	unionCache  map[[2]int]uint64
	prefixSum   []uint64 // prefixSum[i] = sum(counts[0:i])
}

func (d *dataStore) unionEstimate(l, r int, disableEstimate bool) uint64 {
	if disableEstimate || d.hlls == nil {
		return d.prefixSum[r+1] - d.prefixSum[l]
	}
	key := [2]int{l, r}
	if v, ok := d.unionCache[key]; ok {
		return v
	}
	v := sketch.EstimateUnion(d.hlls[l : r+1])
	d.unionCache[key] = v
	return v
}

// Hierarchical recursively partitions the given user bins into a tree of
// IBFs. counts and hlls must be parallel to the same user
// bin ordering; originalIdx[i] (if non-nil) names the UserBinId for
// position i, defaulting to i. minhashes is optional and only consulted
// when rearrangement is enabled.
func Hierarchical(counts []uint64, hlls []*sketch.HLL, minhashes []*sketch.MinHash, originalIdx []int, cfg Config) (*Tree, error) {
	if originalIdx == nil {
		originalIdx = make([]int, len(counts))
		for i := range originalIdx {
			originalIdx[i] = i
		}
	}
	root, err := buildLevel(counts, hlls, minhashes, originalIdx, cfg)
	if err != nil {
		return nil, err
	}
	t := &Tree{Root: root}
	fixupPaths(t)
	return t, nil
}

func fixupPaths(t *Tree) {
	t.Walk(func(n *Node, path []uint64) {
		for i := range n.RemainingRecords {
			n.RemainingRecords[i].PreviousTBIndices = append([]uint64(nil), path...)
		}
	})
}

// buildLevel builds one Node (and, recursively, its merged children)
// without knowledge of its position in the overall tree.
func buildLevel(counts []uint64, hlls []*sketch.HLL, minhashes []*sketch.MinHash, originalIdx []int, cfg Config) (*Node, error) {
	u := len(counts)
	if u == 0 {
		return &Node{NumberOfTechnicalBins: bitvec.NextMultipleOf64(1)}, nil
	}

	effectiveTMax := cfg.TMax
	if effectiveTMax == 0 {
		effectiveTMax = bitvec.NextMultipleOf64(uint64(u) + 1)
	}
	usable := UsableBins(effectiveTMax, cfg.EmptyBinFraction)
	if uint64(u) > usable {
		return nil, ErrLayoutInfeasible
	}

	order, minhashesOrdered := reorderForSimilarity(counts, minhashes, cfg)
	orderedCounts := make([]uint64, u)
	orderedOriginal := make([]int, u)
	var orderedHLLs []*sketch.HLL
	if hlls != nil {
		orderedHLLs = make([]*sketch.HLL, u)
	}
	for newPos, oldPos := range order {
		orderedCounts[newPos] = counts[oldPos]
		orderedOriginal[newPos] = originalIdx[oldPos]
		if hlls != nil {
			orderedHLLs[newPos] = hlls[oldPos]
		}
	}

	table := fpr.NewTable(cfg.FalsePositiveRate, cfg.HashCount, usable)
	relaxedCorrection := fpr.RelaxedCorrection(cfg.FalsePositiveRate, cfg.RelaxedFalsePositiveRate, cfg.HashCount)

	prefixSum := make([]uint64, u+1)
	for i, c := range orderedCounts {
		prefixSum[i+1] = prefixSum[i] + c
	}
	store := &dataStore{
		counts:      orderedCounts,
		hlls:        orderedHLLs,
		minhashes:   minhashesOrdered,
		originalIdx: orderedOriginal,
		unionCache:  map[[2]int]uint64{},
		prefixSum:   prefixSum,
	}

	slots, err := runDP(store, usable, table, relaxedCorrection, cfg)
	if err != nil {
		return nil, err
	}

	return assembleNode(store, slots, effectiveTMax, cfg)
}

func reorderForSimilarity(counts []uint64, minhashes []*sketch.MinHash, cfg Config) ([]int, []*sketch.MinHash) {
	u := len(counts)
	order := make([]int, u)
	for i := range order {
		order[i] = i
	}
	if cfg.DisableRearrangement || u < minRearrangementSize || minhashes == nil {
		return order, minhashes
	}
	order = sketch.Rearrange(minhashes, counts, cfg.MaxRearrangementRatio)
	reordered := make([]*sketch.MinHash, u)
	for newPos, oldPos := range order {
		reordered[newPos] = minhashes[oldPos]
	}
	return order, reordered
}

// slot describes one DP-chosen block of the rearranged user-bin sequence.
type slot struct {
	start, end int // inclusive range [start,end] in the rearranged sequence
	merged     bool
	splitCount uint64 // meaningful only when !merged; 1 means unsplit
}

const epsilon = 1e-9

func runDP(store *dataStore, usableBins uint64, table *fpr.Table, relaxedCorrection float64, cfg Config) ([]slot, error) {
	u := len(store.counts)
	const inf = math.MaxFloat64

	dpCost := make([][]float64, u+1)
	dpMerges := make([][]int, u+1)
	trace := make([][]slot, u+1)
	for i := range dpCost {
		dpCost[i] = make([]float64, usableBins+1)
		dpMerges[i] = make([]int, usableBins+1)
		trace[i] = make([]slot, usableBins+1)
		for j := range dpCost[i] {
			dpCost[i][j] = inf
		}
	}
	dpCost[0][0] = 0

	maxSplit := table.Len()

	consider := func(i, j int, cand float64, merges int, s slot) {
		if cand < dpCost[i][j]-epsilon {
			dpCost[i][j] = cand
			dpMerges[i][j] = merges
			trace[i][j] = s
		} else if cand < dpCost[i][j]+epsilon && merges < dpMerges[i][j] {
			dpMerges[i][j] = merges
			trace[i][j] = s
		}
	}

	for i := 1; i <= u; i++ {
		for j := i; j <= int(usableBins); j++ {
			// single / split: one user bin (position i-1) across s bins.
			maxS := uint64(j - (i - 1))
			if maxS > maxSplit {
				maxS = maxSplit
			}
			for s := uint64(1); s <= maxS; s++ {
				prevJ := j - int(s)
				if dpCost[i-1][prevJ] == inf {
					continue
				}
				c := math.Ceil(float64(store.counts[i-1]) * table.At(s) / float64(s))
				cand := math.Max(dpCost[i-1][prevJ], c)
				consider(i, j, cand, dpMerges[i-1][prevJ], slot{start: i - 1, end: i - 1, splitCount: s})
			}
			// merge: a run of k>=2 user bins ending at i-1, consuming
			// exactly one technical bin.
			for k := minMergeSize; k <= i; k++ {
				p := i - k
				prevJ := j - 1
				if prevJ < p || dpCost[p][prevJ] == inf {
					continue
				}
				union := store.unionEstimate(p, i-1, cfg.DisableEstimateUnion)
				c := cfg.Alpha * float64(union) * relaxedCorrection
				cand := math.Max(dpCost[p][prevJ], c)
				consider(i, j, cand, dpMerges[p][prevJ]+1, slot{start: p, end: i - 1, merged: true})
			}
		}
	}

	if cfg.Trace != nil {
		printMatrix(cfg.Trace, dpCost)
	}

	best := int(usableBins)
	if dpCost[u][best] == inf {
		return nil, ErrLayoutInfeasible
	}

	var slots []slot
	i, j := u, best
	for i > 0 {
		s := trace[i][j]
		slots = append(slots, s)
		if s.merged {
			j--
			i = s.start
		} else {
			j -= int(s.splitCount)
			i = s.start
		}
	}
	// slots were appended end-to-start; reverse to ascending order.
	for a, b := 0, len(slots)-1; a < b; a, b = a+1, b-1 {
		slots[a], slots[b] = slots[b], slots[a]
	}
	return slots, nil
}

// printMatrix renders the DP cost table in row/column form, gated behind
// Config.Trace so it costs nothing when unused.
func printMatrix(w io.Writer, dpCost [][]float64) {
	for i := range dpCost {
		for j, v := range dpCost[i] {
			if j > 0 {
				fmt.Fprint(w, "\t")
			}
			if v == math.MaxFloat64 {
				fmt.Fprint(w, "inf")
			} else {
				fmt.Fprintf(w, "%.1f", v)
			}
		}
		fmt.Fprintln(w)
	}
}

func assembleNode(store *dataStore, slots []slot, totalBins uint64, cfg Config) (*Node, error) {
	n := &Node{NumberOfTechnicalBins: totalBins}

	var maxVal float64 = -1
	var maxBin uint64
	storage := uint64(0)

	type pendingMerge struct {
		storageBin uint64
		start, end int
	}
	var merges []pendingMerge

	for _, s := range slots {
		if s.merged {
			union := store.unionEstimate(s.start, s.end, cfg.DisableEstimateUnion)
			if float64(union) > maxVal {
				maxVal = float64(union)
				maxBin = storage
			}
			merges = append(merges, pendingMerge{storageBin: storage, start: s.start, end: s.end})
			storage++
			continue
		}
		perBin := float64(store.counts[s.start]) / float64(s.splitCount)
		for b := uint64(0); b < s.splitCount; b++ {
			if perBin > maxVal {
				maxVal = perBin
				maxBin = storage + b
			}
		}
		n.RemainingRecords = append(n.RemainingRecords, UserBinRecord{
			Idx:                   store.originalIdx[s.start],
			StorageTBID:           storage,
			NumberOfTechnicalBins: s.splitCount,
		})
		storage += s.splitCount
	}

	n.MaxBinIndex = maxBin

	for idx, m := range merges {
		childCfg := cfg
		childCfg.TMax = 0   // child always chooses its own minimal bin budget
		childCfg.Trace = nil // tracing is only emitted for the top-level DP call
		childCounts := store.counts[m.start : m.end+1]
		var childHLLs []*sketch.HLL
		if store.hlls != nil {
			childHLLs = store.hlls[m.start : m.end+1]
		}
		var childMinhashes []*sketch.MinHash
		if store.minhashes != nil {
			childMinhashes = store.minhashes[m.start : m.end+1]
		}
		childOriginal := store.originalIdx[m.start : m.end+1]
		child, err := buildLevel(childCounts, childHLLs, childMinhashes, childOriginal, childCfg)
		if err != nil {
			return nil, errors.Wrapf(err, "layout: building merged subtree for bin %d", m.storageBin)
		}
		child.ParentBinIndex = m.storageBin
		n.Children = append(n.Children, child)
		if m.storageBin == maxBin {
			i := idx
			n.FavouriteChild = &i
		}
	}

	return n, nil
}
