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

// Package hibf ties the layout planner (package layout), the builder
// (package build) and the interleaved Bloom filter (package ibf) together
// into a top-level Build/Query API, plus the structured error taxonomy in
// errors.go.
package hibf

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/seqanlib/hibf/bitvec"
	"github.com/seqanlib/hibf/build"
	"github.com/seqanlib/hibf/ibf"
	"github.com/seqanlib/hibf/layout"
	"github.com/seqanlib/hibf/sketch"
)

// Index is a fully built HIBF: a layout tree plus the forest of IBFs that
// materializes it.
type Index struct {
	tree      *layout.Tree
	ibfs      map[uint64]*ibf.IBF
	nodeIndex map[*layout.Node]uint64
}

// UserBinInput supplies the per-user-bin sketches and hash counts the
// layout planner needs, parallel to a dense [0,U) user bin id ordering.
type UserBinInput struct {
	// Counts holds each user bin's k-mer count (exact, or an estimate from
	// sketch.EstimateKmerCounts when only sketches are available).
	Counts []uint64
	// HLLs holds each user bin's HyperLogLog sketch, used for
	// union-estimation merge pricing. May be nil (cfg.DisableEstimateUnion
	// is then implied).
	HLLs []*sketch.HLL
	// MinHashes holds each user bin's MinHash sketch, used for similarity
	// rearrangement. May be nil (cfg.DisableRearrangement is then
	// implied).
	MinHashes []*sketch.MinHash
}

// Build plans a layout for input via the hierarchical binning DP and
// materializes every IBF in it, returning the finished Index.
func Build(cfg *Config, input UserBinInput) (*Index, error) {
	if len(input.Counts) != cfg.NumberOfUserBins {
		return nil, newError(ConfigInvalid, "UserBinInput.Counts length must equal NumberOfUserBins")
	}

	layoutCfg := layout.Config{
		TMax:                     cfg.TMax,
		HashCount:                cfg.NumberOfHashFunctions,
		FalsePositiveRate:        cfg.MaximumFalsePositiveRate,
		RelaxedFalsePositiveRate: cfg.RelaxedFalsePositiveRate,
		Alpha:                    cfg.Alpha,
		MaxRearrangementRatio:    cfg.MaxRearrangementRatio,
		DisableEstimateUnion:     cfg.DisableEstimateUnion || input.HLLs == nil,
		DisableRearrangement:     cfg.DisableRearrangement || input.MinHashes == nil,
		EmptyBinFraction:         cfg.EmptyBinFraction,
	}

	tree, err := layout.Hierarchical(input.Counts, input.HLLs, input.MinHashes, nil, layoutCfg)
	if err != nil {
		if errors.Is(err, layout.ErrLayoutInfeasible) {
			return nil, wrapError(LayoutInfeasible, "hierarchical binning could not fit the configured user bins", err)
		}
		return nil, wrapError(LayoutInfeasible, "hierarchical binning failed", err)
	}

	result, err := build.Build(tree, build.Config{
		HashCount:                cfg.NumberOfHashFunctions,
		FalsePositiveRate:        cfg.MaximumFalsePositiveRate,
		RelaxedFalsePositiveRate: cfg.RelaxedFalsePositiveRate,
		Threads:                  cfg.Threads,
		Input:                    cfg.Input,
	})
	if err != nil {
		return nil, wrapError(BuilderCallbackFailed, "building the layout's IBFs failed", err)
	}

	return &Index{tree: result.Tree, ibfs: result.IBFs, nodeIndex: result.NodeIndex}, nil
}

// BuildFlat builds a single, non-recursive IBF via simple binning: every
// user bin is placed directly into one flat level, with no
// merged (subtree) bins. Prefer this over Build when hierarchical merging
// would not help, e.g. when NumberOfUserBins is already comfortably below
// the configured technical-bin budget and a single IBF level suffices.
func BuildFlat(cfg *Config, input UserBinInput) (*Index, error) {
	if len(input.Counts) != cfg.NumberOfUserBins {
		return nil, newError(ConfigInvalid, "UserBinInput.Counts length must equal NumberOfUserBins")
	}

	binCount := cfg.TMax
	if binCount == 0 {
		binCount = bitvec.NextMultipleOf64(uint64(cfg.NumberOfUserBins) + 1)
	}

	tree, err := layout.SimpleTree(input.Counts, binCount, cfg.NumberOfHashFunctions, cfg.MaximumFalsePositiveRate)
	if err != nil {
		if errors.Is(err, layout.ErrTooManyUserBins) {
			return nil, wrapError(LayoutInfeasible, "simple binning requires fewer user bins than technical bins", err)
		}
		return nil, wrapError(LayoutInfeasible, "simple binning failed", err)
	}

	result, err := build.Build(tree, build.Config{
		HashCount:                cfg.NumberOfHashFunctions,
		FalsePositiveRate:        cfg.MaximumFalsePositiveRate,
		RelaxedFalsePositiveRate: cfg.RelaxedFalsePositiveRate,
		Threads:                  cfg.Threads,
		Input:                    cfg.Input,
	})
	if err != nil {
		return nil, wrapError(BuilderCallbackFailed, "building the layout's IBFs failed", err)
	}

	return &Index{tree: result.Tree, ibfs: result.IBFs, nodeIndex: result.NodeIndex}, nil
}

// Tree exposes the underlying layout tree, e.g. for Encode/persistence.
func (idx *Index) Tree() *layout.Tree { return idx.tree }

// Query returns the ascending-sorted list of user bin ids whose hashes
// contain at least threshold of the hashes in query.
func (idx *Index) Query(query []uint64, threshold uint64) []int {
	var out []int
	descend(idx, idx.tree.Root, query, threshold, &out)
	sort.Ints(out)
	return out
}

// descend walks one IBF's worth of bins. A merged bin occupies exactly one
// technical bin, so its count is compared to threshold directly. A split
// record's hashes are partitioned (not duplicated) across its
// NumberOfTechnicalBins sub-bins, so its sub-bin counts must be summed
// before the comparison: thresholding each sub-bin on its own would reject
// a user bin whose matches are merely spread across several sub-bins.
func descend(idx *Index, n *layout.Node, query []uint64, threshold uint64, out *[]int) {
	filterIdx, ok := idx.nodeIndex[n]
	if !ok {
		return
	}
	filter := idx.ibfs[filterIdx]
	agent := filter.MembershipAgent()

	if threshold == 0 {
		for _, c := range n.Children {
			descend(idx, c, query, threshold, out)
		}
		for _, rec := range n.RemainingRecords {
			*out = append(*out, rec.Idx)
		}
		return
	}

	counts := agent.Counts(query)
	for _, c := range n.Children {
		if counts.Get(c.ParentBinIndex) >= threshold {
			descend(idx, c, query, threshold, out)
		}
	}
	for _, rec := range n.RemainingRecords {
		var sum uint64
		for b := rec.StorageTBID; b < rec.StorageTBID+rec.NumberOfTechnicalBins; b++ {
			sum += counts.Get(b)
		}
		if sum >= threshold {
			*out = append(*out, rec.Idx)
		}
	}
}
