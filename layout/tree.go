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

// Package layout implements the layout tree data model, the single-level
// DP that fills one IBF ("simple binning"), and the recursive DP that
// partitions user bins across a tree of IBFs ("hierarchical binning").
package layout

// UserBinRecord is a single user bin's placement within the layout tree.
type UserBinRecord struct {
	// Idx is the UserBinId this record places.
	Idx int
	// PreviousTBIndices is the path of merged-bin technical-bin indices
	// from the root down to (but not including) the IBF this record is
	// stored in; its length equals the depth of that IBF.
	PreviousTBIndices []uint64
	// StorageTBID is the first technical bin used for this record within
	// its containing IBF.
	StorageTBID uint64
	// NumberOfTechnicalBins is the split count (>=1); 1 means a single,
	// unsplit assignment.
	NumberOfTechnicalBins uint64
}

// Clone returns a deep copy of r.
func (r UserBinRecord) Clone() UserBinRecord {
	cp := r
	cp.PreviousTBIndices = append([]uint64(nil), r.PreviousTBIndices...)
	return cp
}

// Node is one IBF within the layout tree.
type Node struct {
	// ParentBinIndex is which technical bin of the parent IBF this node
	// is the child of. Meaningless (0) for the root.
	ParentBinIndex uint64
	// MaxBinIndex is the index of the technical bin with the greatest
	// kmer-count in this IBF, driving its sizing.
	MaxBinIndex uint64
	// NumberOfTechnicalBins is B for this IBF.
	NumberOfTechnicalBins uint64
	// FavouriteChild is non-nil when MaxBinIndex is itself a merged bin;
	// it indexes into Children.
	FavouriteChild *int
	// RemainingRecords are the non-merged (split or single) user-bin
	// assignments stored directly at this node.
	RemainingRecords []UserBinRecord
	// Children are the merged (sub-IBF) technical bins of this node, each
	// rooting its own subtree. A child's ParentBinIndex names which
	// technical bin of this node it fills.
	Children []*Node
}

// MaxBinIsMerged reports whether the node's fullest bin is a merged
// (subtree) bin rather than a split/single user-bin assignment.
func (n *Node) MaxBinIsMerged() bool { return n.FavouriteChild != nil }

// Path always returns nil, for the root and for every other node alike: a
// Node carries no parent pointer, so it cannot reconstruct the
// previous_TB_indices path that identifies it. Tree.Walk supplies each
// node's path instead.
func (n *Node) Path() []uint64 {
	// Reconstructing the path requires parent pointers, which Node
	// deliberately does not carry: a child only ever references its
	// parent by an index stored during construction of the parent.
	// Callers that need paths build them top-down while walking (see
	// Tree.Walk), rather than asking a Node for its own path.
	return nil
}

// Tree is a layout: a rooted tree of IBFs.
type Tree struct {
	Root *Node
}

// WalkFunc is called once per node during a Tree.Walk, with path being the
// previous_TB_indices that identify node (empty for the root).
type WalkFunc func(node *Node, path []uint64)

// Walk performs a preorder traversal of t, calling fn for every node with
// its identifying path.
func (t *Tree) Walk(fn WalkFunc) {
	if t.Root == nil {
		return
	}
	walk(t.Root, nil, fn)
}

func walk(n *Node, path []uint64, fn WalkFunc) {
	fn(n, path)
	for _, c := range n.Children {
		childPath := append(append([]uint64(nil), path...), c.ParentBinIndex)
		walk(c, childPath, fn)
	}
}

// Equal reports whether t and other describe structurally identical
// layouts, compared by deep equality.
func (t *Tree) Equal(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	return nodesEqual(t.Root, other.Root)
}

func nodesEqual(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ParentBinIndex != b.ParentBinIndex ||
		a.MaxBinIndex != b.MaxBinIndex ||
		a.NumberOfTechnicalBins != b.NumberOfTechnicalBins ||
		len(a.Children) != len(b.Children) ||
		len(a.RemainingRecords) != len(b.RemainingRecords) {
		return false
	}
	if (a.FavouriteChild == nil) != (b.FavouriteChild == nil) {
		return false
	}
	if a.FavouriteChild != nil && *a.FavouriteChild != *b.FavouriteChild {
		return false
	}
	for i := range a.RemainingRecords {
		ra, rb := a.RemainingRecords[i], b.RemainingRecords[i]
		if ra.Idx != rb.Idx || ra.StorageTBID != rb.StorageTBID ||
			ra.NumberOfTechnicalBins != rb.NumberOfTechnicalBins ||
			len(ra.PreviousTBIndices) != len(rb.PreviousTBIndices) {
			return false
		}
		for j := range ra.PreviousTBIndices {
			if ra.PreviousTBIndices[j] != rb.PreviousTBIndices[j] {
				return false
			}
		}
	}
	for i := range a.Children {
		if !nodesEqual(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}
