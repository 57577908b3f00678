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

package sketch

import "sort"

// MinHashSubSketches is the fixed fan-out of the MinHash table: 16
// sub-sketches, selected by the low 4 bits of the hash.
const MinHashSubSketches = 16

// MinHashCapacity is the bottom-k size of each sub-sketch.
const MinHashCapacity = 40

// MinHash is a 16x40 bottom-k MinHash table used to estimate Jaccard
// similarity between user bins for the rearrangement step of hierarchical
// binning: a fixed number of fixed-capacity rows, each kept as a sorted
// list of the smallest values routed to it.
type MinHash struct {
	buckets [MinHashSubSketches][]uint64 // each kept sorted ascending, len <= MinHashCapacity
}

// NewMinHash returns an empty MinHash table.
func NewMinHash() *MinHash {
	return &MinHash{}
}

// Add routes h to sub-sketch h&15 and, if the sub-sketch is not yet full
// or h>>4 is smaller than its current largest kept value, inserts h>>4,
// evicting the largest value to keep at most MinHashCapacity entries.
func (m *MinHash) Add(h uint64) {
	bucket := h & (MinHashSubSketches - 1)
	value := h >> 4
	m.insert(int(bucket), value)
}

func (m *MinHash) insert(bucket int, value uint64) {
	b := m.buckets[bucket]
	i := sort.Search(len(b), func(i int) bool { return b[i] >= value })
	if i < len(b) && b[i] == value {
		return // already present
	}
	if len(b) < MinHashCapacity {
		b = append(b, 0)
		copy(b[i+1:], b[i:len(b)-1])
		b[i] = value
		m.buckets[bucket] = b
		return
	}
	if i >= MinHashCapacity {
		return // value is larger than everything already kept; drop it
	}
	// Insert and drop the now-largest element to stay at capacity.
	copy(b[i+1:], b[i:len(b)-1])
	b[i] = value
	m.buckets[bucket] = b
}

// FillIncompleteSketches extends every sub-sketch that is still below
// capacity with values routed from more, leaving already-full sub-sketches
// untouched (Add is already a correct no-op for those; this just skips
// the redundant work).
func (m *MinHash) FillIncompleteSketches(more []uint64) {
	for _, h := range more {
		bucket := int(h & (MinHashSubSketches - 1))
		if len(m.buckets[bucket]) >= MinHashCapacity {
			continue
		}
		m.insert(bucket, h>>4)
	}
}

// IsValid reports whether every sub-sketch has reached capacity.
func (m *MinHash) IsValid() bool {
	for _, b := range m.buckets {
		if len(b) < MinHashCapacity {
			return false
		}
	}
	return true
}

// EstimateJaccard estimates the Jaccard similarity between a and b using
// their bottom-k sub-sketches: for each of the 16 partitions, the smallest
// shared count of the merged bottom-k values is checked for membership in
// both original lists, and the per-partition ratios are averaged over
// partitions that have data in either sketch.
func EstimateJaccard(a, b *MinHash) float64 {
	var total float64
	var n int
	for i := 0; i < MinHashSubSketches; i++ {
		la, lb := a.buckets[i], b.buckets[i]
		if len(la) == 0 && len(lb) == 0 {
			continue
		}
		total += jaccardSubSketch(la, lb)
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// jaccardSubSketch estimates Jaccard similarity from two sorted
// bottom-k lists via the standard KMV estimator: merge the lists, take the
// smallest k = min(MinHashCapacity, len(merged-without-duplicates))
// elements of the union, and report the fraction of those that are present
// in both source lists.
func jaccardSubSketch(a, b []uint64) float64 {
	setA := make(map[uint64]struct{}, len(a))
	for _, v := range a {
		setA[v] = struct{}{}
	}
	setB := make(map[uint64]struct{}, len(b))
	for _, v := range b {
		setB[v] = struct{}{}
	}
	merged := mergeSortedUnique(a, b)
	k := MinHashCapacity
	if len(merged) < k {
		k = len(merged)
	}
	if k == 0 {
		return 0
	}
	both := 0
	for _, v := range merged[:k] {
		_, inA := setA[v]
		_, inB := setB[v]
		if inA && inB {
			both++
		}
	}
	return float64(both) / float64(k)
}

func mergeSortedUnique(a, b []uint64) []uint64 {
	out := make([]uint64, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
