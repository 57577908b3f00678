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

package bitvec

// Counter is the set of integer widths a Counting vector may use for its
// per-bin accumulators.
type Counter interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Counting is a dense per-bin counter array of width T, used by a
// CountingAgent to accumulate how many query hashes landed in each bin.
// The accumulation loop is a straight-line += over a contiguous slice, one
// full-width counter per bin since IBF bins are addressed individually
// rather than packed several to a byte.
type Counting[T Counter] struct {
	counts   []T
	binCount uint64
}

// NewCounting allocates a zeroed counting vector for binCount bins.
func NewCounting[T Counter](binCount uint64) Counting[T] {
	return Counting[T]{counts: make([]T, binCount), binCount: binCount}
}

// BinCount returns the number of bins.
func (c Counting[T]) BinCount() uint64 { return c.binCount }

// Reset zeroes every counter in place, so the vector can be reused across
// queries without reallocating (agents hold one of these as scratch).
func (c Counting[T]) Reset() {
	for i := range c.counts {
		c.counts[i] = 0
	}
}

// Get returns the counter for bin b.
func (c Counting[T]) Get(b uint64) T { return c.counts[b] }

// Add adds the containment bits in mask into the counters, one per bin:
// counts[b] += 1 for every b with mask.Get(b). This is the per-hash
// accumulation step of bulk_count.
func (c Counting[T]) Add(mask Vector) {
	mask.ForEachSet(func(bin uint64) {
		c.counts[bin]++
	})
}

// AtLeast calls fn(bin) for every bin whose counter is >= threshold, in
// ascending bin order. A threshold of 0 matches every bin; callers should
// special-case that to avoid doing this work at all.
func (c Counting[T]) AtLeast(threshold T, fn func(bin uint64)) {
	for b, v := range c.counts {
		if v >= threshold {
			fn(uint64(b))
		}
	}
}
