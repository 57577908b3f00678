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

// Package bitvec implements the packed bit storage and counting storage
// shared by every Interleaved Bloom Filter row: a dense []uint64 bitset
// with column-addressed bins, and a generic per-bin counter array used to
// accumulate bulk-count results.
package bitvec

import "math/bits"

// wordBits is the width of a single storage word.
const wordBits = 64

// Words returns the number of 64-bit words needed to store binCount bins,
// i.e. ceil(binCount/64).
func Words(binCount uint64) uint64 {
	return (binCount + wordBits - 1) / wordBits
}

// NextMultipleOf64 rounds n up to the next multiple of 64.
func NextMultipleOf64(n uint64) uint64 {
	return Words(n) * wordBits
}

// Vector is a packed bitset over binCount bins (a multiple of 64), stored
// as binCount/64 words. It underlies a single bit-position "row" of an
// Interleaved Bloom Filter: bin b's bit lives at word b/64, bit b%64.
type Vector struct {
	words    []uint64
	binCount uint64
}

// New allocates a zero-initialized Vector for binCount bins. binCount must
// already be a multiple of 64; callers needing padding should round up with
// NextMultipleOf64 first.
func New(binCount uint64) Vector {
	return Vector{
		words:    make([]uint64, Words(binCount)),
		binCount: binCount,
	}
}

// FromWords wraps an existing, already correctly sized word slice (used by
// deserialization). The caller guarantees len(words) == Words(binCount).
func FromWords(words []uint64, binCount uint64) Vector {
	return Vector{words: words, binCount: binCount}
}

// BinCount returns the number of addressable bins.
func (v Vector) BinCount() uint64 { return v.binCount }

// Words exposes the backing word slice for serialization and for the bulk
// AND/accumulate loops in package ibf. Mutating it is the caller's
// responsibility to do safely.
func (v Vector) Words() []uint64 { return v.words }

// Set sets the bit for bin b.
func (v Vector) Set(b uint64) {
	v.words[b/wordBits] |= 1 << (b % wordBits)
}

// Clear clears the bit for bin b.
func (v Vector) Clear(b uint64) {
	v.words[b/wordBits] &^= 1 << (b % wordBits)
}

// Get reports whether the bit for bin b is set.
func (v Vector) Get(b uint64) bool {
	return v.words[b/wordBits]&(1<<(b%wordBits)) != 0
}

// ClearAll zeroes every word.
func (v Vector) ClearAll() {
	for i := range v.words {
		v.words[i] = 0
	}
}

// And ANDs src into v in place (v &= src); used to intersect the k rows
// selected by a containment query. Both vectors must have equal BinCount.
func (v Vector) And(src Vector) {
	for i, w := range src.words {
		v.words[i] &= w
	}
}

// AndInto stores dst = a & b, all three vectors of equal BinCount. dst is
// expected to be zero- or a-content already per the caller's contract; here
// it is simply overwritten.
func AndInto(dst, a, b Vector) {
	for i := range a.words {
		dst.words[i] = a.words[i] & b.words[i]
	}
}

// SetAll sets every bit in v (used to seed a containment accumulator with
// "all bins present" before ANDing in per-hash rows).
func (v Vector) SetAll() {
	for i := range v.words {
		v.words[i] = ^uint64(0)
	}
}

// PopCount returns the total number of set bits across every word of the
// vector. It is not clamped to BinCount, so callers must not set padding
// bits.
func (v Vector) PopCount() int {
	n := 0
	for _, w := range v.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// ForEachSet calls fn for every bin index whose bit is set, in ascending
// order.
func (v Vector) ForEachSet(fn func(bin uint64)) {
	for wi, w := range v.words {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			fn(uint64(wi)*wordBits + uint64(tz))
			w &= w - 1
		}
	}
}

// Clone returns an independent copy of v.
func (v Vector) Clone() Vector {
	cp := make([]uint64, len(v.words))
	copy(cp, v.words)
	return Vector{words: cp, binCount: v.binCount}
}

// Grow returns a new Vector with newBinCount bins (a multiple of 64, and
// >= v.BinCount), with the existing words copied into the low words and the
// rest zero-filled. It does not mutate v.
func (v Vector) Grow(newBinCount uint64) Vector {
	out := New(newBinCount)
	copy(out.words, v.words)
	return out
}
