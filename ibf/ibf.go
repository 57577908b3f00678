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

// Package ibf implements the Interleaved Bloom Filter: a bit-packed Bloom
// filter shared across B technical bins, plus the agent types used to
// query it in bulk.
package ibf

import (
	"github.com/pkg/errors"

	"github.com/seqanlib/hibf/bitvec"
)

// IBF is a bit-packed Bloom filter holding B technical bins, m bits per
// bin row, and k hash functions. W has m rows (one bitvec.Vector per bit
// position), each row spanning B bins.
type IBF struct {
	rows       []bitvec.Vector // len(rows) == m, each row has BinCount() == capacity
	binCount   uint64          // B: logical, addressable bin count
	capacity   uint64          // bins currently allocated per row (>= binCount)
	bitsPerBin uint64          // m
	hashCount  uint64          // k
	generation uint64          // bumped on every mutation; agents capture it to detect staleness
}

// New allocates an IBF with binCount technical bins (rounded up to a
// multiple of 64), bitsPerBin bits per row, and hashCount hash functions.
func New(binCount, bitsPerBin, hashCount uint64) *IBF {
	return NewWithCapacity(binCount, binCount, bitsPerBin, hashCount)
}

// NewWithCapacity is like New but reserves capacity bins per row up front
// (capacity is also rounded up to a multiple of 64, and forced to be >=
// binCount), allowing TryIncreaseBinNumberTo to grow in place without
// reallocating until the reserved capacity is exhausted.
func NewWithCapacity(binCount, capacity, bitsPerBin, hashCount uint64) *IBF {
	b := bitvec.NextMultipleOf64(binCount)
	cap := bitvec.NextMultipleOf64(capacity)
	if cap < b {
		cap = b
	}
	rows := make([]bitvec.Vector, bitsPerBin)
	for i := range rows {
		rows[i] = bitvec.New(cap)
	}
	return &IBF{
		rows:       rows,
		binCount:   b,
		capacity:   cap,
		bitsPerBin: bitsPerBin,
		hashCount:  hashCount,
	}
}

// BinCount returns B.
func (f *IBF) BinCount() uint64 { return f.binCount }

// BitsPerBin returns m.
func (f *IBF) BitsPerBin() uint64 { return f.bitsPerBin }

// HashCount returns k.
func (f *IBF) HashCount() uint64 { return f.hashCount }

func (f *IBF) checkBin(b uint64) {
	if b >= f.binCount {
		panic(errors.Errorf("ibf: bin index %d out of range [0,%d)", b, f.binCount))
	}
}

// Emplace inserts hash h into technical bin b, setting k bits. Emplacement
// is commutative: the order repeated Emplace calls (on distinct or equal
// inputs) happen in never affects the resulting bit pattern.
func (f *IBF) Emplace(h uint64, b uint64) {
	f.checkBin(b)
	for i := uint64(0); i < f.hashCount; i++ {
		row := hashAt(h, int(i)) % f.bitsPerBin
		f.rows[row].Set(b)
	}
	f.generation++
}

// Clear zeros the bit for bin b across every row.
func (f *IBF) Clear(b uint64) {
	f.checkBin(b)
	for i := range f.rows {
		f.rows[i].Clear(b)
	}
	f.generation++
}

// ClearBins zeros the bits for every bin index in bs across every row.
func (f *IBF) ClearBins(bs []uint64) {
	for _, b := range bs {
		f.checkBin(b)
	}
	for i := range f.rows {
		for _, b := range bs {
			f.rows[i].Clear(b)
		}
	}
	f.generation++
}

// growTo grows the IBF to have at least newB bins. It returns true if the
// row storage was reallocated (as opposed to simply raising binCount
// within existing capacity). Callers must not call growTo with
// newB <= f.binCount.
func (f *IBF) growTo(newB uint64) bool {
	newB = bitvec.NextMultipleOf64(newB)
	f.generation++
	if newB <= f.capacity {
		f.binCount = newB
		return false
	}
	for i := range f.rows {
		f.rows[i] = f.rows[i].Grow(newB)
	}
	f.capacity = newB
	f.binCount = newB
	return true
}

// TryIncreaseBinNumberTo grows B to newB (rounded up to a multiple of 64)
// without reallocating if possible.
//
//   - newB < current B: no change; returns false.
//   - newB == current B: no change; returns true.
//   - newB > current B and fits within reserved capacity: B updated in
//     place, existing bits preserved and valid; returns true.
//   - newB > current capacity: row storage is reallocated, existing words
//     copied into the low part of each row and zero-filled beyond;
//     returns false.
//
// Any outstanding agents are invalidated by a call to this method,
// regardless of which branch is taken.
func (f *IBF) TryIncreaseBinNumberTo(newB uint64) bool {
	newB = bitvec.NextMultipleOf64(newB)
	switch {
	case newB < f.binCount:
		return false
	case newB == f.binCount:
		return true
	default:
		return !f.growTo(newB)
	}
}

// IncreaseBinNumberTo grows B to at least newB, reallocating if necessary.
// It is a no-op if newB <= current B.
func (f *IBF) IncreaseBinNumberTo(newB uint64) {
	newB = bitvec.NextMultipleOf64(newB)
	if newB <= f.binCount {
		return
	}
	f.growTo(newB)
}

// Generation returns the current mutation generation, used by agents to
// detect staleness.
func (f *IBF) Generation() uint64 { return f.generation }
