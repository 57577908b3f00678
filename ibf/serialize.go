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

package ibf

import "github.com/seqanlib/hibf/bitvec"

// RowWords exposes row i's packed words for serialization (package
// archive's binary dump). i must be in [0, BitsPerBin()).
func (f *IBF) RowWords(i int) []uint64 { return f.rows[i].Words() }

// Capacity returns the allocated bin capacity per row (>= BinCount), the
// number of bins serialization must cover to round-trip exactly.
func (f *IBF) Capacity() uint64 { return f.capacity }

// FromRows reconstructs an IBF from previously serialized row words
// (RowWords), used by archive's reader. Each entry of rowsWords must have
// length bitvec.Words(capacity).
func FromRows(binCount, capacity, bitsPerBin, hashCount uint64, rowsWords [][]uint64) *IBF {
	rows := make([]bitvec.Vector, bitsPerBin)
	for i, words := range rowsWords {
		rows[i] = bitvec.FromWords(words, capacity)
	}
	return &IBF{
		rows:       rows,
		binCount:   binCount,
		capacity:   capacity,
		bitsPerBin: bitsPerBin,
		hashCount:  hashCount,
	}
}
