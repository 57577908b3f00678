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

// Package testutil provides deterministic synthetic hash streams for
// tests across the hibf module, grounded on z/rtutil_test.go's use of
// github.com/dgryski/go-farm to generate test keys without relying on
// math/rand (which would make failures harder to reproduce across runs).
package testutil

import (
	"encoding/binary"
	"fmt"

	"github.com/dgryski/go-farm"
)

// HashStream deterministically derives n H64 values from a string seed,
// by farm-hashing "seed#i" for i in [0,n).
func HashStream(seed string, n int) []uint64 {
	out := make([]uint64, n)
	for i := 0; i < n; i++ {
		out[i] = farm.Hash64([]byte(fmt.Sprintf("%s#%d", seed, i)))
	}
	return out
}

// HashRange deterministically derives hashes for the integers [lo, hi) by
// farm-hashing their little-endian encoding, used to build overlapping
// user-bin fixtures (e.g. "hashes 1..10" / "hashes 1..5") whose overlap
// structure is exact and easy to reason about.
func HashRange(lo, hi int) []uint64 {
	out := make([]uint64, 0, hi-lo)
	var buf [8]byte
	for i := lo; i < hi; i++ {
		binary.LittleEndian.PutUint64(buf[:], uint64(i))
		out = append(out, farm.Hash64(buf[:]))
	}
	return out
}
