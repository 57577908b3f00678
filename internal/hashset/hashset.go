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

// Package hashset implements the open-addressed scratch hash set used by
// the HIBF builder to collect the hashes belonging to a single user bin.
// Capacity grows geometrically; keys are rehashed with a fast 64-bit hash
// to place them into buckets.
package hashset

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"
)

const (
	initialBuckets = 16
	maxLoadFactor  = 0.75
	tombstone      = ^uint64(0)
	empty          = ^uint64(0) - 1
)

// Set is an open-addressed set of uint64 values (H64 hashes). The zero
// value is not usable; construct with New.
type Set struct {
	buckets []uint64
	count   int
}

// New returns an empty Set.
func New() *Set {
	s := &Set{}
	s.buckets = newBuckets(initialBuckets)
	return s
}

func newBuckets(n int) []uint64 {
	b := make([]uint64, n)
	for i := range b {
		b[i] = empty
	}
	return b
}

// bucketIndex avalanches v through xxhash so that hashes which are already
// opaque 64-bit values but might share low bits (e.g. sequential k-mer
// encodings) still spread evenly across buckets.
func bucketIndex(v uint64, mod int) int {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return int(xxhash.Sum64(buf[:]) % uint64(mod))
}

// Add inserts v, reporting whether it was newly added.
func (s *Set) Add(v uint64) bool {
	if v == empty || v == tombstone {
		panic("hashset: reserved sentinel value cannot be stored")
	}
	if float64(s.count+1) > float64(len(s.buckets))*maxLoadFactor {
		s.grow()
	}
	i := bucketIndex(v, len(s.buckets))
	for {
		cur := s.buckets[i]
		if cur == v {
			return false
		}
		if cur == empty || cur == tombstone {
			s.buckets[i] = v
			s.count++
			return true
		}
		i = (i + 1) % len(s.buckets)
	}
}

// Has reports whether v is in the set.
func (s *Set) Has(v uint64) bool {
	i := bucketIndex(v, len(s.buckets))
	for {
		cur := s.buckets[i]
		if cur == empty {
			return false
		}
		if cur == v {
			return true
		}
		i = (i + 1) % len(s.buckets)
	}
}

// Len returns the number of distinct elements.
func (s *Set) Len() int { return s.count }

func (s *Set) grow() {
	old := s.buckets
	s.buckets = newBuckets(len(old) * 2)
	s.count = 0
	for _, v := range old {
		if v != empty && v != tombstone {
			s.Add(v)
		}
	}
}

// Sorted returns the set's elements in ascending order. The builder uses
// this to get a deterministic chunking order when splitting a user bin's
// hashes across several technical bins, so identical input always
// produces an identical filter regardless of insertion order.
func (s *Set) Sorted() []uint64 {
	out := make([]uint64, 0, s.count)
	for _, v := range s.buckets {
		if v != empty && v != tombstone {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Merge adds every element of other into s.
func (s *Set) Merge(other *Set) {
	for _, v := range other.buckets {
		if v != empty && v != tombstone {
			s.Add(v)
		}
	}
}
