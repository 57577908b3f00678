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

// Fixed odd mixing constants for the two independent linear hash functions
// hash_i(h) = h*A_i + C_i. They must never change between a build and the
// queries run against it, so they are compile-time constants rather than
// configuration: two IBFs built with different constants would
// be silently incompatible. Chosen odd (for a bijective multiply on the
// uint64 ring) and unrelated to each other so hash_0 and hash_1 are
// pairwise independent across realistic input distributions.
const (
	mixA0 uint64 = 0x9E3779B97F4A7C15
	mixC0 uint64 = 0xBF58476D1CE4E5B9
	mixA1 uint64 = 0xD6E8FEB86659FD93
	mixC1 uint64 = 0x94D049BB133111EB
)

// hash0 and hash1 are the two base mixing functions; additional hash
// functions (k > 2) are derived as hash0 + i*hash1.
func hash0(h uint64) uint64 { return h*mixA0 + mixC0 }
func hash1(h uint64) uint64 { return h*mixA1 + mixC1 }

// hashAt returns the i-th hash function's value for h, for i in [0, k).
func hashAt(h uint64, i int) uint64 {
	if i == 0 {
		return hash0(h)
	}
	if i == 1 {
		return hash1(h)
	}
	return hash0(h) + uint64(i)*hash1(h)
}
