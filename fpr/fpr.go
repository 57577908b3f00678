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

// Package fpr precomputes the false-positive-rate correction factors used
// to size Bloom filter rows when a user bin's k-mer set is split across
// several technical bins, or relaxed for a merged (sub-IBF) bin. The
// formulas are closed-form (math.Log/math.Pow/math.Ceil); there is no
// general-purpose library for this kind of domain-specific correction.
package fpr

import "math"

// Table holds the precomputed split-correction factors f_h[s] for s in
// [1, maxSplit], for a fixed false-positive target and hash count.
type Table struct {
	factors []float64 // factors[s-1] == f_h[s]
	fpr     float64
	hashes  uint64
}

// NewTable precomputes f_h[s] for s in [1, maxSplit]:
//
//	f_h[1]   = 1.0
//	f_h[s]   = log(1 - fpr^(1/k)) / log(1 - (1 - (1-fpr)^(1/s))^(1/k))
//
// maxSplit is rounded up to the next multiple of 64 above the requested
// value, so the table still covers every split count a caller raising
// its technical-bin budget slightly might ask for.
func NewTable(fpr float64, hashCount uint64, maxSplit uint64) *Table {
	rounded := nextMultipleOf64Above(maxSplit)
	t := &Table{
		factors: make([]float64, rounded),
		fpr:     fpr,
		hashes:  hashCount,
	}
	denom := math.Log(1 - math.Pow(fpr, 1/float64(hashCount)))
	t.factors[0] = 1.0
	for s := uint64(2); s <= rounded; s++ {
		inner := 1 - math.Pow(1-math.Pow(1-fpr, 1/float64(s)), 1/float64(hashCount))
		t.factors[s-1] = denom / math.Log(inner)
	}
	return t
}

func nextMultipleOf64Above(n uint64) uint64 {
	if n == 0 {
		return 64
	}
	rounded := ((n + 63) / 64) * 64
	if rounded == n {
		rounded += 64
	}
	return rounded
}

// At returns f_h[s], the split correction for a user bin divided into s
// consecutive technical bins. s must be in [1, len(t.factors)].
func (t *Table) At(s uint64) float64 {
	return t.factors[s-1]
}

// Len reports how many split counts this table has precomputed factors
// for.
func (t *Table) Len() uint64 { return uint64(len(t.factors)) }

// RelaxedCorrection computes the relaxed-FPR correction c for a merged bin
// allowed false-positive rate relaxedFPR (>= baseFPR):
//
//	c = log(1 - baseFPR^(1/k)) / log(1 - relaxedFPR^(1/k))
//
// 0 < c <= 1.
func RelaxedCorrection(baseFPR, relaxedFPR float64, hashCount uint64) float64 {
	num := math.Log(1 - math.Pow(baseFPR, 1/float64(hashCount)))
	den := math.Log(1 - math.Pow(relaxedFPR, 1/float64(hashCount)))
	return num / den
}

// BinSizeInBits computes m_base = ceil(-n*k / log(1 - f^(1/k))), the
// number of bits a single Bloom filter row needs to hold n elements at
// hash count k and false-positive rate f.
func BinSizeInBits(n float64, hashCount uint64, falsePositiveRate float64) uint64 {
	if n <= 0 {
		return 1
	}
	denom := math.Log(1 - math.Pow(falsePositiveRate, 1/float64(hashCount)))
	bits := math.Ceil(-n * float64(hashCount) / denom)
	if bits < 1 {
		bits = 1
	}
	return uint64(bits)
}

// CorrectedSize returns ceil(BinSizeInBits(n,k,f) * correction), the final
// stored row size in bits for a bin with the given multiplicative
// correction factor (either a Table.At(s) split correction or a
// RelaxedCorrection for a merged bin).
func CorrectedSize(n float64, hashCount uint64, falsePositiveRate, correction float64) uint64 {
	base := float64(BinSizeInBits(n, hashCount, falsePositiveRate))
	return uint64(math.Ceil(base * correction))
}
