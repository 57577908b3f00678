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

// Rearrange permutes the indices [0,len(sizes)) so that user bins of
// similar estimated content (via MinHash Jaccard) become adjacent, while
// never letting a placement violate the size-locality window governed by
// maxRatio, which bounds how aggressively adjacent similarity may
// supersede size ordering.
//
// The algorithm is a greedy nearest-neighbor chain: start from the largest
// remaining user bin; repeatedly extend the chain with whichever
// remaining bin is most similar to the last-placed one among those whose
// size is still within maxRatio of it, falling back to the next-largest
// remaining bin when nothing qualifies. minhashes[i] and sizes[i] must
// describe the same user bin i.
func Rearrange(minhashes []*MinHash, sizes []uint64, maxRatio float64) []int {
	n := len(sizes)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return sizes[order[a]] > sizes[order[b]] })

	placed := make([]bool, n)
	result := make([]int, 0, n)

	// remaining is kept as a slice of not-yet-placed indices, always in
	// descending-size order (a subsequence of `order`), so the fallback
	// "next largest remaining" is O(1) and only the similarity scan is
	// linear in what's left.
	remaining := append([]int(nil), order...)

	popAt := func(pos int) int {
		v := remaining[pos]
		remaining = append(remaining[:pos], remaining[pos+1:]...)
		return v
	}

	cur := popAt(0)
	placed[cur] = true
	result = append(result, cur)

	for len(remaining) > 0 {
		curSize := sizes[cur]
		bestPos := -1
		bestScore := -1.0
		for pos, cand := range remaining {
			if curSize == 0 {
				break
			}
			ratio := float64(sizes[cand]) / float64(curSize)
			if ratio > 1 {
				ratio = 1 / ratio
			}
			if ratio < maxRatio {
				continue
			}
			score := EstimateJaccard(minhashes[cur], minhashes[cand])
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}
		if bestPos < 0 {
			bestPos = 0 // fallback: next-largest remaining bin
		}
		cur = popAt(bestPos)
		placed[cur] = true
		result = append(result, cur)
	}
	return result
}

// EstimateKmerCounts derives a per-user-bin count estimate from HLL
// sketches alone, for callers of the hierarchical DP that have not
// computed exact counts. Exact counts remain the default, preferred
// input; this is an alternative path.
func EstimateKmerCounts(hlls []*HLL) []uint64 {
	out := make([]uint64, len(hlls))
	for i, h := range hlls {
		est := h.Estimate()
		if est < 0 {
			est = 0
		}
		out[i] = uint64(est + 0.5)
	}
	return out
}
