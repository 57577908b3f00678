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

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/seqanlib/hibf/bitvec"
)

// ErrStaleAgent is the panic value raised when an agent method is called
// after its underlying filter has mutated. Agents expose Stale() so a
// caller can check freshness itself; methods that read through the agent
// panic with this error if called on a stale one instead of silently
// returning results for a filter state that no longer exists.
var ErrStaleAgent = errors.New("ibf: agent is stale; the filter was mutated since acquisition, re-acquire a new agent")

// ContainmentAgent holds scratch storage for repeated bulk_contains
// queries against a single IBF. It becomes stale (and must be
// re-acquired) after any mutating call on the filter.
type ContainmentAgent struct {
	filter     *IBF
	scratch    bitvec.Vector
	generation uint64
}

// ContainmentAgent acquires a fresh containment agent for f.
func (f *IBF) ContainmentAgent() *ContainmentAgent {
	return &ContainmentAgent{
		filter:     f,
		scratch:    bitvec.New(f.capacity),
		generation: f.generation,
	}
}

// Stale reports whether f has mutated since this agent was acquired.
func (a *ContainmentAgent) Stale() bool { return a.generation != a.filter.generation }

func (a *ContainmentAgent) checkFresh() {
	if a.Stale() {
		panic(ErrStaleAgent)
	}
}

// BulkContains returns a bit vector over the filter's allocated capacity
// (>= B bins) where bit b indicates h is probably present in bin b: the AND
// of the k hashed rows selected by h.
// The returned Vector aliases the agent's scratch storage and is only
// valid until the next call on this agent.
func (a *ContainmentAgent) BulkContains(h uint64) bitvec.Vector {
	a.checkFresh()
	a.scratch.SetAll()
	for i := uint64(0); i < a.filter.hashCount; i++ {
		row := hashAt(h, int(i)) % a.filter.bitsPerBin
		a.scratch.And(a.filter.rows[row])
	}
	return a.scratch
}

// CountingAgent holds scratch storage for bulk_count queries: it
// accumulates, for a batch of hashes, how many of them are probably
// present in each bin.
type CountingAgent[T bitvec.Counter] struct {
	containment *ContainmentAgent
	counts      bitvec.Counting[T]
}

// CountingAgentFor acquires a fresh counting agent for f with counters of
// width T.
func CountingAgentFor[T bitvec.Counter](f *IBF) *CountingAgent[T] {
	return &CountingAgent[T]{
		containment: f.ContainmentAgent(),
		counts:      bitvec.NewCounting[T](f.capacity),
	}
}

// Stale reports whether the underlying filter mutated since acquisition.
func (a *CountingAgent[T]) Stale() bool { return a.containment.Stale() }

// BulkCount resets the internal counting vector, accumulates every hash in
// hashes against it, and returns it. The returned Counting aliases the
// agent's scratch storage and is only valid until the next call on this
// agent.
func (a *CountingAgent[T]) BulkCount(hashes []uint64) bitvec.Counting[T] {
	a.containment.checkFresh()
	a.counts.Reset()
	for _, h := range hashes {
		a.counts.Add(a.containment.BulkContains(h))
	}
	return a.counts
}

// MembershipAgent combines a uint64 CountingAgent with a reusable result
// buffer to compute the sorted list of bin indices whose count of
// probably-present hashes reached a threshold.
type MembershipAgent struct {
	counting *CountingAgent[uint64]
	result   []uint64
}

// MembershipAgent acquires a fresh membership agent for f.
func (f *IBF) MembershipAgent() *MembershipAgent {
	return &MembershipAgent{counting: CountingAgentFor[uint64](f)}
}

// Stale reports whether the underlying filter mutated since acquisition.
func (a *MembershipAgent) Stale() bool { return a.counting.Stale() }

// MembershipFor returns the sorted (ascending) list of technical bin
// indices whose count of probably-present hashes from query is >=
// threshold. A threshold of 0 trivially returns every bin without
// scanning query; an empty query returns no bins for threshold >= 1, but
// (consistently) an empty query with threshold 0 still returns every bin,
// since it does not require any hash to actually be matched. The returned
// slice aliases the agent's scratch storage and is only valid until the
// next call on this agent.
func (a *MembershipAgent) MembershipFor(query []uint64, threshold uint64) []uint64 {
	a.counting.containment.checkFresh()
	a.result = a.result[:0]
	if threshold == 0 {
		for b := uint64(0); b < a.counting.containment.filter.binCount; b++ {
			a.result = append(a.result, b)
		}
		return a.result
	}
	counts := a.counting.BulkCount(query)
	counts.AtLeast(threshold, func(bin uint64) {
		a.result = append(a.result, bin)
	})
	a.sortResults()
	return a.result
}

// Counts returns the raw per-bin match count for query, with no threshold
// applied. Callers that need to aggregate counts across a range of bins
// (e.g. a split user bin's technical-bin range) before comparing to a
// threshold should use this instead of MembershipFor, which only ever
// compares a single bin's count against the threshold.
func (a *MembershipAgent) Counts(query []uint64) bitvec.Counting[uint64] {
	a.counting.containment.checkFresh()
	return a.counting.BulkCount(query)
}

// sortResults sorts the last result in place; MembershipFor already
// returns sorted output, this is kept available in case a caller mutates
// the buffer via successive partial accumulation strategies built on top
// of this agent.
func (a *MembershipAgent) sortResults() {
	sort.Slice(a.result, func(i, j int) bool { return a.result[i] < a.result[j] })
}

// SortResults re-sorts the most recent MembershipFor result in place and
// returns it.
func (a *MembershipAgent) SortResults() []uint64 {
	a.sortResults()
	return a.result
}
