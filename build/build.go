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

// Package build implements the HIBF builder: a bottom-up, parallel walk
// of a layout.Tree that materializes one ibf.IBF per tree node, emplacing
// each user bin's k-mers (split across technical bins when a record's
// NumberOfTechnicalBins > 1) and folding every child's k-mer set into its
// parent's merged-bin slot before that parent is sized and filled.
//
// Concurrency is goroutines + sync.WaitGroup + a buffered channel used as
// a counting semaphore for admission control, rather than a third-party
// worker-pool or errgroup package.
package build

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/seqanlib/hibf/fpr"
	"github.com/seqanlib/hibf/ibf"
	"github.com/seqanlib/hibf/internal/hashset"
	"github.com/seqanlib/hibf/internal/stats"
	"github.com/seqanlib/hibf/layout"
)

// InputFunc returns the k-mer hashes belonging to user bin idx. This is
// the external caller-supplied callback; the builder never reads sequence
// data itself.
type InputFunc func(idx int) []uint64

// Config controls how the builder sizes and fills IBFs.
type Config struct {
	// HashCount is k, the number of hash functions per IBF (must match the
	// value the layout's fpr.Table was built with).
	HashCount uint64
	// FalsePositiveRate is the target FPR for split/single user bins.
	FalsePositiveRate float64
	// RelaxedFalsePositiveRate is the target FPR for merged (sub-IBF) bins.
	RelaxedFalsePositiveRate float64
	// Threads bounds the number of tree nodes built concurrently. <=0
	// means unbounded (one goroutine per node).
	Threads int
	// Input supplies each user bin's k-mer hashes.
	Input InputFunc
}

// Result is the built forest: one ibf.IBF per layout.Tree node, indexed by
// a stable IBFIndex assigned in parallel via an atomic counter.
type Result struct {
	Tree *layout.Tree
	// IBFs maps an IBF index (assigned during Build, see NodeIndex) to its
	// filled filter.
	IBFs map[uint64]*ibf.IBF
	// NodeIndex maps a *layout.Node to the IBF index Build assigned it.
	NodeIndex map[*layout.Node]uint64
	// Timer accumulates total wall-clock time spent in the Input callback
	// across every goroutine.
	Timer stats.Timer
}

// Build materializes every IBF in t, bottom-up, in parallel, per cfg.
//
// Each node's merged-bin (Children) subtrees are built first, their
// resulting k-mer sets folded into the node's own scratch set for each
// corresponding technical bin, and only then is the node's own IBF sized
// (via fpr.BinSizeInBits/CorrectedSize) and filled. The first error from
// any goroutine is returned; partial results are discarded.
func Build(t *layout.Tree, cfg Config) (*Result, error) {
	if t == nil || t.Root == nil {
		return nil, errors.New("build: empty layout tree")
	}
	if cfg.Input == nil {
		return nil, errors.New("build: Config.Input is required")
	}

	b := &builder{
		cfg:     cfg,
		sem:     newSemaphore(cfg.Threads),
		result:  &Result{Tree: t, IBFs: make(map[uint64]*ibf.IBF), NodeIndex: make(map[*layout.Node]uint64)},
		counter: &stats.IBFCounter{},
	}
	var mu sync.Mutex
	kmers, err := b.buildNode(t.Root, &mu)
	if err != nil {
		return nil, err
	}
	_ = kmers // the root's folded set has no parent to feed; discarded
	return b.result, nil
}

type builder struct {
	cfg     Config
	sem     semaphore
	counter *stats.IBFCounter

	mu     sync.Mutex // guards merges into result.Timer
	result *Result
}

// buildNode builds n and everything beneath it, returning the sorted
// union of every k-mer hash stored anywhere in n's subtree (so the caller,
// n's parent, can fold it into the parent's merged-bin slot).
func (b *builder) buildNode(n *layout.Node, resultMu *sync.Mutex) ([]uint64, error) {
	childSets := make([][]uint64, len(n.Children))
	if len(n.Children) > 0 {
		var wg sync.WaitGroup
		var childErr error
		var childErrOnce sync.Once
		for i, child := range n.Children {
			i, child := i, child
			b.sem.acquire()
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer b.sem.release()
				folded, err := b.buildNode(child, resultMu)
				if err != nil {
					childErrOnce.Do(func() { childErr = err })
					return
				}
				childSets[i] = folded
			}()
		}
		wg.Wait()
		if childErr != nil {
			return nil, childErr
		}
	}

	scratch := make(map[uint64]*hashset.Set) // technical bin -> k-mers it stores

	getScratch := func(bin uint64) *hashset.Set {
		s, ok := scratch[bin]
		if !ok {
			s = hashset.New()
			scratch[bin] = s
		}
		return s
	}

	// Single/split user bins: pull k-mers from the external callback and
	// chunk deterministically across their technical bins, so identical
	// input always yields an identical IBF regardless of callback
	// iteration order. A panicking callback is recovered and reported as
	// an ordinary error, since the callback is external user code and
	// must not be able to crash the whole build.
	for _, rec := range n.RemainingRecords {
		timed, err := b.callInput(n, rec.Idx)
		if err != nil {
			return nil, err
		}
		if rec.NumberOfTechnicalBins == 1 {
			s := getScratch(rec.StorageTBID)
			for _, h := range timed {
				s.Add(h)
			}
			continue
		}
		chunks := chunk(timed, rec.NumberOfTechnicalBins)
		for c, hs := range chunks {
			s := getScratch(rec.StorageTBID + uint64(c))
			for _, h := range hs {
				s.Add(h)
			}
		}
	}

	// Merged (child) bins: fold each child's full k-mer union into its
	// assigned technical bin.
	for i, child := range n.Children {
		s := getScratch(child.ParentBinIndex)
		for _, h := range childSets[i] {
			s.Add(h)
		}
	}

	filter, err := b.fillFilter(n, scratch)
	if err != nil {
		return nil, err
	}

	idx := b.counter.Next()
	resultMu.Lock()
	b.result.IBFs[idx] = filter
	b.result.NodeIndex[n] = idx
	resultMu.Unlock()

	// Union every bin's k-mers for the parent fold (deduplicated, sorted).
	union := hashset.New()
	for _, s := range scratch {
		union.Merge(s)
	}
	return union.Sorted(), nil
}

// callInput invokes the external input callback for userBinIdx, timing it
// and recovering any panic into a plain error.
func (b *builder) callInput(n *layout.Node, userBinIdx int) (hashes []uint64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("build: input callback panicked for user bin %d: %v", userBinIdx, r)
		}
	}()
	t := b.Timer(n)
	t.Time(func() {
		hashes = b.cfg.Input(userBinIdx)
	})
	b.mu.Lock()
	b.result.Timer.Merge(t)
	b.mu.Unlock()
	return hashes, nil
}

// Timer returns a fresh timer for one callback invocation; callers don't
// share one so concurrent builds never contend on a single counter.
// callInput merges each timer into the shared Result.Timer once the
// callback has returned.
func (b *builder) Timer(n *layout.Node) *stats.Timer {
	return &stats.Timer{}
}

// fillFilter sizes and emplaces one IBF for n from its per-bin scratch
// k-mer sets.
func (b *builder) fillFilter(n *layout.Node, scratch map[uint64]*hashset.Set) (*ibf.IBF, error) {
	binCount := n.NumberOfTechnicalBins
	if binCount == 0 {
		binCount = 1
	}

	maxSize := uint64(0)
	for bin, s := range scratch {
		_ = bin
		if uint64(s.Len()) > maxSize {
			maxSize = uint64(s.Len())
		}
	}

	splitCorrection := fpr.NewTable(b.cfg.FalsePositiveRate, b.cfg.HashCount, binCount)
	relaxedCorrection := fpr.RelaxedCorrection(b.cfg.FalsePositiveRate, b.cfg.RelaxedFalsePositiveRate, b.cfg.HashCount)

	// The row width m is driven by the fullest bin (MaxBinIndex), sized
	// with whichever correction applies to that bin's kind.
	correction := splitCorrection.At(1)
	if n.MaxBinIsMerged() {
		correction = relaxedCorrection
	} else {
		for _, rec := range n.RemainingRecords {
			if rec.StorageTBID <= n.MaxBinIndex && n.MaxBinIndex < rec.StorageTBID+rec.NumberOfTechnicalBins {
				correction = splitCorrection.At(rec.NumberOfTechnicalBins)
				break
			}
		}
	}
	m := fpr.CorrectedSize(float64(maxSize), b.cfg.HashCount, b.cfg.FalsePositiveRate, correction)
	if m < 1 {
		m = 1
	}

	f := ibf.New(binCount, m, b.cfg.HashCount)
	for bin, s := range scratch {
		for _, h := range s.Sorted() {
			f.Emplace(h, bin)
		}
	}
	return f, nil
}

// chunk splits hashes into n nearly-equal, deterministically ordered
// pieces (sorted ascending first, so identical inputs always chunk
// identically regardless of callback iteration order).
func chunk(hashes []uint64, n uint64) [][]uint64 {
	sorted := append([]uint64(nil), hashes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	out := make([][]uint64, n)
	if len(sorted) == 0 {
		return out
	}
	base := uint64(len(sorted)) / n
	rem := uint64(len(sorted)) % n
	pos := uint64(0)
	for i := uint64(0); i < n; i++ {
		sz := base
		if i < rem {
			sz++
		}
		out[i] = sorted[pos : pos+sz]
		pos += sz
	}
	return out
}

// semaphore bounds concurrency via a buffered channel used for admission.
type semaphore chan struct{}

func newSemaphore(n int) semaphore {
	if n <= 0 {
		return nil
	}
	return make(semaphore, n)
}

func (s semaphore) acquire() {
	if s != nil {
		s <- struct{}{}
	}
}

func (s semaphore) release() {
	if s != nil {
		<-s
	}
}
