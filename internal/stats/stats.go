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

// Package stats implements small concurrency-safe shared counters used
// during a build: atomic tick accumulators that only ever add, and a
// monotonic IBF-index counter.
package stats

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Timer is a concurrent atomic accumulator of elapsed ticks (nanoseconds).
// Multiple goroutines may call Time/Add/Merge on independent Timer
// values concurrently; Merge is the only cross-goroutine operation and it
// only ever adds.
type Timer struct {
	ticks int64 // atomic; nanoseconds
}

// Time runs fn and adds its elapsed wall-clock duration to t.
func (t *Timer) Time(fn func()) {
	start := time.Now()
	fn()
	atomic.AddInt64(&t.ticks, int64(time.Since(start)))
}

// Add adds d directly, for callers that measured elapsed time themselves.
func (t *Timer) Add(d time.Duration) {
	atomic.AddInt64(&t.ticks, int64(d))
}

// Merge adds other's accumulated ticks into t. It never subtracts, so
// merging the same Timer twice double-counts by design — callers merge
// each child timer into a parent exactly once, at a task join point.
func (t *Timer) Merge(other *Timer) {
	atomic.AddInt64(&t.ticks, atomic.LoadInt64(&other.ticks))
}

// Elapsed returns the accumulated duration.
func (t *Timer) Elapsed() time.Duration {
	return time.Duration(atomic.LoadInt64(&t.ticks))
}

// String renders the elapsed time human-readably.
func (t *Timer) String() string {
	return fmt.Sprintf("%.3fs", t.Elapsed().Seconds())
}

// IBFCounter is a monotonic counter used to hand out stable IBF indices
// during a parallel build.
type IBFCounter struct {
	next int64 // atomic
}

// Next returns the next IBF index, starting at 0.
func (c *IBFCounter) Next() uint64 {
	return uint64(atomic.AddInt64(&c.next, 1) - 1)
}
