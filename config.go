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

package hibf

import "github.com/seqanlib/hibf/build"

// Config configures a full HIBF build (layout planning + IBF
// materialization). NewConfig applies defaults to any zero-valued field
// and validates the result eagerly before a build ever starts.
type Config struct {
	// NumberOfUserBins is U (required, must be > 0).
	NumberOfUserBins int
	// NumberOfHashFunctions is k. Default 2.
	NumberOfHashFunctions uint64
	// MaximumFalsePositiveRate is f, in (0,1). Default 0.05.
	MaximumFalsePositiveRate float64
	// RelaxedFalsePositiveRate is f' for merged bins, in [f,1). Default 0.3.
	RelaxedFalsePositiveRate float64
	// Threads bounds build concurrency. Default 1.
	Threads int
	// SketchBits is the HyperLogLog precision, in [5,16]. Default 12.
	SketchBits int
	// TMax is the per-IBF technical-bin cap; 0 means "auto-choose".
	// Default 0. A non-zero value is used as given: it is not rounded up to
	// a multiple of 64 (only the IBFs built from the layout round their
	// bin count up).
	TMax uint64
	// Alpha is the merge-penalty multiplier for the hierarchical DP.
	// Default 1.2.
	Alpha float64
	// MaxRearrangementRatio weighs similarity against size during
	// rearrangement. Default 0.5.
	MaxRearrangementRatio float64
	// DisableEstimateUnion skips union-based merge pricing.
	DisableEstimateUnion bool
	// DisableRearrangement skips the similarity permutation pass.
	DisableRearrangement bool
	// EmptyBinFraction is the share of technical bins reserved empty.
	// Default 0.0.
	EmptyBinFraction float64
	// Input supplies each user bin's k-mer hashes during Build.
	Input build.InputFunc
}

// NewConfig validates cfg and returns a copy with defaults applied to any
// field left at its zero value, or a ConfigInvalid *Error for the first
// violated constraint.
func NewConfig(cfg Config) (*Config, error) {
	out := cfg
	if out.NumberOfHashFunctions == 0 {
		out.NumberOfHashFunctions = 2
	}
	if out.MaximumFalsePositiveRate == 0 {
		out.MaximumFalsePositiveRate = 0.05
	}
	if out.RelaxedFalsePositiveRate == 0 {
		out.RelaxedFalsePositiveRate = 0.3
	}
	if out.Threads == 0 {
		out.Threads = 1
	}
	if out.SketchBits == 0 {
		out.SketchBits = 12
	}
	if out.Alpha == 0 {
		out.Alpha = 1.2
	}
	if out.MaxRearrangementRatio == 0 {
		out.MaxRearrangementRatio = 0.5
	}

	switch {
	case out.NumberOfUserBins <= 0:
		return nil, newError(ConfigInvalid, "number_of_user_bins must be greater than zero")
	case out.NumberOfHashFunctions == 0:
		return nil, newError(ConfigInvalid, "number_of_hash_functions must be greater than zero")
	case out.MaximumFalsePositiveRate <= 0 || out.MaximumFalsePositiveRate >= 1:
		return nil, newError(ConfigInvalid, "maximum_false_positive_rate must lie in (0,1)")
	case out.RelaxedFalsePositiveRate < out.MaximumFalsePositiveRate || out.RelaxedFalsePositiveRate >= 1:
		return nil, newError(ConfigInvalid, "relaxed_fpr must lie in [f,1)")
	case out.SketchBits < 5 || out.SketchBits > 16:
		return nil, newError(ConfigInvalid, "sketch_bits must lie in [5,16]")
	case out.TMax != 0 && out.TMax < 2 && out.NumberOfUserBins > 1:
		return nil, newError(ConfigInvalid, "tmax must be at least 2 when number_of_user_bins > 1")
	case out.Input == nil:
		return nil, newError(ConfigInvalid, "input callback is required")
	}
	return &out, nil
}
