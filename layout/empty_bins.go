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

package layout

// ReservedEmptyBins returns how many of tmax technical bins should be
// reserved permanently empty given emptyBinFraction, rounded down.
func ReservedEmptyBins(tmax uint64, emptyBinFraction float64) uint64 {
	return uint64(float64(tmax) * emptyBinFraction)
}

// UsableBins returns tmax minus its reserved empty bins, i.e. the number
// of technical bins the DP is actually allowed to place user bins into.
// Reserved empty bins are clustered at the end of the bin range, so the
// DP only ever needs to know how many usable bins it has, not their
// positions.
func UsableBins(tmax uint64, emptyBinFraction float64) uint64 {
	return tmax - ReservedEmptyBins(tmax, emptyBinFraction)
}
