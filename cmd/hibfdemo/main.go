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

// Command hibfdemo builds a small HIBF from a handful of synthetic user
// bins (each a set of whitespace-split tokens hashed with blake2b) and
// runs a couple of membership queries against it, to exercise the
// Build -> Query path end to end. No flags, no configuration file, just a
// runnable illustration of the external input callback.
package main

import (
	"encoding/binary"
	"fmt"
	"log"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gtank/blake2/blake2b"

	"github.com/seqanlib/hibf"
)

// userBins is example input text, one user bin per entry, tokens
// separated by whitespace. A real caller would instead stream k-mers
// extracted from sequence data; that extraction is out of scope here.
var userBins = []string{
	"the quick brown fox jumps over the lazy dog",
	"the quick brown fox leaps over a sleepy hound",
	"completely unrelated text about oceanography and tides",
	"a third sentence sharing only the word the with the others",
}

// hashToken derives an H64 from a token via blake2b, truncating its
// 8-byte digest to a little-endian uint64.
func hashToken(token string) uint64 {
	d, err := blake2b.NewDigest(nil, nil, nil, 8)
	if err != nil {
		log.Fatalf("hibfdemo: constructing blake2b digest: %v", err)
	}
	if _, err := d.Write([]byte(token)); err != nil {
		log.Fatalf("hibfdemo: hashing token %q: %v", token, err)
	}
	return binary.LittleEndian.Uint64(d.Sum(nil))
}

func hashesFor(idx int) []uint64 {
	tokens := strings.Fields(userBins[idx])
	out := make([]uint64, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, hashToken(tok))
	}
	return out
}

func main() {
	counts := make([]uint64, len(userBins))
	for i := range userBins {
		counts[i] = uint64(len(strings.Fields(userBins[i])))
	}

	cfg, err := hibf.NewConfig(hibf.Config{
		NumberOfUserBins:      len(userBins),
		NumberOfHashFunctions: 2,
		Input:                 hashesFor,
	})
	if err != nil {
		log.Fatalf("hibfdemo: invalid configuration: %v", err)
	}

	index, err := hibf.Build(cfg, hibf.UserBinInput{Counts: counts})
	if err != nil {
		log.Fatalf("hibfdemo: build failed: %v", err)
	}

	fmt.Printf("built HIBF over %s user bins\n", humanize.Comma(int64(len(userBins))))

	query := []uint64{hashToken("the"), hashToken("quick"), hashToken("brown")}
	for _, threshold := range []uint64{1, 3} {
		hits := index.Query(query, threshold)
		fmt.Printf("query {the, quick, brown} threshold=%d -> user bins %v\n", threshold, hits)
	}
}
