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

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	metaConfigStart = "@HIBF_CONFIG"
	metaConfigEnd   = "@HIBF_CONFIG_END"
	headerPrefix    = "#"
	topLevelIBF     = "#TOP_LEVEL_IBF"
	lowerLevelIBF   = "#LOWER_LEVEL_IBF_"
	fullestBinKey   = "fullest_technical_bin_idx:"
	maxBinKey       = "max_bin_id:"
)

func joinUints(xs []uint64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.FormatUint(x, 10)
	}
	return strings.Join(parts, ";")
}

// Encode writes t to w in the textual layout format: an (optional,
// caller-supplied) "@HIBF_CONFIG" metadata block, followed
// by one "#TOP_LEVEL_IBF"/"#LOWER_LEVEL_IBF_<path>" header line per IBF in
// the tree, followed by one content row per user-bin record.
//
// configLines, if non-empty, is written verbatim between
// "@HIBF_CONFIG"/"@HIBF_CONFIG_END" markers; it lets callers round-trip
// the Config that produced the layout without this package needing to
// depend on the hibf package's Config type.
func Encode(w io.Writer, t *Tree, configLines []string) error {
	bw := bufio.NewWriter(w)

	if len(configLines) > 0 {
		fmt.Fprintln(bw, metaConfigStart)
		for _, l := range configLines {
			fmt.Fprintln(bw, "@"+l)
		}
		fmt.Fprintln(bw, metaConfigEnd)
	}

	t.Walk(func(n *Node, path []uint64) {
		if len(path) == 0 {
			fmt.Fprintf(bw, "%s %s%d\n", topLevelIBF, maxBinKey, n.MaxBinIndex)
		} else {
			fmt.Fprintf(bw, "%s%s %s%d\n", lowerLevelIBF, joinUints(path), fullestBinKey, n.MaxBinIndex)
		}
	})

	t.Walk(func(n *Node, path []uint64) {
		for _, rec := range n.RemainingRecords {
			tbIndices := append(append([]uint64(nil), path...), rec.StorageTBID)
			numTBs := make([]uint64, len(path)+1)
			for i := range path {
				numTBs[i] = 1
			}
			numTBs[len(path)] = rec.NumberOfTechnicalBins
			fmt.Fprintf(bw, "%d\t%s\t%s\n", rec.Idx, joinUints(tbIndices), joinUints(numTBs))
		}
	})

	return bw.Flush()
}

// Decode is the inverse of Encode: it parses the textual layout format
// back into a Tree (plus any metadata config lines found, stripped of
// their leading "@").
func Decode(r io.Reader) (*Tree, []string, error) {
	nodes := map[string]*Node{} // keyed by ";"-joined path ("" for root)
	var root *Node
	var configLines []string
	inConfig := false

	ensureNode := func(pathKey string) *Node {
		if n, ok := nodes[pathKey]; ok {
			return n
		}
		n := &Node{}
		nodes[pathKey] = n
		return n
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		switch {
		case line == metaConfigStart:
			inConfig = true
		case line == metaConfigEnd:
			inConfig = false
		case inConfig:
			configLines = append(configLines, strings.TrimPrefix(line, "@"))
		case strings.HasPrefix(line, topLevelIBF):
			id, err := parseKeyedUint(line, maxBinKey)
			if err != nil {
				return nil, nil, errors.Wrap(err, "layout: decode top-level header")
			}
			n := ensureNode("")
			n.MaxBinIndex = id
			root = n
		case strings.HasPrefix(line, lowerLevelIBF):
			rest := strings.TrimPrefix(line, lowerLevelIBF)
			sp := strings.IndexByte(rest, ' ')
			if sp < 0 {
				return nil, nil, errors.Errorf("layout: malformed lower-level header: %q", line)
			}
			pathStr := rest[:sp]
			id, err := parseKeyedUint(rest[sp+1:], fullestBinKey)
			if err != nil {
				return nil, nil, errors.Wrap(err, "layout: decode lower-level header")
			}
			path, err := parseUintList(pathStr)
			if err != nil {
				return nil, nil, errors.Wrap(err, "layout: decode lower-level path")
			}
			n := ensureNode(pathStr)
			n.MaxBinIndex = id
			attachChild(nodes, path, n)
		case strings.HasPrefix(line, headerPrefix):
			return nil, nil, errors.Errorf("layout: unrecognized header line: %q", line)
		default:
			if err := decodeContentRow(nodes, line); err != nil {
				return nil, nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "layout: scan")
	}
	if root == nil {
		root = ensureNode("")
	}
	finalizeFavouriteChildren(nodes)
	return &Tree{Root: root}, configLines, nil
}

// attachChild links the node identified by path's last element into its
// parent's Children, creating the parent if its header has not yet been
// seen (headers are not guaranteed to appear in parent-before-child
// order in a hand-edited file, though Encode always emits them that way).
func attachChild(nodes map[string]*Node, path []uint64, child *Node) {
	child.ParentBinIndex = path[len(path)-1]
	parentKey := joinUints(path[:len(path)-1])
	parent := nodes[parentKey]
	if parent == nil {
		parent = &Node{}
		nodes[parentKey] = parent
	}
	for _, existing := range parent.Children {
		if existing == child {
			return
		}
	}
	parent.Children = append(parent.Children, child)
}

// finalizeFavouriteChildren sets FavouriteChild on every node whose
// MaxBinIndex matches one of its children's ParentBinIndex, recovering the
// "is the max bin itself a merged bin" relationship that the textual
// format leaves implicit in the header/content-row structure.
func finalizeFavouriteChildren(nodes map[string]*Node) {
	for _, n := range nodes {
		for i, c := range n.Children {
			if c.ParentBinIndex == n.MaxBinIndex {
				idx := i
				n.FavouriteChild = &idx
				break
			}
		}
	}
}

func decodeContentRow(nodes map[string]*Node, line string) error {
	fields := strings.Split(line, "\t")
	if len(fields) != 3 {
		return errors.Errorf("layout: malformed content row: %q", line)
	}
	idx, err := strconv.Atoi(fields[0])
	if err != nil {
		return errors.Wrapf(err, "layout: user bin idx %q", fields[0])
	}
	tbIndices, err := parseUintList(fields[1])
	if err != nil {
		return errors.Wrapf(err, "layout: tb indices %q", fields[1])
	}
	numTBs, err := parseUintList(fields[2])
	if err != nil {
		return errors.Wrapf(err, "layout: number of technical bins %q", fields[2])
	}
	if len(tbIndices) == 0 || len(numTBs) == 0 {
		return errors.Errorf("layout: empty indices in content row: %q", line)
	}
	path := tbIndices[:len(tbIndices)-1]
	storageTB := tbIndices[len(tbIndices)-1]
	splitCount := numTBs[len(numTBs)-1]

	n := nodes[joinUints(path)]
	if n == nil {
		n = &Node{}
		nodes[joinUints(path)] = n
	}
	n.RemainingRecords = append(n.RemainingRecords, UserBinRecord{
		Idx:                   idx,
		PreviousTBIndices:     append([]uint64(nil), path...),
		StorageTBID:           storageTB,
		NumberOfTechnicalBins: splitCount,
	})
	return nil
}

func parseKeyedUint(s, key string) (uint64, error) {
	i := strings.Index(s, key)
	if i < 0 {
		return 0, errors.Errorf("missing key %q in %q", key, s)
	}
	return strconv.ParseUint(strings.TrimSpace(s[i+len(key):]), 10, 64)
}

func parseUintList(s string) ([]uint64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ";")
	out := make([]uint64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
