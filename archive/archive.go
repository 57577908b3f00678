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

// Package archive implements the persisted binary index format: a
// length-prefixed little-endian dump of a version tag, the textual layout
// encoding, and each IBF's parameters and packed bit arrays in the tree's
// preorder walk order. The mmap-backed read path lives in mmap_linux.go.
package archive

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/seqanlib/hibf/ibf"
	"github.com/seqanlib/hibf/layout"
)

// version is the archive format tag written at the start of every stream
// and checked on read.
const version uint32 = 1

// ErrVersionMismatch is returned by Read when the stream's version tag
// does not match the version this package writes.
var ErrVersionMismatch = errors.New("archive: version mismatch")

// ErrTruncated is returned by Read when the stream ends before a
// length-prefixed section is fully consumed.
var ErrTruncated = errors.New("archive: truncated stream")

// Forest is the in-memory shape archive.Write/Read serializes: a layout
// tree plus one IBF per node, keyed the same way build.Result keys them.
type Forest struct {
	Tree      *layout.Tree
	IBFs      map[uint64]*ibf.IBF
	NodeIndex map[*layout.Node]uint64
}

// Write serializes f to w: version tag, the textual layout encoding
// length-prefixed, then each IBF's parameters and packed row words in the
// tree's preorder walk order (so Read can re-pair them with the decoded
// tree deterministically, without needing node identities to survive the
// round trip).
func Write(w io.Writer, f *Forest) error {
	bw := bufio.NewWriter(w)

	if err := binary.Write(bw, binary.LittleEndian, version); err != nil {
		return errors.Wrap(err, "archive: writing version tag")
	}

	var layoutBuf bytes.Buffer
	if err := layout.Encode(&layoutBuf, f.Tree, nil); err != nil {
		return errors.Wrap(err, "archive: encoding layout")
	}
	if err := writeBytes(bw, layoutBuf.Bytes()); err != nil {
		return errors.Wrap(err, "archive: writing layout block")
	}

	var nodes []*layout.Node
	f.Tree.Walk(func(n *layout.Node, _ []uint64) { nodes = append(nodes, n) })

	if err := binary.Write(bw, binary.LittleEndian, uint64(len(nodes))); err != nil {
		return errors.Wrap(err, "archive: writing ibf count")
	}
	for _, n := range nodes {
		idx, ok := f.NodeIndex[n]
		if !ok {
			return errors.New("archive: node missing from NodeIndex")
		}
		filter, ok := f.IBFs[idx]
		if !ok {
			return errors.Errorf("archive: no IBF for index %d", idx)
		}
		if err := writeIBF(bw, filter); err != nil {
			return errors.Wrapf(err, "archive: writing ibf %d", idx)
		}
	}

	return bw.Flush()
}

func writeIBF(w io.Writer, f *ibf.IBF) error {
	header := [4]uint64{f.BinCount(), f.Capacity(), f.BitsPerBin(), f.HashCount()}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	wordsPerRow := (f.Capacity() + 63) / 64
	for i := uint64(0); i < f.BitsPerBin(); i++ {
		row := f.RowWords(int(i))
		if uint64(len(row)) != wordsPerRow {
			return errors.Errorf("archive: row %d has %d words, want %d", i, len(row), wordsPerRow)
		}
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			return err
		}
	}
	return nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// Read deserializes a Forest previously written by Write. The returned
// Forest's NodeIndex keys the same preorder-walk positions used by Write,
// over the freshly decoded Tree.
func Read(r io.Reader) (*Forest, error) {
	br := bufio.NewReader(r)

	var v uint32
	if err := binary.Read(br, binary.LittleEndian, &v); err != nil {
		return nil, wrapTruncated(err)
	}
	if v != version {
		return nil, ErrVersionMismatch
	}

	layoutBytes, err := readBytes(br)
	if err != nil {
		return nil, err
	}
	tree, _, err := layout.Decode(bytes.NewReader(layoutBytes))
	if err != nil {
		return nil, errors.Wrap(err, "archive: decoding layout")
	}

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, wrapTruncated(err)
	}

	var nodes []*layout.Node
	tree.Walk(func(n *layout.Node, _ []uint64) { nodes = append(nodes, n) })
	if uint64(len(nodes)) != count {
		return nil, errors.Errorf("archive: layout has %d nodes, stream has %d ibfs", len(nodes), count)
	}

	ibfs := make(map[uint64]*ibf.IBF, count)
	nodeIndex := make(map[*layout.Node]uint64, count)
	for i, n := range nodes {
		filter, err := readIBF(br)
		if err != nil {
			return nil, errors.Wrapf(err, "archive: reading ibf %d", i)
		}
		idx := uint64(i)
		ibfs[idx] = filter
		nodeIndex[n] = idx
	}

	return &Forest{Tree: tree, IBFs: ibfs, NodeIndex: nodeIndex}, nil
}

func readIBF(r io.Reader) (*ibf.IBF, error) {
	var header [4]uint64
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, wrapTruncated(err)
	}
	binCount, capacity, bitsPerBin, hashCount := header[0], header[1], header[2], header[3]
	wordsPerRow := (capacity + 63) / 64
	rows := make([][]uint64, bitsPerBin)
	for i := range rows {
		row := make([]uint64, wordsPerRow)
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return nil, wrapTruncated(err)
		}
		rows[i] = row
	}
	return ibf.FromRows(binCount, capacity, bitsPerBin, hashCount, rows), nil
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, wrapTruncated(err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, wrapTruncated(err)
	}
	return buf, nil
}

func wrapTruncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return errors.Wrap(err, "archive: reading stream")
}
