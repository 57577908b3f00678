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

//go:build linux

package archive

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// OpenMmap reads and parses the archive at path via an mmap'd, read-only
// view of the file rather than a buffered copy, avoiding a full in-memory
// duplicate of what is typically the dominant allocation in the process:
// the packed IBF bit arrays.
func OpenMmap(path string) (*Forest, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "archive: opening %s", path)
	}
	defer fd.Close()

	fi, err := fd.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "archive: stat %s", path)
	}
	if fi.Size() == 0 {
		return nil, ErrTruncated
	}

	data, err := unix.Mmap(int(fd.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "archive: mmap %s", path)
	}
	defer unix.Munmap(data) //nolint:errcheck // best-effort unmap after the parse below has copied what it needs

	return Read(bytes.NewReader(data))
}
