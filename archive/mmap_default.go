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

//go:build !linux

package archive

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
)

// OpenMmap reads and parses the archive at path. On non-linux platforms
// this package has no mmap syscall binding (golang.org/x/sys/unix's mmap
// wrapper here is linux-specific, following z/file_default.go's
// "+build !linux" fallback) so it reads the whole file into memory
// instead; behavior is identical, just without the mmap optimization.
func OpenMmap(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "archive: reading %s", path)
	}
	if len(data) == 0 {
		return nil, ErrTruncated
	}
	return Read(bytes.NewReader(data))
}
