// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stardict

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidOffsetBits indicates an offset width other than 32 or 64 bits.
var ErrInvalidOffsetBits = errors.New("invalid idxoffsetbits")

// ErrTruncated indicates that an index record ended prematurely.
var ErrTruncated = errors.New("truncated record")

// Word is a single .idx record.
type Word struct {
	Word   string
	Offset uint64
	Size   uint32
}

// IdxScanner reads .idx records in file order.
type IdxScanner struct {
	s          *bufio.Scanner
	offsetSize int
	word       Word
	err        error
}

// NewIdxScanner returns a scanner over r. offsetBits must be 32 or 64.
func NewIdxScanner(r io.Reader, offsetBits int) (*IdxScanner, error) {
	if offsetBits != 32 && offsetBits != 64 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOffsetBits, offsetBits)
	}
	s := &IdxScanner{
		s:          bufio.NewScanner(r),
		offsetSize: offsetBits / 8,
	}
	s.s.Buffer(make([]byte, 0, 4096), 1<<20)
	s.s.Split(splitRecord(s.offsetSize + 4))
	return s, nil
}

// Scan advances to the next record. It returns false at the end of the index
// or on error.
func (s *IdxScanner) Scan() bool {
	if s.err != nil || !s.s.Scan() {
		return false
	}
	b := s.s.Bytes()
	i := bytes.IndexByte(b, 0)
	if i < 0 || len(b) < i+1+s.offsetSize+4 {
		s.err = fmt.Errorf("%w: idx entry %q", ErrTruncated, b)
		return false
	}
	s.word.Word = string(b[:i])
	rest := b[i+1:]
	if s.offsetSize == 8 {
		s.word.Offset = binary.BigEndian.Uint64(rest)
	} else {
		s.word.Offset = uint64(binary.BigEndian.Uint32(rest))
	}
	s.word.Size = binary.BigEndian.Uint32(rest[s.offsetSize:])
	return true
}

// Word returns the most recently scanned record.
func (s *IdxScanner) Word() Word {
	return s.word
}

// Err returns the first error encountered.
func (s *IdxScanner) Err() error {
	if s.err != nil {
		return s.err
	}
	//nolint:wrapcheck // bufio errors are returned as-is.
	return s.s.Err()
}

// splitRecord splits NUL terminated strings followed by a fixed size trailer.
func splitRecord(trailer int) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.IndexByte(data, 0); i >= 0 {
			size := i + 1 + trailer
			if len(data) >= size {
				return size, data[:size], nil
			}
		}
		if atEOF {
			// Hand back the remainder so the caller can report it.
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}
