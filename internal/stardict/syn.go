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
	"fmt"
	"io"
)

// Synonym is a single .syn record. Ordinal is the position of the original
// word in the .idx file.
type Synonym struct {
	Word    string
	Ordinal uint32
}

// SynScanner reads .syn records in file order.
type SynScanner struct {
	s   *bufio.Scanner
	syn Synonym
	err error
}

// NewSynScanner returns a scanner over r.
func NewSynScanner(r io.Reader) *SynScanner {
	s := &SynScanner{s: bufio.NewScanner(r)}
	s.s.Buffer(make([]byte, 0, 4096), 1<<20)
	s.s.Split(splitRecord(4))
	return s
}

// Scan advances to the next record.
func (s *SynScanner) Scan() bool {
	if s.err != nil || !s.s.Scan() {
		return false
	}
	b := s.s.Bytes()
	i := bytes.IndexByte(b, 0)
	if i < 0 || len(b) < i+5 {
		s.err = fmt.Errorf("%w: syn entry %q", ErrTruncated, b)
		return false
	}
	s.syn.Word = string(b[:i])
	s.syn.Ordinal = binary.BigEndian.Uint32(b[i+1:])
	return true
}

// Synonym returns the most recently scanned record.
func (s *SynScanner) Synonym() Synonym {
	return s.syn
}

// Err returns the first error encountered.
func (s *SynScanner) Err() error {
	if s.err != nil {
		return s.err
	}
	//nolint:wrapcheck // bufio errors are returned as-is.
	return s.s.Err()
}
