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
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Magic is the first line of every .ifo file.
const Magic = "StarDict's dict ifo file"

var (
	// ErrInvalidIfo indicates that an .ifo file is malformed.
	ErrInvalidIfo = errors.New("invalid ifo")

	// ErrUnsupportedVersion indicates an .ifo version other than 2.4.2 or 3.0.0.
	ErrUnsupportedVersion = errors.New("unsupported version")
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Info is the validated metadata of a dictionary.
type Info struct {
	Version          string
	BookName         string
	WordCount        int64
	SynWordCount     int64
	IdxFileSize      int64
	IdxOffsetBits    int
	Author           string
	Email            string
	Website          string
	Description      string
	Date             string
	SameTypeSequence []DataType
}

// ParseIfo reads the key/value pairs of an .ifo file. The first line must be
// the magic string and the first key must be "version".
func ParseIfo(r io.Reader) (map[string]string, error) {
	s := bufio.NewScanner(r)
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidIfo, err)
		}
		return nil, fmt.Errorf("%w: empty file", ErrInvalidIfo)
	}
	if strings.TrimSuffix(s.Text(), "\r") != Magic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidIfo)
	}

	values := map[string]string{}
	first := true
	for s.Scan() {
		line := strings.TrimSuffix(s.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w: line %q", ErrInvalidIfo, line)
		}
		key = strings.TrimSpace(key)
		if !keyPattern.MatchString(key) {
			return nil, fmt.Errorf("%w: key %q", ErrInvalidIfo, key)
		}
		if first && key != "version" {
			return nil, fmt.Errorf("%w: missing version", ErrInvalidIfo)
		}
		first = false
		values[key] = strings.TrimSpace(value)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIfo, err)
	}
	if first {
		return nil, fmt.Errorf("%w: missing version", ErrInvalidIfo)
	}
	return values, nil
}

// ReadInfo reads and validates the .ifo file at path.
func ReadInfo(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	values, err := ParseIfo(f)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	return newInfo(values)
}

func newInfo(values map[string]string) (*Info, error) {
	info := &Info{
		Version:       values["version"],
		BookName:      values["bookname"],
		IdxOffsetBits: 32,
		Author:        values["author"],
		Email:         values["email"],
		Website:       values["website"],
		Description:   values["description"],
		Date:          values["date"],
	}

	switch info.Version {
	case "2.4.2", "3.0.0":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, info.Version)
	}

	if info.BookName == "" {
		return nil, fmt.Errorf("%w: missing bookname", ErrInvalidIfo)
	}

	var err error
	if info.WordCount, err = parseCount(values, "wordcount", true); err != nil {
		return nil, err
	}
	if info.IdxFileSize, err = parseCount(values, "idxfilesize", true); err != nil {
		return nil, err
	}
	if info.SynWordCount, err = parseCount(values, "synwordcount", false); err != nil {
		return nil, err
	}

	// idxoffsetbits is only honored for 3.0.0 dictionaries.
	if bits := values["idxoffsetbits"]; bits != "" && info.Version == "3.0.0" {
		switch bits {
		case "32":
		case "64":
			info.IdxOffsetBits = 64
		default:
			return nil, fmt.Errorf("%w: idxoffsetbits %q", ErrInvalidIfo, bits)
		}
	}

	for _, r := range values["sametypesequence"] {
		t := DataType(r)
		if !t.Valid() {
			return nil, fmt.Errorf("%w: sametypesequence type %q", ErrInvalidIfo, r)
		}
		info.SameTypeSequence = append(info.SameTypeSequence, t)
	}

	return info, nil
}

func parseCount(values map[string]string, key string, required bool) (int64, error) {
	v, ok := values[key]
	if !ok || v == "" {
		if required {
			return 0, fmt.Errorf("%w: missing %s", ErrInvalidIfo, key)
		}
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad %s %q", ErrInvalidIfo, key, v)
	}
	return n, nil
}
