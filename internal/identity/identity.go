// Copyright 2026 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package identity derives dictionary identifiers from source paths.
package identity

import (
	"crypto/sha1" //nolint:gosec // used as a stable identifier, not for security.
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
)

// ErrInvalid indicates a string that is not a well formed identifier.
var ErrInvalid = errors.New("invalid dictionary id")

// ID identifies a dictionary. It is the lowercase hex SHA-1 of the canonical
// source path.
type ID string

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// Canonical returns the absolute, cleaned form of path. If the working
// directory cannot be determined the cleaned path is returned.
func Canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Of returns the identifier of the dictionary at path.
func Of(path string) ID {
	sum := sha1.Sum([]byte(Canonical(path))) //nolint:gosec // see import.
	return ID(hex.EncodeToString(sum[:]))
}

// Parse validates s as an identifier.
func Parse(s string) (ID, error) {
	if len(s) != sha1.Size*2 {
		return "", fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	for _, c := range s {
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return "", fmt.Errorf("%w: %q", ErrInvalid, s)
		}
	}
	return ID(s), nil
}
