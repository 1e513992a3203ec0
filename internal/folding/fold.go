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

// Package folding implements the text folding applied to dictionary
// headwords and lookup keys so that visually equivalent strings match.
package folding

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

// Folder returns a fresh [transform.Transformer]. Transformers are stateful so
// a new one is needed for every string.
type Folder func() transform.Transformer

// Default folds case, narrows full-width and half-width forms, and folds
// whitespace.
func Default() transform.Transformer {
	return transform.Chain(cases.Fold(), width.Fold, &Whitespace{})
}

// Nop performs no folding.
func Nop() transform.Transformer {
	return transform.Nop
}

// Key folds s with the given folder. A nil folder uses Default.
func Key(f Folder, s string) (string, error) {
	if f == nil {
		f = Default
	}
	folded, _, err := transform.String(f(), s)
	if err != nil {
		return "", fmt.Errorf("folding %q: %w", s, err)
	}
	return folded, nil
}
