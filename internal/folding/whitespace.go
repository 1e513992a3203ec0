// Copyright 2025 Ian Lewis
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

package folding

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

type spaceState uint8

const (
	// beforeText skips leading whitespace.
	beforeText spaceState = iota

	// inText copies runes through.
	inText

	// inGap skips whitespace after text. A single space is owed if more
	// text follows.
	inGap
)

// Whitespace trims leading and trailing whitespace and collapses every
// internal whitespace run into a single ASCII space.
type Whitespace struct {
	state spaceState
}

// Transform implements [transform.Transformer.Transform]. Invalid UTF-8 is
// replaced with utf8.RuneError.
func (w *Whitespace) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		if !atEOF && !utf8.FullRune(src[nSrc:]) {
			return nDst, nSrc, transform.ErrShortSrc
		}
		r, size := utf8.DecodeRune(src[nSrc:])

		if unicode.IsSpace(r) {
			if w.state == inText {
				w.state = inGap
			}
			nSrc += size
			continue
		}

		n := utf8.RuneLen(r)
		if w.state == inGap {
			n++
		}
		if nDst+n > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		if w.state == inGap {
			dst[nDst] = ' '
			nDst++
		}
		nDst += utf8.EncodeRune(dst[nDst:], r)
		nSrc += size
		w.state = inText
	}
	return nDst, nSrc, nil
}

// Reset implements [transform.Transformer.Reset].
func (w *Whitespace) Reset() {
	w.state = beforeText
}
