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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	// ErrInvalidType indicates an unknown article data type.
	ErrInvalidType = errors.New("invalid data type")

	// ErrInvalidArticle indicates article data that does not match its
	// declared layout.
	ErrInvalidArticle = errors.New("invalid article")
)

// DataType identifies the kind of a piece of article data. Lower case types
// are NUL terminated strings. Upper case types are binary blobs prefixed with
// a 32-bit big endian size.
type DataType byte

const (
	// UTFTextType is utf-8 text.
	UTFTextType = DataType('m')

	// LocaleTextType is text in a locale encoding.
	LocaleTextType = DataType('l')

	// PangoTextType is utf-8 text in the Pango markup format.
	PangoTextType = DataType('g')

	// PhoneticType is an English phonetic string.
	PhoneticType = DataType('t')

	// XDXFType is XDXF xml.
	XDXFType = DataType('x')

	// YinBiaoOrKataType is a Yin Biao or Kana phonetic string.
	YinBiaoOrKataType = DataType('y')

	// PowerWordType is KingSoft PowerWord xml.
	PowerWordType = DataType('k')

	// MediaWikiType is MediaWiki markup.
	MediaWikiType = DataType('w')

	// HTMLType is HTML.
	HTMLType = DataType('h')

	// WordNetType is WordNet data.
	WordNetType = DataType('n')

	// ResourceFileListType is a newline separated list of resource files.
	ResourceFileListType = DataType('r')

	// WavType is .wav sound data.
	WavType = DataType('W')

	// PictureType is image data.
	PictureType = DataType('P')

	// ExperimentalType is reserved for experimental features.
	ExperimentalType = DataType('X')
)

// Valid reports whether t is a known data type.
func (t DataType) Valid() bool {
	switch t {
	case UTFTextType,
		LocaleTextType,
		PangoTextType,
		PhoneticType,
		XDXFType,
		YinBiaoOrKataType,
		PowerWordType,
		MediaWikiType,
		HTMLType,
		WordNetType,
		ResourceFileListType,
		WavType,
		PictureType,
		ExperimentalType:
		return true
	default:
		return false
	}
}

// IsText reports whether t is a NUL terminated string type.
func (t DataType) IsText() bool {
	return 'a' <= t && t <= 'z'
}

// Data is one typed piece of an article.
type Data struct {
	Type DataType
	Data []byte
}

// Dict reads articles from .dict data.
type Dict struct {
	r                io.ReaderAt
	sametypesequence []DataType
}

// NewDict returns a Dict reading from r.
func NewDict(r io.ReaderAt, sametypesequence []DataType) (*Dict, error) {
	for _, t := range sametypesequence {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidType, t)
		}
	}
	return &Dict{
		r:                r,
		sametypesequence: sametypesequence,
	}, nil
}

// Article reads and decodes the article at the given offset and size.
func (d *Dict) Article(offset uint64, size uint32) ([]*Data, error) {
	if offset > math.MaxInt64 {
		return nil, fmt.Errorf("%w: offset %d too large", ErrInvalidArticle, offset)
	}
	b := make([]byte, size)
	//nolint:gosec // offset is bounds checked above.
	n, err := d.r.ReadAt(b, int64(offset))
	if n < len(b) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("reading article at %d: %w", offset, err)
	}

	if len(d.sametypesequence) > 0 {
		return decodeSequence(b, d.sametypesequence)
	}
	return decodeTagged(b)
}

// decodeTagged decodes article data where each piece carries its own type.
func decodeTagged(b []byte) ([]*Data, error) {
	var out []*Data
	for len(b) > 0 {
		t := DataType(b[0])
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidType, t)
		}
		var (
			data []byte
			err  error
		)
		data, b, err = cut(b[1:], t, false)
		if err != nil {
			return nil, err
		}
		out = append(out, &Data{Type: t, Data: data})
	}
	return out, nil
}

// decodeSequence decodes article data laid out by sametypesequence. The final
// piece carries neither a NUL terminator nor a size prefix.
func decodeSequence(b []byte, seq []DataType) ([]*Data, error) {
	out := make([]*Data, 0, len(seq))
	for i, t := range seq {
		var (
			data []byte
			err  error
		)
		data, b, err = cut(b, t, i == len(seq)-1)
		if err != nil {
			return nil, err
		}
		out = append(out, &Data{Type: t, Data: data})
	}
	return out, nil
}

func cut(b []byte, t DataType, last bool) ([]byte, []byte, error) {
	if last {
		// Some writers still terminate the final string.
		if t.IsText() {
			if i := bytes.IndexByte(b, 0); i >= 0 {
				return b[:i], nil, nil
			}
		}
		return b, nil, nil
	}

	if t.IsText() {
		i := bytes.IndexByte(b, 0)
		if i < 0 {
			// The terminator may be omitted at the very end of the article.
			return b, nil, nil
		}
		return b[:i], b[i+1:], nil
	}

	if len(b) < 4 {
		return nil, nil, fmt.Errorf("%w: missing size for %q", ErrInvalidArticle, t)
	}
	size := binary.BigEndian.Uint32(b)
	if uint64(size) > uint64(len(b)-4) {
		return nil, nil, fmt.Errorf("%w: %q size %d exceeds data", ErrInvalidArticle, t, size)
	}
	return b[4 : 4+size], b[4+size:], nil
}
