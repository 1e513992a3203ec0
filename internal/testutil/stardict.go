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

// Package testutil builds Stardict dictionary fixtures for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/ianlewis/go-dictzip"

	"github.com/ianlewis/sdcatalog/internal/stardict"
)

// Entry is a fixture headword and its article.
type Entry struct {
	Word string
	Data []*stardict.Data
}

// Text returns a single utf-8 text article.
func Text(s string) []*stardict.Data {
	return []*stardict.Data{{Type: stardict.UTFTextType, Data: []byte(s)}}
}

// HTML returns a single HTML article.
func HTML(s string) []*stardict.Data {
	return []*stardict.Data{{Type: stardict.HTMLType, Data: []byte(s)}}
}

// DictOptions control how a fixture dictionary is written.
type DictOptions struct {
	// BookName defaults to the file name.
	BookName string

	// OffsetBits is 32 or 64. Defaults to 32.
	OffsetBits int

	// DictZip compresses the .dict file with dictzip.
	DictZip bool

	// SameTypeSequence writes articles without per-piece type tags.
	SameTypeSequence []stardict.DataType

	// Synonyms maps a synonym to a headword in the fixture.
	Synonyms map[string]string

	// Resources maps slash separated names to file contents under res/.
	Resources map[string][]byte
}

// WriteDict writes name.ifo, name.idx, name.dict[.dz] and optional name.syn
// and res/ files into dir and returns the path of the .ifo file.
func WriteDict(t *testing.T, dir, name string, entries []Entry, opts *DictOptions) string {
	t.Helper()
	if opts == nil {
		opts = &DictOptions{}
	}
	bits := opts.OffsetBits
	if bits == 0 {
		bits = 32
	}
	bookname := opts.BookName
	if bookname == "" {
		bookname = name
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	// .idx entries must be sorted.
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Word) < strings.ToLower(sorted[j].Word)
	})

	var dictData []byte
	var words []stardict.Word
	ordinals := map[string]uint32{}
	for i, e := range sorted {
		article := MakeArticle(t, e.Data, opts.SameTypeSequence)
		if len(article) > math.MaxUint32 {
			t.Fatalf("article too long: %d", len(article))
		}
		words = append(words, stardict.Word{
			Word:   e.Word,
			Offset: uint64(len(dictData)),
			Size:   uint32(len(article)), //nolint:gosec // bounds checked above.
		})
		dictData = append(dictData, article...)
		ordinals[e.Word] = uint32(i) //nolint:gosec // test fixtures are small.
	}
	idxData := MakeIdx(t, words, bits)

	base := filepath.Join(dir, name)
	writeFile(t, base+".idx", idxData)

	if opts.DictZip {
		var buf bytes.Buffer
		z, err := dictzip.NewWriter(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := z.Write(dictData); err != nil {
			t.Fatal(err)
		}
		if err := z.Close(); err != nil {
			t.Fatal(err)
		}
		writeFile(t, base+".dict.dz", buf.Bytes())
	} else {
		writeFile(t, base+".dict", dictData)
	}

	var ifo strings.Builder
	fmt.Fprintln(&ifo, stardict.Magic)
	version := "2.4.2"
	if bits == 64 {
		version = "3.0.0"
	}
	fmt.Fprintf(&ifo, "version=%s\n", version)
	fmt.Fprintf(&ifo, "bookname=%s\n", bookname)
	fmt.Fprintf(&ifo, "wordcount=%d\n", len(words))
	fmt.Fprintf(&ifo, "idxfilesize=%d\n", len(idxData))
	if bits == 64 {
		fmt.Fprintln(&ifo, "idxoffsetbits=64")
	}
	if len(opts.SameTypeSequence) > 0 {
		var seq []byte
		for _, dt := range opts.SameTypeSequence {
			seq = append(seq, byte(dt))
		}
		fmt.Fprintf(&ifo, "sametypesequence=%s\n", seq)
	}

	if len(opts.Synonyms) > 0 {
		var syns []stardict.Synonym
		for syn, word := range opts.Synonyms {
			ord, ok := ordinals[word]
			if !ok {
				t.Fatalf("synonym %q refers to unknown word %q", syn, word)
			}
			syns = append(syns, stardict.Synonym{Word: syn, Ordinal: ord})
		}
		sort.Slice(syns, func(i, j int) bool { return syns[i].Word < syns[j].Word })
		writeFile(t, base+".syn", MakeSyn(syns))
		fmt.Fprintf(&ifo, "synwordcount=%d\n", len(syns))
	}

	for res, content := range opts.Resources {
		p := filepath.Join(dir, stardict.ResourceDir, filepath.FromSlash(res))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		writeFile(t, p, content)
	}

	writeFile(t, base+".ifo", []byte(ifo.String()))
	return base + ".ifo"
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatal(err)
	}
}

// MakeIdx encodes .idx records.
func MakeIdx(t *testing.T, words []stardict.Word, offsetBits int) []byte {
	t.Helper()
	var b []byte
	for _, w := range words {
		b = append(b, w.Word...)
		b = append(b, 0)
		switch offsetBits {
		case 32:
			if w.Offset > math.MaxUint32 {
				t.Fatalf("word offset too large: %d", w.Offset)
			}
			b = binary.BigEndian.AppendUint32(b, uint32(w.Offset)) //nolint:gosec // bounds checked above.
		case 64:
			b = binary.BigEndian.AppendUint64(b, w.Offset)
		default:
			t.Fatalf("unsupported offset bits: %d", offsetBits)
		}
		b = binary.BigEndian.AppendUint32(b, w.Size)
	}
	return b
}

// MakeSyn encodes .syn records.
func MakeSyn(syns []stardict.Synonym) []byte {
	var b []byte
	for _, s := range syns {
		b = append(b, s.Word...)
		b = append(b, 0)
		b = binary.BigEndian.AppendUint32(b, s.Ordinal)
	}
	return b
}

// MakeArticle encodes article data, either tagged or laid out by
// sametypesequence.
func MakeArticle(t *testing.T, data []*stardict.Data, seq []stardict.DataType) []byte {
	t.Helper()
	var b []byte
	for i, d := range data {
		last := i == len(data)-1
		if len(seq) == 0 {
			b = append(b, byte(d.Type))
		} else if seq[i] != d.Type {
			t.Fatalf("data %d has type %q, sequence wants %q", i, d.Type, seq[i])
		}
		switch {
		case len(seq) > 0 && last:
			b = append(b, d.Data...)
		case d.Type.IsText():
			b = append(b, d.Data...)
			b = append(b, 0)
		default:
			if len(d.Data) > math.MaxUint32 {
				t.Fatalf("data too long: %d", len(d.Data))
			}
			b = binary.BigEndian.AppendUint32(b, uint32(len(d.Data))) //nolint:gosec // bounds checked above.
			b = append(b, d.Data...)
		}
	}
	return b
}
