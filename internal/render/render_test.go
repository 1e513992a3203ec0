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

package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ianlewis/sdcatalog/internal/indexer"
	"github.com/ianlewis/sdcatalog/internal/stardict"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		input    string
		expected Format
		err      error
	}{
		"empty": {input: "", expected: HTML},
		"html":  {input: "HTML", expected: HTML},
		"text":  {input: "text", expected: Text},
		"bad":   {input: "pdf", expected: HTML, err: ErrUnknownFormat},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseFormat(tc.input)
			if !errors.Is(err, tc.err) {
				t.Fatalf("ParseFormat(%q): unexpected error: %v", tc.input, err)
			}
			if got != tc.expected {
				t.Errorf("ParseFormat(%q): got %v, want %v", tc.input, got, tc.expected)
			}
		})
	}
}

func TestEntries_Text(t *testing.T) {
	t.Parallel()

	entries := []*indexer.Entry{
		{
			Word: "apple",
			Data: []*stardict.Data{
				{Type: stardict.PhoneticType, Data: []byte("ˈæpəl")},
				{Type: stardict.UTFTextType, Data: []byte("a red fruit\n")},
			},
		},
		{
			Word: "banana",
			Data: []*stardict.Data{
				{Type: stardict.HTMLType, Data: []byte("<b>yellow</b> fruit")},
				{Type: stardict.ResourceFileListType, Data: []byte("img:banana.png\n")},
				{Type: stardict.WavType, Data: []byte{0, 1, 2}},
			},
		},
	}

	var b strings.Builder
	if err := Entries(&b, entries, Options{Format: Text}); err != nil {
		t.Fatalf("Entries: %v", err)
	}

	want := "apple\n/ˈæpəl/\na red fruit\n\nbanana\nyellow fruit\n[banana.png]\n"
	if diff := cmp.Diff(want, b.String()); diff != "" {
		t.Errorf("Entries (-want, +got):\n%s", diff)
	}
}

func TestEntries_HTML(t *testing.T) {
	t.Parallel()

	entries := []*indexer.Entry{
		{
			Word: "<fish & chips>",
			Data: []*stardict.Data{
				{Type: stardict.UTFTextType, Data: []byte("line one\nline <two>")},
				{Type: stardict.HTMLType, Data: []byte("<i>raw</i>")},
				{Type: stardict.ResourceFileListType, Data: []byte("img:pic.png\nsnd:say.wav")},
			},
		},
	}

	var b strings.Builder
	if err := Entries(&b, entries, Options{ResourceBase: "/abc/"}); err != nil {
		t.Fatalf("Entries: %v", err)
	}
	got := b.String()

	for _, want := range []string{
		`<base href="/abc/">`,
		`<h2 class="word">&lt;fish &amp; chips&gt;</h2>`,
		`line one<br>line &lt;two&gt;`,
		`<div class="article"><i>raw</i></div>`,
		`<img src="pic.png">`,
		`<a href="say.wav">say.wav</a>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Entries: output missing %q:\n%s", want, got)
		}
	}
}

func TestFormat_ContentType(t *testing.T) {
	t.Parallel()

	if got, want := HTML.ContentType(), "text/html; charset=utf-8"; got != want {
		t.Errorf("HTML.ContentType: got %q, want %q", got, want)
	}
	if got, want := Text.ContentType(), "text/plain; charset=utf-8"; got != want {
		t.Errorf("Text.ContentType: got %q, want %q", got, want)
	}
}
