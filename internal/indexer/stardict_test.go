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

package indexer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ianlewis/sdcatalog/internal/indexer"
	"github.com/ianlewis/sdcatalog/internal/stardict"
	"github.com/ianlewis/sdcatalog/internal/testutil"
)

var fixture = []testutil.Entry{
	{Word: "apple", Data: testutil.Text("a red fruit")},
	{Word: "Banana", Data: testutil.HTML("<b>yellow</b> fruit")},
	{Word: "cherry", Data: testutil.Text("a small fruit")},
	{Word: "ice cream", Data: testutil.Text("frozen dessert")},
}

func build(t *testing.T, entries []testutil.Entry, opts *testutil.DictOptions) (string, indexer.Index) {
	t.Helper()
	ctx := context.Background()
	if entries == nil {
		entries = fixture
	}
	src := testutil.WriteDict(t, t.TempDir(), "fruits", entries, opts)

	ix := indexer.NewStardict(nil)
	if ix.Exists(src) {
		t.Fatalf("Exists(%q) before Build: got true", src)
	}
	if err := ix.Build(ctx, src); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !ix.Exists(src) {
		t.Fatalf("Exists(%q) after Build: got false", src)
	}
	idx, err := ix.Open(ctx, src)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return src, idx
}

func TestStardict_Lookup(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		entries  []testutil.Entry
		opts     *testutil.DictOptions
		key      string
		expected []*indexer.Entry
		err      error
	}{
		"exact": {
			key: "apple",
			expected: []*indexer.Entry{
				{Word: "apple", Data: testutil.Text("a red fruit")},
			},
		},
		"case folded": {
			key: "BANANA",
			expected: []*indexer.Entry{
				{Word: "Banana", Data: testutil.HTML("<b>yellow</b> fruit")},
			},
		},
		"whitespace folded": {
			key: "  ice \t cream ",
			expected: []*indexer.Entry{
				{Word: "ice cream", Data: testutil.Text("frozen dessert")},
			},
		},
		"full width": {
			key: "ｃｈｅｒｒｙ",
			expected: []*indexer.Entry{
				{Word: "cherry", Data: testutil.Text("a small fruit")},
			},
		},
		"synonym": {
			opts: &testutil.DictOptions{
				Synonyms: map[string]string{"pomme": "apple"},
			},
			key: "Pomme",
			expected: []*indexer.Entry{
				{Word: "apple", Data: testutil.Text("a red fruit")},
			},
		},
		"64 bit dictzip": {
			opts: &testutil.DictOptions{
				OffsetBits: 64,
				DictZip:    true,
			},
			key: "cherry",
			expected: []*indexer.Entry{
				{Word: "cherry", Data: testutil.Text("a small fruit")},
			},
		},
		"sametypesequence": {
			entries: []testutil.Entry{
				{Word: "apple", Data: testutil.Text("a red fruit")},
				{Word: "cherry", Data: testutil.Text("a small fruit")},
			},
			opts: &testutil.DictOptions{
				SameTypeSequence: []stardict.DataType{stardict.UTFTextType},
			},
			key: "apple",
			expected: []*indexer.Entry{
				{Word: "apple", Data: testutil.Text("a red fruit")},
			},
		},
		"not found": {
			key: "durian",
			err: indexer.ErrNotFoundInIndex,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, idx := build(t, tc.entries, tc.opts)

			got, err := idx.Lookup(context.Background(), tc.key)
			if !errors.Is(err, tc.err) {
				t.Fatalf("Lookup(%q): unexpected error: %v, want %v", tc.key, err, tc.err)
			}
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("Lookup(%q) (-want, +got):\n%s", tc.key, diff)
			}
		})
	}
}

func TestStardict_LookupMultiple(t *testing.T) {
	t.Parallel()

	entries := []testutil.Entry{
		{Word: "lead", Data: testutil.Text("a metal")},
		{Word: "Lead", Data: testutil.Text("to guide")},
		{Word: "leaf", Data: testutil.Text("part of a plant")},
	}
	_, idx := build(t, entries, &testutil.DictOptions{
		Synonyms: map[string]string{"LEAD": "leaf"},
	})

	got, err := idx.Lookup(context.Background(), "lead")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	var words []string
	for _, e := range got {
		words = append(words, e.Word)
	}
	want := []string{"lead", "Lead", "leaf"}
	if diff := cmp.Diff(want, words); diff != "" {
		t.Errorf("Lookup words (-want, +got):\n%s", diff)
	}
}

func TestStardict_Info(t *testing.T) {
	t.Parallel()

	src, idx := build(t, nil, &testutil.DictOptions{BookName: "Fruit Dictionary"})
	want := indexer.Info{
		BookName:  "Fruit Dictionary",
		WordCount: int64(len(fixture)),
		Source:    src,
	}
	if diff := cmp.Diff(want, idx.Info()); diff != "" {
		t.Errorf("Info (-want, +got):\n%s", diff)
	}
}

func TestStardict_FetchResource(t *testing.T) {
	t.Parallel()

	src, idx := build(t, nil, &testutil.DictOptions{
		Resources: map[string][]byte{
			"style.css":     []byte("body {}"),
			"img/apple.png": []byte("PNG"),
		},
	})
	ctx := context.Background()

	testCases := map[string]struct {
		name     string
		expected []byte
		err      error
	}{
		"top level": {
			name:     "style.css",
			expected: []byte("body {}"),
		},
		"nested": {
			name:     "img/apple.png",
			expected: []byte("PNG"),
		},
		"dot segments": {
			name:     "img/../style.css",
			expected: []byte("body {}"),
		},
		"traversal": {
			name: "../fruits.ifo",
			err:  indexer.ErrNotFoundInIndex,
		},
		"missing": {
			name: "nope.css",
			err:  indexer.ErrNotFoundInIndex,
		},
		"empty": {
			name: "",
			err:  indexer.ErrNotFoundInIndex,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := idx.FetchResource(ctx, tc.name)
			if !errors.Is(err, tc.err) {
				t.Fatalf("FetchResource(%q): unexpected error: %v, want %v", tc.name, err, tc.err)
			}
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("FetchResource(%q) (-want, +got):\n%s", tc.name, diff)
			}
		})
	}

	// Files added after the build are not served.
	late := filepath.Join(filepath.Dir(src), stardict.ResourceDir, "late.css")
	if err := os.WriteFile(late, []byte("late"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.FetchResource(ctx, "late.css"); !errors.Is(err, indexer.ErrNotFoundInIndex) {
		t.Errorf("FetchResource(late.css): got %v, want %v", err, indexer.ErrNotFoundInIndex)
	}
}

func TestStardict_Rebuild(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	src := testutil.WriteDict(t, dir, "fruits", fixture, nil)
	ix := indexer.NewStardict(nil)
	if err := ix.Build(ctx, src); err != nil {
		t.Fatalf("Build: %v", err)
	}

	testutil.WriteDict(t, dir, "fruits", []testutil.Entry{
		{Word: "durian", Data: testutil.Text("a smelly fruit")},
	}, nil)
	if err := ix.Build(ctx, src); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	idx, err := ix.Open(ctx, src)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	if _, err := idx.Lookup(ctx, "durian"); err != nil {
		t.Errorf("Lookup(durian): %v", err)
	}
	if _, err := idx.Lookup(ctx, "apple"); !errors.Is(err, indexer.ErrNotFoundInIndex) {
		t.Errorf("Lookup(apple): got %v, want %v", err, indexer.ErrNotFoundInIndex)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestStardict_BuildErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ix := indexer.NewStardict(nil)

	t.Run("missing source", func(t *testing.T) {
		t.Parallel()
		src := filepath.Join(t.TempDir(), "none.ifo")
		if err := ix.Build(ctx, src); !errors.Is(err, indexer.ErrBuild) {
			t.Errorf("Build: got %v, want %v", err, indexer.ErrBuild)
		}
		if ix.Exists(src) {
			t.Errorf("Exists after failed build: got true")
		}
	})

	t.Run("missing idx", func(t *testing.T) {
		t.Parallel()
		src := testutil.WriteDict(t, t.TempDir(), "fruits", fixture, nil)
		if err := os.Remove(stardict.BaseName(src) + ".idx"); err != nil {
			t.Fatal(err)
		}
		if err := ix.Build(ctx, src); !errors.Is(err, indexer.ErrBuild) {
			t.Errorf("Build: got %v, want %v", err, indexer.ErrBuild)
		}
		if ix.Exists(src) {
			t.Errorf("Exists after failed build: got true")
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()
		src := testutil.WriteDict(t, t.TempDir(), "fruits", fixture, nil)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := ix.Build(cctx, src); !errors.Is(err, indexer.ErrBuild) {
			t.Errorf("Build: got %v, want %v", err, indexer.ErrBuild)
		}
		if ix.Exists(src) {
			t.Errorf("Exists after cancelled build: got true")
		}
	})

	t.Run("open without artifact", func(t *testing.T) {
		t.Parallel()
		src := testutil.WriteDict(t, t.TempDir(), "fruits", fixture, nil)
		if _, err := ix.Open(ctx, src); !errors.Is(err, indexer.ErrOpen) {
			t.Errorf("Open: got %v, want %v", err, indexer.ErrOpen)
		}
	})
}
