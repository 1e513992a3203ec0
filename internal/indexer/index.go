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

package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ianlewis/sdcatalog/internal/folding"
	"github.com/ianlewis/sdcatalog/internal/stardict"
)

// lookupQuery matches headwords and synonyms on the folded key and returns
// the headword record for each match in index order.
const lookupQuery = `
SELECT w.word, w.offset, w.size FROM words w
WHERE w.ord IN (
	SELECT ord FROM words WHERE folded = ?
	UNION
	SELECT ord FROM synonyms WHERE folded = ?
)
ORDER BY w.ord`

type stardictIndex struct {
	db     *sql.DB
	source string
	folder folding.Folder
	info   Info

	// mu guards reads from the .dict file.
	mu       sync.Mutex
	dictFile stardict.DictFile
	dict     *stardict.Dict
}

var _ Index = (*stardictIndex)(nil)

// Info implements Index.Info.
func (i *stardictIndex) Info() Info {
	return i.info
}

// Lookup implements Index.Lookup.
func (i *stardictIndex) Lookup(ctx context.Context, key string) ([]*Entry, error) {
	ctx, span := tracer.Start(ctx, "indexer.Lookup", trace.WithAttributes(
		attribute.String("source", i.source),
	))
	defer span.End()

	folded, err := folding.Key(i.folder, key)
	if err != nil {
		return nil, err
	}

	type match struct {
		word   string
		offset int64
		size   int64
	}
	rows, err := i.db.QueryContext(ctx, lookupQuery, folded, folded)
	if err != nil {
		return nil, fmt.Errorf("looking up %q: %w", key, err)
	}
	var matches []match
	for rows.Next() {
		var m match
		if err := rows.Scan(&m.word, &m.offset, &m.size); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("looking up %q: %w", key, err)
		}
		matches = append(matches, m)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("looking up %q: %w", key, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFoundInIndex, key)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	entries := make([]*Entry, 0, len(matches))
	for _, m := range matches {
		//nolint:gosec // offset and size were written from unsigned values.
		data, err := i.dict.Article(uint64(m.offset), uint32(m.size))
		if err != nil {
			return nil, fmt.Errorf("reading article for %q: %w", m.word, err)
		}
		entries = append(entries, &Entry{Word: m.word, Data: data})
	}
	return entries, nil
}

// FetchResource implements Index.FetchResource. Only files recorded at build
// time can be fetched.
func (i *stardictIndex) FetchResource(ctx context.Context, name string) ([]byte, error) {
	clean := path.Clean("/" + name)[1:]
	if clean == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotFoundInIndex, name)
	}

	var size int64
	err := i.db.QueryRowContext(ctx, `SELECT size FROM resources WHERE name = ?`, clean).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFoundInIndex, name)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", name, err)
	}

	b, err := os.ReadFile(stardict.ResourcePath(i.source, clean))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrNotFoundInIndex, name)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", name, err)
	}
	return b, nil
}

// Close implements Index.Close.
func (i *stardictIndex) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return errors.Join(i.dictFile.Close(), i.db.Close())
}
