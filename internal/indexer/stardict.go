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
	"math"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ianlewis/sdcatalog/internal/folding"
	"github.com/ianlewis/sdcatalog/internal/sqlite"
	"github.com/ianlewis/sdcatalog/internal/stardict"
)

// formatVersion is bumped whenever the artifact schema changes.
const formatVersion = "1"

// ArtifactExt is appended to the source base name to form the artifact path.
const ArtifactExt = ".db"

const artifactSchema = `
CREATE TABLE meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE words (
	ord INTEGER PRIMARY KEY,
	word TEXT NOT NULL,
	folded TEXT NOT NULL,
	offset INTEGER NOT NULL,
	size INTEGER NOT NULL
);
CREATE INDEX words_folded ON words(folded);
CREATE TABLE synonyms (
	word TEXT NOT NULL,
	folded TEXT NOT NULL,
	ord INTEGER NOT NULL
);
CREATE INDEX synonyms_folded ON synonyms(folded);
CREATE TABLE resources (
	name TEXT PRIMARY KEY,
	size INTEGER NOT NULL
);
`

var tracer = otel.Tracer("github.com/ianlewis/sdcatalog/internal/indexer")

// Stardict indexes Stardict dictionaries into SQLite artifacts stored next to
// the .ifo file.
type Stardict struct {
	folder folding.Folder
}

var _ Indexer = (*Stardict)(nil)

// NewStardict returns an Indexer folding keys with folder. A nil folder uses
// folding.Default.
func NewStardict(folder folding.Folder) *Stardict {
	if folder == nil {
		folder = folding.Default
	}
	return &Stardict{folder: folder}
}

// ArtifactPath returns the artifact path for source.
func ArtifactPath(source string) string {
	return stardict.BaseName(source) + ArtifactExt
}

// Exists implements Indexer.Exists.
func (s *Stardict) Exists(source string) bool {
	info, err := os.Stat(ArtifactPath(source))
	return err == nil && info.Mode().IsRegular()
}

// Build implements Indexer.Build. The artifact is written to a temporary
// file and renamed into place once complete.
func (s *Stardict) Build(ctx context.Context, source string) (err error) {
	ctx, span := tracer.Start(ctx, "indexer.Build", trace.WithAttributes(
		attribute.String("source", source),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	info, err := stardict.ReadInfo(source)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuild, err)
	}

	artifact := ArtifactPath(source)
	tmp := fmt.Sprintf("%s.%d.tmp", artifact, os.Getpid())
	_ = os.Remove(tmp)

	if err := s.write(ctx, tmp, source, info); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %q: %w", ErrBuild, source, err)
	}
	if err := os.Rename(tmp, artifact); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %q: %w", ErrBuild, source, err)
	}
	return nil
}

func (s *Stardict) write(ctx context.Context, path, source string, info *stardict.Info) error {
	db, err := sqlite.OpenScratch(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, artifactSchema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	if err := s.writeWords(ctx, tx, source, info); err != nil {
		return err
	}
	if err := s.writeSynonyms(ctx, tx, source); err != nil {
		return err
	}
	if err := writeResources(ctx, tx, source); err != nil {
		return err
	}

	var seq []byte
	for _, t := range info.SameTypeSequence {
		seq = append(seq, byte(t))
	}
	meta := map[string]string{
		"format":           formatVersion,
		"source":           source,
		"bookname":         info.BookName,
		"author":           info.Author,
		"description":      info.Description,
		"version":          info.Version,
		"wordcount":        strconv.FormatInt(info.WordCount, 10),
		"sametypesequence": string(seq),
		"built_at":         time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("writing meta %q: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return db.Close()
}

func (s *Stardict) writeWords(ctx context.Context, tx *sql.Tx, source string, info *stardict.Info) error {
	r, err := stardict.OpenIdx(source)
	if err != nil {
		return err
	}
	defer r.Close()

	scanner, err := stardict.NewIdxScanner(r, info.IdxOffsetBits)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO words (ord, word, folded, offset, size) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing words: %w", err)
	}
	defer stmt.Close()

	var ord int64
	for scanner.Scan() {
		if ord%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		w := scanner.Word()
		if w.Offset > math.MaxInt64 {
			return fmt.Errorf("word %q: offset %d too large", w.Word, w.Offset)
		}
		folded, err := folding.Key(s.folder, w.Word)
		if err != nil {
			return err
		}
		//nolint:gosec // offset is bounds checked above.
		if _, err := stmt.ExecContext(ctx, ord, w.Word, folded, int64(w.Offset), int64(w.Size)); err != nil {
			return fmt.Errorf("writing word %q: %w", w.Word, err)
		}
		ord++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading .idx: %w", err)
	}
	return nil
}

func (s *Stardict) writeSynonyms(ctx context.Context, tx *sql.Tx, source string) error {
	r, err := stardict.OpenSyn(source)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer r.Close()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO synonyms (word, folded, ord) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing synonyms: %w", err)
	}
	defer stmt.Close()

	scanner := stardict.NewSynScanner(r)
	for n := 0; scanner.Scan(); n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		syn := scanner.Synonym()
		folded, err := folding.Key(s.folder, syn.Word)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, syn.Word, folded, int64(syn.Ordinal)); err != nil {
			return fmt.Errorf("writing synonym %q: %w", syn.Word, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading .syn: %w", err)
	}
	return nil
}

func writeResources(ctx context.Context, tx *sql.Tx, source string) error {
	resources, err := stardict.Resources(source)
	if err != nil {
		return err
	}
	for _, res := range resources {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO resources (name, size) VALUES (?, ?)`, res.Name, res.Size); err != nil {
			return fmt.Errorf("writing resource %q: %w", res.Name, err)
		}
	}
	return nil
}

// Open implements Indexer.Open.
func (s *Stardict) Open(ctx context.Context, source string) (Index, error) {
	artifact := ArtifactPath(source)
	db, err := sqlite.OpenReadOnly(ctx, artifact)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}

	idx, err := s.open(ctx, db, source)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %q: %w", ErrOpen, artifact, err)
	}
	return idx, nil
}

func (s *Stardict) open(ctx context.Context, db *sql.DB, source string) (*stardictIndex, error) {
	meta, err := readMeta(ctx, db)
	if err != nil {
		return nil, err
	}
	if meta["format"] != formatVersion {
		return nil, fmt.Errorf("unsupported artifact format %q", meta["format"])
	}

	var seq []stardict.DataType
	for _, r := range meta["sametypesequence"] {
		seq = append(seq, stardict.DataType(r))
	}

	f, err := stardict.OpenDict(source)
	if err != nil {
		return nil, err
	}
	d, err := stardict.NewDict(f, seq)
	if err != nil {
		f.Close()
		return nil, err
	}

	wordcount, _ := strconv.ParseInt(meta["wordcount"], 10, 64)
	return &stardictIndex{
		db:       db,
		dictFile: f,
		dict:     d,
		source:   source,
		folder:   s.folder,
		info: Info{
			BookName:    meta["bookname"],
			Author:      meta["author"],
			Description: meta["description"],
			WordCount:   wordcount,
			Source:      source,
		},
	}, nil
}

func readMeta(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, fmt.Errorf("reading meta: %w", err)
	}
	defer func() { _ = rows.Close() }()

	meta := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("reading meta: %w", err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading meta: %w", err)
	}
	return meta, nil
}
