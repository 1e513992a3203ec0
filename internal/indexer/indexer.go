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

// Package indexer builds and queries dictionary index artifacts.
//
// The registry treats an Indexer as opaque: it only asks whether an artifact
// exists, builds one, and opens it for lookups and resource fetches.
package indexer

import (
	"context"
	"errors"

	"github.com/ianlewis/sdcatalog/internal/stardict"
)

var (
	// ErrBuild indicates that an index artifact could not be built.
	ErrBuild = errors.New("building index")

	// ErrOpen indicates that an index artifact could not be opened.
	ErrOpen = errors.New("opening index")

	// ErrNotFoundInIndex indicates an unknown key or resource. Lookups with
	// no matching entry always fail with this error rather than returning an
	// empty result.
	ErrNotFoundInIndex = errors.New("not found in index")
)

// Entry is a matching headword and its article.
type Entry struct {
	Word string
	Data []*stardict.Data
}

// Info describes an open index.
type Info struct {
	BookName    string
	Author      string
	Description string
	WordCount   int64
	Source      string
}

// Indexer builds and opens index artifacts for source files.
type Indexer interface {
	// Exists reports whether an artifact has been built for source.
	Exists(source string) bool

	// Build builds or rebuilds the artifact for source.
	Build(ctx context.Context, source string) error

	// Open opens the artifact for source.
	Open(ctx context.Context, source string) (Index, error)
}

// Index is an open, queryable artifact.
type Index interface {
	// Info returns dictionary metadata.
	Info() Info

	// Lookup returns the entries matching key.
	Lookup(ctx context.Context, key string) ([]*Entry, error)

	// FetchResource returns the content of the named resource file.
	FetchResource(ctx context.Context, name string) ([]byte, error)

	// Close releases the index.
	Close() error
}
