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

package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ianlewis/sdcatalog/internal/identity"
	"github.com/ianlewis/sdcatalog/internal/sqlite"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := sqlite.OpenApp(context.Background(), filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(db)
}

func TestSQLStore_UpsertAndAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := Row{ID: identity.Of("/d/a.ifo"), Name: "a", Path: "/d/a.ifo", Active: true}
	b := Row{ID: identity.Of("/d/b.ifo"), Name: "b", Path: "/d/b.ifo", Active: true}
	require.NoError(t, s.Upsert(ctx, a))
	require.NoError(t, s.Upsert(ctx, b))

	// Upserting an existing id replaces the row in place.
	a.Active = false
	a.Name = "renamed"
	require.NoError(t, s.Upsert(ctx, a))

	rows, err := s.All(ctx)
	require.NoError(t, err)
	require.Equal(t, []Row{a, b}, rows)

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, a, got)
}

func TestSQLStore_DeleteByID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := Row{ID: identity.Of("/d/a.ifo"), Name: "a", Path: "/d/a.ifo", Active: true}
	require.NoError(t, s.Upsert(ctx, a))
	require.NoError(t, s.DeleteByID(ctx, a.ID))

	_, err := s.Get(ctx, a.ID)
	require.ErrorIs(t, err, ErrNotFound)

	rows, err := s.All(ctx)
	require.NoError(t, err)
	require.Empty(t, rows)

	// Deleting a missing row is not an error.
	require.NoError(t, s.DeleteByID(ctx, a.ID))
}

func TestSQLStore_ClosedDB(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.OpenApp(ctx, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	s := NewSQLStore(db)
	require.NoError(t, db.Close())

	err = s.Upsert(ctx, Row{ID: identity.Of("/d/a.ifo"), Name: "a", Path: "/d/a.ifo"})
	require.ErrorIs(t, err, ErrStore)

	_, err = s.All(ctx)
	require.ErrorIs(t, err, ErrStore)
}
