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

// Package catalog is the durable table of registered dictionaries.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ianlewis/sdcatalog/internal/identity"
)

var (
	// ErrStore wraps every failure reading or writing the catalog.
	ErrStore = errors.New("catalog store")

	// ErrNotFound is returned by Get when no row has the id.
	ErrNotFound = errors.New("catalog row not found")
)

// Row is the durable projection of a registered dictionary.
type Row struct {
	ID     identity.ID
	Name   string
	Path   string
	Active bool
}

// Store persists catalog rows keyed by id.
type Store interface {
	// Upsert inserts the row or replaces the row with the same id.
	Upsert(ctx context.Context, row Row) error

	// DeleteByID removes the row with the given id. Deleting a missing row
	// is not an error.
	DeleteByID(ctx context.Context, id identity.ID) error

	// Get returns the row with the given id.
	Get(ctx context.Context, id identity.ID) (Row, error)

	// All returns every row in registration order.
	All(ctx context.Context) ([]Row, error)
}

// SQLStore is a Store backed by the dictionaries table.
type SQLStore struct {
	db *sql.DB
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore returns a Store using db. The dictionaries table must exist.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Upsert implements Store.Upsert.
func (s *SQLStore) Upsert(ctx context.Context, row Row) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dictionaries (id, name, path, active, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			path = excluded.path,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		string(row.ID), row.Name, row.Path, row.Active, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("%w: upserting %s: %w", ErrStore, row.ID, err)
	}
	return nil
}

// DeleteByID implements Store.DeleteByID.
func (s *SQLStore) DeleteByID(ctx context.Context, id identity.ID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM dictionaries WHERE id = ?`, string(id)); err != nil {
		return fmt.Errorf("%w: deleting %s: %w", ErrStore, id, err)
	}
	return nil
}

// Get implements Store.Get.
func (s *SQLStore) Get(ctx context.Context, id identity.ID) (Row, error) {
	row, err := scanRow(s.db.QueryRowContext(ctx,
		`SELECT id, name, path, active FROM dictionaries WHERE id = ?`, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Row{}, fmt.Errorf("%w: reading %s: %w", ErrStore, id, err)
	}
	return row, nil
}

// All implements Store.All.
func (s *SQLStore) All(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, path, active FROM dictionaries ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing: %w", ErrStore, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: listing: %w", ErrStore, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing: %w", ErrStore, err)
	}
	return out, nil
}

func scanRow(scanner interface{ Scan(...any) error }) (Row, error) {
	var (
		row Row
		id  string
	)
	if err := scanner.Scan(&id, &row.Name, &row.Path, &row.Active); err != nil {
		return Row{}, err
	}
	row.ID = identity.ID(id)
	return row, nil
}
