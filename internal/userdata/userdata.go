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

// Package userdata stores user favorites and application settings.
package userdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a setting key does not exist.
var ErrNotFound = errors.New("no such key found")

// Favorite is a saved word. Words may be saved more than once.
type Favorite struct {
	ID   int64  `json:"id"`
	Word string `json:"word"`
}

// Favorites stores favorite words.
type Favorites struct {
	db *sql.DB
}

// NewFavorites returns a favorites store using db.
func NewFavorites(db *sql.DB) *Favorites {
	return &Favorites{db: db}
}

// List returns all favorites in insertion order.
func (f *Favorites) List(ctx context.Context) ([]Favorite, error) {
	rows, err := f.db.QueryContext(ctx, `SELECT id, word FROM favorites ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []Favorite{}
	for rows.Next() {
		var fav Favorite
		if err := rows.Scan(&fav.ID, &fav.Word); err != nil {
			return nil, fmt.Errorf("listing favorites: %w", err)
		}
		out = append(out, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	return out, nil
}

// Add saves each word, trimmed of surrounding whitespace. Empty words are
// ignored.
func (f *Favorites) Add(ctx context.Context, words ...string) error {
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("adding favorites: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO favorites (word, created_at) VALUES (?, ?)`, w, now); err != nil {
			return fmt.Errorf("adding favorite %q: %w", w, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("adding favorites: %w", err)
	}
	return nil
}

// Delete removes every favorite matching one of the words.
func (f *Favorites) Delete(ctx context.Context, words ...string) error {
	for _, w := range words {
		w = strings.TrimSpace(w)
		if _, err := f.db.ExecContext(ctx, `DELETE FROM favorites WHERE word = ?`, w); err != nil {
			return fmt.Errorf("deleting favorite %q: %w", w, err)
		}
	}
	return nil
}

// SplitWords splits a comma separated word list.
func SplitWords(s string) []string {
	var out []string
	for _, w := range strings.Split(s, ",") {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Settings stores string settings by key.
type Settings struct {
	db *sql.DB
}

// NewSettings returns a settings store using db.
func NewSettings(db *sql.DB) *Settings {
	return &Settings{db: db}
}

// Get returns the value of key.
func (s *Settings) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Settings) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
		return fmt.Errorf("writing setting %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Settings) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting setting %q: %w", key, err)
	}
	return nil
}
