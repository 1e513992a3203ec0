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

// Package sqlite opens the SQLite databases used by the service and applies
// their embedded schema migrations.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/ncruces/go-sqlite3/driver" // database/sql driver.
	_ "github.com/ncruces/go-sqlite3/embed"  // embedded SQLite build.
)

//go:embed migrations
var migrations embed.FS

const (
	appMigrations  = "migrations/app"
	userMigrations = "migrations/user"
)

// Open opens (creating if needed) the SQLite database at path. The parent
// directory is created with 0700 permissions.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	return open(ctx, path, "_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)")
}

// OpenScratch opens a database for a single bulk writer. Journaling and
// syncing are disabled so the file must be discarded if writing fails.
func OpenScratch(ctx context.Context, path string) (*sql.DB, error) {
	db, err := open(ctx, path, "_pragma=journal_mode(off)&_pragma=synchronous(off)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// OpenReadOnly opens an existing database for reading.
func OpenReadOnly(ctx context.Context, path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	return open(ctx, path, "mode=ro&_pragma=busy_timeout(5000)")
}

// uriEscaper escapes the characters that are special in SQLite URI file names.
var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

func open(ctx context.Context, path, params string) (*sql.DB, error) {
	dsn := "file:" + uriEscaper.Replace(filepath.ToSlash(path)) + "?" + params
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	return db, nil
}

// OpenApp opens the application database holding the dictionary catalog and
// settings.
func OpenApp(ctx context.Context, path string) (*sql.DB, error) {
	return openMigrated(ctx, path, appMigrations)
}

// OpenUser opens the user database holding favorites.
func OpenUser(ctx context.Context, path string) (*sql.DB, error) {
	return openMigrated(ctx, path, userMigrations)
}

func openMigrated(ctx context.Context, path, dir string) (*sql.DB, error) {
	db, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db, migrations, dir); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %q: %w", path, err)
	}
	return db, nil
}

// Migrate applies every up migration in dir of fsys that is newer than the
// version recorded in the schema_migrations table. A migration that fails
// leaves the database marked dirty and later calls fail with
// migrate.ErrDirty until it is repaired.
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS, dir string) error {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	// The migrate instance is not closed because closing it closes db.
	defer src.Close()

	drv, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		select {
		case m.GracefulStop <- true:
		default:
		}
	})
	defer stop()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return ctx.Err()
}
