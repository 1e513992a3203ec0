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

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ianlewis/sdcatalog/internal/identity"
	"github.com/ianlewis/sdcatalog/internal/lifecycle"
)

type fakeAdder struct {
	mu    sync.Mutex
	paths []string
	added chan string
}

func newFakeAdder() *fakeAdder {
	return &fakeAdder{added: make(chan string, 16)}
}

func (a *fakeAdder) Add(_ context.Context, path string, _ bool) (lifecycle.Result, error) {
	a.mu.Lock()
	a.paths = append(a.paths, path)
	a.mu.Unlock()
	a.added <- path
	return lifecycle.Result{ID: identity.Of(path), Path: path}, nil
}

func waitAdded(t *testing.T, a *fakeAdder) string {
	t.Helper()
	select {
	case p := <-a.added:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for add")
		return ""
	}
}

func startWatcher(t *testing.T, a *fakeAdder, roots ...string) *Watcher {
	t.Helper()
	w, err := New(a, Config{Roots: roots, Debounce: 50 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestWatcher_NewIfo(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := newFakeAdder()
	startWatcher(t, a, dir, filepath.Join(dir, "missing"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	p := filepath.Join(dir, "dict.ifo")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))

	require.Equal(t, p, waitAdded(t, a))
}

func TestWatcher_NewDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := newFakeAdder()
	startWatcher(t, a, dir)

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher a chance to watch the new directory.
	time.Sleep(20 * time.Millisecond)
	p := filepath.Join(sub, "dict.ifo")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))

	require.Equal(t, p, waitAdded(t, a))
}

func TestWatcher_Debounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := newFakeAdder()
	startWatcher(t, a, dir)

	p := filepath.Join(dir, "dict.ifo")
	for range 5 {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}
	require.Equal(t, p, waitAdded(t, a))

	select {
	case extra := <-a.added:
		t.Fatalf("unexpected second add: %s", extra)
	case <-time.After(200 * time.Millisecond):
	}
}
