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

// Package watcher adds dictionaries that appear under watched directories.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ianlewis/sdcatalog/internal/ctxlog"
	"github.com/ianlewis/sdcatalog/internal/lifecycle"
	"github.com/ianlewis/sdcatalog/internal/stardict"
)

// DefaultDebounce is the default quiet period before new dictionaries are
// added. Companion files are usually copied after the .ifo file.
const DefaultDebounce = 2 * time.Second

// Adder registers a source file.
type Adder interface {
	Add(ctx context.Context, path string, rebuild bool) (lifecycle.Result, error)
}

// Config holds watcher configuration options.
type Config struct {
	// Roots are watched recursively. Missing roots are skipped.
	Roots []string

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
}

// Watcher watches directory trees for new .ifo files.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	adder     Adder
	roots     []string
	debounce  time.Duration

	mu      sync.Mutex
	pending map[string]struct{}

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a new Watcher.
func New(adder Adder, cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fsWatcher: fsw,
		adder:     adder,
		roots:     cfg.Roots,
		debounce:  debounce,
		pending:   map[string]struct{}{},
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching. Added dictionaries are registered with ctx.
func (w *Watcher) Start(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	for _, root := range w.roots {
		if _, err := os.Stat(root); err != nil {
			logger.Debug("not watching missing directory", "root", root)
			continue
		}
		if err := w.addTree(ctx, root); err != nil {
			return err
		}
		logger.Info("watching directory", "root", root)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
	return nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

// addTree watches dir and every directory beneath it.
func (w *Watcher) addTree(ctx context.Context, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			ctxlog.FromContext(ctx).Warn("walking directory", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return fmt.Errorf("watching directory %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.handle(ctx, event) {
				timer.Reset(w.debounce)
			}

		case <-timer.C:
			w.flush(ctx)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error", "error", err)

		case <-ctx.Done():
			timer.Stop()
			return

		case <-w.done:
			timer.Stop()
			return
		}
	}
}

// handle records relevant events and reports whether the debounce timer
// should be reset.
func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(ctx, event.Name); err != nil {
				ctxlog.FromContext(ctx).Warn("watching new directory", "path", event.Name, "error", err)
			}
			// Files copied in with the directory produce no events.
			_ = filepath.WalkDir(event.Name, func(path string, d fs.DirEntry, err error) error {
				if err == nil && !d.IsDir() && stardict.IsIfo(d.Name()) {
					w.markPending(path)
				}
				return nil
			})
			return true
		}
	}

	if stardict.IsIfo(event.Name) {
		w.markPending(event.Name)
		return true
	}

	// Writes to companion files delay pending additions in the same
	// directory.
	w.mu.Lock()
	defer w.mu.Unlock()
	dir := filepath.Dir(event.Name)
	for p := range w.pending {
		if filepath.Dir(p) == dir {
			return true
		}
	}
	return false
}

func (w *Watcher) markPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
}

// flush adds every pending dictionary.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = map[string]struct{}{}
	w.mu.Unlock()
	sort.Strings(paths)

	logger := ctxlog.FromContext(ctx)
	for _, p := range paths {
		res, err := w.adder.Add(ctx, p, false)
		switch {
		case err != nil:
			logger.Warn("adding watched dictionary", "path", p, "error", err)
		case !res.Skipped:
			logger.Info("added watched dictionary", "id", res.ID, "path", res.Path)
		}
	}
}
