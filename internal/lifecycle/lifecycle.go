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

// Package lifecycle manages registered dictionaries. It discovers source
// files, builds and opens their indexes, keeps the in-memory registry and
// the durable catalog consistent, and dispatches lookups.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ianlewis/sdcatalog/internal/cache"
	"github.com/ianlewis/sdcatalog/internal/catalog"
	"github.com/ianlewis/sdcatalog/internal/ctxlog"
	"github.com/ianlewis/sdcatalog/internal/identity"
	"github.com/ianlewis/sdcatalog/internal/indexer"
	"github.com/ianlewis/sdcatalog/internal/registry"
	"github.com/ianlewis/sdcatalog/internal/stardict"
)

var (
	// ErrDictionaryNotFound indicates that no dictionary is registered with
	// the given id.
	ErrDictionaryNotFound = errors.New("dictionary not found")

	// ErrNotDictionary indicates that a path is not a dictionary source file.
	ErrNotDictionary = errors.New("not a dictionary source file")
)

// DefaultConcurrency is the default number of concurrent index builds.
const DefaultConcurrency = 4

var tracer = otel.Tracer("github.com/ianlewis/sdcatalog/internal/lifecycle")

// Result is the outcome of registering one source file.
type Result struct {
	ID   identity.ID
	Name string
	Path string

	// Skipped is set when the dictionary was already registered and no
	// rebuild was requested.
	Skipped bool

	// Err is set when registration failed.
	Err error
}

// Summary describes an active dictionary.
type Summary struct {
	ID   identity.ID `json:"id"`
	Name string      `json:"name"`
	Path string      `json:"path"`
}

// Options configure a Controller.
type Options struct {
	// Concurrency limits concurrent index builds during discovery. Defaults
	// to DefaultConcurrency.
	Concurrency int

	// BuildTimeout bounds a single index build. Zero means no limit.
	BuildTimeout time.Duration

	// Cache caches lookup results. A nil cache disables caching.
	Cache *cache.Cache[[]*indexer.Entry]
}

// Controller owns the lifecycle of registered dictionaries.
type Controller struct {
	reg     *registry.Registry
	store   catalog.Store
	indexer indexer.Indexer
	cache   *cache.Cache[[]*indexer.Entry]

	concurrency  int
	buildTimeout time.Duration

	locks keyedMutex
	gen   atomic.Uint64
}

// New returns a Controller using the given registry, catalog store and
// indexer.
func New(reg *registry.Registry, store catalog.Store, ix indexer.Indexer, opts Options) *Controller {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Controller{
		reg:          reg,
		store:        store,
		indexer:      ix,
		cache:        opts.Cache,
		concurrency:  opts.Concurrency,
		buildTimeout: opts.BuildTimeout,
	}
}

// Registry returns the registry managed by c.
func (c *Controller) Registry() *registry.Registry {
	return c.reg
}

// rowOf projects a handle onto its durable row.
func rowOf(h registry.Handle) catalog.Row {
	return catalog.Row{
		ID:     h.ID,
		Name:   h.Name,
		Path:   h.Path,
		Active: h.Active,
	}
}

func nameOf(path string) string {
	return filepath.Base(stardict.BaseName(path))
}

// Discover registers every source file under root. Already registered
// dictionaries are skipped unless rebuild is set. Failures for individual
// files are reported in the results and do not stop the batch. An error is
// returned only if root cannot be read.
func (c *Controller) Discover(ctx context.Context, root string, rebuild bool) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "lifecycle.Discover", trace.WithAttributes(
		attribute.String("root", root),
		attribute.Bool("rebuild", rebuild),
	))
	defer span.End()

	root = identity.Canonical(root)
	paths, errs := stardict.FindIfo(root)
	if paths == nil && len(errs) > 0 {
		return nil, fmt.Errorf("discovering %q: %w", root, errs[0])
	}

	results := make([]Result, len(paths))
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, p := range paths {
		g.Go(func() error {
			results[i] = c.register(ctx, p, rebuild)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		res := Result{Path: root, Err: fmt.Errorf("discovering %q: %w", root, err)}
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			res.Path = pathErr.Path
			if stardict.IsIfo(res.Path) {
				res.ID = identity.Of(res.Path)
			}
		}
		results = append(results, res)
	}

	logger := ctxlog.FromContext(ctx)
	var added, skipped, failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
		case r.Skipped:
			skipped++
		default:
			added++
		}
	}
	logger.Info("discovered dictionaries", "root", root, "added", added, "skipped", skipped, "failed", failed)
	return results, nil
}

// Add registers a single source file. Unlike Discover the returned error is
// also set when registration of the file fails.
func (c *Controller) Add(ctx context.Context, path string, rebuild bool) (Result, error) {
	ctx, span := tracer.Start(ctx, "lifecycle.Add", trace.WithAttributes(
		attribute.String("path", path),
		attribute.Bool("rebuild", rebuild),
	))
	defer span.End()

	path = identity.Canonical(path)
	if !stardict.IsIfo(path) {
		err := fmt.Errorf("adding %q: %w", path, ErrNotDictionary)
		return Result{Path: path, Err: err}, err
	}
	info, err := os.Stat(path)
	if err == nil && !info.Mode().IsRegular() {
		err = ErrNotDictionary
	}
	if err != nil {
		err = fmt.Errorf("adding %q: %w", path, err)
		return Result{Path: path, Err: err}, err
	}

	res := c.register(ctx, path, rebuild)
	return res, res.Err
}

// register builds, opens and commits a single source file. The catalog row is
// written before the registry so a failure leaves the registry unchanged.
func (c *Controller) register(ctx context.Context, path string, rebuild bool) Result {
	id := identity.Of(path)
	res := Result{ID: id, Name: nameOf(path), Path: path}
	logger := ctxlog.FromContext(ctx).With("id", id, "path", path)

	unlock := c.locks.Lock(id)
	defer unlock()

	if _, ok := c.reg.Get(id); ok && !rebuild {
		res.Skipped = true
		logger.Debug("dictionary already registered")
		return res
	}

	idx, err := c.openIndex(ctx, path, rebuild)
	if err != nil {
		res.Err = fmt.Errorf("registering %q: %w", path, err)
		logger.Warn("failed to index dictionary", "error", err)
		return res
	}

	h := registry.Handle{
		ID:     id,
		Name:   res.Name,
		Path:   path,
		Index:  idx,
		Gen:    c.gen.Add(1),
		Active: true,
	}
	if err := c.store.Upsert(ctx, rowOf(h)); err != nil {
		_ = idx.Close()
		res.Err = fmt.Errorf("registering %q: %w", path, err)
		logger.Warn("failed to save dictionary", "error", err)
		return res
	}

	if prev, replaced := c.reg.Put(h); replaced {
		c.cache.Purge(ctx, id)
		if err := prev.Index.Close(); err != nil {
			logger.Warn("closing replaced index", "error", err)
		}
	}
	logger.Info("registered dictionary", "name", res.Name)
	return res
}

// openIndex builds the index for path if needed and opens it.
func (c *Controller) openIndex(ctx context.Context, path string, rebuild bool) (indexer.Index, error) {
	if rebuild || !c.indexer.Exists(path) {
		bctx := ctx
		if c.buildTimeout > 0 {
			var cancel context.CancelFunc
			bctx, cancel = context.WithTimeout(ctx, c.buildTimeout)
			defer cancel()
		}
		start := time.Now()
		if err := c.indexer.Build(bctx, path); err != nil {
			return nil, err
		}
		ctxlog.FromContext(ctx).Info("built index", "path", path, "duration", time.Since(start))
	}
	return c.indexer.Open(ctx, path)
}

// Load registers every dictionary recorded in the catalog, building missing
// indexes. It is used at startup. Rows that fail to load are reported and
// skipped; the error is only set when the catalog cannot be read.
func (c *Controller) Load(ctx context.Context) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "lifecycle.Load")
	defer span.End()

	rows, err := c.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	results := make([]Result, len(rows))
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, row := range rows {
		g.Go(func() error {
			results[i] = c.load(ctx, row)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (c *Controller) load(ctx context.Context, row catalog.Row) Result {
	res := Result{ID: row.ID, Name: row.Name, Path: row.Path}
	logger := ctxlog.FromContext(ctx).With("id", row.ID, "path", row.Path)

	unlock := c.locks.Lock(row.ID)
	defer unlock()

	if _, ok := c.reg.Get(row.ID); ok {
		res.Skipped = true
		return res
	}
	if identity.Of(row.Path) != row.ID {
		res.Err = fmt.Errorf("loading %q: %w: id %s does not match path", row.Path, identity.ErrInvalid, row.ID)
		logger.Warn("skipping catalog row", "error", res.Err)
		return res
	}

	idx, err := c.openIndex(ctx, row.Path, false)
	if err != nil {
		res.Err = fmt.Errorf("loading %q: %w", row.Path, err)
		logger.Warn("failed to load dictionary", "error", err)
		return res
	}
	c.reg.Put(registry.Handle{
		ID:     row.ID,
		Name:   row.Name,
		Path:   row.Path,
		Index:  idx,
		Gen:    c.gen.Add(1),
		Active: row.Active,
	})
	logger.Debug("loaded dictionary", "name", row.Name, "active", row.Active)
	return res
}

// List returns the active dictionaries in registration order.
func (c *Controller) List() []Summary {
	handles := c.reg.ListActive()
	out := make([]Summary, 0, len(handles))
	for _, h := range handles {
		out = append(out, Summary{ID: h.ID, Name: h.Name, Path: h.Path})
	}
	return out
}

// Delete unregisters a dictionary and closes its index. The catalog row is
// removed last; a failure to remove it is logged and leaves a row that will
// be reloaded on the next start.
func (c *Controller) Delete(ctx context.Context, id identity.ID) error {
	unlock := c.locks.Lock(id)
	defer unlock()

	h, ok := c.reg.Remove(id)
	if !ok {
		return fmt.Errorf("deleting %s: %w", id, ErrDictionaryNotFound)
	}
	logger := ctxlog.FromContext(ctx).With("id", id, "path", h.Path)

	if err := h.Index.Close(); err != nil {
		logger.Warn("closing index", "error", err)
	}
	c.cache.Purge(ctx, id)

	if err := c.store.DeleteByID(ctx, id); err != nil {
		logger.Error("dictionary removed from registry but not from catalog", "error", err)
		return nil
	}
	logger.Info("deleted dictionary")
	return nil
}

// Activate marks a dictionary active.
func (c *Controller) Activate(ctx context.Context, id identity.ID) error {
	return c.setActive(ctx, id, true)
}

// Deactivate marks a dictionary inactive. Its index stays open and can still
// be queried.
func (c *Controller) Deactivate(ctx context.Context, id identity.ID) error {
	return c.setActive(ctx, id, false)
}

func (c *Controller) setActive(ctx context.Context, id identity.ID, active bool) error {
	unlock := c.locks.Lock(id)
	defer unlock()

	h, ok := c.reg.Get(id)
	if !ok {
		return fmt.Errorf("setting active=%t on %s: %w", active, id, ErrDictionaryNotFound)
	}
	h.Active = active
	if err := c.store.Upsert(ctx, rowOf(h)); err != nil {
		return fmt.Errorf("setting active=%t on %s: %w", active, id, err)
	}
	c.reg.SetActive(id, active)
	ctxlog.FromContext(ctx).Info("updated dictionary", "id", id, "active", active)
	return nil
}

// Get returns the handle for id regardless of its active state.
func (c *Controller) Get(id identity.ID) (registry.Handle, error) {
	h, ok := c.reg.Get(id)
	if !ok {
		return registry.Handle{}, fmt.Errorf("%s: %w", id, ErrDictionaryNotFound)
	}
	return h, nil
}

// Lookup looks up key in dictionary id. Inactive dictionaries can be queried.
func (c *Controller) Lookup(ctx context.Context, id identity.ID, key string) ([]*indexer.Entry, error) {
	return dispatch(c, id, func(h registry.Handle) ([]*indexer.Entry, error) {
		// Results are cached per index generation so a lookup that finishes
		// after its index was replaced cannot be served for the new one.
		ck := strconv.FormatUint(h.Gen, 10) + "\x00" + key
		return c.cache.ReadThrough(ctx, id, ck, func(ctx context.Context) ([]*indexer.Entry, error) {
			return h.Index.Lookup(ctx, key)
		})
	})
}

// FetchResource returns the named resource of dictionary id.
func (c *Controller) FetchResource(ctx context.Context, id identity.ID, name string) ([]byte, error) {
	return dispatch(c, id, func(h registry.Handle) ([]byte, error) {
		return h.Index.FetchResource(ctx, name)
	})
}

// maxDispatch bounds the retries of a call whose index was replaced while it
// ran.
const maxDispatch = 3

// dispatch calls fn with the current handle for id. If fn fails and the
// handle was removed or replaced meanwhile, its index may have been closed
// under it: a removed handle yields ErrDictionaryNotFound and a replaced one
// is retried with the replacement.
func dispatch[T any](c *Controller, id identity.ID, fn func(registry.Handle) (T, error)) (T, error) {
	var zero T
	h, err := c.Get(id)
	if err != nil {
		return zero, err
	}
	for i := 0; ; i++ {
		v, err := fn(h)
		if err == nil || errors.Is(err, indexer.ErrNotFoundInIndex) {
			return v, err
		}
		cur, ok := c.reg.Get(id)
		if !ok {
			return zero, fmt.Errorf("%s: %w", id, ErrDictionaryNotFound)
		}
		if cur.Gen == h.Gen || i+1 >= maxDispatch {
			return zero, err
		}
		h = cur
	}
}

// Close closes every registered index. The registry is left empty.
func (c *Controller) Close() error {
	var errs []error
	for _, h := range c.reg.All() {
		unlock := c.locks.Lock(h.ID)
		if removed, ok := c.reg.Remove(h.ID); ok {
			errs = append(errs, removed.Index.Close())
		}
		unlock()
	}
	c.cache.Flush()
	return errors.Join(errs...)
}
