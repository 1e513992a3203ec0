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

// Package registry holds the in-memory set of registered dictionaries.
package registry

import (
	"sync"

	"github.com/ianlewis/sdcatalog/internal/identity"
	"github.com/ianlewis/sdcatalog/internal/indexer"
)

// Handle is a registered dictionary and its open index.
type Handle struct {
	// ID is derived from Path and never changes.
	ID identity.ID

	// Name is the display name of the dictionary.
	Name string

	// Path is the absolute path of the source file.
	Path string

	// Index is owned by the handle.
	Index indexer.Index

	// Gen changes whenever Index is replaced.
	Gen uint64

	// Active reports whether the dictionary is listed.
	Active bool
}

// Registry is a concurrency-safe map of handles that remembers insertion
// order. The zero value is not usable; call New.
type Registry struct {
	mu      sync.RWMutex
	handles map[identity.ID]*Handle
	order   []identity.ID
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		handles: map[identity.ID]*Handle{},
	}
}

// Get returns a copy of the handle for id.
func (r *Registry) Get(id identity.ID) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	if !ok {
		return Handle{}, false
	}
	return *h, true
}

// Put inserts h or replaces the handle with the same ID. A replaced handle
// keeps its position and is returned so the caller can release its index.
func (r *Registry) Put(h Handle) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.handles[h.ID]
	if !ok {
		r.order = append(r.order, h.ID)
		r.handles[h.ID] = &h
		return Handle{}, false
	}
	prev := *old
	*old = h
	return prev, true
}

// Remove deletes the handle for id and returns it.
func (r *Registry) Remove(id identity.ID) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	if !ok {
		return Handle{}, false
	}
	delete(r.handles, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return *h, true
}

// SetActive sets the active flag of id. It returns false if id is not
// registered.
func (r *Registry) SetActive(id identity.ID, active bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	if ok {
		h.Active = active
	}
	return ok
}

// ListActive returns the active handles in insertion order.
func (r *Registry) ListActive() []Handle {
	return r.list(true)
}

// All returns every handle in insertion order.
func (r *Registry) All() []Handle {
	return r.list(false)
}

func (r *Registry) list(activeOnly bool) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handle, 0, len(r.order))
	for _, id := range r.order {
		h := r.handles[id]
		if activeOnly && !h.Active {
			continue
		}
		out = append(out, *h)
	}
	return out
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
