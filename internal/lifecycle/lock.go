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

package lifecycle

import (
	"sync"

	"github.com/ianlewis/sdcatalog/internal/identity"
)

// keyedMutex serializes work per dictionary id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[identity.ID]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// Lock locks id and returns the function that unlocks it.
func (k *keyedMutex) Lock(id identity.ID) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[identity.ID]*refMutex{}
	}
	m, ok := k.locks[id]
	if !ok {
		m = &refMutex{}
		k.locks[id] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
