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

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ianlewis/sdcatalog/internal/identity"
)

func TestCache_ReadThrough(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New[[]string](time.Minute, time.Minute)
	id := identity.Of("/a.ifo")

	calls := 0
	fn := func(context.Context) ([]string, error) {
		calls++
		return []string{"value"}, nil
	}

	got, err := c.ReadThrough(ctx, id, "key", fn)
	require.NoError(t, err)
	require.Equal(t, []string{"value"}, got)

	got, err = c.ReadThrough(ctx, id, "key", fn)
	require.NoError(t, err)
	require.Equal(t, []string{"value"}, got)
	require.Equal(t, 1, calls)
}

func TestCache_ReadThroughError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New[int](time.Minute, time.Minute)
	id := identity.Of("/a.ifo")
	errTest := errors.New("test")

	calls := 0
	fn := func(context.Context) (int, error) {
		calls++
		return 0, errTest
	}

	_, err := c.ReadThrough(ctx, id, "key", fn)
	require.ErrorIs(t, err, errTest)
	_, err = c.ReadThrough(ctx, id, "key", fn)
	require.ErrorIs(t, err, errTest)
	require.Equal(t, 2, calls)
}

func TestCache_Purge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New[string](time.Minute, time.Minute)
	a := identity.Of("/a.ifo")
	b := identity.Of("/b.ifo")

	c.Set(ctx, a, "one", "a1")
	c.Set(ctx, a, "two", "a2")
	c.Set(ctx, b, "one", "b1")

	c.Purge(ctx, a)

	_, ok := c.Get(ctx, a, "one")
	require.False(t, ok)
	_, ok = c.Get(ctx, a, "two")
	require.False(t, ok)
	v, ok := c.Get(ctx, b, "one")
	require.True(t, ok)
	require.Equal(t, "b1", v)

	c.Flush()
	_, ok = c.Get(ctx, b, "one")
	require.False(t, ok)
}

func TestCache_Disabled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New[string](0, time.Minute)
	require.Nil(t, c)

	id := identity.Of("/a.ifo")
	c.Set(ctx, id, "key", "value")
	_, ok := c.Get(ctx, id, "key")
	require.False(t, ok)
	c.Purge(ctx, id)
	c.Flush()

	calls := 0
	for range 2 {
		v, err := c.ReadThrough(ctx, id, "key", func(context.Context) (string, error) {
			calls++
			return "value", nil
		})
		require.NoError(t, err)
		require.Equal(t, "value", v)
	}
	require.Equal(t, 2, calls)
}
