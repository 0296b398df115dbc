// Package storetest provides a conformance suite run against every
// ports.Store implementation.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/aescanero/kvarea/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises the Store contract. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) ports.Store) {
	t.Helper()

	t.Run("get missing key returns nil", func(t *testing.T) {
		s := newStore(t)
		v, err := s.Get(context.Background(), "missing")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "str", "value"))
		require.NoError(t, s.Set(ctx, "num", 42))
		require.NoError(t, s.Set(ctx, "obj", map[string]interface{}{"a": []interface{}{1, "b"}}))

		v, err := s.Get(ctx, "str")
		require.NoError(t, err)
		assert.Equal(t, "value", v)

		v, err = s.Get(ctx, "num")
		require.NoError(t, err)
		assert.Equal(t, float64(42), v)

		v, err = s.Get(ctx, "obj")
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"a": []interface{}{float64(1), "b"}}, v)
	})

	t.Run("returned values are copies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "obj", map[string]interface{}{"n": 1}))

		v, err := s.Get(ctx, "obj")
		require.NoError(t, err)
		v.(map[string]interface{})["n"] = 2

		v, err = s.Get(ctx, "obj")
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"n": float64(1)}, v)
	})

	t.Run("overwrite", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "k", "one"))
		require.NoError(t, s.Set(ctx, "k", "two"))

		v, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "two", v)
	})

	t.Run("remove", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "k", "v"))
		require.NoError(t, s.Remove(ctx, "k"))
		require.NoError(t, s.Remove(ctx, "never-set"))

		v, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("iterate all and clear", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		want := map[string]interface{}{"a": "1", "b": "2", "c": "3"}
		for k, v := range want {
			require.NoError(t, s.Set(ctx, k, v))
		}

		got := collect(t, s)
		assert.Equal(t, want, got)

		require.NoError(t, s.Clear(ctx))
		assert.Empty(t, collect(t, s))
	})

	t.Run("iterate stops on visitor error", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "a", 1))
		require.NoError(t, s.Set(ctx, "b", 2))

		stop := errors.New("stop")
		visits := 0
		err := s.IterateAll(ctx, func(string, interface{}) error {
			visits++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, visits)
	})
}

func collect(t *testing.T, s ports.Store) map[string]interface{} {
	t.Helper()

	got := make(map[string]interface{})
	err := s.IterateAll(context.Background(), func(key string, value interface{}) error {
		got[key] = value
		return nil
	})
	require.NoError(t, err)
	return got
}
