package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores_Lifecycle(t *testing.T) {
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"local":  NewLocalStore(filepath.Join(t.TempDir(), "spill")),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			names, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Empty(t, names)

			require.NoError(t, store.Put(ctx, "run/a.snap", []byte("alpha")))
			require.NoError(t, store.Put(ctx, "run/b.snap", []byte("beta")))
			require.NoError(t, store.Put(ctx, "other/c.snap", []byte("gamma")))

			data, err := store.Get(ctx, "run/a.snap")
			require.NoError(t, err)
			assert.Equal(t, []byte("alpha"), data)

			// overwrite
			require.NoError(t, store.Put(ctx, "run/a.snap", []byte("alpha2")))
			data, err = store.Get(ctx, "run/a.snap")
			require.NoError(t, err)
			assert.Equal(t, []byte("alpha2"), data)

			names, err = store.List(ctx, "run/")
			require.NoError(t, err)
			assert.Equal(t, []string{"run/a.snap", "run/b.snap"}, names)

			require.NoError(t, store.Delete(ctx, "run/a.snap"))
			require.NoError(t, store.Delete(ctx, "run/a.snap"))
			_, err = store.Get(ctx, "run/a.snap")
			assert.ErrorIs(t, err, ErrNotFound)

			names, err = store.List(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"other/c.snap", "run/b.snap"}, names)
		})
	}
}

func TestMemoryStore_CopiesData(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", buf))
	buf[0] = 'x'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
	got[1] = 'y'

	again, _ := s.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
	assert.Equal(t, 1, s.Len())
}

func TestLocalStore_InvalidNames(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(t.TempDir())
	for _, name := range []string{"", "../escape", "/abs"} {
		assert.ErrorIs(t, s.Put(ctx, name, []byte("x")), ErrInvalidName, name)
		_, err := s.Get(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestLocalStore_NoTempLeftovers(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewLocalStore(root)
	require.NoError(t, s.Put(ctx, "a", []byte("1")))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Name())
}

func TestStores_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, s := range []Store{NewMemoryStore(), NewLocalStore(t.TempDir())} {
		assert.ErrorIs(t, s.Put(ctx, "a", nil), context.Canceled)
		_, err := s.Get(ctx, "a")
		assert.ErrorIs(t, err, context.Canceled)
	}
}
