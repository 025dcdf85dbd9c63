package blob

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etnz/books/internal/config"
)

// testStore runs the behaviour every Store must share.
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("absent", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		ok, err := s.Exists(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "derived/Dining", []byte(`{"kind":"account"}`)))
		got, err := s.Get(ctx, "derived/Dining")
		require.NoError(t, err)
		assert.Equal(t, `{"kind":"account"}`, string(got))
		ok, err := s.Exists(ctx, "derived/Dining")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "k", []byte("one")))
		require.NoError(t, s.Put(ctx, "k", []byte("two")))
		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "two", string(got))
	})

	t.Run("empty payload exists", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "empty", nil))
		ok, err := s.Exists(ctx, "empty")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "gone", []byte("x")))
		require.NoError(t, s.Delete(ctx, "gone"))
		_, err := s.Get(ctx, "gone")
		assert.ErrorIs(t, err, ErrNotFound)
		ok, err := s.Exists(ctx, "gone")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, s.Delete(ctx, "gone"), "deleting an absent name")
	})

	t.Run("concurrent writers on distinct names", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				name := fmt.Sprintf("n%d", i)
				assert.NoError(t, s.Put(ctx, name, []byte(name)))
			}()
		}
		wg.Wait()
		for i := range 16 {
			name := fmt.Sprintf("n%d", i)
			got, err := s.Get(ctx, name)
			require.NoError(t, err)
			assert.Equal(t, name, string(got))
		}
	})
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	testStore(t, m)
	assert.Positive(t, m.Puts())
}

func TestDir(t *testing.T) {
	d, err := OpenDir(t.TempDir())
	require.NoError(t, err)
	testStore(t, d)
}

func TestDir_Reopen(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	d, err := OpenDir(root)
	require.NoError(t, err)
	require.NoError(t, d.Put(ctx, "a/b@c", []byte("payload")))

	again, err := OpenDir(root)
	require.NoError(t, err)
	got, err := again.Get(ctx, "a/b@c")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestBolt(t *testing.T) {
	b, err := OpenBolt(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer b.Close()
	testStore(t, b)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	testCases := []struct {
		store string
		path  string
	}{
		{config.StoreMemory, ""},
		{config.StoreDir, filepath.Join(tmp, "dir")},
		{config.StoreBolt, filepath.Join(tmp, "sub", "cache.db")},
	}
	for _, tc := range testCases {
		t.Run(tc.store, func(t *testing.T) {
			s, err := Open(ctx, &config.Config{Store: tc.store, StorePath: tc.path})
			require.NoError(t, err)
			defer s.Close()
			require.NoError(t, s.Put(ctx, "x", []byte("y")))
		})
	}

	_, err := Open(ctx, &config.Config{Store: "floppy"})
	assert.Error(t, err)
}
