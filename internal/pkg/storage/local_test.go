package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStorePutOpenMove(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	key := ChunkKey("abc", 2, "v1")
	_, err = s.Put(ctx, key, strings.NewReader("hello"), 5, "")
	require.NoError(t, err)

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	rc, err := s.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	dst := ArtifactKey("id-1", "../movie.mp4")
	require.Equal(t, "artifacts/id-1/movie.mp4", dst)
	require.NoError(t, s.Move(ctx, key, dst))
	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.Open(ctx, key)
	require.True(t, errors.Is(err, ErrObjectNotFound))
	require.True(t, errors.Is(s.Move(ctx, key, dst), ErrObjectNotFound))
}

func TestLocalStoreSizeMismatchLeavesNothing(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s, err := NewLocalStore(base, "")
	require.NoError(t, err)

	key := ChunkKey("abc", 0, "v1")
	_, err = s.Put(ctx, key, bytes.NewReader([]byte("abc")), 10, "")
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(base, "chunks", "abc"))
	require.NoError(t, err)
	require.Empty(t, entries, "no partial or final file may remain")
}

func TestLocalStoreDeletePrefix(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir(), "https://cdn.example.com/")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := s.Put(ctx, ChunkKey("u1", i, "v"), strings.NewReader("x"), 1, "")
		require.NoError(t, err)
	}
	require.NoError(t, s.DeletePrefix(ctx, ChunkPrefix("u1")))
	require.NoError(t, s.DeletePrefix(ctx, ChunkPrefix("u1")))
	require.NoError(t, s.Delete(ctx, ChunkKey("u1", 0, "v")))

	ok, err := s.Exists(ctx, ChunkKey("u1", 1, "v"))
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "https://cdn.example.com/artifacts/x/a.bin", s.Location("artifacts/x/a.bin"))
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)
	_, err = s.Put(context.Background(), "../evil", strings.NewReader("x"), 1, "")
	require.Error(t, err)
	_, err = s.Put(context.Background(), "/abs", strings.NewReader("x"), 1, "")
	require.Error(t, err)
}

func TestLocalStoreHonoursContext(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Put(ctx, "k", strings.NewReader("x"), 1, "")
	require.ErrorIs(t, err, context.Canceled)
}
