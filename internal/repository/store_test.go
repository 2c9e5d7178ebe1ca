package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// exerciseStore checks the contract every store shares.
func exerciseStore(t *testing.T, s ReadWriter) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.GetItem(ctx, "chatbot_history_v1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SetItem(ctx, "chatbot_history_v1", `[{"role":"user","text":"hello"}]`))
	v, ok, err := s.GetItem(ctx, "chatbot_history_v1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[{"role":"user","text":"hello"}]`, v)

	require.NoError(t, s.SetItem(ctx, "chatbot_history_v1", `[]`))
	v, _, err = s.GetItem(ctx, "chatbot_history_v1")
	require.NoError(t, err)
	require.Equal(t, `[]`, v)

	_, ok, err = s.GetItem(ctx, "feedbacks_v1")
	require.NoError(t, err)
	require.False(t, ok, "keys must not bleed into each other")

	require.ErrorIs(t, s.SetItem(ctx, " ", "x"), errEmptyKey)
	_, _, err = s.GetItem(ctx, "")
	require.ErrorIs(t, err, errEmptyKey)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
	require.Equal(t, 2, s.Writes())
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	exerciseStore(t, s)

	// A fresh store over the same directory sees the persisted value.
	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	v, ok, err := reopened.GetItem(context.Background(), "chatbot_history_v1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[]`, v)
}

func TestFileStore_EmptyDir(t *testing.T) {
	_, err := NewFileStore("  ")
	require.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	s, err := NewSQLiteStore(context.Background(), path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	v, ok, err := reopened.GetItem(context.Background(), "chatbot_history_v1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[]`, v)
}

func TestSQLiteStore_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStore(context.Background(), "")
	require.Error(t, err)
}
