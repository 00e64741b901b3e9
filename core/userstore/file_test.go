package userstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStoreAddAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	s := NewFileStore(path)
	ctx := context.Background()

	ids, err := s.List(ctx)
	require.NoError(t, err)
	require.Empty(t, ids)

	require.NoError(t, s.Add(ctx, 30))
	require.NoError(t, s.Add(ctx, 10))
	require.NoError(t, s.Add(ctx, 20))

	ids, err = s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{10, 20, 30}, ids)
}

func TestFileStoreAddIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	s := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, 5))
	require.NoError(t, s.Add(ctx, 5))

	ids, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{5}, ids)
}

func TestFileStoreSerializedSorted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	s := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, 900))
	require.NoError(t, s.Add(ctx, 1))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, "[1,900]", string(data))
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	ctx := context.Background()

	first := NewFileStore(path)
	require.NoError(t, first.Add(ctx, 42))

	second := NewFileStore(path)
	ids, err := second.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{42}, ids)
}
