package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/stepgraph/pkg/adapters/file"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRunStore_Contract(t *testing.T) {
	ports.RunRunStoreContract(t, file.NewRunStore(t.TempDir()))
}

func TestFileRunStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := file.NewRunStore(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewRunRecord("r1", "g", "a", nil, 10, time.Now())))

	_, err := os.Stat(filepath.Join(dir, "r1.json"))
	assert.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestFileRunStore_RejectsPathTraversal(t *testing.T) {
	store := file.NewRunStore(t.TempDir())
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, domain.NewRunRecord("../escape", "g", "a", nil, 10, time.Now())))
	_, err := store.Get(ctx, "")
	assert.Error(t, err)
}

func TestFileRunStore_InvalidIDsAreNotFound(t *testing.T) {
	dir := t.TempDir()
	store := file.NewRunStore(dir)
	ctx := context.Background()

	err := store.Save(ctx, domain.NewRunRecord("tmp-x", "g", "a", nil, 10, time.Now()))
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "a rejected id writes nothing")

	for _, id := range []string{"a/b", `a\b`, "..", "tmp-x"} {
		_, err := store.Get(ctx, id)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, id)
		assert.ErrorIs(t, store.Delete(ctx, id), domain.ErrRunNotFound, id)
	}
}

func TestFileRunStore_ListMissingDir(t *testing.T) {
	store := file.NewRunStore(filepath.Join(t.TempDir(), "never-created"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
