package helm

import (
	"context"
	"testing"

	"chartedregistry/internal/models"
	"chartedregistry/pkg/storage"
	"chartedregistry/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexManagerGetIndexMissingReturnsNil(t *testing.T) {
	dir := t.TempDir()
	backend, err := storage.NewFilesystemBackend(dir)
	require.NoError(t, err)

	mgr := NewIndexManager(backend, "https://charts.example.com")
	idx, err := mgr.GetIndex(context.Background(), types.NewULID())
	require.NoError(t, err)
	assert.Nil(t, idx)
}

func TestIndexManagerCreateThenGetRoundTrips(t *testing.T) {
	dir := t.TempDir()
	backend, err := storage.NewFilesystemBackend(dir)
	require.NoError(t, err)

	mgr := NewIndexManager(backend, "https://charts.example.com")
	owner := types.NewULID()

	require.NoError(t, mgr.CreateIndex(context.Background(), owner))

	idx, err := mgr.GetIndex(context.Background(), owner)
	require.NoError(t, err)
	require.NotNil(t, idx)
	assert.Equal(t, "v1", idx.APIVersion)
	assert.Empty(t, idx.Entries)
}

func TestIndexManagerUpsertEntryCreatesIndexImplicitly(t *testing.T) {
	dir := t.TempDir()
	backend, err := storage.NewFilesystemBackend(dir)
	require.NoError(t, err)

	mgr := NewIndexManager(backend, "https://charts.example.com")
	owner := types.NewULID()

	spec := models.ChartIndexSpec{
		Chart: models.Chart{APIVersion: "v2", Name: "demo", Version: "1.0.0"},
		URLs:  []string{mgr.TarballURL(owner, types.NewULID(), mustSemVer(t, "1.0.0"))},
	}

	require.NoError(t, mgr.UpsertEntry(context.Background(), owner, "demo", spec))

	idx, err := mgr.GetIndex(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, idx.Entries["demo"], 1)
	assert.Equal(t, "1.0.0", idx.Entries["demo"][0].Version)
}

func TestIndexManagerUpsertEntryReplacesSameVersion(t *testing.T) {
	dir := t.TempDir()
	backend, err := storage.NewFilesystemBackend(dir)
	require.NoError(t, err)

	mgr := NewIndexManager(backend, "https://charts.example.com")
	owner := types.NewULID()

	first := models.ChartIndexSpec{Chart: models.Chart{Name: "demo", Version: "1.0.0"}}
	second := models.ChartIndexSpec{Chart: models.Chart{Name: "demo", Version: "1.0.0", Description: "updated"}}

	require.NoError(t, mgr.UpsertEntry(context.Background(), owner, "demo", first))
	require.NoError(t, mgr.UpsertEntry(context.Background(), owner, "demo", second))

	idx, err := mgr.GetIndex(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, idx.Entries["demo"], 1)
	assert.Equal(t, "updated", idx.Entries["demo"][0].Description)
}

func TestIndexManagerRemoveEntryMarksRemoved(t *testing.T) {
	dir := t.TempDir()
	backend, err := storage.NewFilesystemBackend(dir)
	require.NoError(t, err)

	mgr := NewIndexManager(backend, "https://charts.example.com")
	owner := types.NewULID()

	spec := models.ChartIndexSpec{Chart: models.Chart{Name: "demo", Version: "1.0.0"}}
	require.NoError(t, mgr.UpsertEntry(context.Background(), owner, "demo", spec))
	require.NoError(t, mgr.RemoveEntry(context.Background(), owner, "demo", "1.0.0"))

	idx, err := mgr.GetIndex(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, idx.Entries["demo"], 1)
	assert.True(t, idx.Entries["demo"][0].Removed)
}

func mustSemVer(t *testing.T, s string) types.SemVer {
	t.Helper()
	v, err := types.ParseSemVer(s)
	require.NoError(t, err)
	return v
}
