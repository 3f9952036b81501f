package helm

import (
	"context"
	"strings"
	"testing"

	"chartedregistry/pkg/storage"
	"chartedregistry/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTarball(t *testing.T, backend storage.Backend, owner, repo types.ULID, version string) {
	t.Helper()
	v, err := types.ParseSemVer(version)
	require.NoError(t, err)
	require.NoError(t, backend.Upload(context.Background(), TarballPath(owner, repo, v), storage.UploadRequest{
		Data: strings.NewReader("tarball-bytes"),
	}))
}

func TestResolverSortVersionsDescendingExcludingPrereleases(t *testing.T) {
	dir := t.TempDir()
	backend, err := storage.NewFilesystemBackend(dir)
	require.NoError(t, err)

	owner, repo := types.NewULID(), types.NewULID()
	seedTarball(t, backend, owner, repo, "1.0.0")
	seedTarball(t, backend, owner, repo, "2.0.0")
	seedTarball(t, backend, owner, repo, "1.5.0-rc.1")

	resolver := NewResolver(backend)

	versions, err := resolver.SortVersions(context.Background(), owner, repo, false)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "2.0.0", versions[0].String())
	assert.Equal(t, "1.0.0", versions[1].String())

	withPre, err := resolver.SortVersions(context.Background(), owner, repo, true)
	require.NoError(t, err)
	assert.Len(t, withPre, 3)
	assert.Equal(t, "2.0.0", withPre[0].String())
}

func TestResolverSortVersionsExcludesProvenanceFiles(t *testing.T) {
	dir := t.TempDir()
	backend, err := storage.NewFilesystemBackend(dir)
	require.NoError(t, err)

	owner, repo := types.NewULID(), types.NewULID()
	v, err := types.ParseSemVer("1.0.0")
	require.NoError(t, err)
	require.NoError(t, backend.Upload(context.Background(), ProvenancePath(owner, repo, v), storage.UploadRequest{Data: strings.NewReader("provenance-bytes")}))

	resolver := NewResolver(backend)
	versions, err := resolver.SortVersions(context.Background(), owner, repo, true)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestResolverGetTarballLatestReturnsHighest(t *testing.T) {
	dir := t.TempDir()
	backend, err := storage.NewFilesystemBackend(dir)
	require.NoError(t, err)

	owner, repo := types.NewULID(), types.NewULID()
	seedTarball(t, backend, owner, repo, "1.0.0")
	seedTarball(t, backend, owner, repo, "3.0.0")

	resolver := NewResolver(backend)
	rc, err := resolver.GetTarball(context.Background(), owner, repo, LatestVersion(), false)
	require.NoError(t, err)
	require.NotNil(t, rc)
	rc.Close()
}

func TestResolverGetTarballMissingReturnsNil(t *testing.T) {
	dir := t.TempDir()
	backend, err := storage.NewFilesystemBackend(dir)
	require.NoError(t, err)

	resolver := NewResolver(backend)
	rc, err := resolver.GetTarball(context.Background(), types.NewULID(), types.NewULID(), LatestVersion(), false)
	require.NoError(t, err)
	assert.Nil(t, rc)
}

func TestResolverGetTarballRejectsPrereleaseWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	backend, err := storage.NewFilesystemBackend(dir)
	require.NoError(t, err)

	owner, repo := types.NewULID(), types.NewULID()
	v, err := types.ParseSemVer("1.0.0-rc.1")
	require.NoError(t, err)

	resolver := NewResolver(backend)
	_, err = resolver.GetTarball(context.Background(), owner, repo, ExactVersion(v), false)
	require.Error(t, err)
	assert.Equal(t, ErrPrereleaseNotAllowed, err)
}
