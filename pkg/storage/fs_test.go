package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemBackendUploadAndOpen(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFilesystemBackend(dir)
	require.NoError(t, err)

	ctx := context.Background()
	err = backend.Upload(ctx, "repositories/noel/charted/tarballs/0.1.0.tgz", UploadRequest{
		ContentType: "application/gzip",
		Data:        strings.NewReader("chart bytes"),
	})
	require.NoError(t, err)

	exists, err := backend.Exists(ctx, "repositories/noel/charted/tarballs/0.1.0.tgz")
	assert.NoError(t, err)
	assert.True(t, exists)

	rc, err := backend.Open(ctx, "repositories/noel/charted/tarballs/0.1.0.tgz")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	assert.NoError(t, err)
	assert.Equal(t, "chart bytes", string(data))
}

func TestFilesystemBackendOpenMissReturnsNilNil(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFilesystemBackend(dir)
	require.NoError(t, err)

	rc, err := backend.Open(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, rc)
}

func TestFilesystemBackendRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFilesystemBackend(dir)
	require.NoError(t, err)

	exists, err := backend.Exists(context.Background(), "../../etc/passwd")
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestFilesystemBackendDeleteIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFilesystemBackend(dir)
	require.NoError(t, err)

	err = backend.Delete(context.Background(), "metadata/noel/index.yaml")
	assert.NoError(t, err)
}

func TestFilesystemBackendInitializesWellKnownDirectories(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFilesystemBackend(dir)
	require.NoError(t, err)

	for _, sub := range []string{"metadata", "repositories"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		assert.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
