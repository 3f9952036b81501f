package storage

import (
	"context"
	"io"
	"path"
)

// Namespace is a cheap wrapper over a Backend and a name that transparently
// prefixes every path. Namespaces are not cached (spec.md §4.1 design
// notes); all trust and access decisions belong to the caller.
type Namespace struct {
	backend Backend
	prefix  string
}

// NewNamespace returns a handle that prefixes every operation with name+"/".
func NewNamespace(backend Backend, name string) Namespace {
	return Namespace{backend: backend, prefix: name}
}

func (n Namespace) resolve(p string) string {
	return path.Join(n.prefix, p)
}

func (n Namespace) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	return n.backend.Open(ctx, n.resolve(p))
}

func (n Namespace) Blob(ctx context.Context, p string) (*BlobMeta, error) {
	return n.backend.Blob(ctx, n.resolve(p))
}

func (n Namespace) Blobs(ctx context.Context, prefix string, opts ListOptions) ([]Blob, error) {
	return n.backend.Blobs(ctx, n.resolve(prefix), opts)
}

func (n Namespace) Exists(ctx context.Context, p string) (bool, error) {
	return n.backend.Exists(ctx, n.resolve(p))
}

func (n Namespace) Upload(ctx context.Context, p string, req UploadRequest) error {
	return n.backend.Upload(ctx, n.resolve(p), req)
}

func (n Namespace) Delete(ctx context.Context, p string) error {
	return n.backend.Delete(ctx, n.resolve(p))
}
