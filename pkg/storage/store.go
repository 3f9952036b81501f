// Package storage implements the namespaced object store of spec.md §4.1:
// a uniform blob interface over local filesystem, S3, and Azure Blob
// backends, with Namespace handles that transparently prefix every path.
package storage

import (
	"context"
	"io"
	"time"
)

// BlobMeta describes a stored object without its bytes.
type BlobMeta struct {
	Name         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// UploadRequest is the payload for Backend.Upload.
type UploadRequest struct {
	ContentType string
	Data        io.Reader
	Metadata    map[string]string
}

// EntryKind discriminates a Blob listing entry.
type EntryKind int

const (
	EntryFile EntryKind = iota
	EntryDirectory
)

// Blob is one entry returned by Backend.Blobs: either a File or a
// Directory. Name is the leaf name, not the full path (spec.md §4.1).
type Blob struct {
	Kind         EntryKind
	Name         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// ListOptions configures Backend.Blobs.
type ListOptions struct {
	// Recursive lists nested prefixes as files rather than stopping at the
	// first path segment boundary.
	Recursive bool
}

// Backend is the uniform blob interface spec.md §4.1 requires: open, blob,
// blobs, exists, upload, delete. Every path is forward-slash, POSIX-style,
// and relative; backends rewrite it to their own form.
type Backend interface {
	// Open returns the object's bytes, nil if not found, or an error for
	// any other condition.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Blob returns metadata for the object, nil if not found.
	Blob(ctx context.Context, path string) (*BlobMeta, error)

	// Blobs lists entries under prefix.
	Blobs(ctx context.Context, prefix string, opts ListOptions) ([]Blob, error)

	// Exists reports whether an object exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Upload is a whole-object PUT; it overwrites existing data. The store
	// provides no atomic rename — §4.2 compensates by uploading only after
	// validation succeeds.
	Upload(ctx context.Context, path string, req UploadRequest) error

	// Delete removes the object at path. Deleting a missing object is not
	// an error.
	Delete(ctx context.Context, path string) error
}

// notFoundError marks a path that cannot be served as an object, kept
// distinct from a read failure. FilesystemBackend returns it for a path
// that resolves outside its root; IsNotFound detects it. A plain miss in
// Open/Blob is still reported as nil, nil.
type notFoundError struct{ path string }

func (e *notFoundError) Error() string { return "object not found: " + e.path }

func newNotFoundError(path string) error { return &notFoundError{path: path} }

// IsNotFound reports whether err denotes a missing object.
func IsNotFound(err error) bool {
	_, ok := err.(*notFoundError)
	return ok
}
