package storage

import (
	"context"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FilesystemBackend stores objects under a local directory. On
// construction it creates ./metadata and ./repositories if absent, per
// spec.md §4.1's filesystem-specific initialization step.
type FilesystemBackend struct {
	root string
}

// NewFilesystemBackend returns a Backend rooted at dir, creating the
// metadata/ and repositories/ directories used by the chart index and
// tarball layout.
func NewFilesystemBackend(dir string) (*FilesystemBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	for _, sub := range []string{"metadata", "repositories"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, err
		}
	}
	return &FilesystemBackend{root: dir}, nil
}

func (b *FilesystemBackend) resolve(p string) (string, error) {
	clean := filepath.Clean("/" + p)
	target := filepath.Join(b.root, clean)

	if !strings.HasPrefix(target, filepath.Clean(b.root)+string(os.PathSeparator)) && target != filepath.Clean(b.root) {
		return "", &notFoundError{path: p}
	}
	return target, nil
}

func (b *FilesystemBackend) Open(_ context.Context, p string) (io.ReadCloser, error) {
	target, err := b.resolve(p)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(target)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return f, err
}

func (b *FilesystemBackend) Blob(_ context.Context, p string) (*BlobMeta, error) {
	target, err := b.resolve(p)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(target)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, nil
	}

	return &BlobMeta{
		Name:         info.Name(),
		Size:         info.Size(),
		ContentType:  contentTypeFor(target),
		LastModified: info.ModTime(),
	}, nil
}

func (b *FilesystemBackend) Blobs(_ context.Context, prefix string, opts ListOptions) ([]Blob, error) {
	target, err := b.resolve(prefix)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(target)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var blobs []Blob
	for _, entry := range entries {
		if entry.IsDir() {
			blobs = append(blobs, Blob{Kind: EntryDirectory, Name: entry.Name()})
			if opts.Recursive {
				nested, err := b.Blobs(context.Background(), filepath.Join(prefix, entry.Name()), opts)
				if err != nil {
					return nil, err
				}
				blobs = append(blobs, nested...)
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, err
		}

		blobs = append(blobs, Blob{
			Kind:         EntryFile,
			Name:         entry.Name(),
			Size:         info.Size(),
			ContentType:  contentTypeFor(entry.Name()),
			LastModified: info.ModTime(),
		})
	}

	sort.Slice(blobs, func(i, j int) bool { return blobs[i].Name < blobs[j].Name })
	return blobs, nil
}

func (b *FilesystemBackend) Exists(_ context.Context, p string) (bool, error) {
	target, err := b.resolve(p)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(target)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (b *FilesystemBackend) Upload(_ context.Context, p string, req UploadRequest) error {
	target, err := b.resolve(p)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, req.Data)
	return err
}

func (b *FilesystemBackend) Delete(_ context.Context, p string) error {
	target, err := b.resolve(p)
	if err != nil {
		return err
	}

	err = os.Remove(target)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func contentTypeFor(name string) string {
	ext := filepath.Ext(name)
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
