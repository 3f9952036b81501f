package helm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"chartedregistry/internal/models"
	"chartedregistry/pkg/storage"
	"chartedregistry/pkg/types"

	"gopkg.in/yaml.v3"
)

// IndexManager produces and maintains the Helm-compatible index.yaml for
// each owner (spec.md §4.4), grounded on original_source's helm-charts
// YAML read/write of ./metadata/{owner}/index.yaml. Writes are serialized
// per owner to satisfy invariant I6, using a striped mutex table in the
// same sync.RWMutex-guarded-map idiom the teacher uses throughout
// pkg/session and pkg/helm/repository.go.
type IndexManager struct {
	backend storage.Backend
	baseURL string
	locks   *ownerLocks
}

// NewIndexManager returns an IndexManager writing metadata through backend.
// baseURL is prepended to every tarball's relative path to build the
// urls[] entries Helm clients fetch.
func NewIndexManager(backend storage.Backend, baseURL string) *IndexManager {
	return &IndexManager{backend: backend, baseURL: baseURL, locks: newOwnerLocks()}
}

func indexPath(owner types.ULID) string {
	return path.Join("metadata", owner.String(), "index.yaml")
}

// GetIndex reads and parses metadata/{owner}/index.yaml, returning nil if
// absent.
func (m *IndexManager) GetIndex(ctx context.Context, owner types.ULID) (*models.ChartIndex, error) {
	rc, err := m.backend.Open(ctx, indexPath(owner))
	if err != nil {
		return nil, fmt.Errorf("open chart index: %w", err)
	}
	if rc == nil {
		return nil, nil
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read chart index: %w", err)
	}

	var idx models.ChartIndex
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse chart index: %w", err)
	}

	return &idx, nil
}

// CreateIndex writes an empty V1 document for owner, serialized per I6.
func (m *IndexManager) CreateIndex(ctx context.Context, owner types.ULID) error {
	return m.locks.with(owner, func() error {
		return m.write(ctx, owner, models.NewChartIndex(time.Now()))
	})
}

// DeleteIndex removes the index object for owner.
func (m *IndexManager) DeleteIndex(ctx context.Context, owner types.ULID) error {
	return m.locks.with(owner, func() error {
		return m.backend.Delete(ctx, indexPath(owner))
	})
}

// UpsertEntry adds or replaces one repository's release entry in owner's
// index — the piecewise refresh spec.md §4.4 describes for the upload
// path (§4.2 calls this after a successful tarball upload). If no index
// exists yet, one is created first.
func (m *IndexManager) UpsertEntry(ctx context.Context, owner types.ULID, repoName string, spec models.ChartIndexSpec) error {
	return m.locks.with(owner, func() error {
		idx, err := m.loadOrNew(ctx, owner)
		if err != nil {
			return err
		}

		entries := idx.Entries[repoName]
		replaced := false
		for i, existing := range entries {
			if existing.Version == spec.Version {
				entries[i] = spec
				replaced = true
				break
			}
		}
		if !replaced {
			entries = append(entries, spec)
		}
		idx.Entries[repoName] = entries
		idx.Generated = time.Now()

		return m.write(ctx, owner, idx)
	})
}

// RemoveEntry marks a single release as removed in owner's index rather
// than deleting it outright, mirroring Helm's own soft-delete convention
// for index entries.
func (m *IndexManager) RemoveEntry(ctx context.Context, owner types.ULID, repoName, version string) error {
	return m.locks.with(owner, func() error {
		idx, err := m.loadOrNew(ctx, owner)
		if err != nil {
			return err
		}

		entries := idx.Entries[repoName]
		for i, existing := range entries {
			if existing.Version == version {
				entries[i].Removed = true
			}
		}
		idx.Entries[repoName] = entries
		idx.Generated = time.Now()

		return m.write(ctx, owner, idx)
	})
}

func (m *IndexManager) loadOrNew(ctx context.Context, owner types.ULID) (*models.ChartIndex, error) {
	idx, err := m.GetIndex(ctx, owner)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		idx = models.NewChartIndex(time.Now())
	}
	return idx, nil
}

func (m *IndexManager) write(ctx context.Context, owner types.ULID, idx *models.ChartIndex) error {
	data, err := yaml.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal chart index: %w", err)
	}

	return m.backend.Upload(ctx, indexPath(owner), storage.UploadRequest{
		ContentType: "application/yaml",
		Data:        bytes.NewReader(data),
	})
}

// TarballURL builds the public URL for a release's tarball, used when
// assembling ChartIndexSpec.URLs.
func (m *IndexManager) TarballURL(owner, repo types.ULID, version types.SemVer) string {
	return m.baseURL + "/" + TarballPath(owner, repo, version)
}

// ownerLocks is a striped mutex table keyed by owner ID, the same
// map+mutex idiom pkg/registry.KeyedLock uses, specialized here to avoid a
// dependency from pkg/helm on pkg/registry.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[types.ULID]*sync.Mutex
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[types.ULID]*sync.Mutex)}
}

func (o *ownerLocks) with(owner types.ULID, fn func() error) error {
	o.mu.Lock()
	l, ok := o.locks[owner]
	if !ok {
		l = &sync.Mutex{}
		o.locks[owner] = l
	}
	o.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn()
}
