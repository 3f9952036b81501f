package registry

import (
	"fmt"
	"sync"

	"chartedregistry/internal/models"
	"chartedregistry/pkg/types"
)

// ReleaseStore enforces invariant I3: no two RepositoryRelease rows with
// the same (repository, tag) exist.
type ReleaseStore struct {
	mu       sync.RWMutex
	byID     map[types.ULID]*models.RepositoryRelease
	byRepo   map[types.ULID]map[string]types.ULID // tag.String() -> release ID
}

// NewReleaseStore returns an empty store.
func NewReleaseStore() *ReleaseStore {
	return &ReleaseStore{
		byID:   make(map[types.ULID]*models.RepositoryRelease),
		byRepo: make(map[types.ULID]map[string]types.ULID),
	}
}

// Create inserts a release row, enforcing I3.
func (s *ReleaseStore) Create(release models.RepositoryRelease) (*models.RepositoryRelease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags, ok := s.byRepo[release.Repository]
	if !ok {
		tags = make(map[string]types.ULID)
		s.byRepo[release.Repository] = tags
	}

	tagKey := release.Tag.String()
	if _, exists := tags[tagKey]; exists {
		return nil, fmt.Errorf("release %s already exists for this repository", tagKey)
	}

	stored := release
	s.byID[release.ID] = &stored
	tags[tagKey] = release.ID

	return &stored, nil
}

// GetByID returns the release with the given ID, or nil if absent.
func (s *ReleaseStore) GetByID(id types.ULID) *models.RepositoryRelease {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

// GetByRepoAndTag resolves a release by its repository and SemVer tag.
func (s *ReleaseStore) GetByRepoAndTag(repo types.ULID, tag types.SemVer) *models.RepositoryRelease {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags, ok := s.byRepo[repo]
	if !ok {
		return nil
	}

	id, ok := tags[tag.String()]
	if !ok {
		return nil
	}
	return s.byID[id]
}

// ListByRepo returns every release under repo.
func (s *ReleaseStore) ListByRepo(repo types.ULID) []*models.RepositoryRelease {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := s.byRepo[repo]
	releases := make([]*models.RepositoryRelease, 0, len(tags))
	for _, id := range tags {
		releases = append(releases, s.byID[id])
	}
	return releases
}

// Delete removes a release row and its index entry.
func (s *ReleaseStore) Delete(id types.ULID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	release, ok := s.byID[id]
	if !ok {
		return
	}

	delete(s.byID, id)
	if tags, ok := s.byRepo[release.Repository]; ok {
		delete(tags, release.Tag.String())
	}
}
