package registry

import (
	"fmt"
	"sync"

	"chartedregistry/internal/models"
	"chartedregistry/pkg/types"
)

// RepositoryStore indexes repositories by ID, and by (owner, normalized
// name) for the per-owner uniqueness constraint spec.md §3 requires.
type RepositoryStore struct {
	mu       sync.RWMutex
	byID     map[types.ULID]*models.Repository
	byOwner  map[types.ULID]map[string]types.ULID
}

// NewRepositoryStore returns an empty store.
func NewRepositoryStore() *RepositoryStore {
	return &RepositoryStore{
		byID:    make(map[types.ULID]*models.Repository),
		byOwner: make(map[types.ULID]map[string]types.ULID),
	}
}

// Create inserts a repository, rejecting a duplicate name under the same
// owner.
func (s *RepositoryStore) Create(repo models.Repository) (*models.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, ok := s.byOwner[repo.Owner]
	if !ok {
		names = make(map[string]types.ULID)
		s.byOwner[repo.Owner] = names
	}

	key := repo.Name.Normalized()
	if _, exists := names[key]; exists {
		return nil, fmt.Errorf("repository name %q already exists for this owner", repo.Name)
	}

	stored := repo
	s.byID[repo.ID] = &stored
	names[key] = repo.ID

	return &stored, nil
}

// GetByID returns the repository with the given ID, or nil if absent.
func (s *RepositoryStore) GetByID(id types.ULID) *models.Repository {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

// GetByOwnerAndName resolves a repository by its owning owner and name.
func (s *RepositoryStore) GetByOwnerAndName(owner types.ULID, name types.Name) *models.Repository {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names, ok := s.byOwner[owner]
	if !ok {
		return nil
	}

	id, ok := names[name.Normalized()]
	if !ok {
		return nil
	}
	return s.byID[id]
}

// ListByOwner returns every repository owned by owner.
func (s *RepositoryStore) ListByOwner(owner types.ULID) []*models.Repository {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := s.byOwner[owner]
	repos := make([]*models.Repository, 0, len(names))
	for _, id := range names {
		repos = append(repos, s.byID[id])
	}
	return repos
}

// Delete removes a repository and its index entry.
func (s *RepositoryStore) Delete(id types.ULID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, ok := s.byID[id]
	if !ok {
		return
	}

	delete(s.byID, id)
	if names, ok := s.byOwner[repo.Owner]; ok {
		delete(names, repo.Name.Normalized())
	}
}
