package registry

import (
	"sync"
	"time"

	"chartedregistry/internal/models"
	"chartedregistry/pkg/types"
)

// ApiKeyStore indexes API keys by ID and by exact token value, for the
// §4.5 ApiKey authentication dispatch's "look up by exact token match".
type ApiKeyStore struct {
	mu       sync.RWMutex
	byID     map[types.ULID]*models.ApiKey
	byToken  map[string]types.ULID
}

// NewApiKeyStore returns an empty store.
func NewApiKeyStore() *ApiKeyStore {
	return &ApiKeyStore{
		byID:    make(map[types.ULID]*models.ApiKey),
		byToken: make(map[string]types.ULID),
	}
}

// Create inserts a new API key.
func (s *ApiKeyStore) Create(key models.ApiKey) *models.ApiKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := key
	s.byID[key.ID] = &stored
	s.byToken[key.Token] = key.ID

	return &stored
}

// GetByToken resolves an API key by its exact bearer token, returning nil
// if the key is absent or has expired.
func (s *ApiKeyStore) GetByToken(token string, now time.Time) *models.ApiKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byToken[token]
	if !ok {
		return nil
	}

	key := s.byID[id]
	if key == nil || key.Expired(now) {
		return nil
	}
	return key
}

// Delete removes an API key and its index entry.
func (s *ApiKeyStore) Delete(id types.ULID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byID[id]
	if !ok {
		return
	}

	delete(s.byID, id)
	delete(s.byToken, key.Token)
}
