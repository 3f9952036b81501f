package registry

import (
	"testing"
	"time"

	"chartedregistry/internal/models"
	"chartedregistry/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustName(t *testing.T, s string) types.Name {
	t.Helper()
	n, err := types.NewName(s)
	require.NoError(t, err)
	return n
}

func TestOwnerStoreRejectsDuplicateName(t *testing.T) {
	store := NewOwnerStore()

	owner := models.Owner{ID: types.NewULID(), Name: mustName(t, "noel"), Email: "noel@example.test"}
	_, err := store.Create(owner)
	assert.NoError(t, err)

	dup := models.Owner{ID: types.NewULID(), Name: mustName(t, "Noel"), Email: "other@example.test"}
	_, err = store.Create(dup)
	assert.Error(t, err)
}

func TestOwnerStoreLookupByName(t *testing.T) {
	store := NewOwnerStore()
	owner := models.Owner{ID: types.NewULID(), Name: mustName(t, "noel"), Email: "noel@example.test"}
	_, err := store.Create(owner)
	require.NoError(t, err)

	found := store.GetByName(mustName(t, "NOEL"))
	assert.NotNil(t, found)
	assert.Equal(t, owner.ID, found.ID)
}

func TestRepositoryStoreUniquePerOwner(t *testing.T) {
	store := NewRepositoryStore()
	owner := types.NewULID()

	repo := models.Repository{ID: types.NewULID(), Owner: owner, Name: mustName(t, "charted")}
	_, err := store.Create(repo)
	assert.NoError(t, err)

	dup := models.Repository{ID: types.NewULID(), Owner: owner, Name: mustName(t, "charted")}
	_, err = store.Create(dup)
	assert.Error(t, err)

	otherOwner := types.NewULID()
	elsewhere := models.Repository{ID: types.NewULID(), Owner: otherOwner, Name: mustName(t, "charted")}
	_, err = store.Create(elsewhere)
	assert.NoError(t, err)
}

func TestReleaseStoreEnforcesI3(t *testing.T) {
	store := NewReleaseStore()
	repo := types.NewULID()

	tag, err := types.ParseSemVer("1.0.0")
	require.NoError(t, err)

	release := models.RepositoryRelease{ID: types.NewULID(), Repository: repo, Tag: tag}
	_, err = store.Create(release)
	assert.NoError(t, err)

	_, err = store.Create(release)
	assert.Error(t, err)
}

func TestApiKeyStoreGetByTokenHonorsExpiry(t *testing.T) {
	store := NewApiKeyStore()
	key := models.ApiKey{ID: types.NewULID(), Token: "tok_abc"}
	store.Create(key)

	found := store.GetByToken("tok_abc", time.Now())
	assert.NotNil(t, found)

	missing := store.GetByToken("nope", time.Now())
	assert.Nil(t, missing)

	past := time.Now().Add(-time.Hour)
	store.Create(models.ApiKey{ID: types.NewULID(), Token: "tok_old", ExpiresAt: &past})
	assert.Nil(t, store.GetByToken("tok_old", time.Now()))
}
