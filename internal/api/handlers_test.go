package api

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"chartedregistry/internal/config"
	"chartedregistry/internal/models"
	"chartedregistry/pkg/auth"
	"chartedregistry/pkg/authz"
	"chartedregistry/pkg/registry"
	"chartedregistry/pkg/session"
	"chartedregistry/pkg/storage"
	"chartedregistry/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testHarness struct {
	router   *gin.Engine
	handlers *Handlers
	owners   *registry.OwnerStore
	repos    *registry.RepositoryStore
	releases *registry.ReleaseStore
}

func newTestHarness(t *testing.T) *testHarness {
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	backend, err := storage.NewFilesystemBackend(dir)
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecretKey:        "test-secret",
		Registrations:       true,
		BaseURL:             "http://localhost:8080",
		SessionsEnableBasic: true,
	}

	owners := registry.NewOwnerStore()
	repos := registry.NewRepositoryStore()
	releases := registry.NewReleaseStore()
	apikeys := registry.NewApiKeyStore()

	signer := auth.NewSigner(cfg.JWTSecretKey, "Noelware/charted-server")
	sessions := session.NewManager(signer)
	authzBackend := authz.LocalBackend{Verify: authz.BcryptVerify}

	handlers := NewHandlers(cfg, owners, repos, releases, apikeys, sessions, signer, authzBackend, backend, zap.NewNop())
	router := SetupRouter(handlers)

	return &testHarness{router: router, handlers: handlers, owners: owners, repos: repos, releases: releases}
}

func (h *testHarness) createOwner(t *testing.T, username, email, password string) *models.Owner {
	hash, err := authz.HashPassword(password)
	require.NoError(t, err)

	name, err := types.NewName(username)
	require.NoError(t, err)

	owner, err := h.owners.Create(models.Owner{
		ID:           types.NewULID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	require.NoError(t, err)
	return owner
}

func (h *testHarness) createRepository(t *testing.T, owner types.ULID, repoName string, private bool) *models.Repository {
	name, err := types.NewName(repoName)
	require.NoError(t, err)

	repo, err := h.repos.Create(models.Repository{
		ID:      types.NewULID(),
		Owner:   owner,
		Name:    name,
		Private: private,
		Type:    models.ChartTypeApplication,
	})
	require.NoError(t, err)
	return repo
}

func doJSON(t *testing.T, router *gin.Engine, method, target string, body any, bearer string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) types.Envelope {
	var env types.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

// buildChartTarball constructs a single-member gzip+tar archive in memory,
// used to exercise the upload path without touching disk.
func buildChartTarball(t *testing.T, files map[string]string) []byte {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestRootRoute(t *testing.T) {
	h := newTestHarness(t)

	w := doJSON(t, h.router, http.MethodGet, "/v1/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterThenLogin(t *testing.T) {
	h := newTestHarness(t)

	regResp := doJSON(t, h.router, http.MethodPut, "/v1/users", map[string]string{
		"username": "ana",
		"email":    "ana@example.com",
		"password": "hunter22",
	}, "")
	require.Equal(t, http.StatusCreated, regResp.Code)

	loginResp := doJSON(t, h.router, http.MethodPost, "/v1/users/login", map[string]string{
		"username": "ana",
		"password": "hunter22",
	}, "")
	require.Equal(t, http.StatusOK, loginResp.Code)

	env := decodeEnvelope(t, loginResp)
	assert.True(t, env.Success)
}

func TestRegisterDisabledRejectsRegistration(t *testing.T) {
	h := newTestHarness(t)
	h.handlers.cfg.Registrations = false

	resp := doJSON(t, h.router, http.MethodPut, "/v1/users", map[string]string{
		"username": "ana",
		"email":    "ana@example.com",
		"password": "hunter22",
	}, "")
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	h := newTestHarness(t)
	h.createOwner(t, "ana", "ana@example.com", "correct-horse")

	resp := doJSON(t, h.router, http.MethodPost, "/v1/users/login", map[string]string{
		"username": "ana",
		"password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func loginAndGetSession(t *testing.T, h *testHarness, username, password string) models.Session {
	resp := doJSON(t, h.router, http.MethodPost, "/v1/users/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope(t, resp)
	data, err := json.Marshal(env.Data)
	require.NoError(t, err)

	var sess models.Session
	require.NoError(t, json.Unmarshal(data, &sess))
	return sess
}

func TestFetchSelfRequiresAuth(t *testing.T) {
	h := newTestHarness(t)
	h.createOwner(t, "ana", "ana@example.com", "correct-horse")

	resp := doJSON(t, h.router, http.MethodGet, "/v1/users/@me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestFetchSelfReturnsOwner(t *testing.T) {
	h := newTestHarness(t)
	h.createOwner(t, "ana", "ana@example.com", "correct-horse")
	sess := loginAndGetSession(t, h, "ana", "correct-horse")

	resp := doJSON(t, h.router, http.MethodGet, "/v1/users/@me", nil, sess.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope(t, resp)
	assert.True(t, env.Success)
}

func TestFetchUserByNameIsOptionalAuth(t *testing.T) {
	h := newTestHarness(t)
	h.createOwner(t, "ana", "ana@example.com", "correct-horse")

	resp := doJSON(t, h.router, http.MethodGet, "/v1/users/ana", nil, "")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestFetchUserMissingReturnsNotFound(t *testing.T) {
	h := newTestHarness(t)

	resp := doJSON(t, h.router, http.MethodGet, "/v1/users/nobody", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestFetchRepositoryPrivateRequiresOwner(t *testing.T) {
	h := newTestHarness(t)
	owner := h.createOwner(t, "ana", "ana@example.com", "correct-horse")
	h.createRepository(t, owner.ID, "secret-charts", true)

	resp := doJSON(t, h.router, http.MethodGet, "/v1/repositories/ana/secret-charts", nil, "")
	assert.Equal(t, http.StatusForbidden, resp.Code)

	sess := loginAndGetSession(t, h, "ana", "correct-horse")
	authedResp := doJSON(t, h.router, http.MethodGet, "/v1/repositories/ana/secret-charts", nil, sess.AccessToken)
	assert.Equal(t, http.StatusOK, authedResp.Code)
}

func TestFetchRepositoryPublicIsVisibleAnonymously(t *testing.T) {
	h := newTestHarness(t)
	owner := h.createOwner(t, "ana", "ana@example.com", "correct-horse")
	h.createRepository(t, owner.ID, "public-charts", false)

	resp := doJSON(t, h.router, http.MethodGet, "/v1/repositories/ana/public-charts", nil, "")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func buildUploadRequest(t *testing.T, target, bearer string, tarball []byte) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("tarball", "chart.tgz")
	require.NoError(t, err)
	_, err = part.Write(tarball)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req
}

func TestUploadTarballThenFetchIndex(t *testing.T) {
	h := newTestHarness(t)
	owner := h.createOwner(t, "ana", "ana@example.com", "correct-horse")
	h.createRepository(t, owner.ID, "demo", false)
	sess := loginAndGetSession(t, h, "ana", "correct-horse")

	tarball := buildChartTarball(t, map[string]string{
		"demo/Chart.yaml":  "apiVersion: v2\nname: demo\nversion: 1.0.0\n",
		"demo/values.yaml": "replicaCount: 1\n",
	})

	req := buildUploadRequest(t, "/v1/repositories/ana/demo/releases/1.0.0/tarball", sess.AccessToken, tarball)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	indexResp := httptest.NewRecorder()
	indexReq := httptest.NewRequest(http.MethodGet, "/v1/indexes/ana", nil)
	h.router.ServeHTTP(indexResp, indexReq)
	require.Equal(t, http.StatusOK, indexResp.Code)
	assert.Contains(t, indexResp.Body.String(), "demo")
}

func TestUploadTarballRejectsNonOwner(t *testing.T) {
	h := newTestHarness(t)
	owner := h.createOwner(t, "ana", "ana@example.com", "correct-horse")
	h.createRepository(t, owner.ID, "demo", false)
	h.createOwner(t, "bob", "bob@example.com", "other-pass")
	sess := loginAndGetSession(t, h, "bob", "other-pass")

	tarball := buildChartTarball(t, map[string]string{
		"demo/Chart.yaml": "apiVersion: v2\nname: demo\nversion: 1.0.0\n",
	})

	req := buildUploadRequest(t, "/v1/repositories/ana/demo/releases/1.0.0/tarball", sess.AccessToken, tarball)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListReleasesAfterUpload(t *testing.T) {
	h := newTestHarness(t)
	owner := h.createOwner(t, "ana", "ana@example.com", "correct-horse")
	h.createRepository(t, owner.ID, "demo", false)
	sess := loginAndGetSession(t, h, "ana", "correct-horse")

	tarball := buildChartTarball(t, map[string]string{
		"demo/Chart.yaml": "apiVersion: v2\nname: demo\nversion: 2.0.0\n",
	})
	req := buildUploadRequest(t, "/v1/repositories/ana/demo/releases/2.0.0/tarball", sess.AccessToken, tarball)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	resp := doJSON(t, h.router, http.MethodGet, "/v1/repositories/ana/demo/releases", nil, sess.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope(t, resp)
	releases, ok := env.Data.([]any)
	require.True(t, ok)
	assert.Len(t, releases, 1)
}

func TestLogoutRevokesSession(t *testing.T) {
	h := newTestHarness(t)
	h.createOwner(t, "ana", "ana@example.com", "correct-horse")
	sess := loginAndGetSession(t, h, "ana", "correct-horse")

	logoutResp := doJSON(t, h.router, http.MethodDelete, "/v1/users/@me/session", nil, sess.AccessToken)
	require.Equal(t, http.StatusOK, logoutResp.Code)

	resp := doJSON(t, h.router, http.MethodGet, "/v1/users/@me", nil, sess.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
