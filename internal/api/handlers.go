package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"chartedregistry/internal/config"
	"chartedregistry/internal/models"
	"chartedregistry/pkg/auth"
	"chartedregistry/pkg/authz"
	"chartedregistry/pkg/helm"
	"chartedregistry/pkg/registry"
	"chartedregistry/pkg/session"
	"chartedregistry/pkg/storage"
	"chartedregistry/pkg/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Handlers implements the §6 HTTP surface, assembled in cmd/main.go from
// the stores, backends, and helm components §4 describes.
type Handlers struct {
	cfg *config.Config

	owners   *registry.OwnerStore
	repos    *registry.RepositoryStore
	releases *registry.ReleaseStore
	apikeys  *registry.ApiKeyStore

	sessions     *session.Manager
	signer       *auth.Signer
	authzBackend authz.Backend

	uploadLocks *registry.KeyedLock
	uploader    *helm.Uploader
	resolver    *helm.Resolver
	index       *helm.IndexManager

	logger *zap.Logger
}

// NewHandlers wires every dependency the route handlers need.
func NewHandlers(
	cfg *config.Config,
	owners *registry.OwnerStore,
	repos *registry.RepositoryStore,
	releases *registry.ReleaseStore,
	apikeys *registry.ApiKeyStore,
	sessions *session.Manager,
	signer *auth.Signer,
	authzBackend authz.Backend,
	backend storage.Backend,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		cfg:          cfg,
		owners:       owners,
		repos:        repos,
		releases:     releases,
		apikeys:      apikeys,
		sessions:     sessions,
		signer:       signer,
		authzBackend: authzBackend,
		uploadLocks:  registry.NewKeyedLock(),
		uploader:     helm.NewUploader(backend),
		resolver:     helm.NewResolver(backend),
		index:        helm.NewIndexManager(backend, cfg.BaseURL),
		logger:       logger,
	}
}

func (h *Handlers) authDeps() auth.Dependencies {
	return auth.Dependencies{
		Signer:       h.signer,
		Sessions:     h.sessions,
		Owners:       h.owners,
		ApiKeys:      h.apikeys,
		AuthzBackend: h.authzBackend,
		EnableBasic:  h.cfg.SessionsEnableBasic,
	}
}

// RequireAuth requires any of the three §4.5 authentication schemes.
func (h *Handlers) RequireAuth() gin.HandlerFunc {
	return auth.RequireAuth(h.authDeps(), auth.Options{})
}

// RequireRefresh requires a Bearer refresh token specifically.
func (h *Handlers) RequireRefresh() gin.HandlerFunc {
	return auth.RequireAuth(h.authDeps(), auth.Options{RequireRefreshToken: true})
}

// RequireScope requires authentication plus the given API key scope.
func (h *Handlers) RequireScope(scope types.Scope) gin.HandlerFunc {
	return auth.RequireAuth(h.authDeps(), auth.Options{Scopes: []types.Scope{scope}})
}

// OptionalAuth populates auth.FromContext when credentials are supplied,
// but does not reject the request when they are absent — spec.md §6 marks
// GET /users/{idOrName} and GET /repositories/{owner}/{repo} as "optional".
func (h *Handlers) OptionalAuth() gin.HandlerFunc {
	return auth.RequireAuth(h.authDeps(), auth.Options{AllowUnauthorized: true})
}

func fail(c *gin.Context, err error) {
	if apiErr, ok := err.(*types.Error); ok {
		c.AbortWithStatusJSON(apiErr.Status(), types.Fail(apiErr))
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, types.Fail(types.NewError(types.CodeInternalServerError, err.Error())))
}

func notFound(c *gin.Context, message string) {
	fail(c, types.NewError(types.CodeEntityNotFound, message))
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, types.Ok(data))
}

// Root responds with a minimal service banner, mirroring the teacher's
// health-check root route.
func (h *Handlers) Root(c *gin.Context) {
	ok(c, gin.H{"message": "chartedregistry"})
}

// --- Sessions (§4.6) ---

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a username/email + password pair and mints a fresh
// session.
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, types.NewError(types.CodeValidationFailed, err.Error()))
		return
	}

	var owner *models.Owner
	switch {
	case req.Username != "":
		name, err := types.NewName(req.Username)
		if err != nil {
			fail(c, types.NewError(types.CodeBadRequest, "invalid username"))
			return
		}
		owner = h.owners.GetByName(name)
	case req.Email != "":
		owner = h.owners.GetByEmail(req.Email)
	default:
		fail(c, types.NewError(types.CodeBadRequest, "username or email is required"))
		return
	}

	if owner == nil {
		fail(c, types.NewError(types.CodeEntityNotFound, "user not found"))
		return
	}

	if req.Password == "" {
		fail(c, types.NewError(types.CodeMissingPassword, "password is required"))
		return
	}

	if err := h.authzBackend.Authenticate(*owner, req.Password); err != nil {
		fail(c, types.NewError(types.CodeInvalidPassword, "invalid password"))
		return
	}

	sess, err := h.sessions.Login(owner.ID)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, sess)
}

// FetchSession returns the caller's current session, with token bytes
// stripped.
func (h *Handlers) FetchSession(c *gin.Context) {
	authCtx := auth.FromContext(c)
	if authCtx == nil || authCtx.Session == nil {
		notFound(c, "no active session")
		return
	}

	sanitized, err := h.sessions.FetchSelf(authCtx.Session.ID, authCtx.User.ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, sanitized)
}

func bearerValue(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	idx := strings.IndexByte(header, ' ')
	if idx < 0 {
		return "", false
	}
	return header[idx+1:], true
}

// RefreshSession rotates the session tied to the supplied refresh token.
func (h *Handlers) RefreshSession(c *gin.Context) {
	token, present := bearerValue(c)
	if !present {
		fail(c, types.NewError(types.CodeInvalidAuthorizationParts, "missing bearer value"))
		return
	}

	sess, err := h.sessions.Refresh(token)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, sess)
}

// Logout deletes the caller's session, revoking both tokens.
func (h *Handlers) Logout(c *gin.Context) {
	token, present := bearerValue(c)
	if !present {
		fail(c, types.NewError(types.CodeInvalidAuthorizationParts, "missing bearer value"))
		return
	}

	if err := h.sessions.Logout(token); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "logged out"})
}

// --- Users (§4.5/§4.6) ---

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a new owner, gated on spec.md §9's registrations flag.
func (h *Handlers) Register(c *gin.Context) {
	if !h.cfg.Registrations {
		fail(c, types.NewError(types.CodeRegistrationsDisabled, "registrations are disabled on this instance"))
		return
	}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, types.NewError(types.CodeValidationFailed, err.Error()))
		return
	}

	name, err := types.NewName(req.Username)
	if err != nil {
		fail(c, types.NewError(types.CodeBadRequest, err.Error()))
		return
	}

	hash, err := authz.HashPassword(req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	owner := models.Owner{
		ID:           types.NewULID(),
		Name:         name,
		Email:        req.Email,
		PasswordHash: hash,
	}

	stored, err := h.owners.Create(owner)
	if err != nil {
		fail(c, types.NewError(types.CodeEntityAlreadyExists, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, types.Ok(stored.Sanitized()))
}

func (h *Handlers) resolveOwner(idOrName string) *models.Owner {
	if id, err := types.ParseULID(idOrName); err == nil {
		return h.owners.GetByID(id)
	}
	if name, err := types.NewName(idOrName); err == nil {
		return h.owners.GetByName(name)
	}
	return nil
}

// FetchUser resolves a user by ULID or Name; spec.md §6 marks this route
// "optional" auth, so OptionalAuth runs ahead of it without gating access.
func (h *Handlers) FetchUser(c *gin.Context) {
	owner := h.resolveOwner(c.Param("idOrName"))
	if owner == nil {
		notFound(c, "user not found")
		return
	}
	ok(c, owner.Sanitized())
}

// FetchSelf returns the authenticated caller's own owner row.
func (h *Handlers) FetchSelf(c *gin.Context) {
	authCtx := auth.FromContext(c)
	ok(c, authCtx.User.Sanitized())
}

type patchSelfRequest struct {
	Email string `json:"email"`
}

// PatchSelf updates mutable fields on the caller's own owner row.
func (h *Handlers) PatchSelf(c *gin.Context) {
	authCtx := auth.FromContext(c)

	var req patchSelfRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, types.NewError(types.CodeValidationFailed, err.Error()))
		return
	}

	updated := authCtx.User
	if req.Email != "" {
		updated.Email = req.Email
	}

	stored, err := h.owners.Update(updated)
	if err != nil {
		fail(c, types.NewError(types.CodeEntityAlreadyExists, err.Error()))
		return
	}

	ok(c, stored.Sanitized())
}

// DeleteSelf removes the caller's own owner row.
func (h *Handlers) DeleteSelf(c *gin.Context) {
	authCtx := auth.FromContext(c)
	h.owners.Delete(authCtx.User.ID)
	c.Status(http.StatusNoContent)
}

// --- Repositories & releases (§4.2-§4.4) ---

func (h *Handlers) resolveRepository(c *gin.Context) (*models.Owner, *models.Repository, bool) {
	owner := h.resolveOwner(c.Param("owner"))
	if owner == nil {
		notFound(c, "owner not found")
		return nil, nil, false
	}

	repoName, err := types.NewName(c.Param("repo"))
	if err != nil {
		fail(c, types.NewError(types.CodeBadRequest, "invalid repository name"))
		return nil, nil, false
	}

	repo := h.repos.GetByOwnerAndName(owner.ID, repoName)
	if repo == nil {
		notFound(c, "repository not found")
		return nil, nil, false
	}

	return owner, repo, true
}

// canReadRepository enforces spec.md §4 private-repository access: the
// caller must be authenticated as the owning owner.
func canReadRepository(c *gin.Context, owner *models.Owner, repo *models.Repository) bool {
	if !repo.Private {
		return true
	}

	authCtx := auth.FromContext(c)
	if authCtx == nil || authCtx.User.ID != owner.ID {
		fail(c, types.NewError(types.CodeAccessNotPermitted, "this repository is private"))
		return false
	}
	return true
}

// FetchRepository resolves one repository by (owner, name); spec.md §6
// marks this "optional" auth, required only for private repositories.
func (h *Handlers) FetchRepository(c *gin.Context) {
	owner, repo, resolved := h.resolveRepository(c)
	if !resolved {
		return
	}
	if !canReadRepository(c, owner, repo) {
		return
	}
	ok(c, repo)
}

func parsePrereleasesQuery(c *gin.Context) bool {
	v := c.Query("prereleases")
	return v == "true" || v == "1"
}

// ListReleases lists every release row under a repository.
func (h *Handlers) ListReleases(c *gin.Context) {
	owner, repo, resolved := h.resolveRepository(c)
	if !resolved {
		return
	}
	if !canReadRepository(c, owner, repo) {
		return
	}

	releases := h.releases.ListByRepo(repo.ID)
	ok(c, releases)
}

// FetchRelease resolves one release by its SemVer tag or its ULID.
func (h *Handlers) FetchRelease(c *gin.Context) {
	owner, repo, resolved := h.resolveRepository(c)
	if !resolved {
		return
	}
	if !canReadRepository(c, owner, repo) {
		return
	}

	raw := c.Param("versionOrId")

	if tag, err := types.ParseSemVer(raw); err == nil {
		release := h.releases.GetByRepoAndTag(repo.ID, tag)
		if release == nil {
			notFound(c, "release not found")
			return
		}
		ok(c, release)
		return
	}

	id, err := types.ParseULID(raw)
	if err != nil {
		fail(c, types.NewError(types.CodeBadRequest, "versionOrId must be a SemVer tag or ULID"))
		return
	}

	release := h.releases.GetByID(id)
	if release == nil || release.Repository != repo.ID {
		notFound(c, "release not found")
		return
	}
	ok(c, release)
}

// queryableVersion resolves the route's :version segment — a concrete
// SemVer or the literal "latest" — into a helm.QueryableVersion.
func queryableVersion(raw string) (helm.QueryableVersion, error) {
	if raw == "latest" {
		return helm.LatestVersion(), nil
	}
	v, err := types.ParseSemVer(raw)
	if err != nil {
		return helm.QueryableVersion{}, types.NewError(types.CodeBadRequest, "invalid version")
	}
	return helm.ExactVersion(v), nil
}

// FetchTarball streams a release's chart tarball. The route also carries
// a release-ID segment (spec.md's literal path shape), registered under the
// :versionOrId parameter name the sibling release route already uses at
// that position; it is accepted but only :version drives resolution, since
// the tarball is addressed by version.
func (h *Handlers) FetchTarball(c *gin.Context) {
	owner, repo, resolved := h.resolveRepository(c)
	if !resolved {
		return
	}
	if !canReadRepository(c, owner, repo) {
		return
	}

	qv, err := queryableVersion(c.Param("version"))
	if err != nil {
		fail(c, err)
		return
	}

	rc, err := h.resolver.GetTarball(c.Request.Context(), owner.ID, repo.ID, qv, parsePrereleasesQuery(c))
	if err != nil {
		fail(c, err)
		return
	}
	if rc == nil {
		notFound(c, "no matching tarball")
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/gzip")
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.logger.Warn("failed streaming tarball", zap.String("request_id", requestID(c)), zap.Error(err))
	}
}

// FetchProvenance streams a release's provenance file, structurally
// identical to FetchTarball.
func (h *Handlers) FetchProvenance(c *gin.Context) {
	owner, repo, resolved := h.resolveRepository(c)
	if !resolved {
		return
	}
	if !canReadRepository(c, owner, repo) {
		return
	}

	qv, err := queryableVersion(c.Param("version"))
	if err != nil {
		fail(c, err)
		return
	}

	rc, err := h.resolver.GetProvenance(c.Request.Context(), owner.ID, repo.ID, qv, parsePrereleasesQuery(c))
	if err != nil {
		fail(c, err)
		return
	}
	if rc == nil {
		notFound(c, "no matching provenance file")
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/gzip")
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.logger.Warn("failed streaming provenance file", zap.String("request_id", requestID(c)), zap.Error(err))
	}
}

func requestID(c *gin.Context) string {
	v, ok := c.Get("request_id")
	if !ok {
		return ""
	}
	id, _ := v.(string)
	return id
}

// UploadTarball validates and publishes a chart tarball for one release,
// recording the release row and refreshing the owner's chart index
// (spec.md §4.2 + §4.4).
func (h *Handlers) UploadTarball(c *gin.Context) {
	owner, repo, resolved := h.resolveRepository(c)
	if !resolved {
		return
	}

	authCtx := auth.FromContext(c)
	if authCtx == nil || authCtx.User.ID != owner.ID {
		fail(c, types.NewError(types.CodeAccessNotPermitted, "only the owner may publish releases"))
		return
	}

	version, err := types.ParseSemVer(c.Param("version"))
	if err != nil {
		fail(c, types.NewError(types.CodeBadRequest, "invalid version"))
		return
	}

	file, _, err := c.Request.FormFile("tarball")
	if err != nil {
		fail(c, types.NewError(types.CodeMissingMultipartField, "missing 'tarball' field"))
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		fail(c, types.NewError(types.CodeIO, err.Error()))
		return
	}

	lockKey := owner.ID.String() + "/" + repo.ID.String() + "/" + version.String()

	var (
		objectPath string
		uploadErr  error
	)
	h.uploadLocks.With(lockKey, func() {
		objectPath, uploadErr = h.uploader.Upload(c.Request.Context(), owner.ID, repo.ID, version, body)
	})
	if uploadErr != nil {
		fail(c, uploadErr)
		return
	}

	release := models.RepositoryRelease{
		ID:         types.NewULID(),
		Repository: repo.ID,
		Tag:        version,
	}
	stored, err := h.releases.Create(release)
	if err != nil {
		fail(c, types.NewError(types.CodeEntityAlreadyExists, err.Error()))
		return
	}

	chart, err := helm.ParseChartMetadata(body)
	if err != nil {
		fail(c, types.NewError(types.CodeInvalidTarball, err.Error()))
		return
	}

	now := time.Now()
	spec := models.ChartIndexSpec{
		Chart:   chart,
		URLs:    []string{h.index.TarballURL(owner.ID, repo.ID, version)},
		Created: &now,
	}

	if err := h.index.UpsertEntry(c.Request.Context(), owner.ID, repo.Name.String(), spec); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, types.Ok(gin.H{
		"release": stored,
		"path":    objectPath,
	}))
}

// FetchIndex serves the owner's Helm-compatible index.yaml.
func (h *Handlers) FetchIndex(c *gin.Context) {
	owner := h.resolveOwner(c.Param("owner"))
	if owner == nil {
		notFound(c, "owner not found")
		return
	}

	idx, err := h.index.GetIndex(c.Request.Context(), owner.ID)
	if err != nil {
		fail(c, err)
		return
	}
	if idx == nil {
		notFound(c, "no chart index for this owner")
		return
	}

	data, err := yaml.Marshal(idx)
	if err != nil {
		fail(c, err)
		return
	}

	c.Data(http.StatusOK, "text/yaml; charset=utf-8", data)
}
