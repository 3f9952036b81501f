package auth

import (
	"encoding/base64"
	"strings"
	"time"

	"chartedregistry/internal/models"
	"chartedregistry/pkg/authz"
	"chartedregistry/pkg/types"

	"github.com/gin-gonic/gin"
)

// AuthType is one of the three schemes spec.md §4.5 dispatches on.
type AuthType int

const (
	AuthTypeBearer AuthType = iota
	AuthTypeApiKey
	AuthTypeBasic
)

func parseAuthType(raw string) (AuthType, bool) {
	switch strings.ToLower(raw) {
	case "bearer":
		return AuthTypeBearer, true
	case "apikey":
		return AuthTypeApiKey, true
	case "basic":
		return AuthTypeBasic, true
	default:
		return 0, false
	}
}

// Options configures one route's authentication/authorization requirement,
// mirroring original_source's authn.rs Options{require_refresh_token,
// allow_unauthorized, scopes}.
type Options struct {
	AllowUnauthorized   bool
	RequireRefreshToken bool
	Scopes              []types.Scope
}

// WithScope returns a copy of o requiring the given additional scope,
// mirroring the Rust builder's with_scope().
func (o Options) WithScope(s types.Scope) Options {
	o.Scopes = append(append([]types.Scope{}, o.Scopes...), s)
	return o
}

// SessionLookup resolves a session row by (sid, account), the only
// authority consulted for bearer-token validity (spec.md §4.6).
type SessionLookup interface {
	GetByIDAndAccount(sid, account types.ULID) *models.Session
}

// Dependencies bundles the lookups and backends the middleware consults.
type Dependencies struct {
	Signer         *Signer
	Sessions       SessionLookup
	Owners         OwnerLookup
	ApiKeys        ApiKeyLookup
	AuthzBackend   authz.Backend
	EnableBasic    bool
}

// OwnerLookup resolves an owner by ID or Name.
type OwnerLookup interface {
	GetByID(id types.ULID) *models.Owner
	GetByName(name types.Name) *models.Owner
}

// ApiKeyLookup resolves an API key by its exact bearer token.
type ApiKeyLookup interface {
	GetByToken(token string, now time.Time) *models.ApiKey
}

const contextKey = "chartedregistry.auth"

// FromContext retrieves the AuthContext attached by RequireAuth, if any.
func FromContext(c *gin.Context) *models.AuthContext {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil
	}
	ctx, _ := v.(*models.AuthContext)
	return ctx
}

// RequireAuth builds the gin.HandlerFunc implementing spec.md §4.5's
// classification algorithm.
func RequireAuth(deps Dependencies, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")

		if header == "" {
			if opts.AllowUnauthorized {
				c.Next()
				return
			}
			respondError(c, types.CodeMissingAuthorizationHeader, "missing Authorization header")
			return
		}

		idx := strings.IndexByte(header, ' ')
		if idx < 0 {
			respondError(c, types.CodeInvalidAuthorizationParts, "Authorization header must be 'Type Value'")
			return
		}

		typeRaw, value := header[:idx], header[idx+1:]
		if strings.Contains(value, " ") {
			respondError(c, types.CodeInvalidAuthorizationParts, "Authorization value must not contain spaces")
			return
		}

		authType, ok := parseAuthType(typeRaw)
		if !ok {
			respondError(c, types.CodeInvalidAuthenticationType, "unknown authentication type "+typeRaw)
			return
		}

		if opts.RequireRefreshToken && authType != AuthTypeBearer {
			respondError(c, types.CodeRefreshTokenRequired, "this route requires a refresh token")
			return
		}

		var (
			authCtx *models.AuthContext
			errOut  *types.Error
		)

		switch authType {
		case AuthTypeBearer:
			authCtx, errOut = bearerAuth(deps, value, opts.RequireRefreshToken)
		case AuthTypeApiKey:
			authCtx, errOut = apiKeyAuth(deps, value, opts.Scopes)
		case AuthTypeBasic:
			if !deps.EnableBasic {
				errOut = types.NewError(types.CodeUnsupportedAuthorizationKind, "basic authentication is disabled")
				break
			}
			authCtx, errOut = basicAuth(deps, value)
		}

		if errOut != nil {
			c.AbortWithStatusJSON(errOut.Status(), types.Fail(errOut))
			return
		}

		c.Set(contextKey, authCtx)
		c.Next()
	}
}

func respondError(c *gin.Context, code types.ErrorCode, message string) {
	err := types.NewError(code, message)
	c.AbortWithStatusJSON(err.Status(), types.Fail(err))
}

func bearerAuth(deps Dependencies, value string, requireRefresh bool) (*models.AuthContext, *types.Error) {
	claims, err := deps.Signer.Verify(value)
	if err != nil {
		if err == ErrExpired {
			return nil, types.NewError(types.CodeSessionExpired, "session token expired")
		}
		return nil, types.NewError(types.CodeInvalidSessionToken, "invalid session token")
	}

	session := deps.Sessions.GetByIDAndAccount(claims.SID, claims.UID)
	if session == nil {
		return nil, types.NewError(types.CodeUnknownSession, "session no longer exists")
	}

	if requireRefresh && value != session.RefreshToken {
		return nil, types.NewError(types.CodeInvalidSessionToken, "token does not match the active refresh token")
	}

	owner := deps.Owners.GetByID(claims.UID)
	if owner == nil {
		return nil, types.NewError(types.CodeEntityNotFound, "session owner no longer exists")
	}

	return &models.AuthContext{User: *owner, Session: session}, nil
}

func apiKeyAuth(deps Dependencies, token string, required []types.Scope) (*models.AuthContext, *types.Error) {
	key := deps.ApiKeys.GetByToken(token, time.Now())
	if key == nil {
		return nil, types.NewError(types.CodeInvalidSessionToken, "unknown API key")
	}

	if ok, missing := key.Scopes.HasAll(required...); !ok {
		return nil, types.NewError(types.CodeAccessNotPermitted, "missing required scope").
			WithDetails(map[string]any{"scope": missing})
	}

	owner := deps.Owners.GetByID(key.Owner)
	if owner == nil {
		return nil, types.NewError(types.CodeEntityNotFound, "API key owner no longer exists")
	}

	return &models.AuthContext{User: *owner}, nil
}

func basicAuth(deps Dependencies, value string) (*models.AuthContext, *types.Error) {
	decoded, err := decodeBasic(value)
	if err != nil {
		return nil, types.NewError(types.CodeInvalidAuthorizationParts, "invalid basic auth encoding")
	}

	idx := strings.IndexByte(decoded, ':')
	if idx < 0 {
		return nil, types.NewError(types.CodeInvalidAuthorizationParts, "basic auth value must be user:pass")
	}

	username, password := decoded[:idx], decoded[idx+1:]
	if strings.IndexByte(password, ':') >= 0 {
		return nil, types.NewError(types.CodeInvalidAuthorizationParts, "basic auth value has too many ':' separators")
	}

	name, err := types.NewName(username)
	if err != nil {
		return nil, types.NewError(types.CodeBadRequest, "invalid username")
	}

	owner := deps.Owners.GetByName(name)
	if owner == nil {
		return nil, types.NewError(types.CodeEntityNotFound, "user not found")
	}

	if err := deps.AuthzBackend.Authenticate(*owner, password); err != nil {
		return nil, types.NewError(types.CodeInvalidPassword, "invalid password")
	}

	return &models.AuthContext{User: *owner}, nil
}

func decodeBasic(value string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
