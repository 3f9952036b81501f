// Package api wires the §6 HTTP surface with gin, following the teacher's
// SetupRouter()+route-group style, generalized from the teacher's single
// flat /api group into /v1 and an unprefixed alias (spec.md: "default API
// version also reachable without prefix").
package api

import (
	"chartedregistry/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestIDHeader is the response header carrying each request's internal
// correlation ID, used to thread a single identifier through logging
// without exposing any externalized entity's ULID.
const requestIDHeader = "X-Request-Id"

// SetupRouter builds the gin.Engine serving both the versioned and
// unprefixed route trees against the same Handlers.
func SetupRouter(h *Handlers) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	})

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	register := func(group *gin.RouterGroup) {
		group.GET("/", h.Root)

		group.POST("/users/login", h.Login)
		group.GET("/users/@me/session", h.RequireAuth(), h.FetchSession)
		group.POST("/users/@me/session/refresh", h.RequireRefresh(), h.RefreshSession)
		group.DELETE("/users/@me/session", h.RequireAuth(), h.Logout)

		group.PUT("/users", h.Register)
		group.GET("/users/:idOrName", h.OptionalAuth(), h.FetchUser)
		group.GET("/users/@me", h.RequireScope(types.ScopeUserAccess), h.FetchSelf)
		group.PATCH("/users/@me", h.RequireScope(types.ScopeUserUpdate), h.PatchSelf)
		group.DELETE("/users/@me", h.RequireScope(types.ScopeUserDelete), h.DeleteSelf)

		group.GET("/repositories/:owner/:repo", h.OptionalAuth(), h.FetchRepository)
		group.GET("/repositories/:owner/:repo/releases", h.RequireScope(types.ScopeRepoAccess), h.ListReleases)
		group.GET("/repositories/:owner/:repo/releases/:versionOrId", h.RequireScope(types.ScopeRepoAccess), h.FetchRelease)
		group.GET("/repositories/:owner/:repo/releases/:versionOrId/:version/tarball", h.RequireScope(types.ScopeRepoAccess), h.FetchTarball)
		group.GET("/repositories/:owner/:repo/releases/:versionOrId/:version/provenance", h.RequireScope(types.ScopeRepoAccess), h.FetchProvenance)
		group.POST("/repositories/:owner/:repo/releases/:version/tarball", h.RequireScope(types.ScopeRepoReleaseCreate), h.UploadTarball)

		group.GET("/indexes/:owner", h.FetchIndex)
	}

	register(router.Group("/v1"))
	register(router.Group(""))

	return router
}
