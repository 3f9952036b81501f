package models

import (
	"time"

	"chartedregistry/pkg/types"
)

// ApiKey is an opaque bearer token with an attached bitfield of scopes
// (spec.md §3).
type ApiKey struct {
	ID          types.ULID      `json:"id"`
	Owner       types.ULID      `json:"owner"`
	Name        types.Name      `json:"name"`
	Token       string          `json:"-"`
	Scopes      types.ScopeSet  `json:"scopes"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Expired reports whether the key's expiry, if any, has passed as of now.
func (k ApiKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}
