package models

import "chartedregistry/pkg/types"

// Owner is a user or organization; both behave as namespace roots for
// charts (spec.md §3).
type Owner struct {
	ID            types.ULID `json:"id"`
	Name          types.Name `json:"name"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	AvatarHash    string     `json:"avatar_hash,omitempty"`
	Organization  bool       `json:"organization"`
}

// Sanitized returns a copy of o with sensitive fields cleared, safe to
// serialize back to a client.
func (o Owner) Sanitized() Owner {
	o.PasswordHash = ""
	return o
}
