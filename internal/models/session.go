package models

import "chartedregistry/pkg/types"

// Session pairs an access JWT and a refresh JWT to an owner; it is the
// server-side authority for revocation (spec.md §3, §4.6).
type Session struct {
	ID           types.ULID `json:"id"`
	Account      types.ULID `json:"account"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
}

// Sanitized returns a copy of s with token bytes cleared, for the "fetch
// self" operation in §4.6 which must not echo live tokens back.
func (s Session) Sanitized() Session {
	s.AccessToken = ""
	s.RefreshToken = ""
	return s
}

// AuthContext is attached to the request by the §4.5 middleware on
// successful authentication: the resolved Owner and, for Bearer auth, the
// Session consulted.
type AuthContext struct {
	User    Owner
	Session *Session
}
