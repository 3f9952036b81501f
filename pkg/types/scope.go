package types

import (
	"fmt"
	"strconv"
)

// Scope is a single named permission bit. The authoritative layout assigns
// consecutive powers of two in the order listed below, resolving the Open
// Question in spec.md §9 in favor of the most recent bit layout, supplemented
// in full from original_source's apikeyscope bitflags table (the distilled
// spec names only five scopes as examples).
type Scope uint64

const (
	ScopeUserAccess Scope = 1 << iota
	ScopeUserUpdate
	ScopeUserDelete
	ScopeUserConnections
	ScopeUserAvatarUpdate
	ScopeUserSessionsList

	ScopeRepoAccess
	ScopeRepoCreate
	ScopeRepoDelete
	ScopeRepoUpdate
	ScopeRepoIconUpdate
	ScopeRepoReleaseCreate
	ScopeRepoReleaseUpdate
	ScopeRepoReleaseDelete
	ScopeRepoMembersList
	ScopeRepoMemberUpdate
	ScopeRepoMemberKick
	ScopeRepoMemberInviteAccess
	ScopeRepoMemberInviteDelete
	ScopeRepoWebhookList
	ScopeRepoWebhookCreate
	ScopeRepoWebhookUpdate
	ScopeRepoWebhookDelete
	ScopeRepoWebhookEventAccess
	ScopeRepoWebhookEventDelete

	ScopeApiKeyView
	ScopeApiKeyList
	ScopeApiKeyCreate
	ScopeApiKeyDelete
	ScopeApiKeyUpdate

	ScopeOrgAccess
	ScopeOrgCreate
	ScopeOrgUpdate
	ScopeOrgDelete
	ScopeOrgMemberInvites
	ScopeOrgMemberList
	ScopeOrgMemberKick
	ScopeOrgMemberUpdate
	ScopeOrgWebhookList
	ScopeOrgWebhookCreate
	ScopeOrgWebhookUpdate
	ScopeOrgWebhookDelete
	ScopeOrgWebhookEventList
	ScopeOrgWebhookEventDelete

	ScopeAdminStats
	ScopeAdminUserCreate
	ScopeAdminUserDelete
	ScopeAdminUserUpdate
	ScopeAdminOrgDelete
	ScopeAdminOrgUpdate
)

// scopeNames is the fixed bit -> name table. Order must track the const
// block above exactly, since the bit position is derived from table index.
var scopeNames = []string{
	"user:access",
	"user:update",
	"user:delete",
	"user:connections",
	"user:avatar:update",
	"user:sessions:list",

	"repo:access",
	"repo:create",
	"repo:delete",
	"repo:update",
	"repo:icon:update",
	"repo:releases:create",
	"repo:releases:update",
	"repo:releases:delete",
	"repo:members:list",
	"repo:members:update",
	"repo:members:kick",
	"repo:members:invites:access",
	"repo:members:invites:delete",
	"repo:webhooks:list",
	"repo:webhooks:create",
	"repo:webhooks:update",
	"repo:webhooks:delete",
	"repo:webhooks:events:access",
	"repo:webhooks:events:delete",

	"apikeys:view",
	"apikeys:list",
	"apikeys:create",
	"apikeys:delete",
	"apikeys:update",

	"org:access",
	"org:create",
	"org:update",
	"org:delete",
	"org:members:invites",
	"org:members:list",
	"org:members:kick",
	"org:members:update",
	"org:webhooks:list",
	"org:webhooks:create",
	"org:webhooks:update",
	"org:webhooks:delete",
	"org:webhooks:events:list",
	"org:webhooks:events:delete",

	"admin:stats",
	"admin:users:create",
	"admin:users:delete",
	"admin:users:update",
	"admin:orgs:delete",
	"admin:orgs:update",
}

var scopeByName map[string]Scope

func init() {
	scopeByName = make(map[string]Scope, len(scopeNames))
	for i, name := range scopeNames {
		scopeByName[name] = Scope(1) << uint(i)
	}
}

// MaxScope is the highest defined scope bit value.
func MaxScope() Scope {
	return Scope(1) << uint(len(scopeNames)-1)
}

// Name returns the scope's string name, or "" if the value is not a single
// recognized bit.
func (s Scope) Name() string {
	for i := range scopeNames {
		if Scope(1)<<uint(i) == s {
			return scopeNames[i]
		}
	}
	return ""
}

// ScopeByName resolves a scope's string name to its bit value.
func ScopeByName(name string) (Scope, bool) {
	s, ok := scopeByName[name]
	return s, ok
}

// ParseScope accepts either a string scope name or a decimal uint64 in
// range [1, MaxScope], mirroring the Rust deserializer's string-or-u64
// acceptance (out-of-range or zero numeric values are rejected).
func ParseScope(raw string) (Scope, error) {
	if s, ok := ScopeByName(raw); ok {
		return s, nil
	}

	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unknown scope %q", raw)
	}

	if v == 0 || Scope(v) > MaxScope() {
		return 0, fmt.Errorf("scope value %d out of range [1..%d]", v, MaxScope())
	}

	return Scope(v), nil
}

// ScopeSet is a 64-bit bitfield of scopes, as stored on an ApiKey.
type ScopeSet uint64

// Add sets the given scopes in the set.
func (s *ScopeSet) Add(scopes ...Scope) {
	for _, sc := range scopes {
		*s |= ScopeSet(sc)
	}
}

// Has reports whether every bit in required is present in s.
func (s ScopeSet) Has(required Scope) bool {
	return ScopeSet(required)&s == ScopeSet(required)
}

// HasAll reports whether every scope in required is present in s, and if
// not, returns the name of the first missing scope (for AccessNotPermitted
// error details per §4.5).
func (s ScopeSet) HasAll(required ...Scope) (ok bool, missing string) {
	for _, r := range required {
		if !s.Has(r) {
			return false, r.Name()
		}
	}
	return true, ""
}

// Names returns the string names of every scope bit set in s.
func (s ScopeSet) Names() []string {
	var names []string
	for i, name := range scopeNames {
		if s.Has(Scope(1) << uint(i)) {
			names = append(names, name)
		}
	}
	return names
}
