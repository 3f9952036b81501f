// Package authz models the pluggable password-authentication backend
// spec.md §9 calls out as a closed set of variants (Local, Static, Ldap)
// dispatched by tag rather than runtime subclassing.
package authz

import (
	"errors"

	"chartedregistry/internal/models"
)

// ErrInvalidPassword is returned by Authenticate when the password does
// not match.
var ErrInvalidPassword = errors.New("invalid password")

// Backend authenticates a username/password pair against some credential
// store.
type Backend interface {
	Authenticate(owner models.Owner, password string) error
}

// LocalBackend authenticates against bcrypt-style password hashes stored
// on the Owner row itself. The verify function is injected; BcryptVerify
// in this package is the one cmd/main.go supplies.
type LocalBackend struct {
	Verify func(hash, password string) bool
}

// Authenticate implements Backend.
func (b LocalBackend) Authenticate(owner models.Owner, password string) error {
	if owner.PasswordHash == "" || !b.Verify(owner.PasswordHash, password) {
		return ErrInvalidPassword
	}
	return nil
}

// StaticBackend authenticates against a fixed, configuration-supplied map
// of username to password — intended for small, trusted deployments.
type StaticBackend struct {
	Users map[string]string
}

// Authenticate implements Backend.
func (b StaticBackend) Authenticate(owner models.Owner, password string) error {
	want, ok := b.Users[owner.Name.Normalized()]
	if !ok || want != password {
		return ErrInvalidPassword
	}
	return nil
}

// LdapBackend is a placeholder variant: spec.md §9 notes the source
// contains partially disabled basic-auth paths and leaves LDAP wiring
// implementation-defined. It has no configuration and always rejects.
type LdapBackend struct{}

// Authenticate implements Backend.
func (LdapBackend) Authenticate(models.Owner, string) error {
	return errors.New("ldap authentication backend is not configured")
}
