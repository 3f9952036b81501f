// Package session owns the Session table — the only authority on which
// bearer tokens are currently valid (spec.md §4.6) — generalized from the
// teacher's single chartURL-keyed Manager into the login/refresh/logout
// lifecycle over {id, account, access_token, refresh_token} rows.
package session

import (
	"sync"

	"chartedregistry/internal/models"
	"chartedregistry/pkg/auth"
	"chartedregistry/pkg/types"
)

// Manager mints and revokes sessions. It implements auth.SessionLookup so
// the §4.5 middleware can consult it directly.
type Manager struct {
	mu       sync.RWMutex
	sessions map[types.ULID]*models.Session
	signer   *auth.Signer
}

// NewManager returns an empty session table signing tokens with signer.
func NewManager(signer *auth.Signer) *Manager {
	return &Manager{
		sessions: make(map[types.ULID]*models.Session),
		signer:   signer,
	}
}

// Login mints a fresh session for an already-authenticated owner: a new
// sid, a paired access/refresh JWT, and the inserted Session row
// (spec.md §4.6 steps 3-6).
func (m *Manager) Login(account types.ULID) (*models.Session, error) {
	return m.mint(account)
}

func (m *Manager) mint(account types.ULID) (*models.Session, error) {
	sid := types.NewULID()

	access, err := m.signer.Mint(account, sid, auth.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := m.signer.Mint(account, sid, auth.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	sess := &models.Session{
		ID:           sid,
		Account:      account,
		AccessToken:  access,
		RefreshToken: refresh,
	}

	m.mu.Lock()
	m.sessions[sid] = sess
	m.mu.Unlock()

	return sess, nil
}

// Refresh decodes the refresh token, deletes the current session row, and
// mints a new one for the same account (spec.md §4.6's Refresh operation).
func (m *Manager) Refresh(refreshToken string) (*models.Session, error) {
	claims, err := m.signer.Verify(refreshToken)
	if err != nil {
		if err == auth.ErrExpired {
			return nil, types.NewError(types.CodeSessionExpired, "refresh token expired")
		}
		return nil, types.NewError(types.CodeInvalidSessionToken, "invalid refresh token")
	}

	m.mu.Lock()
	delete(m.sessions, claims.SID)
	m.mu.Unlock()

	return m.mint(claims.UID)
}

// Logout decodes the access token to recover sid and deletes the session
// row, returning EntityNotFound if it was already gone.
func (m *Manager) Logout(accessToken string) error {
	claims, err := m.signer.Verify(accessToken)
	if err != nil {
		return types.NewError(types.CodeInvalidSessionToken, "invalid access token")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[claims.SID]
	if !ok || sess.Account != claims.UID {
		return types.NewError(types.CodeEntityNotFound, "session already gone")
	}

	delete(m.sessions, claims.SID)
	return nil
}

// GetByIDAndAccount implements auth.SessionLookup: the session row the
// §4.5 middleware consults for every bearer-token request. Revocation is
// instantaneous — once the row is deleted, both tokens are dead.
func (m *Manager) GetByIDAndAccount(sid, account types.ULID) *models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[sid]
	if !ok || sess.Account != account {
		return nil
	}
	return sess
}

// FetchSelf returns the sanitized session for the current request —
// token bytes are never echoed back (spec.md §4.6's "Fetch self").
func (m *Manager) FetchSelf(sid, account types.ULID) (*models.Session, error) {
	sess := m.GetByIDAndAccount(sid, account)
	if sess == nil {
		return nil, types.NewError(types.CodeEntityNotFound, "session not found")
	}

	sanitized := sess.Sanitized()
	return &sanitized, nil
}
