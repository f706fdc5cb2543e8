// Package session holds the authenticated actor's credentials and identity
// and persists them between runs.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Role is the coarse authorization tier returned at login.
type Role string

// RoleAdmin sees every task and may create, delete and assign.
const RoleAdmin Role = "ADMIN"

// IsAdmin reports whether r is the admin tier. Any other value is a standard user.
func (r Role) IsAdmin() bool { return strings.EqualFold(string(r), string(RoleAdmin)) }

// Session is written at login and read by every screen afterwards.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Role         Role   `json:"role"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
}

// Valid reports whether the session carries a credential at all.
func (s Session) Valid() bool { return s.AccessToken != "" }

// FullName joins first and last name.
func (s Session) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// ErrNoSession is returned by Store.Load when nothing has been saved.
var ErrNoSession = errors.New("no session")

// Store is the contract for session persistence.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}

// Manager is the session context handed to every controller. It caches the
// current session in memory and writes through to its Store.
type Manager struct {
	store Store

	mu  sync.RWMutex
	cur Session
}

// NewManager creates a Manager. Call Restore to pick up a saved session.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Restore loads the persisted session, if any. A missing session is not an error.
func (m *Manager) Restore(ctx context.Context) error {
	s, err := m.store.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.cur = *s
	m.mu.Unlock()
	return nil
}

// Begin persists s as the current session.
func (m *Manager) Begin(ctx context.Context, s Session) error {
	if err := m.store.Save(ctx, &s); err != nil {
		return err
	}
	m.mu.Lock()
	m.cur = s
	m.mu.Unlock()
	return nil
}

// End forgets the current session and clears the store.
func (m *Manager) End(ctx context.Context) error {
	m.mu.Lock()
	m.cur = Session{}
	m.mu.Unlock()
	return m.store.Clear(ctx)
}

// Current returns a copy of the current session.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// AccessToken implements apiclient.TokenSource.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur.AccessToken
}

// Role returns the current role.
func (m *Manager) Role() Role {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur.Role
}

// IsAdmin reports whether the current session is an admin.
func (m *Manager) IsAdmin() bool { return m.Role().IsAdmin() }

// LoggedIn reports whether a credential is held.
func (m *Manager) LoggedIn() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur.Valid()
}
