package session

import (
	"errors"
	"fmt"
	"sync"

	"cart-gateway/storage"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// tokenKey is the storage key the bearer token is persisted under.
const tokenKey = "auth_token"

// CartSource names which cart is authoritative for an operation. It is
// resolved once per operation from the session state instead of checking
// token presence at every call site.
type CartSource int

const (
	SourceLocal CartSource = iota
	SourceRemote
)

func (s CartSource) String() string {
	if s == SourceRemote {
		return "remote"
	}
	return "local"
}

// Claims carries the only claim the gateway reads from the bearer token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager persists the bearer token and answers "is a session active" for
// the rest of the gateway. Tokens are decoded, never verified: signature
// verification is the backend's job, the gateway only needs the role claim
// to decide whether a cart concept applies.
type Manager struct {
	mu     sync.RWMutex
	kv     storage.Store
	parser *jwt.Parser
	log    *logrus.Entry
}

func NewManager(kv storage.Store) *Manager {
	return &Manager{
		kv:     kv,
		parser: jwt.NewParser(),
		log:    logrus.WithField("component", "session"),
	}
}

// Establish decodes the token's claims and persists the token. The token is
// rejected only when it cannot be decoded at all.
func (m *Manager) Establish(token string) (Claims, error) {
	claims := Claims{}
	if _, _, err := m.parser.ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("failed to decode token: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.kv.Set(tokenKey, []byte(token)); err != nil {
		m.log.WithError(err).Warn("failed to persist session token")
	}
	return claims, nil
}

// Clear drops the persisted token, ending the session.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.kv.Delete(tokenKey); err != nil {
		m.log.WithError(err).Warn("failed to delete session token")
	}
}

// Token returns the persisted bearer token, if any.
func (m *Manager) Token() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := m.kv.Get(tokenKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.log.WithError(err).Warn("failed to read session token")
		}
		return "", false
	}
	return string(data), true
}

// Active reports whether a session is established.
func (m *Manager) Active() bool {
	_, ok := m.Token()
	return ok
}

// Role returns the role claim of the active session, or empty for guests.
func (m *Manager) Role() string {
	token, ok := m.Token()
	if !ok {
		return ""
	}
	claims := Claims{}
	if _, _, err := m.parser.ParseUnverified(token, &claims); err != nil {
		return ""
	}
	return claims.Role
}

// Source resolves which cart is authoritative right now.
func (m *Manager) Source() CartSource {
	if m.Active() {
		return SourceRemote
	}
	return SourceLocal
}
