package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/todokit/pkg/cookie"
	"github.com/dmitrymomot/todokit/pkg/jwt"
)

// Identity is what a sign-in hands to the session layer.
type Identity struct {
	UserID     string
	Name       string
	Email      string
	Image      string
	Role       string
	StoreToken string
}

// Manager issues and resolves stateless sessions. The session state is a
// signed JWT carried in a signed cookie; nothing is stored server side, so
// sign-out is cookie deletion and expiry is the only revocation.
type Manager struct {
	tokens  *jwt.Service
	cookies *cookie.Manager
	cfg     Config
}

func NewManager(tokens *jwt.Service, cookies *cookie.Manager, cfg Config) *Manager {
	return &Manager{tokens: tokens, cookies: cookies, cfg: cfg}
}

// Issue starts a new session for the identity. Called on fresh sign-in;
// the identity's StoreToken is embedded as-is.
func (m *Manager) Issue(w http.ResponseWriter, id Identity) (*Claims, error) {
	now := time.Now()
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			ID:        uuid.NewString(),
			Subject:   id.UserID,
			Issuer:    m.cfg.Issuer,
			Audience:  Audience,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(m.cfg.TTL).Unix(),
		},
		Name:       id.Name,
		Email:      id.Email,
		Image:      id.Image,
		Role:       id.Role,
		StoreToken: id.StoreToken,
	}
	if err := m.write(w, claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// Resolve reads and validates the session from the request cookie.
func (m *Manager) Resolve(r *http.Request) (*Claims, error) {
	token, err := m.cookies.GetSigned(r, m.cfg.CookieName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSession, err)
	}

	var claims Claims
	if err := m.tokens.Parse(token, &claims); err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return nil, fmt.Errorf("%w: expired", ErrNoSession)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if claims.Audience != Audience || claims.Subject == "" {
		return nil, ErrInvalidSession
	}
	return &claims, nil
}

// Refresh extends the current session's lifetime. Identity fields and the
// embedded StoreToken carry over untouched; only the temporal claims and
// token id change. A fresh sign-in, not a refresh, is what re-mints the
// StoreToken.
func (m *Manager) Refresh(w http.ResponseWriter, r *http.Request) (*Claims, error) {
	claims, err := m.Resolve(r)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	claims.ID = uuid.NewString()
	claims.IssuedAt = now.Unix()
	claims.ExpiresAt = now.Add(m.cfg.TTL).Unix()

	if err := m.write(w, *claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Destroy ends the session by deleting the cookie.
func (m *Manager) Destroy(w http.ResponseWriter) {
	m.cookies.Delete(w, m.cfg.CookieName)
}

func (m *Manager) write(w http.ResponseWriter, claims Claims) error {
	token, err := m.tokens.Generate(claims)
	if err != nil {
		return fmt.Errorf("generate session token: %w", err)
	}
	return m.cookies.SetSigned(w, m.cfg.CookieName, token,
		cookie.WithMaxAge(int(m.cfg.TTL.Seconds())),
		cookie.WithSecure(m.cfg.Secure),
		cookie.WithHTTPOnly(true),
		cookie.WithSameSite(http.SameSiteLaxMode),
	)
}
