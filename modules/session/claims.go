package session

import "github.com/dmitrymomot/todokit/pkg/jwt"

// Audience is the audience claim stamped on every session token. It keeps
// session tokens and datastore tokens from being swapped for each other.
const Audience = "session"

// Claims is the full session state carried in the signed cookie. The
// StoreToken rides along verbatim across refreshes; only a fresh sign-in
// replaces it.
type Claims struct {
	jwt.StandardClaims

	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Image      string `json:"image,omitempty"`
	Role       string `json:"role,omitempty"`
	StoreToken string `json:"store_token,omitempty"`
}

// UserID returns the subject the session was issued for.
func (c Claims) UserID() string {
	return c.Subject
}
