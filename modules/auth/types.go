package auth

import "time"

// Identity provider identifiers.
const (
	ProviderGoogle      = "google"
	ProviderGithub      = "github"
	ProviderCredentials = "credentials"
)

// User is the identity record kept in the document store. It is created on
// first successful external sign-in and merged with provider profile data
// afterwards; it is deleted only through explicit account removal, which
// cascades to linked Account records.
type User struct {
	ID            string `bson:"_id" json:"id"`
	Name          string `bson:"name,omitempty" json:"name,omitempty"`
	Email         string `bson:"email" json:"email"`
	Image         string `bson:"image,omitempty" json:"image,omitempty"`
	EmailVerified bool   `bson:"emailVerified,omitempty" json:"emailVerified,omitempty"`
	Role          string `bson:"role,omitempty" json:"role,omitempty"`
	AccessToken   string `bson:"accessToken,omitempty" json:"accessToken,omitempty"`
	RefreshToken  string `bson:"refreshToken,omitempty" json:"refreshToken,omitempty"`
}

// Account links an external provider identity to a User. Uniquely
// identified by (Provider, ProviderAccountID); an account belongs to exactly
// one user, a user may hold several accounts.
type Account struct {
	ID                string `bson:"_id" json:"id"`
	Provider          string `bson:"provider" json:"provider"`
	ProviderAccountID string `bson:"providerAccountId" json:"providerAccountId"`
	UserID            string `bson:"userId" json:"userId"`
	AccessToken       string `bson:"accessToken,omitempty" json:"accessToken,omitempty"`
	RefreshToken      string `bson:"refreshToken,omitempty" json:"refreshToken,omitempty"`
	TokenType         string `bson:"tokenType,omitempty" json:"tokenType,omitempty"`
	Scope             string `bson:"scope,omitempty" json:"scope,omitempty"`
	ExpiresAt         int64  `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}

// Credential is an email/password record for the credentials provider,
// kept adjacent to the user it belongs to.
type Credential struct {
	Email        string `bson:"_id"`
	UserID       string `bson:"userId"`
	PasswordHash []byte `bson:"passwordHash"`
}

// Claims are the verified identity claims a CredentialVerifier extracts
// from an external bearer credential.
type Claims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Image         string `json:"picture"`
}

// SessionPayload is what a successful sign-in hands to the session layer:
// the user's identity fields plus the freshly minted datastore token. The
// session layer carries the payload verbatim across refreshes; only a new
// sign-in replaces the datastore token.
type SessionPayload struct {
	UserID     string
	Name       string
	Email      string
	Image      string
	Role       string
	StoreToken string
}

// UserPatch is a partial update applied to an existing user. Nil fields are
// left untouched.
type UserPatch struct {
	ID            string
	Name          *string
	Email         *string
	Image         *string
	EmailVerified *bool
	Role          *string
	AccessToken   *string
	RefreshToken  *string
}

// ProviderProfile is a normalized profile returned by an OAuth provider
// adapter after code exchange.
type ProviderProfile struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	AvatarURL      string
	AccessToken    string
	RefreshToken   string
	TokenType      string
	Scope          string
	ExpiresAt      time.Time
}
