package auth

import "context"

// Adapter is the capability set the identity bridge needs from a backing
// store. It is deliberately store-agnostic: any document or relational
// backend can implement it once and plug into the same sign-in flows.
type Adapter interface {
	// CreateUser persists a new user, assigning an id when none is set,
	// and returns the stored record.
	CreateUser(ctx context.Context, user *User) (*User, error)

	// GetUser returns the user with the given id or ErrUserNotFound.
	GetUser(ctx context.Context, id string) (*User, error)

	// GetUserByEmail returns the user with the given email or ErrUserNotFound.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserByAccount resolves the user owning the linked account
	// identified by (provider, providerAccountID), or ErrUserNotFound.
	GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*User, error)

	// UpdateUser applies a partial update and returns the updated record.
	UpdateUser(ctx context.Context, patch UserPatch) (*User, error)

	// DeleteUser removes the user and cascades to every account record
	// with a matching userId.
	DeleteUser(ctx context.Context, id string) error

	// LinkAccount persists a provider account link, assigning an id when
	// none is set.
	LinkAccount(ctx context.Context, account *Account) error

	// UnlinkAccount removes the account identified by
	// (provider, providerAccountID).
	UnlinkAccount(ctx context.Context, provider, providerAccountID string) error

	SessionRecords
}

// SessionRecords covers the server-side session and verification-token
// operations of the adapter contract. The application uses a stateless
// token session strategy, so every implementation embeds NoSessionRecords
// and these operations always report not-found; callers must not depend on
// them persisting anything.
type SessionRecords interface {
	GetSessionAndUser(ctx context.Context, sessionToken string) (*User, error)
	UpdateSession(ctx context.Context, sessionToken string) error
	DeleteSession(ctx context.Context, sessionToken string) error
	CreateVerificationToken(ctx context.Context, identifier, token string) error
	UseVerificationToken(ctx context.Context, identifier, token string) error
}

// NoSessionRecords is the no-op SessionRecords implementation shared by all
// adapters.
type NoSessionRecords struct{}

func (NoSessionRecords) GetSessionAndUser(context.Context, string) (*User, error) {
	return nil, ErrNotFound
}

func (NoSessionRecords) UpdateSession(context.Context, string) error { return ErrNotFound }

func (NoSessionRecords) DeleteSession(context.Context, string) error { return ErrNotFound }

func (NoSessionRecords) CreateVerificationToken(context.Context, string, string) error {
	return ErrNotFound
}

func (NoSessionRecords) UseVerificationToken(context.Context, string, string) error {
	return ErrNotFound
}

// CredentialStore persists email/password credentials for the credentials
// provider. Kept separate from Adapter because the adapter contract is
// fixed by the session framework it serves.
type CredentialStore interface {
	CreateCredential(ctx context.Context, cred *Credential) error
	GetCredential(ctx context.Context, email string) (*Credential, error)
	DeleteCredentialsByUser(ctx context.Context, userID string) error
}
