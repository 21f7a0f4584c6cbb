package auth

import "errors"

// Adapter errors.
var (
	ErrUserNotFound    = errors.New("auth: user not found")
	ErrAccountNotFound = errors.New("auth: account not found")
	ErrEmailExists     = errors.New("auth: email already registered")
	ErrNotFound        = errors.New("auth: not found")
)

// Sign-in errors. ErrSignInRejected is the uniform fail-closed result the
// HTTP surface sees; the more specific sentinels select the user-facing
// message code and are never exposed verbatim.
var (
	ErrSignInRejected     = errors.New("auth: sign-in rejected")
	ErrInvalidCredential  = errors.New("auth: invalid credential")
	ErrWrongPassword      = errors.New("auth: wrong password")
	ErrWeakPassword       = errors.New("auth: password does not meet requirements")
	ErrTooManyRequests    = errors.New("auth: too many sign-in attempts")
	ErrStoreTokenRejected = errors.New("auth: datastore token rejected")
)

// OAuth errors.
var (
	ErrInvalidState    = errors.New("auth: invalid or expired oauth state")
	ErrInvalidCode     = errors.New("auth: invalid authorization code")
	ErrUnverifiedEmail = errors.New("auth: provider email is not verified")
	ErrNoPrimaryEmail  = errors.New("auth: no primary email from provider")
	ErrUnknownProvider = errors.New("auth: unknown provider")
)
