package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/todokit/pkg/jwt"
	"github.com/dmitrymomot/todokit/pkg/logger"
)

// Token audiences. Session tokens gate the HTTP API; datastore tokens gate
// direct document store access. The audience claim keeps them from being
// swapped for each other.
const (
	AudienceSession   = "session"
	AudienceDatastore = "datastore"
)

// ProviderBearer identifies accounts resolved through the external bearer
// credential bridge.
const ProviderBearer = "bearer"

// BridgeConfig configures the identity bridge.
type BridgeConfig struct {
	Issuer        string        `env:"AUTH_ISSUER" envDefault:"todokit"`
	StoreTokenTTL time.Duration `env:"AUTH_STORE_TOKEN_TTL" envDefault:"1h"`
}

// Service bridges external identity verification to local sessions. A
// successful sign-in yields a SessionPayload carrying a freshly minted
// datastore token; every failure collapses into ErrSignInRejected so the
// surface stays fail-closed.
type Service struct {
	verifier CredentialVerifier
	adapter  Adapter
	password *PasswordService
	tokens   *jwt.Service
	cfg      BridgeConfig
	logger   *slog.Logger
}

type BridgeOption func(*Service)

// WithBridgeLogger sets a custom logger for the service.
func WithBridgeLogger(l *slog.Logger) BridgeOption {
	return func(s *Service) {
		s.logger = l
	}
}

func NewService(verifier CredentialVerifier, adapter Adapter, password *PasswordService, tokens *jwt.Service, cfg BridgeConfig, opts ...BridgeOption) *Service {
	s := &Service{
		verifier: verifier,
		adapter:  adapter,
		password: password,
		tokens:   tokens,
		cfg:      cfg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignIn verifies an external bearer credential and resolves it to a local
// user. The subject must already be known, either through a linked bearer
// account or by verified email; an unknown subject rejects the sign-in
// rather than provisioning a user from unverified claims.
func (s *Service) SignIn(ctx context.Context, credential string) (*SessionPayload, error) {
	claims, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		s.logger.Warn("bearer verification failed", logger.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSignInRejected, err)
	}

	user, err := s.adapter.GetUserByAccount(ctx, ProviderBearer, claims.Subject)
	switch {
	case err == nil:
	case errors.Is(err, ErrUserNotFound) && claims.Email != "" && claims.EmailVerified:
		user, err = s.adapter.GetUserByEmail(ctx, claims.Email)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown subject", ErrSignInRejected)
		}
		if linkErr := s.adapter.LinkAccount(ctx, &Account{
			Provider:          ProviderBearer,
			ProviderAccountID: claims.Subject,
			UserID:            user.ID,
		}); linkErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrSignInRejected, linkErr)
		}
	default:
		return nil, fmt.Errorf("%w: unknown subject", ErrSignInRejected)
	}

	return s.Establish(ctx, user)
}

// SignInWithPassword authenticates an email/password pair. The specific
// failure sentinel survives wrapping so the HTTP layer can map it to a
// catalog message.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*SessionPayload, error) {
	user, err := s.password.Authenticate(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignInRejected, err)
	}
	return s.Establish(ctx, user)
}

// SignUp registers a new email/password user and signs them in.
func (s *Service) SignUp(ctx context.Context, email, password string) (*SessionPayload, error) {
	user, err := s.password.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.Establish(ctx, user)
}

// Establish builds the session payload for an authenticated user,
// minting a fresh datastore token. Called on every fresh sign-in and never
// on refresh: refresh carries the existing payload forward untouched.
func (s *Service) Establish(ctx context.Context, user *User) (*SessionPayload, error) {
	storeToken, err := s.MintStoreToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("mint store token: %w", err)
	}
	return &SessionPayload{
		UserID:     user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Image:      user.Image,
		Role:       user.Role,
		StoreToken: storeToken,
	}, nil
}

// MintStoreToken issues a short-lived datastore access token for a user.
func (s *Service) MintStoreToken(userID string) (string, error) {
	now := time.Now()
	return s.tokens.Generate(jwt.StandardClaims{
		ID:        uuid.NewString(),
		Subject:   userID,
		Issuer:    s.cfg.Issuer,
		Audience:  AudienceDatastore,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.cfg.StoreTokenTTL).Unix(),
	})
}

// VerifyStoreToken validates a datastore token and returns the user id it
// was minted for. Wrong audience, bad signature, and expiry all reject.
func (s *Service) VerifyStoreToken(token string) (string, error) {
	var claims jwt.StandardClaims
	if err := s.tokens.Parse(token, &claims); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStoreTokenRejected, err)
	}
	if claims.Audience != AudienceDatastore || claims.Subject == "" {
		return "", ErrStoreTokenRejected
	}
	return claims.Subject, nil
}

// DeleteAccount removes the user and everything hanging off it: linked
// provider accounts (cascaded by the adapter) and password credentials.
func (s *Service) DeleteAccount(ctx context.Context, creds CredentialStore, userID string) error {
	if err := s.adapter.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if creds != nil {
		if err := creds.DeleteCredentialsByUser(ctx, userID); err != nil {
			return fmt.Errorf("delete credentials: %w", err)
		}
	}
	return nil
}
