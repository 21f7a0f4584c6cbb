package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/todokit/pkg/logger"
	"github.com/dmitrymomot/todokit/pkg/sanitizer"
)

// ProviderAdapter abstracts a single OAuth provider: building the
// authorization URL and turning a callback code into a normalized profile.
type ProviderAdapter interface {
	ProviderID() string
	AuthURL(state string) (string, error)
	ResolveProfile(ctx context.Context, code string) (ProviderProfile, error)
}

// StateStore keeps one-time CSRF state tokens for the OAuth flow.
// ConsumeState must be atomic: a state is valid exactly once.
type StateStore interface {
	StoreState(ctx context.Context, state string, expiresAt time.Time) error
	ConsumeState(ctx context.Context, state string) error
}

// MemoryStateStore is an in-process StateStore. States expire lazily on
// consumption.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]time.Time)}
}

func (s *MemoryStateStore) StoreState(ctx context.Context, state string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = expiresAt
	return nil
}

func (s *MemoryStateStore) ConsumeState(ctx context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.states[state]
	if !ok {
		return ErrInvalidState
	}
	delete(s.states, state)
	if time.Now().After(expiresAt) {
		return ErrInvalidState
	}
	return nil
}

var _ StateStore = (*MemoryStateStore)(nil)

// OAuthService runs the authorization-code flow against one or more
// provider adapters and resolves the profile into a local User.
type OAuthService struct {
	adapter      Adapter
	states       StateStore
	providers    map[string]ProviderAdapter
	logger       *slog.Logger
	stateTTL     time.Duration
	verifiedOnly bool
}

type OAuthOption func(*OAuthService)

// WithOAuthLogger sets a custom logger for the service.
func WithOAuthLogger(l *slog.Logger) OAuthOption {
	return func(s *OAuthService) {
		s.logger = l
	}
}

// WithStateTTL sets how long a CSRF state token stays valid.
func WithStateTTL(ttl time.Duration) OAuthOption {
	return func(s *OAuthService) {
		s.stateTTL = ttl
	}
}

// WithVerifiedOnly enforces that only verified provider emails are accepted.
func WithVerifiedOnly(verifiedOnly bool) OAuthOption {
	return func(s *OAuthService) {
		s.verifiedOnly = verifiedOnly
	}
}

func NewOAuthService(adapter Adapter, states StateStore, providers []ProviderAdapter, opts ...OAuthOption) *OAuthService {
	s := &OAuthService{
		adapter:      adapter,
		states:       states,
		providers:    make(map[string]ProviderAdapter, len(providers)),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		stateTTL:     10 * time.Minute,
		verifiedOnly: true,
	}
	for _, p := range providers {
		s.providers[p.ProviderID()] = p
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthURL generates the provider authorization URL with a one-time CSRF
// state token.
func (s *OAuthService) AuthURL(ctx context.Context, provider string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", ErrUnknownProvider
	}

	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	if err := s.states.StoreState(ctx, state, time.Now().Add(s.stateTTL)); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}

	return p.AuthURL(state)
}

// Auth handles the provider callback: it consumes the state token,
// exchanges the code for a profile, and resolves the profile to a user.
// Resolution order: existing linked account, then existing user by email
// (link the account to it), then a freshly created user.
func (s *OAuthService) Auth(ctx context.Context, provider, code, state string) (*User, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	if err := s.states.ConsumeState(ctx, state); err != nil {
		return nil, ErrInvalidState
	}

	profile, err := p.ResolveProfile(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("resolve provider profile: %w", err)
	}
	if profile.ProviderUserID == "" || profile.Email == "" {
		return nil, ErrNoPrimaryEmail
	}
	profile.Email = sanitizer.NormalizeEmail(profile.Email)

	if s.verifiedOnly && !profile.EmailVerified {
		return nil, ErrUnverifiedEmail
	}

	user, err := s.adapter.GetUserByAccount(ctx, provider, profile.ProviderUserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check linked account: %w", err)
	}

	user, err = s.adapter.GetUserByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		// Same verified email, new provider: attach the account to the
		// existing user instead of creating a duplicate identity.
	case errors.Is(err, ErrUserNotFound):
		user, err = s.adapter.CreateUser(ctx, &User{
			Name:          sanitizer.NormalizeName(profile.Name),
			Email:         profile.Email,
			Image:         profile.AvatarURL,
			EmailVerified: profile.EmailVerified,
		})
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	default:
		return nil, fmt.Errorf("check existing email: %w", err)
	}

	if err := s.adapter.LinkAccount(ctx, &Account{
		Provider:          provider,
		ProviderAccountID: profile.ProviderUserID,
		UserID:            user.ID,
		AccessToken:       profile.AccessToken,
		RefreshToken:      profile.RefreshToken,
		TokenType:         profile.TokenType,
		Scope:             profile.Scope,
		ExpiresAt:         expiryUnix(profile.ExpiresAt),
	}); err != nil {
		s.logger.Error("link oauth account failed",
			logger.UserID(user.ID),
			logger.Provider(provider),
			logger.Error(err),
		)
		return nil, fmt.Errorf("link %s account: %w", provider, err)
	}

	return user, nil
}

// Unlink removes the provider account from a user.
func (s *OAuthService) Unlink(ctx context.Context, provider, providerAccountID string) error {
	return s.adapter.UnlinkAccount(ctx, provider, providerAccountID)
}

func expiryUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
