package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/todokit/pkg/sanitizer"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

// PasswordService registers and authenticates users with email/password
// credentials. Repeated failures lock the account for a cooldown window.
type PasswordService struct {
	adapter    Adapter
	creds      CredentialStore
	bcryptCost int
	logger     *slog.Logger

	maxAttempts int
	lockWindow  time.Duration

	mu       sync.Mutex
	attempts map[string]*attemptState
}

type attemptState struct {
	failures  int
	lockUntil time.Time
}

type PasswordOption func(*PasswordService)

// WithBcryptCost sets the bcrypt cost for password hashing.
func WithBcryptCost(cost int) PasswordOption {
	return func(s *PasswordService) {
		s.bcryptCost = cost
	}
}

// WithPasswordLogger sets a custom logger for the service.
func WithPasswordLogger(logger *slog.Logger) PasswordOption {
	return func(s *PasswordService) {
		s.logger = logger
	}
}

// WithLockPolicy sets how many consecutive failures lock an account and
// for how long.
func WithLockPolicy(maxAttempts int, window time.Duration) PasswordOption {
	return func(s *PasswordService) {
		s.maxAttempts = maxAttempts
		s.lockWindow = window
	}
}

func NewPasswordService(adapter Adapter, creds CredentialStore, opts ...PasswordOption) *PasswordService {
	s := &PasswordService{
		adapter:     adapter,
		creds:       creds,
		bcryptCost:  bcrypt.DefaultCost,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxAttempts: 5,
		lockWindow:  15 * time.Minute,
		attempts:    make(map[string]*attemptState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new user with an email/password credential.
func (s *PasswordService) Register(ctx context.Context, email, password string) (*User, error) {
	email = sanitizer.NormalizeEmail(email)
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return nil, ErrWeakPassword
	}

	_, err := s.adapter.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailExists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.adapter.CreateUser(ctx, &User{Email: email})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.creds.CreateCredential(ctx, &Credential{
		Email:        email,
		UserID:       user.ID,
		PasswordHash: hash,
	}); err != nil {
		// Roll the user back so a retry does not hit a half-registered state.
		if delErr := s.adapter.DeleteUser(ctx, user.ID); delErr != nil {
			s.logger.Error("cleanup after credential save failure",
				slog.String("user_id", user.ID),
				slog.Any("error", delErr),
			)
		}
		return nil, fmt.Errorf("save credential: %w", err)
	}

	if err := s.adapter.LinkAccount(ctx, &Account{
		Provider:          ProviderCredentials,
		ProviderAccountID: email,
		UserID:            user.ID,
	}); err != nil {
		return nil, fmt.Errorf("link credentials account: %w", err)
	}

	return user, nil
}

// Authenticate verifies the email/password pair. Failures feed the lock
// counter; a locked account rejects with ErrTooManyRequests until the
// window passes.
func (s *PasswordService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = sanitizer.NormalizeEmail(email)

	if s.locked(email) {
		return nil, ErrTooManyRequests
	}

	cred, err := s.creds.GetCredential(ctx, email)
	if err != nil {
		s.recordFailure(email)
		return nil, ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(password)); err != nil {
		s.recordFailure(email)
		return nil, ErrWrongPassword
	}

	s.clearFailures(email)

	user, err := s.adapter.GetUser(ctx, cred.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *PasswordService) locked(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.attempts[email]
	if !ok {
		return false
	}
	if !state.lockUntil.IsZero() && time.Now().Before(state.lockUntil) {
		return true
	}
	if !state.lockUntil.IsZero() {
		delete(s.attempts, email)
	}
	return false
}

func (s *PasswordService) recordFailure(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.attempts[email]
	if !ok {
		state = &attemptState{}
		s.attempts[email] = state
	}
	state.failures++
	if state.failures >= s.maxAttempts {
		state.lockUntil = time.Now().Add(s.lockWindow)
	}
}

func (s *PasswordService) clearFailures(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, email)
}
