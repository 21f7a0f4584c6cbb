package auth

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/todokit/pkg/sanitizer"
)

// MemoryAdapter is an in-memory Adapter and CredentialStore used in tests
// and local development. Safe for concurrent use.
type MemoryAdapter struct {
	NoSessionRecords

	mu       sync.RWMutex
	users    map[string]User
	accounts map[string]Account // keyed by provider + "\x00" + providerAccountID
	creds    map[string]Credential
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		users:    make(map[string]User),
		accounts: make(map[string]Account),
		creds:    make(map[string]Credential),
	}
}

func accountKey(provider, providerAccountID string) string {
	return provider + "\x00" + providerAccountID
}

func (m *MemoryAdapter) CreateUser(ctx context.Context, user *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *user
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.Email = sanitizer.NormalizeEmail(stored.Email)
	m.users[stored.ID] = stored

	out := stored
	return &out, nil
}

func (m *MemoryAdapter) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := user
	return &out, nil
}

func (m *MemoryAdapter) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = sanitizer.NormalizeEmail(email)
	for _, user := range m.users {
		if user.Email == email {
			out := user
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryAdapter) GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[accountKey(provider, providerAccountID)]
	if !ok {
		return nil, ErrUserNotFound
	}
	user, ok := m.users[account.UserID]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := user
	return &out, nil
}

func (m *MemoryAdapter) UpdateUser(ctx context.Context, patch UserPatch) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[patch.ID]
	if !ok {
		return nil, ErrUserNotFound
	}

	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Email != nil {
		user.Email = sanitizer.NormalizeEmail(*patch.Email)
	}
	if patch.Image != nil {
		user.Image = *patch.Image
	}
	if patch.EmailVerified != nil {
		user.EmailVerified = *patch.EmailVerified
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.AccessToken != nil {
		user.AccessToken = *patch.AccessToken
	}
	if patch.RefreshToken != nil {
		user.RefreshToken = *patch.RefreshToken
	}

	m.users[patch.ID] = user
	out := user
	return &out, nil
}

func (m *MemoryAdapter) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.users, id)
	for key, account := range m.accounts {
		if account.UserID == id {
			delete(m.accounts, key)
		}
	}
	return nil
}

func (m *MemoryAdapter) LinkAccount(ctx context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *account
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	m.accounts[accountKey(stored.Provider, stored.ProviderAccountID)] = stored
	return nil
}

func (m *MemoryAdapter) UnlinkAccount(ctx context.Context, provider, providerAccountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := accountKey(provider, providerAccountID)
	if _, ok := m.accounts[key]; !ok {
		return ErrAccountNotFound
	}
	delete(m.accounts, key)
	return nil
}

// AccountsByUser returns the linked accounts for a user. Test helper.
func (m *MemoryAdapter) AccountsByUser(userID string) []Account {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Account
	for _, account := range m.accounts {
		if account.UserID == userID {
			out = append(out, account)
		}
	}
	return out
}

func (m *MemoryAdapter) CreateCredential(ctx context.Context, cred *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := sanitizer.NormalizeEmail(cred.Email)
	if _, ok := m.creds[email]; ok {
		return ErrEmailExists
	}
	stored := *cred
	stored.Email = email
	m.creds[email] = stored
	return nil
}

func (m *MemoryAdapter) GetCredential(ctx context.Context, email string) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, ok := m.creds[sanitizer.NormalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := cred
	return &out, nil
}

func (m *MemoryAdapter) DeleteCredentialsByUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for email, cred := range m.creds {
		if cred.UserID == userID {
			delete(m.creds, email)
		}
	}
	return nil
}

var (
	_ Adapter         = (*MemoryAdapter)(nil)
	_ CredentialStore = (*MemoryAdapter)(nil)
)
