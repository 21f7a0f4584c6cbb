package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/todokit/modules/auth"
)

type fakeProvider struct {
	id      string
	profile auth.ProviderProfile
	err     error
}

func (f *fakeProvider) ProviderID() string { return f.id }

func (f *fakeProvider) AuthURL(state string) (string, error) {
	return "https://provider.example/auth?state=" + state, nil
}

func (f *fakeProvider) ResolveProfile(ctx context.Context, code string) (auth.ProviderProfile, error) {
	if f.err != nil {
		return auth.ProviderProfile{}, f.err
	}
	return f.profile, nil
}

func newOAuth(adapter *auth.MemoryAdapter, provider auth.ProviderAdapter) (*auth.OAuthService, *auth.MemoryStateStore) {
	states := auth.NewMemoryStateStore()
	svc := auth.NewOAuthService(adapter, states, []auth.ProviderAdapter{provider})
	return svc, states
}

func storeState(t *testing.T, states *auth.MemoryStateStore) string {
	t.Helper()
	state := "state-" + t.Name()
	require.NoError(t, states.StoreState(context.Background(), state, time.Now().Add(time.Minute)))
	return state
}

func TestOAuthServiceAuth(t *testing.T) {
	t.Parallel()

	profile := auth.ProviderProfile{
		ProviderUserID: "gh-100",
		Email:          "Eve@Example.com",
		EmailVerified:  true,
		Name:           "Eve",
	}

	t.Run("creates user on first sign-in", func(t *testing.T) {
		t.Parallel()

		adapter := auth.NewMemoryAdapter()
		untidy := profile
		untidy.Name = "  Eve  "
		svc, states := newOAuth(adapter, &fakeProvider{id: auth.ProviderGithub, profile: untidy})
		state := storeState(t, states)

		user, err := svc.Auth(context.Background(), auth.ProviderGithub, "code", state)
		require.NoError(t, err)
		assert.Equal(t, "eve@example.com", user.Email)
		assert.Equal(t, "Eve", user.Name)

		linked, err := adapter.GetUserByAccount(context.Background(), auth.ProviderGithub, "gh-100")
		require.NoError(t, err)
		assert.Equal(t, user.ID, linked.ID)
	})

	t.Run("returns existing user on repeat sign-in", func(t *testing.T) {
		t.Parallel()

		adapter := auth.NewMemoryAdapter()
		svc, states := newOAuth(adapter, &fakeProvider{id: auth.ProviderGithub, profile: profile})

		state := storeState(t, states)
		first, err := svc.Auth(context.Background(), auth.ProviderGithub, "code", state)
		require.NoError(t, err)

		state2 := "second-" + t.Name()
		require.NoError(t, states.StoreState(context.Background(), state2, time.Now().Add(time.Minute)))
		second, err := svc.Auth(context.Background(), auth.ProviderGithub, "code", state2)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("links account to existing user with same email", func(t *testing.T) {
		t.Parallel()

		adapter := auth.NewMemoryAdapter()
		existing, err := adapter.CreateUser(context.Background(), &auth.User{Email: "eve@example.com"})
		require.NoError(t, err)

		svc, states := newOAuth(adapter, &fakeProvider{id: auth.ProviderGithub, profile: profile})
		state := storeState(t, states)

		user, err := svc.Auth(context.Background(), auth.ProviderGithub, "code", state)
		require.NoError(t, err)
		assert.Equal(t, existing.ID, user.ID)
	})

	t.Run("rejects reused state", func(t *testing.T) {
		t.Parallel()

		adapter := auth.NewMemoryAdapter()
		svc, states := newOAuth(adapter, &fakeProvider{id: auth.ProviderGithub, profile: profile})
		state := storeState(t, states)

		_, err := svc.Auth(context.Background(), auth.ProviderGithub, "code", state)
		require.NoError(t, err)

		_, err = svc.Auth(context.Background(), auth.ProviderGithub, "code", state)
		require.ErrorIs(t, err, auth.ErrInvalidState)
	})

	t.Run("rejects expired state", func(t *testing.T) {
		t.Parallel()

		adapter := auth.NewMemoryAdapter()
		svc, states := newOAuth(adapter, &fakeProvider{id: auth.ProviderGithub, profile: profile})
		require.NoError(t, states.StoreState(context.Background(), "stale", time.Now().Add(-time.Second)))

		_, err := svc.Auth(context.Background(), auth.ProviderGithub, "code", "stale")
		require.ErrorIs(t, err, auth.ErrInvalidState)
	})

	t.Run("rejects unverified email", func(t *testing.T) {
		t.Parallel()

		unverified := profile
		unverified.EmailVerified = false

		adapter := auth.NewMemoryAdapter()
		svc, states := newOAuth(adapter, &fakeProvider{id: auth.ProviderGithub, profile: unverified})
		state := storeState(t, states)

		_, err := svc.Auth(context.Background(), auth.ProviderGithub, "code", state)
		require.ErrorIs(t, err, auth.ErrUnverifiedEmail)
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		t.Parallel()

		adapter := auth.NewMemoryAdapter()
		svc, _ := newOAuth(adapter, &fakeProvider{id: auth.ProviderGithub, profile: profile})

		_, err := svc.Auth(context.Background(), "gitlab", "code", "state")
		require.ErrorIs(t, err, auth.ErrUnknownProvider)
	})

	t.Run("rejects invalid code", func(t *testing.T) {
		t.Parallel()

		adapter := auth.NewMemoryAdapter()
		svc, states := newOAuth(adapter, &fakeProvider{id: auth.ProviderGithub, err: auth.ErrInvalidCode})
		state := storeState(t, states)

		_, err := svc.Auth(context.Background(), auth.ProviderGithub, "bad", state)
		require.ErrorIs(t, err, auth.ErrInvalidCode)
	})
}

func TestOAuthServiceAuthURL(t *testing.T) {
	t.Parallel()

	adapter := auth.NewMemoryAdapter()
	svc, _ := newOAuth(adapter, &fakeProvider{id: auth.ProviderGoogle})

	url, err := svc.AuthURL(context.Background(), auth.ProviderGoogle)
	require.NoError(t, err)
	assert.Contains(t, url, "state=")

	_, err = svc.AuthURL(context.Background(), "gitlab")
	require.ErrorIs(t, err, auth.ErrUnknownProvider)
}
