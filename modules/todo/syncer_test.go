package todo_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/todokit/modules/auth"
	"github.com/dmitrymomot/todokit/modules/session"
	"github.com/dmitrymomot/todokit/modules/todo"
	"github.com/dmitrymomot/todokit/pkg/broadcast"
	"github.com/dmitrymomot/todokit/pkg/cookie"
	"github.com/dmitrymomot/todokit/pkg/jwt"
)

type staticVerifier struct {
	subject string
}

func (v staticVerifier) Verify(ctx context.Context, credential string) (*auth.Claims, error) {
	if credential != "valid-credential" {
		return nil, auth.ErrInvalidCredential
	}
	return &auth.Claims{Subject: v.subject}, nil
}

// newStack wires the full service: auth, sessions, todos, and the
// realtime feed, the same shape cmd/server assembles.
func newStack(t *testing.T) (*httptest.Server, *todo.Feed, string) {
	t.Helper()

	tokens, err := jwt.NewFromString("syncer-test-signing-key-32-bytes!!!!")
	require.NoError(t, err)
	cookies, err := cookie.New([]string{"syncer-test-cookie-secret-32-bytes!!"})
	require.NoError(t, err)

	sessions := session.NewManager(tokens, cookies, session.Config{
		CookieName: "td_session",
		TTL:        time.Hour,
		Issuer:     "todokit-test",
	})

	adapter := auth.NewMemoryAdapter()
	user, err := adapter.CreateUser(context.Background(), &auth.User{Email: "sync@example.com"})
	require.NoError(t, err)
	require.NoError(t, adapter.LinkAccount(context.Background(), &auth.Account{
		Provider:          auth.ProviderBearer,
		ProviderAccountID: "ext-1",
		UserID:            user.ID,
	}))

	password := auth.NewPasswordService(adapter, adapter)
	bridge := auth.NewService(staticVerifier{subject: "ext-1"}, adapter, password, tokens, auth.BridgeConfig{
		Issuer:        "todokit-test",
		StoreTokenTTL: time.Hour,
	})

	catalog, err := auth.LoadMessageCatalog()
	require.NoError(t, err)

	broadcaster := broadcast.NewMemoryBroadcaster[todo.Snapshot](16)
	t.Cleanup(func() { _ = broadcaster.Close() })

	registry := todo.NewRegistry()
	feed := todo.NewFeed(broadcaster, registry)
	svc := todo.NewService(todo.NewMemoryRepository(), feed)

	oauth := auth.NewOAuthService(adapter, auth.NewMemoryStateStore(), nil)
	authHandler := auth.NewHandler(bridge, oauth, sessions, adapter, catalog, registry, nil)

	r := chi.NewRouter()
	r.Mount("/auth", authHandler.Routes())
	r.Mount("/api/todos", todo.NewHandler(svc, sessions, nil).Routes())
	r.Mount("/store/todos", todo.NewStoreHandler(svc, bridge, nil).Routes())

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, feed, user.ID
}

func TestSyncerLifecycle(t *testing.T) {
	t.Parallel()

	srv, _, _ := newStack(t)
	ctx := context.Background()

	syncer, err := todo.NewSyncer(srv.URL)
	require.NoError(t, err)
	defer syncer.Close()

	assert.Equal(t, todo.StateUnauthenticated, syncer.State())

	// Sign in: session first, then the datastore stream.
	require.NoError(t, syncer.SignIn(ctx, "valid-credential"))
	assert.Equal(t, todo.StateStoreAuthenticated, syncer.State())

	// The initial snapshot clears the loading flag.
	require.Eventually(t, func() bool { return !syncer.Loading() }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, syncer.Todos())

	// Write-through: the replica updates via the snapshot, not locally.
	require.NoError(t, syncer.Add(ctx, "first item"))
	require.Eventually(t, func() bool { return len(syncer.Todos()) == 1 }, 2*time.Second, 10*time.Millisecond)

	item := syncer.Todos()[0]
	assert.Equal(t, "first item", item.Name)
	assert.False(t, item.Completed)

	require.NoError(t, syncer.SetCompleted(ctx, item.ID, true))
	require.Eventually(t, func() bool {
		todos := syncer.Todos()
		return len(todos) == 1 && todos[0].Completed
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, syncer.Remove(ctx, item.ID))
	require.Eventually(t, func() bool { return len(syncer.Todos()) == 0 }, 2*time.Second, 10*time.Millisecond)

	// Sign-out tears the stream down and clears local state.
	require.NoError(t, syncer.SignOut(ctx))
	assert.Equal(t, todo.StateUnauthenticated, syncer.State())
	assert.Empty(t, syncer.Todos())
	assert.False(t, syncer.Loading())
}

func TestSyncerRejectedSignIn(t *testing.T) {
	t.Parallel()

	srv, _, _ := newStack(t)

	syncer, err := todo.NewSyncer(srv.URL)
	require.NoError(t, err)
	defer syncer.Close()

	err = syncer.SignIn(context.Background(), "bad-credential")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect username or password")
	assert.Equal(t, todo.StateUnauthenticated, syncer.State())
}

func TestSyncerStreamFailureKeepsSessionPending(t *testing.T) {
	t.Parallel()

	// Sign-in succeeds but the datastore stream rejects the token: the
	// session survives, so the client parks in session-pending rather
	// than dropping back to unauthenticated.
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/signin", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"uid":"user-1","storeToken":"stale-token"}`))
	})
	mux.HandleFunc("GET /store/todos/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"403 Forbidden error."}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	syncer, err := todo.NewSyncer(srv.URL)
	require.NoError(t, err)
	defer syncer.Close()

	err = syncer.SignIn(context.Background(), "valid-credential")
	require.Error(t, err)
	assert.Equal(t, todo.StateSessionPending, syncer.State())
	assert.False(t, syncer.Loading())
	assert.Empty(t, syncer.Todos())
}

func TestSyncerMutationsRequireConnection(t *testing.T) {
	t.Parallel()

	syncer, err := todo.NewSyncer("http://127.0.0.1:0")
	require.NoError(t, err)
	defer syncer.Close()

	err = syncer.Add(context.Background(), "nope")
	require.Error(t, err)
}

func TestSyncerCloseIdempotent(t *testing.T) {
	t.Parallel()

	srv, _, _ := newStack(t)

	syncer, err := todo.NewSyncer(srv.URL)
	require.NoError(t, err)
	require.NoError(t, syncer.SignIn(context.Background(), "valid-credential"))

	require.NoError(t, syncer.Close())
	require.NoError(t, syncer.Close())
	require.NoError(t, syncer.Close())
}

func TestSignOutClosesServerListeners(t *testing.T) {
	t.Parallel()

	srv, feed, userID := newStack(t)
	ctx := context.Background()

	syncer, err := todo.NewSyncer(srv.URL)
	require.NoError(t, err)
	defer syncer.Close()

	require.NoError(t, syncer.SignIn(ctx, "valid-credential"))
	require.Eventually(t, func() bool { return !syncer.Loading() }, 2*time.Second, 10*time.Millisecond)

	// One live stream registered server side.
	require.Eventually(t, func() bool {
		return feed.Registry().Count(userID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, syncer.SignOut(ctx))

	// Sign-out closed it through the registry.
	require.Eventually(t, func() bool {
		return feed.Registry().Count(userID) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
