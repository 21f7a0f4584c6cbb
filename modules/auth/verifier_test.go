package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/todokit/modules/auth"
)

func newVerifier(endpoint string) *auth.BearerVerifier {
	return auth.NewBearerVerifier(auth.BearerVerifierConfig{
		Endpoint:     endpoint,
		CheckRevoked: true,
		Timeout:      2 * time.Second,
	})
}

func TestBearerVerifier(t *testing.T) {
	t.Parallel()

	t.Run("valid credential", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "good-token", r.Form.Get("token"))
			assert.Equal(t, "true", r.Form.Get("check_revoked"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sub":"subject-1","email":"a@example.com","email_verified":true,"name":"A"}`))
		}))
		defer srv.Close()

		claims, err := newVerifier(srv.URL).Verify(context.Background(), "good-token")
		require.NoError(t, err)
		assert.Equal(t, "subject-1", claims.Subject)
		assert.Equal(t, "a@example.com", claims.Email)
		assert.True(t, claims.EmailVerified)
	})

	t.Run("revoked credential rejected", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sub":"subject-1","revoked":true}`))
		}))
		defer srv.Close()

		_, err := newVerifier(srv.URL).Verify(context.Background(), "revoked-token")
		require.ErrorIs(t, err, auth.ErrInvalidCredential)
	})

	t.Run("non-200 rejected", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := newVerifier(srv.URL).Verify(context.Background(), "bad-token")
		require.ErrorIs(t, err, auth.ErrInvalidCredential)
	})

	t.Run("transport failure rejected", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // endpoint unreachable

		_, err := newVerifier(srv.URL).Verify(context.Background(), "any-token")
		require.ErrorIs(t, err, auth.ErrInvalidCredential)
	})

	t.Run("malformed response rejected", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		_, err := newVerifier(srv.URL).Verify(context.Background(), "any-token")
		require.ErrorIs(t, err, auth.ErrInvalidCredential)
	})

	t.Run("missing subject rejected", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"email":"a@example.com"}`))
		}))
		defer srv.Close()

		_, err := newVerifier(srv.URL).Verify(context.Background(), "any-token")
		require.ErrorIs(t, err, auth.ErrInvalidCredential)
	})

	t.Run("empty credential rejected without a request", func(t *testing.T) {
		t.Parallel()

		_, err := newVerifier("http://127.0.0.1:0").Verify(context.Background(), "  ")
		require.ErrorIs(t, err, auth.ErrInvalidCredential)
	})
}
