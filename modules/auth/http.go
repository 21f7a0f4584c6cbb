package auth

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/todokit/modules/session"
	"github.com/dmitrymomot/todokit/pkg/logger"
)

// Teardown releases per-user resources at sign-out, typically open
// realtime subscriptions. Sign-out must always run it.
type Teardown interface {
	CloseAll(userID string)
}

// TeardownFunc adapts a function to the Teardown interface.
type TeardownFunc func(userID string)

func (f TeardownFunc) CloseAll(userID string) { f(userID) }

// Handler exposes the auth flows over HTTP.
type Handler struct {
	bridge   *Service
	oauth    *OAuthService
	sessions *session.Manager
	creds    CredentialStore
	catalog  *MessageCatalog
	teardown Teardown
	logger   *slog.Logger
}

func NewHandler(bridge *Service, oauth *OAuthService, sessions *session.Manager, creds CredentialStore, catalog *MessageCatalog, teardown Teardown, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		bridge:   bridge,
		oauth:    oauth,
		sessions: sessions,
		creds:    creds,
		catalog:  catalog,
		teardown: teardown,
		logger:   log,
	}
}

// Routes mounts the auth endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/signin", h.signIn)
	r.Post("/signin/password", h.signInWithPassword)
	r.Post("/signup", h.signUp)
	r.Post("/signout", h.signOut)
	r.Post("/refresh", h.refresh)
	r.Get("/session", h.currentSession)
	r.Get("/oauth/{provider}", h.oauthRedirect)
	r.Get("/oauth/{provider}/callback", h.oauthCallback)

	r.Group(func(r chi.Router) {
		r.Use(h.sessions.RequireAuth)
		r.Delete("/account", h.deleteAccount)
	})

	return r
}

type signInRequest struct {
	Credential string `json:"credential"`
}

type passwordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signIn verifies an external bearer credential and starts a session.
// The credential comes from the Authorization header or the JSON body.
func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	credential := bearerToken(r)
	if credential == "" {
		var req signInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			credential = req.Credential
		}
	}

	payload, err := h.bridge.SignIn(r.Context(), credential)
	if err != nil {
		h.logger.Warn("sign-in rejected", logger.Error(err))
		writeError(w, http.StatusUnauthorized, h.catalog.Message(CodeForError(err)))
		return
	}

	h.establishSession(w, r, payload)
}

func (h *Handler) signInWithPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, h.catalog.Message(""))
		return
	}

	payload, err := h.bridge.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warn("password sign-in rejected", logger.Error(err))
		writeError(w, http.StatusUnauthorized, h.catalog.Message(CodeForError(err)))
		return
	}

	h.establishSession(w, r, payload)
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload, err := h.bridge.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailExists):
			writeError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, ErrWeakPassword):
			writeError(w, http.StatusBadRequest, "password does not meet requirements")
		default:
			h.logger.Error("sign-up failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	h.establishSession(w, r, payload)
}

// signOut destroys the session and tears down every realtime listener the
// user holds. Teardown is unconditional: a sign-out with live
// subscriptions left behind would keep streaming another user's view.
func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	if claims, err := h.sessions.Resolve(r); err == nil {
		h.teardown.CloseAll(claims.Subject)
	}
	h.sessions.Destroy(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	claims, err := h.sessions.Refresh(w, r)
	if err != nil {
		writeError(w, http.StatusForbidden, session.ForbiddenMessage)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(claims))
}

func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) {
	claims, err := h.sessions.Resolve(r)
	if err != nil {
		writeError(w, http.StatusForbidden, session.ForbiddenMessage)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(claims))
}

func (h *Handler) oauthRedirect(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	url, err := h.oauth.AuthURL(r.Context(), provider)
	if err != nil {
		if errors.Is(err, ErrUnknownProvider) {
			writeError(w, http.StatusNotFound, "unknown provider")
			return
		}
		h.logger.Error("oauth redirect failed", logger.Provider(provider), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "oauth unavailable")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handler) oauthCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	user, err := h.oauth.Auth(r.Context(), provider, code, state)
	if err != nil {
		h.logger.Warn("oauth callback rejected", logger.Provider(provider), logger.Error(err))
		writeError(w, http.StatusUnauthorized, h.catalog.Message(CodeForError(err)))
		return
	}

	payload, err := h.bridge.Establish(r.Context(), user)
	if err != nil {
		h.logger.Error("session establish failed", logger.UserID(user.ID), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "sign-in failed")
		return
	}

	h.establishSession(w, r, payload)
}

// deleteAccount removes the user and cascades to linked accounts and
// credentials, then ends the session like a sign-out.
func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, _ := session.FromContext(r.Context())

	if err := h.bridge.DeleteAccount(r.Context(), h.creds, claims.Subject); err != nil {
		h.logger.Error("account deletion failed", logger.UserID(claims.Subject), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "account deletion failed")
		return
	}

	h.teardown.CloseAll(claims.Subject)
	h.sessions.Destroy(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) establishSession(w http.ResponseWriter, r *http.Request, payload *SessionPayload) {
	claims, err := h.sessions.Issue(w, session.Identity{
		UserID:     payload.UserID,
		Name:       payload.Name,
		Email:      payload.Email,
		Image:      payload.Image,
		Role:       payload.Role,
		StoreToken: payload.StoreToken,
	})
	if err != nil {
		h.logger.Error("session issue failed", logger.UserID(payload.UserID), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "sign-in failed")
		return
	}
	writeJSON(w, http.StatusOK, sessionView(claims))
}

type sessionResponse struct {
	UserID     string `json:"uid"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Image      string `json:"image,omitempty"`
	Role       string `json:"role,omitempty"`
	StoreToken string `json:"storeToken"`
	ExpiresAt  int64  `json:"expiresAt"`
}

func sessionView(claims *session.Claims) sessionResponse {
	return sessionResponse{
		UserID:     claims.Subject,
		Name:       claims.Name,
		Email:      claims.Email,
		Image:      claims.Image,
		Role:       claims.Role,
		StoreToken: claims.StoreToken,
		ExpiresAt:  claims.ExpiresAt,
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
