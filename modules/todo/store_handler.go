package todo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/todokit/pkg/logger"
)

// StoreTokenVerifier validates a datastore access token and returns the
// user id it was minted for.
type StoreTokenVerifier interface {
	VerifyStoreToken(token string) (string, error)
}

// StoreHandler exposes the datastore surface: CRUD plus the realtime
// snapshot stream, gated by the short-lived datastore token a session
// embeds rather than by the session cookie itself.
type StoreHandler struct {
	svc      *Service
	verifier StoreTokenVerifier
	logger   *slog.Logger
}

func NewStoreHandler(svc *Service, verifier StoreTokenVerifier, log *slog.Logger) *StoreHandler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &StoreHandler{svc: svc, verifier: verifier, logger: log}
}

// Routes mounts the datastore endpoints on a chi router.
func (h *StoreHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.requireStoreToken)

	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/stream", h.stream)
	r.Put("/{id}", h.update)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.remove)

	return r
}

type uidContextKey struct{}

// requireStoreToken gates every datastore route on a valid bearer token
// with the datastore audience. A session token presented here is rejected.
func (h *StoreHandler) requireStoreToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		uid, err := h.verifier.VerifyStoreToken(strings.TrimSpace(token))
		if err != nil {
			writeError(w, http.StatusForbidden, "403 Forbidden error.")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), uidContextKey{}, uid)))
	})
}

func storeUID(ctx context.Context) string {
	uid, _ := ctx.Value(uidContextKey{}).(string)
	return uid
}

func (h *StoreHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), storeUID(r.Context()))
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *StoreHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, InvalidRequestMessage)
		return
	}

	item, err := h.svc.Create(r.Context(), storeUID(r.Context()), req.Data.Name)
	if err != nil {
		h.operationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *StoreHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, InvalidRequestMessage)
		return
	}

	item, err := h.svc.Update(r.Context(), storeUID(r.Context()), chi.URLParam(r, "id"), req.Data)
	if err != nil {
		h.operationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *StoreHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), storeUID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.operationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// stream delivers snapshots over SSE: the full current list immediately,
// then a complete replacement after every change. Disconnecting closes
// the subscription; the registry closes it on sign-out.
func (h *StoreHandler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	uid := storeUID(r.Context())
	initial, sub, err := h.svc.Watch(r.Context(), uid)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	defer func() { _ = sub.Close() }()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeSnapshotEvent(w, initial); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, ok := <-sub.Updates():
			if !ok {
				return
			}
			if err := writeSnapshotEvent(w, snapshot); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSnapshotEvent(w io.Writer, snapshot Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, "event: snapshot\ndata: "); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n\n")
	return err
}

func (h *StoreHandler) operationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrEmptyName):
		writeError(w, http.StatusBadRequest, InvalidRequestMessage)
	case errors.Is(err, ErrTodoNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.serverError(w, r, err)
	}
}

func (h *StoreHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("store request failed",
		logger.UserID(storeUID(r.Context())),
		logger.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}
