package todo

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/todokit/modules/session"
	"github.com/dmitrymomot/todokit/pkg/logger"
)

// InvalidRequestMessage is the exact body returned for a malformed todo
// id. Clients match on this string.
const InvalidRequestMessage = "400 Invalid Request."

// Handler exposes the session-gated todo API.
type Handler struct {
	svc      *Service
	sessions *session.Manager
	logger   *slog.Logger
}

func NewHandler(svc *Service, sessions *session.Manager, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{svc: svc, sessions: sessions, logger: log}
}

// Routes mounts the todo endpoints on a chi router. Every route requires
// a valid session.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.sessions.RequireAuth)

	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.remove)

	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	uid := session.UserIDFromContext(r.Context())

	items, err := h.svc.List(r.Context(), uid)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Mutation bodies wrap their payload in a data envelope, matching the
// wire shape clients send: {"data":{"name":...,"completed":...}}.
type createRequest struct {
	Data struct {
		Name      string `json:"name"`
		Completed bool   `json:"completed"`
	} `json:"data"`
}

type updateRequest struct {
	Data Patch `json:"data"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	uid := session.UserIDFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, InvalidRequestMessage)
		return
	}

	item, err := h.svc.Create(r.Context(), uid, req.Data.Name)
	if err != nil {
		if errors.Is(err, ErrEmptyName) {
			writeError(w, http.StatusBadRequest, InvalidRequestMessage)
			return
		}
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	uid := session.UserIDFromContext(r.Context())

	item, err := h.svc.Get(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		h.operationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	uid := session.UserIDFromContext(r.Context())

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, InvalidRequestMessage)
		return
	}

	item, err := h.svc.Update(r.Context(), uid, chi.URLParam(r, "id"), req.Data)
	if err != nil {
		h.operationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	uid := session.UserIDFromContext(r.Context())

	if err := h.svc.Delete(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		h.operationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) operationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrEmptyName):
		writeError(w, http.StatusBadRequest, InvalidRequestMessage)
	case errors.Is(err, ErrTodoNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.serverError(w, r, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("todo request failed",
		logger.UserID(session.UserIDFromContext(r.Context())),
		logger.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
