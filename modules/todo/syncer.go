package todo

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"

	"github.com/dmitrymomot/todokit/pkg/logger"
)

// SyncState is the client connection state.
type SyncState int

const (
	// StateUnauthenticated means no session exists.
	StateUnauthenticated SyncState = iota
	// StateSessionPending means a session exists but the datastore stream
	// is not connected yet.
	StateSessionPending
	// StateStoreAuthenticated means the datastore stream is live and the
	// local replica follows it.
	StateStoreAuthenticated
)

func (s SyncState) String() string {
	switch s {
	case StateSessionPending:
		return "session-pending"
	case StateStoreAuthenticated:
		return "store-authenticated"
	default:
		return "unauthenticated"
	}
}

// Syncer is a client for the todo service. It signs in, follows the
// snapshot stream, and keeps a local read replica that is replaced
// wholesale on every snapshot. Mutations write through to the server and
// never touch the replica directly; the next snapshot carries the result.
type Syncer struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	mu         sync.Mutex
	state      SyncState
	storeToken string
	todos      []Todo
	loading    bool
	cancel     context.CancelFunc
	done       chan struct{}
	closeOnce  sync.Once
	closed     chan struct{}
}

type SyncerOption func(*Syncer)

// WithSyncerLogger sets a custom logger for the syncer.
func WithSyncerLogger(l *slog.Logger) SyncerOption {
	return func(s *Syncer) {
		s.logger = l
	}
}

// WithHTTPClient replaces the underlying HTTP client. The client must
// carry a cookie jar for the session cookie.
func WithHTTPClient(c *http.Client) SyncerOption {
	return func(s *Syncer) {
		s.client = c
	}
}

func NewSyncer(baseURL string, opts ...SyncerOption) (*Syncer, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	s := &Syncer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Jar: jar},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:   StateUnauthenticated,
		closed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State returns the current connection state.
func (s *Syncer) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Loading reports whether the first snapshot is still pending.
func (s *Syncer) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Todos returns the current replica, newest first.
func (s *Syncer) Todos() []Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Todo, len(s.todos))
	copy(out, s.todos)
	return out
}

func (s *Syncer) setState(state SyncState, loading bool) {
	s.mu.Lock()
	s.state = state
	s.loading = loading
	s.mu.Unlock()
}

type sessionEnvelope struct {
	UserID     string `json:"uid"`
	StoreToken string `json:"storeToken"`
}

// SignIn authenticates with an external bearer credential, then connects
// the snapshot stream with the datastore token the session returned.
func (s *Syncer) SignIn(ctx context.Context, credential string) error {
	s.setState(StateSessionPending, true)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth/signin", nil)
	if err != nil {
		s.setState(StateUnauthenticated, false)
		return err
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := s.client.Do(req)
	if err != nil {
		s.setState(StateUnauthenticated, false)
		return fmt.Errorf("sign in: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.setState(StateUnauthenticated, false)
		return fmt.Errorf("sign in: %s", readErrorMessage(resp.Body))
	}

	var envelope sessionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		s.setState(StateUnauthenticated, false)
		return fmt.Errorf("sign in: decode session: %w", err)
	}

	s.mu.Lock()
	s.storeToken = envelope.StoreToken
	s.mu.Unlock()

	return s.connectStream(ctx)
}

// SignOut ends the session, closes the stream, and clears the replica.
// The local teardown runs even when the server call fails.
func (s *Syncer) SignOut(ctx context.Context) error {
	var signOutErr error
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth/signout", nil)
	if err == nil {
		resp, doErr := s.client.Do(req)
		if doErr != nil {
			signOutErr = doErr
		} else {
			resp.Body.Close()
		}
	} else {
		signOutErr = err
	}

	s.disconnect()

	s.mu.Lock()
	s.state = StateUnauthenticated
	s.storeToken = ""
	s.todos = nil
	s.loading = false
	s.mu.Unlock()

	return signOutErr
}

// Add creates a todo. The replica updates when the snapshot arrives.
func (s *Syncer) Add(ctx context.Context, name string) error {
	body, _ := json.Marshal(map[string]any{
		"data": map[string]any{"name": name, "completed": false},
	})
	return s.storeRequest(ctx, http.MethodPost, "/store/todos", body)
}

// SetCompleted flips a todo's completed flag.
func (s *Syncer) SetCompleted(ctx context.Context, id string, completed bool) error {
	body, _ := json.Marshal(map[string]any{
		"data": map[string]bool{"completed": completed},
	})
	return s.storeRequest(ctx, http.MethodPatch, "/store/todos/"+id, body)
}

// Rename changes a todo's name.
func (s *Syncer) Rename(ctx context.Context, id, name string) error {
	body, _ := json.Marshal(map[string]any{
		"data": map[string]string{"name": name},
	})
	return s.storeRequest(ctx, http.MethodPatch, "/store/todos/"+id, body)
}

// Remove deletes a todo.
func (s *Syncer) Remove(ctx context.Context, id string) error {
	return s.storeRequest(ctx, http.MethodDelete, "/store/todos/"+id, nil)
}

// Close tears the syncer down. Idempotent; the replica stops following
// the stream but keeps its last contents.
func (s *Syncer) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.disconnect()
	})
	return nil
}

func (s *Syncer) connectStream(ctx context.Context) error {
	s.mu.Lock()
	token := s.storeToken
	s.mu.Unlock()

	streamCtx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, s.baseURL+"/store/todos/stream", nil)
	if err != nil {
		cancel()
		s.setState(StateSessionPending, false)
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		cancel()
		s.setState(StateSessionPending, false)
		return fmt.Errorf("connect stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp.Body)
		resp.Body.Close()
		cancel()
		s.setState(StateSessionPending, false)
		return fmt.Errorf("connect stream: %s", msg)
	}

	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.state = StateStoreAuthenticated
	s.loading = true
	s.mu.Unlock()

	go s.follow(resp.Body, done)
	return nil
}

func (s *Syncer) disconnect() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// follow reads SSE snapshot events and replaces the replica wholesale on
// each one.
func (s *Syncer) follow(body io.ReadCloser, done chan struct{}) {
	defer close(done)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}

		var snapshot Snapshot
		if err := json.Unmarshal(bytes.TrimPrefix(line, []byte("data: ")), &snapshot); err != nil {
			s.logger.Warn("bad snapshot event", logger.Error(err))
			continue
		}

		s.mu.Lock()
		s.todos = snapshot.Todos
		s.loading = false
		s.mu.Unlock()
	}
}

func (s *Syncer) storeRequest(ctx context.Context, method, path string, body []byte) error {
	s.mu.Lock()
	token := s.storeToken
	state := s.state
	s.mu.Unlock()

	if state != StateStoreAuthenticated {
		return fmt.Errorf("syncer: not connected (state %s)", state)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: %s", method, path, readErrorMessage(resp.Body))
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil || body.Error == "" {
		return "request failed"
	}
	return body.Error
}
