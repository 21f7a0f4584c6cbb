package todo_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/todokit/modules/session"
	"github.com/dmitrymomot/todokit/modules/todo"
	"github.com/dmitrymomot/todokit/pkg/cookie"
	"github.com/dmitrymomot/todokit/pkg/jwt"
)

func newSessionManager(t *testing.T) *session.Manager {
	t.Helper()

	tokens, err := jwt.NewFromString("handler-test-signing-key-32-bytes!!!")
	require.NoError(t, err)
	cookies, err := cookie.New([]string{"handler-test-cookie-secret-32-bytes!"})
	require.NoError(t, err)

	return session.NewManager(tokens, cookies, session.Config{
		CookieName: "td_session",
		TTL:        time.Hour,
		Issuer:     "todokit-test",
	})
}

func sessionCookies(t *testing.T, mgr *session.Manager, uid string) []*http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	_, err := mgr.Issue(rec, session.Identity{UserID: uid})
	require.NoError(t, err)
	return rec.Result().Cookies()
}

func newTodoServer(t *testing.T) (*httptest.Server, *session.Manager, *todo.Service) {
	t.Helper()

	mgr := newSessionManager(t)
	svc, _ := newService(t)
	srv := httptest.NewServer(todo.NewHandler(svc, mgr, nil).Routes())
	t.Cleanup(srv.Close)
	return srv, mgr, svc
}

func doRequest(t *testing.T, method, url string, body string, cookies []*http.Cookie) *http.Response {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body["error"]
}

func TestHandlerRequiresSession(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTodoServer(t)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/"},
		{http.MethodPost, "/"},
		{http.MethodGet, "/123"},
		{http.MethodDelete, "/123"},
	} {
		resp := doRequest(t, tc.method, srv.URL+tc.path, "", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, "%s %s", tc.method, tc.path)
		assert.Equal(t, "403 Forbidden error.", decodeError(t, resp))
	}
}

func TestHandlerMalformedID(t *testing.T) {
	t.Parallel()

	srv, mgr, _ := newTodoServer(t)
	cookies := sessionCookies(t, mgr, "user-1")

	for _, tc := range []struct {
		method string
		body   string
	}{
		{http.MethodGet, ""},
		{http.MethodPatch, `{"data":{"completed":true}}`},
		{http.MethodDelete, ""},
	} {
		resp := doRequest(t, tc.method, srv.URL+"/not-a-uuid", tc.body, cookies)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, tc.method)
		assert.Equal(t, "400 Invalid Request.", decodeError(t, resp))
	}
}

func TestHandlerCRUD(t *testing.T) {
	t.Parallel()

	srv, mgr, _ := newTodoServer(t)
	cookies := sessionCookies(t, mgr, "user-1")

	// Create.
	resp := doRequest(t, http.MethodPost, srv.URL+"/", `{"data":{"name":"write tests","completed":false}}`, cookies)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created todo.Todo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "write tests", created.Name)
	assert.Equal(t, "user-1", created.UID)

	// List.
	resp = doRequest(t, http.MethodGet, srv.URL+"/", "", cookies)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []todo.Todo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	require.Len(t, items, 1)

	// Update.
	resp = doRequest(t, http.MethodPatch, srv.URL+"/"+created.ID, `{"data":{"completed":true}}`, cookies)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated todo.Todo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.True(t, updated.Completed)

	// Another user cannot see or touch it.
	otherCookies := sessionCookies(t, mgr, "user-2")
	resp = doRequest(t, http.MethodGet, srv.URL+"/"+created.ID, "", otherCookies)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, srv.URL+"/", "", otherCookies)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var otherItems []todo.Todo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&otherItems))
	assert.Empty(t, otherItems)

	// Delete.
	resp = doRequest(t, http.MethodDelete, srv.URL+"/"+created.ID, "", cookies)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var deleted map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&deleted))
	assert.True(t, deleted["deleted"])

	resp = doRequest(t, http.MethodGet, srv.URL+"/"+created.ID, "", cookies)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerRejectsBareMutationBody(t *testing.T) {
	t.Parallel()

	srv, mgr, _ := newTodoServer(t)
	cookies := sessionCookies(t, mgr, "user-1")

	// A payload without the data envelope carries no name.
	resp := doRequest(t, http.MethodPost, srv.URL+"/", `{"name":"loose"}`, cookies)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "400 Invalid Request.", decodeError(t, resp))
}
