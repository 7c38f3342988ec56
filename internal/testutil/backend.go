// Package testutil provides a fake ticket backend and helpers for tests
// that go through the real REST client.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/deskline/deskline/internal/client"
)

// APIPrefix is the versioned root every route is registered under.
const APIPrefix = "/api/v1"

// Request is one request seen by the Backend.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Backend is an httptest server with per-route handlers that records every
// request it receives.
type Backend struct {
	Server *httptest.Server

	mux      *http.ServeMux
	mu       sync.Mutex
	requests []Request
}

// NewBackend starts a backend that is closed when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{mux: http.NewServeMux()}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	b.mu.Lock()
	b.requests = append(b.requests, Request{
		Method: r.Method,
		Path:   strings.TrimPrefix(r.URL.Path, APIPrefix),
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	b.mu.Unlock()

	b.mux.ServeHTTP(w, r)
}

// Handle registers h for "METHOD /path", relative to APIPrefix.
func (b *Backend) Handle(pattern string, h http.HandlerFunc) {
	method, path, _ := strings.Cut(pattern, " ")
	b.mux.HandleFunc(method+" "+APIPrefix+path, h)
}

// JSON registers a route that always answers status with body.
func (b *Backend) JSON(pattern string, status int, body string) {
	b.Handle(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

// Dictionaries registers the three dictionary routes with small tables.
func (b *Backend) Dictionaries() {
	b.JSON("GET /ticket_statuses", http.StatusOK, `[{"id":1,"code":"open","label":"Open"},{"id":2,"code":"closed","label":"Closed"}]`)
	b.JSON("GET /ticket_priorities", http.StatusOK, `[{"id":1,"code":"low","label":"Low"},{"id":2,"code":"high","label":"High"}]`)
	b.JSON("GET /departments", http.StatusOK, `[{"id":1,"name":"IT"},{"id":2,"name":"Support"}]`)
}

// URL returns the versioned API root.
func (b *Backend) URL() string {
	return b.Server.URL + APIPrefix
}

// Requests returns the recorded requests matching method and path. An
// empty method or path matches anything.
func (b *Backend) Requests(method, path string) []Request {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Request
	for _, r := range b.requests {
		if (method == "" || r.Method == method) && (path == "" || r.Path == path) {
			out = append(out, r)
		}
	}
	return out
}

// Count returns how many requests matched method and path.
func (b *Backend) Count(method, path string) int {
	return len(b.Requests(method, path))
}

// Client returns a REST client for the backend authenticated with token.
func (b *Backend) Client(token string) *client.Client {
	return client.NewClient(&client.Config{
		BaseURL: b.URL(),
		Token:   token,
		Timeout: 5 * time.Second,
		Logger:  zerolog.Nop(),
	})
}

// Token signs a session token carrying userID in the user_id claim. An
// empty userID leaves the claim out.
func Token(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}
	if userID != "" {
		claims["user_id"] = userID
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

// Context returns a context that ends with the test or after five seconds.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
