package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskline/deskline/internal/apierrors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *prometheus.Registry) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	reg := prometheus.NewRegistry()
	c := NewClient(&Config{
		BaseURL:    server.URL + "/api/v1",
		Token:      "tok",
		Logger:     zerolog.Nop(),
		Registerer: reg,
	})
	return c, reg
}

func TestClientAuthorization(t *testing.T) {
	var got string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.Dictionaries.Statuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", got)

	c.SetToken("")
	_, err = c.Dictionaries.Statuses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClientErrors(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		body    string
		message string
		code    string
	}{
		{
			name:    "nested error message",
			status:  http.StatusBadRequest,
			body:    `{"error":{"code":"400","message":"Title is required"}}`,
			message: "Title is required",
			code:    "400",
		},
		{
			name:    "flat message",
			status:  http.StatusNotFound,
			body:    `{"code":"404","message":"Ticket not found"}`,
			message: "Ticket not found",
			code:    "404",
		},
		{
			name:    "string error",
			status:  http.StatusForbidden,
			body:    `{"error":"forbidden"}`,
			message: "forbidden",
		},
		{
			name:    "not json",
			status:  http.StatusBadGateway,
			body:    `<html>bad gateway</html>`,
			message: "server replied: 502 Bad Gateway",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := c.Tickets.Get(context.Background(), "abc")
			require.Error(t, err)

			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, tc.message, apierrors.Message(err))
			assert.Equal(t, tc.code, apiErr.Code)
		})
	}
}

func TestClientNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL + "/api/v1"
	server.Close()

	c := NewClient(&Config{BaseURL: base, Logger: zerolog.Nop()})
	_, err := c.Users.List(context.Background())
	require.Error(t, err)

	var netErr *apierrors.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "GET", netErr.Operation)
	assert.Equal(t, netErr.Err.Error(), apierrors.Message(err))
	assert.False(t, apierrors.IsAPIError(err))
}

func TestAuthService(t *testing.T) {
	t.Run("login returns token", func(t *testing.T) {
		var body map[string]string
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			_, _ = w.Write([]byte(`{"token":"a.b.c"}`))
		})

		token, err := c.Auth.Login(context.Background(), "agent", "secret")
		require.NoError(t, err)
		assert.Equal(t, "a.b.c", token)
		assert.Equal(t, map[string]string{"username": "agent", "password": "secret"}, body)
	})

	t.Run("login without token is invalid", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		_, err := c.Auth.Login(context.Background(), "agent", "secret")
		require.Error(t, err)
		assert.Equal(t, apierrors.InvalidResponseMessage, apierrors.Message(err))
	})

	t.Run("register returns user id", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/auth/register", r.URL.Path)
			var req RegisterRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, 3, req.DepartmentID)
			_, _ = w.Write([]byte(`{"user_id":"u9"}`))
		})

		id, err := c.Auth.Register(context.Background(), RegisterRequest{
			Username: "new", Email: "new@example.com", Password: "pw", RoleID: "r1", DepartmentID: 3,
		})
		require.NoError(t, err)
		assert.Equal(t, "u9", id)
	})
}

func TestTicketsService(t *testing.T) {
	t.Run("list sends every filter pair", func(t *testing.T) {
		var query url.Values
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/tickets", r.URL.Path)
			query = r.URL.Query()
			_, _ = w.Write([]byte(`[]`))
		})

		_, err := c.Tickets.List(context.Background(), url.Values{
			"assignee_id": {"u1"},
			"q":           {"printer jam"},
		})
		require.NoError(t, err)
		assert.Equal(t, "u1", query.Get("assignee_id"))
		assert.Equal(t, "printer jam", query.Get("q"))
		assert.Len(t, query, 2)
	})

	t.Run("update patches by id", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "/api/v1/tickets/t-1", r.URL.Path)
			_, _ = w.Write([]byte(`{"ticket_id":"t-1"}`))
		})

		body, err := c.Tickets.Update(context.Background(), "t-1", map[string]any{"title": "x"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"ticket_id":"t-1"}`, string(body))
	})

	t.Run("create rejects non-object success body", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`created`))
		})

		_, err := c.Tickets.Create(context.Background(), map[string]any{"title": "x"})
		require.Error(t, err)
		assert.Equal(t, apierrors.InvalidResponseMessage, apierrors.Message(err))
	})

	t.Run("empty id never reaches the network", func(t *testing.T) {
		called := false
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		err := c.Tickets.Delete(context.Background(), "")
		assert.True(t, apierrors.IsValidation(err))
		assert.False(t, called)
	})
}

func TestCommentsService(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tickets/t-1/comments", r.URL.Path)
		var req CommentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Content)
		assert.Equal(t, "2024-03-01T10:00:00Z", req.TicketCreatedAt)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"comment_id":"c-1"}`))
	})

	body, err := c.Comments.Create(context.Background(), "t-1", "hello", "2024-03-01T10:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, string(body), "c-1")
}

func TestAttachmentsService(t *testing.T) {
	t.Run("upload uses the file field", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/tickets/t-1/attachments", r.URL.Path)
			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			data, _ := io.ReadAll(file)
			assert.Equal(t, "screen.png", header.Filename)
			assert.Equal(t, "PNGDATA", string(data))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"attachment_id":"a-1","filename":"screen.png"}`))
		})

		body, err := c.Attachments.Upload(context.Background(), "t-1", "screen.png", strings.NewReader("PNGDATA"))
		require.NoError(t, err)
		assert.Contains(t, string(body), "a-1")
	})

	t.Run("download streams body", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/tickets/t-1/attachments/a-1/download", r.URL.Path)
			w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
			_, _ = w.Write([]byte("%PDF-1.4"))
		})

		var buf bytes.Buffer
		name, err := c.Attachments.Download(context.Background(), "t-1", "a-1", &buf)
		require.NoError(t, err)
		assert.Equal(t, "report.pdf", name)
		assert.Equal(t, "%PDF-1.4", buf.String())
	})

	t.Run("download error", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"404","message":"Attachment not found"}`))
		})

		var buf bytes.Buffer
		_, err := c.Attachments.Download(context.Background(), "t-1", "a-1", &buf)
		require.Error(t, err)
		assert.True(t, apierrors.IsNotFound(err))
		assert.Equal(t, "Attachment not found", apierrors.Message(err))
		assert.Zero(t, buf.Len())
	})

	t.Run("delete", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/api/v1/tickets/t-1/attachments/a-1", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		})

		assert.NoError(t, c.Attachments.Delete(context.Background(), "t-1", "a-1"))
	})
}

func TestMetricsSummarize(t *testing.T) {
	c, reg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/tickets/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"ticket_id":"t-1"}`))
	})

	ctx := context.Background()
	_, err := c.Tickets.Get(ctx, "t-1")
	require.NoError(t, err)
	_, err = c.Tickets.Get(ctx, "t-2")
	require.NoError(t, err)
	_, err = c.Tickets.Get(ctx, "missing")
	require.Error(t, err)
	_, err = c.Dictionaries.Statuses(ctx)
	require.NoError(t, err)

	stats, err := Summarize(reg)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "/ticket_statuses", stats[0].Route)
	assert.Equal(t, float64(1), stats[0].Requests[OutcomeOK])

	assert.Equal(t, "/tickets/{id}", stats[1].Route)
	assert.Equal(t, "GET", stats[1].Method)
	assert.Equal(t, float64(2), stats[1].Requests[OutcomeOK])
	assert.Equal(t, float64(1), stats[1].Requests[OutcomeAPIError])
	assert.Equal(t, uint64(3), stats[1].Count)
}
