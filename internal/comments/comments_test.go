package comments

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskline/deskline/internal/dispatch"
	"github.com/deskline/deskline/internal/testutil"
	"github.com/deskline/deskline/internal/wire"
)

func newThread(t *testing.T, backend *testutil.Backend, ticketID string) (*Thread, *dispatch.Loop) {
	t.Helper()
	loop := dispatch.NewLoop()
	api := backend.Client(testutil.Token(t, "u1"))
	th := NewThread(ThreadConfig{
		Loop:            loop,
		API:             api.Comments,
		TicketID:        ticketID,
		TicketCreatedAt: "2024-03-01T10:00:00Z",
		AuthorID:        "u1",
		Logger:          zerolog.Nop(),
	})
	return th, loop
}

func TestDisplay(t *testing.T) {
	at := time.Date(2024, 3, 5, 9, 7, 0, 0, time.Local)
	c := Comment{AuthorName: "alice", Content: "rebooted", CreatedAt: at}
	assert.Equal(t, "[09:07 05.03.2024] alice: rebooted", c.Display())
	assert.Equal(t, "[] : ", Comment{}.Display())
}

func TestList(t *testing.T) {
	objs, skipped, err := wire.DecodeArray([]byte(`[
		{"comment_id":"c1","author_name":"alice","content":"one"},
		42,
		{"comment_id":"c2","author_name":"bob","content":"two"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)

	l := NewList()
	l.Load(objs)
	require.Equal(t, 2, l.Len())
	assert.Equal(t, "c1", l.Get(0).ID)
	assert.Equal(t, Comment{}, l.Get(2))
	assert.Equal(t, Comment{}, l.Get(-1))

	l.Append(Comment{ID: "c3"})
	l.Update(0, Comment{ID: "c1", Content: "edited"})
	l.Update(9, Comment{ID: "ignored"})
	assert.Equal(t, "edited", l.Get(0).Content)

	l.Remove(1)
	l.Remove(5)
	ids := []string{}
	for _, c := range l.All() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"c1", "c3"}, ids)

	l.Clear()
	assert.Equal(t, 0, l.Len())
}

func TestThreadLoad(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		backend := testutil.NewBackend(t)
		backend.JSON("GET /tickets/{id}/comments", http.StatusOK, `[
			{"comment_id":"c1","ticket_id":"t-1","author_name":"alice","content":"hi","created_at":"2024-03-01T11:00:00Z"}
		]`)

		th, loop := newThread(t, backend, "t-1")
		changed := 0
		th.OnChanged(func() { changed++ })
		th.Load()
		require.NoError(t, loop.RunUntilIdle(testutil.Context(t)))

		require.Equal(t, 1, th.List().Len())
		assert.Equal(t, "alice", th.List().Get(0).AuthorName)
		assert.Equal(t, 1, changed)
		assert.Equal(t, 1, backend.Count(http.MethodGet, "/tickets/t-1/comments"))
	})

	t.Run("non-array degrades to empty", func(t *testing.T) {
		backend := testutil.NewBackend(t)
		backend.JSON("GET /tickets/{id}/comments", http.StatusOK, `{"comments":[]}`)

		th, loop := newThread(t, backend, "t-1")
		var errs []error
		th.OnError(func(err error) { errs = append(errs, err) })
		th.Load()
		require.NoError(t, loop.RunUntilIdle(testutil.Context(t)))

		assert.Equal(t, 0, th.List().Len())
		assert.Empty(t, errs)
	})
}

func TestThreadPost(t *testing.T) {
	t.Run("server id replaces placeholder", func(t *testing.T) {
		backend := testutil.NewBackend(t)
		backend.JSON("GET /tickets/{id}/comments", http.StatusOK, `[{"comment_id":"c1","content":"first"}]`)
		backend.JSON("POST /tickets/{id}/comments", http.StatusCreated,
			`{"comment_id":"c-server","author_name":"alice","created_at":"2024-03-05T09:07:00Z","content":"second"}`)

		th, loop := newThread(t, backend, "t-1")
		ctx := testutil.Context(t)
		th.Load()
		require.NoError(t, loop.RunUntilIdle(ctx))
		before := th.List().Len()

		var posted []Comment
		th.OnPosted(func(c Comment) { posted = append(posted, c) })
		th.Post("second")
		require.NoError(t, loop.RunUntilIdle(ctx))

		require.Equal(t, before+1, th.List().Len())
		got := th.List().Get(before)
		assert.Equal(t, "c-server", got.ID)
		assert.Equal(t, "alice", got.AuthorName)
		assert.Equal(t, "second", got.Content)
		assert.Equal(t, "u1", got.AuthorID)
		assert.True(t, got.CreatedAt.Equal(time.Date(2024, 3, 5, 9, 7, 0, 0, time.UTC)))
		require.Len(t, posted, 1)

		reqs := backend.Requests(http.MethodPost, "/tickets/t-1/comments")
		require.Len(t, reqs, 1)
		var body map[string]any
		require.NoError(t, json.Unmarshal(reqs[0].Body, &body))
		assert.Equal(t, map[string]any{"content": "second", "ticket_created_at": "2024-03-01T10:00:00Z"}, body)
	})

	t.Run("missing server id keeps placeholder", func(t *testing.T) {
		backend := testutil.NewBackend(t)
		backend.JSON("POST /tickets/{id}/comments", http.StatusCreated, `{}`)

		th, loop := newThread(t, backend, "t-1")
		th.Post("note")
		require.NoError(t, loop.RunUntilIdle(testutil.Context(t)))

		require.Equal(t, 1, th.List().Len())
		_, err := uuid.Parse(th.List().Get(0).ID)
		assert.NoError(t, err)
	})

	t.Run("failure drops the comment", func(t *testing.T) {
		backend := testutil.NewBackend(t)
		backend.JSON("POST /tickets/{id}/comments", http.StatusBadRequest, `{"error":{"message":"ticket is closed"}}`)

		th, loop := newThread(t, backend, "t-1")
		var errs []error
		th.OnError(func(err error) { errs = append(errs, err) })
		th.Post("note")
		require.NoError(t, loop.RunUntilIdle(testutil.Context(t)))

		assert.Equal(t, 0, th.List().Len())
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), "ticket is closed")
		assert.Equal(t, 1, backend.Count(http.MethodPost, "/tickets/t-1/comments"))
	})

	t.Run("no-ops", func(t *testing.T) {
		backend := testutil.NewBackend(t)

		th, loop := newThread(t, backend, "t-1")
		th.Post("")
		th.Post("   ")
		unbound, _ := newThread(t, backend, "")
		unbound.Post("hello")
		unbound.Load()
		require.NoError(t, loop.RunUntilIdle(testutil.Context(t)))

		assert.Equal(t, 0, backend.Count("", ""))
	})
}

type recordingAPI struct {
	ticketID, content, createdAt string
}

func (r *recordingAPI) List(context.Context, string) ([]byte, error) {
	return []byte(`[]`), nil
}

func (r *recordingAPI) Create(_ context.Context, ticketID, content, ticketCreatedAt string) ([]byte, error) {
	r.ticketID, r.content, r.createdAt = ticketID, content, ticketCreatedAt
	return []byte(`{"comment_id":"c9"}`), nil
}

func TestThreadPostPassesFields(t *testing.T) {
	api := &recordingAPI{}
	loop := dispatch.NewLoop()
	th := NewThread(ThreadConfig{
		Loop:            loop,
		API:             api,
		TicketID:        "t-4",
		TicketCreatedAt: "2024-03-01T10:00:00.123456Z",
		AuthorID:        "u1",
		Logger:          zerolog.Nop(),
	})

	th.Post("  checked the cable ")
	require.NoError(t, loop.RunUntilIdle(testutil.Context(t)))

	assert.Equal(t, "t-4", api.ticketID)
	assert.Equal(t, "2024-03-01T10:00:00.123456Z", api.createdAt)
	require.Equal(t, 1, th.List().Len())
	assert.Equal(t, "c9", th.List().Get(0).ID)
	assert.Equal(t, th.List().Get(0).Content, api.content)
}
