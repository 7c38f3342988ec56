package comments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deskline/deskline/internal/apierrors"
	"github.com/deskline/deskline/internal/dispatch"
	"github.com/deskline/deskline/internal/wire"
)

// API is the part of the REST client a Thread needs.
type API interface {
	List(ctx context.Context, ticketID string) ([]byte, error)
	Create(ctx context.Context, ticketID, content, ticketCreatedAt string) ([]byte, error)
}

// ThreadConfig binds a Thread to one ticket.
type ThreadConfig struct {
	Context         context.Context
	Loop            *dispatch.Loop
	API             API
	TicketID        string
	TicketCreatedAt string
	AuthorID        string
	Logger          zerolog.Logger
}

// Thread is the comment list of one ticket together with the requests that
// fill it. Listeners run on the loop.
type Thread struct {
	ctx  context.Context
	loop *dispatch.Loop
	api  API
	log  zerolog.Logger

	ticketID        string
	ticketCreatedAt string
	authorID        string

	list *List

	onChanged []func()
	onPosted  []func(Comment)
	onError   []func(error)
}

func NewThread(cfg ThreadConfig) *Thread {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &Thread{
		ctx:             ctx,
		loop:            cfg.Loop,
		api:             cfg.API,
		log:             cfg.Logger.With().Str("component", "comments").Str("ticket_id", cfg.TicketID).Logger(),
		ticketID:        cfg.TicketID,
		ticketCreatedAt: cfg.TicketCreatedAt,
		authorID:        cfg.AuthorID,
		list:            NewList(),
	}
}

func (t *Thread) OnChanged(fn func()) { t.onChanged = append(t.onChanged, fn) }
func (t *Thread) OnPosted(fn func(Comment)) { t.onPosted = append(t.onPosted, fn) }
func (t *Thread) OnError(fn func(error)) { t.onError = append(t.onError, fn) }

// List returns the loaded comments.
func (t *Thread) List() *List { return t.list }

func (t *Thread) changed() {
	for _, fn := range t.onChanged {
		fn()
	}
}

func (t *Thread) fail(err error) {
	for _, fn := range t.onError {
		fn(err)
	}
}

// Load replaces the list with the ticket's comments. A failed request or a
// body that is not an array is logged and leaves the list empty.
func (t *Thread) Load() {
	if t.ticketID == "" {
		return
	}
	dispatch.Go(t.loop, t.ctx, func(ctx context.Context) ([]byte, error) {
		return t.api.List(ctx, t.ticketID)
	}, func(body []byte, err error) {
		t.list.Clear()
		if err != nil {
			t.log.Warn().Err(err).Msg("failed to load comments")
			t.changed()
			return
		}
		objs, skipped, err := wire.DecodeArray(body)
		if err != nil {
			t.log.Warn().Err(err).Msg("comments response is not an array")
			t.changed()
			return
		}
		if skipped > 0 {
			t.log.Debug().Int("skipped", skipped).Msg("skipped malformed comments")
		}
		t.list.Load(objs)
		t.changed()
	})
}

// Post sends content as a new comment. Blank content or an unbound thread
// is a no-op. The comment is appended only once the server confirms it,
// with the server's id, timestamp and author name; a failure is reported to
// OnError and the comment is dropped.
func (t *Thread) Post(content string) {
	if strings.TrimSpace(content) == "" || t.ticketID == "" {
		return
	}

	local := Comment{
		ID:              uuid.NewString(),
		TicketID:        t.ticketID,
		TicketCreatedAt: t.ticketCreatedAt,
		AuthorID:        t.authorID,
		Content:         content,
		CreatedAt:       time.Now(),
	}

	dispatch.Go(t.loop, t.ctx, func(ctx context.Context) ([]byte, error) {
		return t.api.Create(ctx, t.ticketID, content, t.ticketCreatedAt)
	}, func(body []byte, err error) {
		if err == nil {
			var obj wire.Object
			if obj, err = wire.DecodeObject(body); err == nil {
				local = confirm(local, obj)
			} else {
				err = &apierrors.InvalidResponseError{Operation: "post comment", Reason: err.Error()}
			}
		}
		if err != nil {
			t.log.Error().Err(err).Msg("failed to post comment")
			t.fail(err)
			return
		}

		t.list.Append(local)
		t.log.Info().Str("comment_id", local.ID).Msg("comment posted")
		for _, fn := range t.onPosted {
			fn(local)
		}
		t.changed()
	})
}

func confirm(local Comment, obj wire.Object) Comment {
	if id := obj.String("comment_id"); id != "" {
		local.ID = id
	}
	if at := obj.Time("created_at"); !at.IsZero() {
		local.CreatedAt = at
	}
	if name := obj.String("author_name"); name != "" {
		local.AuthorName = name
	}
	if author := obj.String("author_id"); author != "" {
		local.AuthorID = author
	}
	return local
}
