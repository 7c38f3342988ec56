package attachments

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/deskline/deskline/internal/apierrors"
	"github.com/deskline/deskline/internal/dispatch"
	"github.com/deskline/deskline/internal/wire"
)

// API is the part of the REST client a Set needs.
type API interface {
	List(ctx context.Context, ticketID string) ([]byte, error)
	Upload(ctx context.Context, ticketID, filename string, content io.Reader) ([]byte, error)
	Delete(ctx context.Context, ticketID, attachmentID string) error
	Download(ctx context.Context, ticketID, attachmentID string, w io.Writer) (string, error)
}

type SetConfig struct {
	Context  context.Context
	Loop     *dispatch.Loop
	API      API
	TicketID string
	Logger   zerolog.Logger
}

// Set is the attachment list of one ticket. Listeners run on the loop.
type Set struct {
	ctx      context.Context
	loop     *dispatch.Loop
	api      API
	log      zerolog.Logger
	ticketID string
	list     *List

	onChanged []func()
	onError   []func(op string, err error)
}

func NewSet(cfg SetConfig) *Set {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &Set{
		ctx:      ctx,
		loop:     cfg.Loop,
		api:      cfg.API,
		log:      cfg.Logger.With().Str("component", "attachments").Str("ticket_id", cfg.TicketID).Logger(),
		ticketID: cfg.TicketID,
		list:     NewList(),
	}
}

func (s *Set) OnChanged(fn func()) { s.onChanged = append(s.onChanged, fn) }
func (s *Set) OnError(fn func(op string, err error)) { s.onError = append(s.onError, fn) }
func (s *Set) List() *List { return s.list }

func (s *Set) changed() {
	for _, fn := range s.onChanged {
		fn()
	}
}

func (s *Set) fail(op string, err error) {
	s.log.Error().Err(err).Str("op", op).Msg("attachment operation failed")
	for _, fn := range s.onError {
		fn(op, err)
	}
}

// Load replaces the list with the ticket's attachments. Failures are only
// logged and leave the list empty.
func (s *Set) Load() {
	if s.ticketID == "" {
		return
	}
	dispatch.Go(s.loop, s.ctx, func(ctx context.Context) ([]byte, error) {
		return s.api.List(ctx, s.ticketID)
	}, func(body []byte, err error) {
		s.list.Clear()
		if err == nil {
			var objs []wire.Object
			if objs, _, err = wire.DecodeArray(body); err == nil {
				s.list.Load(objs)
			}
		}
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to load attachments")
		}
		s.changed()
	})
}

// Upload sends the file at path and appends the record the server returns.
func (s *Set) Upload(path string) {
	dispatch.Go(s.loop, s.ctx, func(ctx context.Context) ([]byte, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		return s.api.Upload(ctx, s.ticketID, filepath.Base(path), f)
	}, func(body []byte, err error) {
		if err == nil {
			var obj wire.Object
			if obj, err = wire.DecodeObject(body); err == nil {
				att := Parse(obj)
				if att.Filename == "" {
					att.Filename = filepath.Base(path)
				}
				s.list.Append(att)
				s.log.Info().Str("attachment_id", att.ID).Str("filename", att.Filename).Msg("attachment uploaded")
				s.changed()
				return
			}
			err = &apierrors.InvalidResponseError{Operation: "upload attachment", Reason: err.Error()}
		}
		s.fail("uploading attachment", err)
	})
}

// Delete removes the attachment on the server and then locally.
func (s *Set) Delete(attachmentID string) {
	dispatch.Go(s.loop, s.ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.api.Delete(ctx, s.ticketID, attachmentID)
	}, func(_ struct{}, err error) {
		if err != nil {
			s.fail("deleting attachment", err)
			return
		}
		if row := s.list.Index(attachmentID); row >= 0 {
			s.list.Remove(row)
		}
		s.changed()
	})
}

// Download writes the attachment content to w and returns the filename the
// server suggested. It blocks until the transfer ends and touches no list
// state, so it may run off the loop.
func (s *Set) Download(ctx context.Context, attachmentID string, w io.Writer) (string, error) {
	return s.api.Download(ctx, s.ticketID, attachmentID, w)
}
