// Package editor implements the ticket detail/edit session: it loads the
// option lists the form needs, keeps the department and assignee choices
// consistent, validates the form and submits it.
package editor

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/deskline/deskline/internal/apierrors"
	"github.com/deskline/deskline/internal/attachments"
	"github.com/deskline/deskline/internal/comments"
	"github.com/deskline/deskline/internal/dictionary"
	"github.com/deskline/deskline/internal/dispatch"
	"github.com/deskline/deskline/internal/session"
	"github.com/deskline/deskline/internal/tickets"
	"github.com/deskline/deskline/internal/users"
	"github.com/deskline/deskline/internal/wire"
)

type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

type State int

const (
	StateInitializing State = iota
	StateReady
	StateSubmitting
	StateSaved
	StateClosed
)

var stateNames = map[State]string{
	StateInitializing: "initializing",
	StateReady:        "ready",
	StateSubmitting:   "submitting",
	StateSaved:        "saved",
	StateClosed:       "closed",
}

func (s State) String() string {
	return stateNames[s]
}

var (
	ErrClosed = errors.New("session is closed")
	ErrBusy   = errors.New("a save is already in progress")
	// ErrNotReady is returned by Save while option lists are still loading.
	ErrNotReady = errors.New("session is still loading")
)

// UserSource lists the users that can be assigned.
type UserSource interface {
	List(ctx context.Context) ([]byte, error)
}

// TicketWriter creates and updates tickets.
type TicketWriter interface {
	Create(ctx context.Context, body map[string]any) ([]byte, error)
	Update(ctx context.Context, id string, body map[string]any) ([]byte, error)
}

// Config wires a Session. A nil Ticket opens the session in Create mode.
type Config struct {
	Loop         *dispatch.Loop
	Store        *dictionary.Store
	Dictionaries dictionary.Source
	Users        UserSource
	Tickets      TicketWriter
	Comments     comments.API
	Attachments  attachments.API
	Token        string
	Ticket       *tickets.Ticket
	Logger       zerolog.Logger
}

// Session is one open ticket form. All methods and listeners run on the
// loop.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc

	loop    *dispatch.Loop
	store   *dictionary.Store
	dicts   dictionary.Source
	users   UserSource
	tickets TicketWriter
	log     zerolog.Logger

	mode   Mode
	state  State
	ticket tickets.Ticket

	title       string
	description string

	departments *Picker[int]
	statuses    *Picker[int]
	priorities  *Picker[int]
	assignees   *Picker[string]

	pool        []users.User
	usersLoaded bool
	usersFailed bool

	thread *comments.Thread
	files  *attachments.Set

	onState   []func(State)
	onOptions []func()
	onSaved   []func(tickets.Ticket)
	onError   []func(error)
}

func validID(id int) bool { return id > 0 }
func validUser(id string) bool { return id != "" }

// New creates a session. Nothing is requested until Start.
func New(cfg Config) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	store := cfg.Store
	if store == nil {
		store = dictionary.NewStore()
	}

	s := &Session{
		ctx:         ctx,
		cancel:      cancel,
		loop:        cfg.Loop,
		store:       store,
		dicts:       cfg.Dictionaries,
		users:       cfg.Users,
		tickets:     cfg.Tickets,
		departments: newPicker("Loading departments...", -1, validID),
		statuses:    newPicker("Loading statuses...", -1, validID),
		priorities:  newPicker("Loading priorities...", -1, validID),
		assignees:   newPicker("Loading users...", "", validUser),
	}

	if cfg.Ticket != nil {
		s.mode = ModeEdit
		s.ticket = *cfg.Ticket
		s.title = s.ticket.Title
		s.description = s.ticket.Description
	}
	s.log = cfg.Logger.With().Str("component", "editor").Str("mode", s.mode.String()).Str("ticket_id", s.ticket.ID).Logger()

	if s.mode == ModeEdit {
		s.thread = comments.NewThread(comments.ThreadConfig{
			Context:         ctx,
			Loop:            cfg.Loop,
			API:             cfg.Comments,
			TicketID:        s.ticket.ID,
			TicketCreatedAt: s.ticket.CreatedAtRaw,
			AuthorID:        session.UserID(cfg.Token),
			Logger:          cfg.Logger,
		})
		s.files = attachments.NewSet(attachments.SetConfig{
			Context:  ctx,
			Loop:     cfg.Loop,
			API:      cfg.Attachments,
			TicketID: s.ticket.ID,
			Logger:   cfg.Logger,
		})
	}
	return s
}

func (s *Session) OnStateChanged(fn func(State)) { s.onState = append(s.onState, fn) }
func (s *Session) OnOptionsChanged(fn func()) { s.onOptions = append(s.onOptions, fn) }
func (s *Session) OnSaved(fn func(tickets.Ticket)) { s.onSaved = append(s.onSaved, fn) }
func (s *Session) OnError(fn func(error)) { s.onError = append(s.onError, fn) }

func (s *Session) Mode() Mode { return s.mode }
func (s *Session) State() State { return s.state }
func (s *Session) Ticket() tickets.Ticket { return s.ticket }

func (s *Session) Departments() *Picker[int] { return s.departments }
func (s *Session) Statuses() *Picker[int] { return s.statuses }
func (s *Session) Priorities() *Picker[int] { return s.priorities }
func (s *Session) Assignees() *Picker[string] { return s.assignees }

// Comments returns the ticket's comment thread. It is nil in Create mode.
func (s *Session) Comments() *comments.Thread { return s.thread }

// Attachments returns the ticket's attachments. It is nil in Create mode.
func (s *Session) Attachments() *attachments.Set { return s.files }

func (s *Session) Title() string { return s.title }
func (s *Session) Description() string { return s.description }
func (s *Session) SetTitle(title string) { s.title = title }
func (s *Session) SetDescription(desc string) { s.description = desc }

func (s *Session) setState(state State) {
	if s.state == state {
		return
	}
	s.log.Debug().Stringer("from", s.state).Stringer("to", state).Msg("state change")
	s.state = state
	for _, fn := range s.onState {
		fn(state)
	}
}

func (s *Session) optionsChanged() {
	for _, fn := range s.onOptions {
		fn()
	}
}

// Start fires the four option loads at once. The session becomes Ready
// when all of them have completed, whatever their outcome. In Edit mode it
// also loads the comments and attachments.
func (s *Session) Start() {
	if s.state != StateInitializing {
		return
	}
	ready := dispatch.NewCountdown(4, func() {
		if s.state == StateInitializing {
			s.setState(StateReady)
		}
	})

	s.loadDictionary(dictionary.Department, s.dicts.Departments, s.departments, "departments", s.ticket.DepartmentID, ready)
	s.loadDictionary(dictionary.Status, s.dicts.Statuses, s.statuses, "statuses", s.ticket.StatusID, ready)
	s.loadDictionary(dictionary.Priority, s.dicts.Priorities, s.priorities, "priorities", s.ticket.PriorityID, ready)
	s.loadUsers(ready)

	if s.mode == ModeEdit {
		s.thread.Load()
		s.files.Load()
	}
}

func placeholderFor(noun string, err error) string {
	var invalid *apierrors.InvalidResponseError
	switch {
	case errors.As(err, &invalid):
		return "Invalid response format"
	case err != nil:
		return "Failed to load " + noun
	}
	return "No " + noun + " available"
}

func (s *Session) loadDictionary(domain dictionary.Domain, fetch func(context.Context) ([]byte, error), picker *Picker[int], noun string, current int, ready *dispatch.Countdown) {
	dispatch.Go(s.loop, s.ctx, fetch, func(body []byte, err error) {
		defer ready.Done()

		var entries []dictionary.Entry
		if err == nil {
			entries, err = dictionary.ParseEntries(body)
		}
		if err != nil || len(entries) == 0 {
			if err != nil {
				s.log.Warn().Err(err).Str("domain", string(domain)).Msg("option list failed to load")
			}
			picker.placeholder(placeholderFor(noun, err))
			if domain == dictionary.Department {
				s.FilterAssigneesByDepartment(0)
			}
			s.optionsChanged()
			return
		}

		s.store.Merge(domain, entries)
		options := make([]Option[int], 0, len(entries))
		for _, e := range entries {
			options = append(options, Option[int]{Value: e.ID, Label: e.Label})
		}
		prefer := -1
		if s.mode == ModeEdit {
			prefer = current
		}
		picker.set(options, prefer)

		if domain == dictionary.Department {
			dept, _ := picker.Value()
			s.FilterAssigneesByDepartment(dept)
		}
		s.optionsChanged()
	})
}

func (s *Session) loadUsers(ready *dispatch.Countdown) {
	dispatch.Go(s.loop, s.ctx, s.users.List, func(body []byte, err error) {
		defer ready.Done()

		var all []users.User
		if err == nil {
			all, err = users.Parse(body)
		}
		s.usersLoaded = true
		if err != nil {
			s.log.Warn().Err(err).Msg("user list failed to load")
			s.usersFailed = true
			s.pool = nil
			s.assignees.placeholder(placeholderFor("users", err))
			s.optionsChanged()
			return
		}

		s.pool = users.Assignable(all)
		dept, _ := s.departments.Value()
		s.FilterAssigneesByDepartment(dept)
		s.optionsChanged()
	})
}

// SelectDepartment picks a department and narrows the assignees to it.
func (s *Session) SelectDepartment(id int) bool {
	if !s.departments.Select(id) {
		return false
	}
	s.FilterAssigneesByDepartment(id)
	s.optionsChanged()
	return true
}

// FilterAssigneesByDepartment rebuilds the assignee options from the users
// of deptID, in their original order. deptID <= 0 shows every assignable
// user. When the department has nobody but the pool is not empty, the
// pool's first user is offered so the form can still be saved. It returns
// the users now on offer.
func (s *Session) FilterAssigneesByDepartment(deptID int) []users.User {
	if !s.usersLoaded {
		return nil
	}
	if s.usersFailed {
		return nil
	}

	shown := s.pool
	if deptID > 0 {
		shown = users.InDepartment(s.pool, deptID)
	}
	if len(shown) == 0 && len(s.pool) > 0 {
		shown = s.pool[:1]
	}
	if len(shown) == 0 {
		s.assignees.placeholder("No users available")
		return nil
	}

	options := make([]Option[string], 0, len(shown))
	for _, u := range shown {
		options = append(options, Option[string]{Value: u.ID, Label: u.Username})
	}
	prefer, _ := s.assignees.Value()
	if s.mode == ModeEdit && prefer == "" {
		prefer = s.ticket.AssigneeID
	}
	s.assignees.set(options, prefer)
	return shown
}

// SelectStatus reports false when id is not on offer.
func (s *Session) SelectStatus(id int) bool {
	return s.notifyIf(s.statuses.Select(id))
}

func (s *Session) SelectPriority(id int) bool {
	return s.notifyIf(s.priorities.Select(id))
}

func (s *Session) SelectAssignee(id string) bool {
	return s.notifyIf(s.assignees.Select(id))
}

func (s *Session) notifyIf(changed bool) bool {
	if changed {
		s.optionsChanged()
	}
	return changed
}

// CanSave reports whether the form is ready and every selection is valid.
func (s *Session) CanSave() bool {
	if s.state != StateReady {
		return false
	}
	_, dept := s.departments.Value()
	_, status := s.statuses.Value()
	_, prio := s.priorities.Value()
	_, assignee := s.assignees.Value()
	return dept && status && prio && assignee
}

func (s *Session) validate() (map[string]any, error) {
	title := strings.TrimSpace(s.title)
	if title == "" {
		return nil, &apierrors.ValidationError{Field: "title", Message: "Title cannot be empty"}
	}
	dept, ok := s.departments.Value()
	if !ok {
		return nil, &apierrors.ValidationError{Field: "department_id", Message: "Please select a department"}
	}
	status, ok := s.statuses.Value()
	if !ok {
		return nil, &apierrors.ValidationError{Field: "status_id", Message: "Please select a status"}
	}
	prio, ok := s.priorities.Value()
	if !ok {
		return nil, &apierrors.ValidationError{Field: "priority_id", Message: "Please select a priority"}
	}
	assignee, ok := s.assignees.Value()
	if !ok {
		return nil, &apierrors.ValidationError{Field: "assignee_id", Message: "Please select an assignee"}
	}

	return map[string]any{
		"title":         title,
		"description":   strings.TrimSpace(s.description),
		"department_id": dept,
		"status_id":     status,
		"priority_id":   prio,
		"assignee_id":   assignee,
	}, nil
}

// Save validates the form and submits it: POST /tickets in Create mode,
// PATCH /tickets/{id} in Edit mode. A validation failure is returned
// without any request. The outcome of the request is reported through
// OnSaved or OnError.
func (s *Session) Save() error {
	switch s.state {
	case StateSaved, StateClosed:
		return ErrClosed
	case StateSubmitting:
		return ErrBusy
	}

	body, err := s.validate()
	if err != nil {
		return err
	}
	if s.state != StateReady {
		return ErrNotReady
	}

	s.setState(StateSubmitting)
	mode, id := s.mode, s.ticket.ID
	dispatch.Go(s.loop, s.ctx, func(ctx context.Context) ([]byte, error) {
		if mode == ModeEdit {
			return s.tickets.Update(ctx, id, body)
		}
		return s.tickets.Create(ctx, body)
	}, func(resp []byte, err error) {
		var obj wire.Object
		if err == nil {
			if obj, err = wire.DecodeObject(resp); err != nil {
				err = &apierrors.InvalidResponseError{Operation: "save ticket", Reason: err.Error()}
			}
		}
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to save ticket")
			s.setState(StateReady)
			for _, fn := range s.onError {
				fn(err)
			}
			return
		}

		saved := tickets.Parse(obj, s.store)
		if saved.ID == "" {
			saved.ID = id
		}
		s.log.Info().Str("saved_id", saved.ID).Msg("ticket saved")
		s.setState(StateSaved)
		for _, fn := range s.onSaved {
			fn(saved)
		}
		s.cancel()
	})
	return nil
}

// Close drops every response still in flight. A saved session stays Saved.
func (s *Session) Close() {
	s.cancel()
	if s.state != StateSaved {
		s.setState(StateClosed)
	}
}
