// Package browser drives the ticket list: it loads the dictionaries, holds
// the active filter and reloads the ticket collection whenever the filter
// changes.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/deskline/deskline/internal/apierrors"
	"github.com/deskline/deskline/internal/dictionary"
	"github.com/deskline/deskline/internal/dispatch"
	"github.com/deskline/deskline/internal/session"
	"github.com/deskline/deskline/internal/tickets"
)

// ErrNoUser is returned by Reload when the session token carries no user.
var ErrNoUser = errors.New("User ID is not available. Please re-login.")

// Status bar texts.
const (
	StatusLoadingInitial  = "Loading initial data..."
	StatusReady           = "Ready"
	StatusLoadingTickets  = "Loading tickets..."
	StatusInvalidResponse = "Error: Invalid response from server."
	StatusDeleted         = "Ticket deleted successfully"
)

// TicketSource is the part of the API the browser needs.
type TicketSource interface {
	List(ctx context.Context, query url.Values) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

// Scope is the sidebar selection.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeMine
	ScopeDepartment
)

type Config struct {
	Loop         *dispatch.Loop
	Store        *dictionary.Store
	Dictionaries dictionary.Source
	Tickets      TicketSource
	Token        string
	Logger       zerolog.Logger
}

// Browser is the host of the ticket list. All methods and listeners run on
// the loop.
type Browser struct {
	ctx    context.Context
	cancel context.CancelFunc

	loop    *dispatch.Loop
	store   *dictionary.Store
	dicts   dictionary.Source
	tickets TicketSource
	log     zerolog.Logger

	userID     string
	filter     *Filter
	collection *tickets.Collection
	scope      Scope
	department int
	ready      bool

	onStatus []func(string)
	onError  []func(string, error)
	onLoaded []func(int)
	onReady  []func()
}

func New(cfg Config) *Browser {
	ctx, cancel := context.WithCancel(context.Background())
	store := cfg.Store
	if store == nil {
		store = dictionary.NewStore()
	}

	b := &Browser{
		ctx:        ctx,
		cancel:     cancel,
		loop:       cfg.Loop,
		store:      store,
		dicts:      cfg.Dictionaries,
		tickets:    cfg.Tickets,
		log:        cfg.Logger.With().Str("component", "browser").Logger(),
		userID:     session.UserID(cfg.Token),
		filter:     NewFilter(),
		collection: tickets.NewCollection(store),
	}
	if b.userID == "" {
		b.log.Warn().Msg("session token carries no user_id")
	}
	return b
}

func (b *Browser) OnStatus(fn func(string)) { b.onStatus = append(b.onStatus, fn) }
func (b *Browser) OnError(fn func(string, error)) { b.onError = append(b.onError, fn) }
func (b *Browser) OnLoaded(fn func(int)) { b.onLoaded = append(b.onLoaded, fn) }
func (b *Browser) OnReady(fn func()) { b.onReady = append(b.onReady, fn) }

func (b *Browser) status(msg string) {
	for _, fn := range b.onStatus {
		fn(msg)
	}
}

func (b *Browser) fail(op string, err error) {
	b.log.Warn().Err(err).Str("op", op).Msg("browser operation failed")
	for _, fn := range b.onError {
		fn(op, err)
	}
}

func (b *Browser) UserID() string { return b.userID }
func (b *Browser) Store() *dictionary.Store { return b.store }
func (b *Browser) Collection() *tickets.Collection { return b.collection }
func (b *Browser) Filter() *Filter { return b.filter }
func (b *Browser) Ready() bool { return b.ready }
func (b *Browser) Scope() Scope { return b.scope }

// Departments returns the department entries for the sidebar.
func (b *Browser) Departments() []dictionary.Entry {
	return b.store.Entries(dictionary.Department)
}

// Title describes the current scope, e.g. "My Tickets" or a department
// name.
func (b *Browser) Title() string {
	switch b.scope {
	case ScopeMine:
		return "My Tickets"
	case ScopeDepartment:
		return b.store.Resolve(dictionary.Department, b.department)
	}
	return "All Tickets"
}

var domainOps = map[dictionary.Domain]string{
	dictionary.Status:     "ticket statuses",
	dictionary.Priority:   "ticket priorities",
	dictionary.Department: "departments",
}

// Start loads the three dictionaries. Once every fetch has completed,
// successfully or not, the browser becomes ready and reloads the list once.
func (b *Browser) Start() {
	b.status(StatusLoadingInitial)
	countdown := dispatch.NewCountdown(len(dictionary.Domains), func() {
		b.ready = true
		b.status(StatusReady)
		for _, fn := range b.onReady {
			fn()
		}
		_ = b.Reload()
	})

	b.store.FetchAll(b.ctx, b.loop, b.dicts, b.log, func(domain dictionary.Domain, err error) {
		if err != nil {
			b.status("Error " + domainOps[domain])
			b.fail(domainOps[domain], err)
		}
		countdown.Done()
	})
}

func (b *Browser) setScope(scope Scope, department int) {
	b.filter.Remove(KeyAssignee, KeyDepartment)
	switch scope {
	case ScopeMine:
		b.filter.Set(KeyAssignee, b.userID)
	case ScopeDepartment:
		b.filter.Set(KeyDepartment, strconv.Itoa(department))
	}
	b.scope = scope
	b.department = department
}

func (b *Browser) setSearch(text string) {
	if text = strings.TrimSpace(text); text != "" {
		b.filter.Set(KeySearch, text)
	} else {
		b.filter.Remove(KeySearch)
	}
}

// Prepare sets the scope and search text without reloading. The reload
// that follows Start picks them up.
func (b *Browser) Prepare(scope Scope, department int, search string) {
	b.setScope(scope, department)
	b.setSearch(search)
}

// ShowAll drops the assignee and department filters and reloads.
func (b *Browser) ShowAll() error {
	b.setScope(ScopeAll, 0)
	return b.Reload()
}

// ShowMine filters on the current user and reloads.
func (b *Browser) ShowMine() error {
	b.setScope(ScopeMine, 0)
	return b.Reload()
}

// ShowDepartment filters on one department and reloads.
func (b *Browser) ShowDepartment(id int) error {
	b.setScope(ScopeDepartment, id)
	return b.Reload()
}

// Search sets the free-text query, or clears it when text is blank, and
// reloads.
func (b *Browser) Search(text string) error {
	b.setSearch(text)
	return b.Reload()
}

// Reload requests the list with the current filter. It refuses without a
// user id. The response replaces the collection; errors leave it as it
// was.
func (b *Browser) Reload() error {
	if b.userID == "" {
		b.fail("loading tickets", ErrNoUser)
		return ErrNoUser
	}

	b.status(StatusLoadingTickets)
	query := b.filter.Values()
	b.log.Debug().Str("query", query.Encode()).Msg("reloading tickets")

	dispatch.Go(b.loop, b.ctx, func(ctx context.Context) ([]byte, error) {
		return b.tickets.List(ctx, query)
	}, func(body []byte, err error) {
		if err != nil {
			b.status("Error loading tickets")
			b.fail("loading tickets", err)
			return
		}
		if _, err := b.collection.LoadBody(body); err != nil {
			b.status(StatusInvalidResponse)
			b.fail("loading tickets", err)
			return
		}

		n := b.collection.Len()
		b.status(fmt.Sprintf("Loaded %d tickets", n))
		for _, fn := range b.onLoaded {
			fn(n)
		}
	})
	return nil
}

// DeleteTicket deletes id and reloads the list on success.
func (b *Browser) DeleteTicket(id string) {
	dispatch.Go(b.loop, b.ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.tickets.Delete(ctx, id)
	}, func(_ struct{}, err error) {
		if err != nil {
			b.status("Error deleting ticket")
			b.fail("deleting ticket", err)
			return
		}
		b.log.Info().Str("ticket_id", id).Msg("ticket deleted")
		_ = b.Reload()
		b.status(StatusDeleted)
	})
}

// Close drops every response still in flight.
func (b *Browser) Close() {
	b.cancel()
}

// ErrorText formats an error the way the list view shows it.
func ErrorText(op string, err error) string {
	if errors.Is(err, ErrNoUser) {
		return ErrNoUser.Error()
	}
	return fmt.Sprintf("Error %s: %s", op, apierrors.Message(err))
}
