package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deskline/deskline/internal/apierrors"
	"github.com/deskline/deskline/internal/attachments"
	"github.com/deskline/deskline/internal/browser"
	"github.com/deskline/deskline/internal/comments"
	"github.com/deskline/deskline/internal/dictionary"
	"github.com/deskline/deskline/internal/dispatch"
	"github.com/deskline/deskline/internal/editor"
	"github.com/deskline/deskline/internal/history"
	"github.com/deskline/deskline/internal/tickets"
	"github.com/deskline/deskline/internal/users"
	"github.com/deskline/deskline/internal/wire"
)

func newTicketsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tickets",
		Aliases: []string{"ticket", "t"},
		Short:   "List, inspect and change tickets",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return c.requireLogin()
		},
	}
	cmd.AddCommand(
		newTicketsListCmd(c),
		newTicketsShowCmd(c),
		newTicketsCreateCmd(c),
		newTicketsEditCmd(c),
		newTicketsDeleteCmd(c),
		newTicketsHistoryCmd(c),
		newTicketsExportCmd(c),
	)
	return cmd
}

type listOptions struct {
	mine       bool
	department int
	search     string
}

func (o *listOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.mine, "mine", false, "Only tickets assigned to me")
	cmd.Flags().IntVar(&o.department, "department", 0, "Only tickets of this department id")
	cmd.Flags().StringVarP(&o.search, "search", "s", "", "Free-text search")
	cmd.MarkFlagsMutuallyExclusive("mine", "department")
}

func (o *listOptions) scope() browser.Scope {
	switch {
	case o.mine:
		return browser.ScopeMine
	case o.department > 0:
		return browser.ScopeDepartment
	}
	return browser.ScopeAll
}

// loadTickets runs the browser start sequence once: dictionaries, then one
// filtered list request.
func (c *cli) loadTickets(ctx context.Context, opts listOptions) (*browser.Browser, error) {
	loop := dispatch.NewLoop()
	b := browser.New(browser.Config{
		Loop:         loop,
		Dictionaries: c.api.Dictionaries,
		Tickets:      c.api.Tickets,
		Token:        c.api.Token(),
		Logger:       c.log,
	})
	defer b.Close()

	var listErr error
	b.OnError(func(op string, err error) {
		if op == "loading tickets" && listErr == nil {
			listErr = errors.New(browser.ErrorText(op, err))
		}
	})
	b.OnStatus(func(status string) {
		c.log.Debug().Str("status", status).Msg("browser")
	})

	b.Prepare(opts.scope(), opts.department, opts.search)
	b.Start()
	if err := drain(ctx, loop); err != nil {
		return nil, err
	}
	return b, listErr
}

func newTicketsListCmd(c *cli) *cobra.Command {
	var opts listOptions
	var allColumns bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tickets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.loadTickets(cmd.Context(), opts)
			if err != nil {
				return err
			}
			collection := b.Collection()
			return c.render(collection.All(), func(w *tabwriter.Writer) {
				fmt.Fprintln(w, b.Title())
				columns := tickets.Columns()
				var header []string
				for _, col := range columns {
					if !col.Hidden || allColumns {
						header = append(header, strings.ToUpper(col.Title))
					}
				}
				row(w, header...)
				for r := 0; r < collection.Len(); r++ {
					var cells []string
					for i, col := range columns {
						if !col.Hidden || allColumns {
							cells = append(cells, collection.Cell(r, i))
						}
					}
					row(w, cells...)
				}
			})
		},
	}
	opts.register(cmd)
	cmd.Flags().BoolVar(&allColumns, "all-columns", false, "Include the id and creation date columns")
	return cmd
}

// fetchDictionaries fills a store for label resolution. Failed domains are
// logged and resolve to their raw ids.
func (c *cli) fetchDictionaries(ctx context.Context) (*dictionary.Store, error) {
	loop := dispatch.NewLoop()
	store := dictionary.NewStore()
	store.FetchAll(ctx, loop, c.api.Dictionaries, c.log, nil)
	return store, drain(ctx, loop)
}

func (c *cli) fetchTicket(ctx context.Context, store *dictionary.Store, id string) (tickets.Ticket, error) {
	body, err := c.api.Tickets.Get(ctx, id)
	if err != nil {
		return tickets.Ticket{}, err
	}
	obj, err := wire.DecodeObject(body)
	if err != nil {
		return tickets.Ticket{}, &apierrors.InvalidResponseError{Operation: "get ticket", Reason: err.Error()}
	}
	t := tickets.Parse(obj, store)
	if t.ID == "" {
		t.ID = id
	}
	return t, nil
}

type ticketDetail struct {
	tickets.Ticket `yaml:",inline"`
	Comments       []comments.Comment       `json:"comments" yaml:"comments"`
	Attachments    []attachments.Attachment `json:"attachments" yaml:"attachments"`
}

func newTicketsShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <ticket-id>",
		Short: "Show a ticket with its comments and attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.fetchDictionaries(ctx)
			if err != nil {
				return err
			}
			t, err := c.fetchTicket(ctx, store, args[0])
			if err != nil {
				return err
			}

			s, loop := c.openSession(store, &t)
			defer s.Close()
			s.Start()
			if err := drain(ctx, loop); err != nil {
				return err
			}

			detail := ticketDetail{
				Ticket:      t,
				Comments:    s.Comments().List().All(),
				Attachments: s.Attachments().List().All(),
			}
			return c.render(detail, func(w *tabwriter.Writer) {
				row(w, "ID:", t.ID)
				row(w, "Title:", t.Title)
				row(w, "Status:", t.Status)
				row(w, "Priority:", t.Priority)
				row(w, "Department:", t.Department)
				row(w, "Assignee:", t.AssigneeName)
				row(w, "Created:", formatAge(t.CreatedAt))
				row(w, "Updated:", formatAge(t.UpdatedAt))
				if t.Description != "" {
					row(w, "Description:", t.Description)
				}
				row(w, fmt.Sprintf("Comments (%d):", len(detail.Comments)))
				for _, cm := range detail.Comments {
					row(w, "", cm.Display())
				}
				row(w, fmt.Sprintf("Attachments (%d):", len(detail.Attachments)))
				for _, a := range detail.Attachments {
					row(w, "", a.Display())
				}
			})
		},
	}
}

// openSession creates an edit form session, or a create session when t is
// nil, on a loop of its own.
func (c *cli) openSession(store *dictionary.Store, t *tickets.Ticket) (*editor.Session, *dispatch.Loop) {
	loop := dispatch.NewLoop()
	s := editor.New(editor.Config{
		Loop:         loop,
		Store:        store,
		Dictionaries: c.api.Dictionaries,
		Users:        c.api.Users,
		Tickets:      c.api.Tickets,
		Comments:     c.api.Comments,
		Attachments:  c.api.Attachments,
		Token:        c.api.Token(),
		Ticket:       t,
		Logger:       c.log,
	})
	return s, loop
}

type formFlags struct {
	title       string
	description string
	department  int
	status      int
	priority    int
	assignee    string
}

func (f *formFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Ticket title")
	cmd.Flags().StringVar(&f.description, "description", "", "Ticket description")
	cmd.Flags().IntVar(&f.department, "department", 0, "Department id")
	cmd.Flags().IntVar(&f.status, "status", 0, "Status id")
	cmd.Flags().IntVar(&f.priority, "priority", 0, "Priority id")
	cmd.Flags().StringVar(&f.assignee, "assignee", "", "Assignee user id")
}

// apply copies the flags that were given on the command line into the
// session. The department goes first so that the assignee is picked from
// its users.
func (f *formFlags) apply(cmd *cobra.Command, s *editor.Session) error {
	changed := cmd.Flags().Changed
	if changed("title") {
		s.SetTitle(f.title)
	}
	if changed("description") {
		s.SetDescription(f.description)
	}
	if changed("department") && !selectOrKeep(s.Departments(), f.department, s.SelectDepartment) {
		return notOffered("department", fmt.Sprint(f.department))
	}
	if changed("status") && !selectOrKeep(s.Statuses(), f.status, s.SelectStatus) {
		return notOffered("status", fmt.Sprint(f.status))
	}
	if changed("priority") && !selectOrKeep(s.Priorities(), f.priority, s.SelectPriority) {
		return notOffered("priority", fmt.Sprint(f.priority))
	}
	if changed("assignee") && !selectOrKeep(s.Assignees(), f.assignee, s.SelectAssignee) {
		return notOffered("assignee", f.assignee)
	}
	return nil
}

func selectOrKeep[T comparable](p *editor.Picker[T], v T, sel func(T) bool) bool {
	if cur, ok := p.Value(); ok && cur == v {
		return true
	}
	return sel(v)
}

func notOffered(field, value string) error {
	return &apierrors.ValidationError{Field: field, Message: fmt.Sprintf("%s %s is not available", field, value)}
}

// submit waits for the session options, applies the flags and saves.
func (c *cli) submit(cmd *cobra.Command, s *editor.Session, loop *dispatch.Loop, form *formFlags) (tickets.Ticket, error) {
	ctx := cmd.Context()
	s.Start()
	if err := drain(ctx, loop); err != nil {
		return tickets.Ticket{}, err
	}
	if err := form.apply(cmd, s); err != nil {
		return tickets.Ticket{}, err
	}

	var saved tickets.Ticket
	var saveErr error
	s.OnSaved(func(t tickets.Ticket) { saved = t })
	s.OnError(func(err error) { saveErr = err })
	if err := s.Save(); err != nil {
		return tickets.Ticket{}, err
	}
	if err := drain(ctx, loop); err != nil {
		return tickets.Ticket{}, err
	}
	return saved, saveErr
}

func newTicketsCreateCmd(c *cli) *cobra.Command {
	var form formFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a ticket",
		Long: `Create a ticket. Options that are not given default to the first
department, status, priority and assignee the backend offers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, loop := c.openSession(dictionary.NewStore(), nil)
			defer s.Close()
			saved, err := c.submit(cmd, s, loop, &form)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "✅ Created ticket %s\n", saved.ID)
			return nil
		},
	}
	form.register(cmd)
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newTicketsEditCmd(c *cli) *cobra.Command {
	var form formFlags
	cmd := &cobra.Command{
		Use:   "edit <ticket-id>",
		Short: "Change a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store := dictionary.NewStore()
			t, err := c.fetchTicket(ctx, store, args[0])
			if err != nil {
				return err
			}
			s, loop := c.openSession(store, &t)
			defer s.Close()
			saved, err := c.submit(cmd, s, loop, &form)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "✅ Updated ticket %s\n", saved.ID)
			return nil
		},
	}
	form.register(cmd)
	return cmd
}

func newTicketsDeleteCmd(c *cli) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete <ticket-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a ticket",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !yes {
				ok, err := c.confirm(fmt.Sprintf("Delete ticket %s? [y/N]: ", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(c.out, "Cancelled")
					return nil
				}
			}
			if err := c.api.Tickets.Delete(cmd.Context(), id); err != nil {
				return errors.New(browser.ErrorText("deleting ticket", err))
			}
			fmt.Fprintf(c.out, "🗑️  %s\n", browser.StatusDeleted)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (c *cli) confirm(question string) (bool, error) {
	answer, err := c.prompt(question)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func newTicketsHistoryCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "history <ticket-id>",
		Short: "Show the change log of a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			body, err := c.api.Tickets.History(ctx, args[0])
			if err != nil {
				return err
			}
			entries, err := history.Parse(body)
			if err != nil {
				return err
			}

			store, err := c.fetchDictionaries(ctx)
			if err != nil {
				return err
			}
			var names map[string]string
			if body, err := c.api.Users.List(ctx); err != nil {
				c.log.Warn().Err(err).Msg("could not load users; showing ids")
			} else if all, err := users.Parse(body); err == nil {
				names = users.Names(all)
			}

			changes := make([]history.Change, 0, len(entries))
			for _, e := range entries {
				changes = append(changes, history.Describe(e, names, store))
			}
			return c.render(changes, func(w *tabwriter.Writer) {
				row(w, "WHEN", "WHO", "CHANGE")
				for _, ch := range changes {
					row(w, formatTime(ch.When), ch.Actor, ch.Message)
				}
			})
		},
	}
}

func newTicketsExportCmd(c *cli) *cobra.Command {
	var opts listOptions
	var out string
	var allColumns bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ticket list to an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.loadTickets(cmd.Context(), opts)
			if err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			w := bufio.NewWriter(f)
			if err := tickets.ExportXLSX(b.Collection(), w, allColumns); err != nil {
				f.Close()
				return err
			}
			if err := w.Flush(); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "📄 Exported %d tickets to %s\n", b.Collection().Len(), out)
			return nil
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&out, "out", "tickets.xlsx", "Output file")
	cmd.Flags().BoolVar(&allColumns, "all-columns", false, "Include the id and creation date columns")
	return cmd
}
