package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deskline/deskline/internal/comments"
	"github.com/deskline/deskline/internal/dictionary"
	"github.com/deskline/deskline/internal/dispatch"
	"github.com/deskline/deskline/internal/session"
	"github.com/deskline/deskline/internal/tickets"
)

func newCommentsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "comments",
		Aliases: []string{"comment"},
		Short:   "Read and post ticket comments",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return c.requireLogin()
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <ticket-id>",
			Short: "List the comments of a ticket",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				thread, loop := c.openThread(cmd.Context(), tickets.Ticket{ID: args[0]})
				thread.Load()
				if err := drain(cmd.Context(), loop); err != nil {
					return err
				}
				all := thread.List().All()
				return c.render(all, func(w *tabwriter.Writer) {
					for _, cm := range all {
						fmt.Fprintln(w, cm.Display())
					}
				})
			},
		},
		&cobra.Command{
			Use:   "add <ticket-id> <text>...",
			Short: "Post a comment on a ticket",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				t, err := c.fetchTicket(ctx, dictionary.NewStore(), args[0])
				if err != nil {
					return err
				}

				thread, loop := c.openThread(ctx, t)
				var posted *comments.Comment
				var postErr error
				thread.OnPosted(func(cm comments.Comment) { posted = &cm })
				thread.OnError(func(err error) { postErr = err })
				thread.Post(strings.Join(args[1:], " "))
				if err := drain(ctx, loop); err != nil {
					return err
				}
				if postErr != nil {
					return postErr
				}
				if posted == nil {
					return fmt.Errorf("comment is empty")
				}
				fmt.Fprintf(c.out, "💬 %s\n", posted.Display())
				return nil
			},
		},
	)
	return cmd
}

func (c *cli) openThread(ctx context.Context, t tickets.Ticket) (*comments.Thread, *dispatch.Loop) {
	loop := dispatch.NewLoop()
	thread := comments.NewThread(comments.ThreadConfig{
		Context:         ctx,
		Loop:            loop,
		API:             c.api.Comments,
		TicketID:        t.ID,
		TicketCreatedAt: t.CreatedAtRaw,
		AuthorID:        session.UserID(c.api.Token()),
		Logger:          c.log,
	})
	return thread, loop
}
