package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deskline/deskline/internal/attachments"
	"github.com/deskline/deskline/internal/browser"
	"github.com/deskline/deskline/internal/dispatch"
)

func newAttachmentsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "attachments",
		Aliases: []string{"attachment", "files"},
		Short:   "Manage ticket attachments",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return c.requireLogin()
		},
	}
	cmd.AddCommand(
		newAttachmentsListCmd(c),
		newAttachmentsUploadCmd(c),
		newAttachmentsDeleteCmd(c),
		newAttachmentsDownloadCmd(c),
	)
	return cmd
}

func (c *cli) openSet(ctx context.Context, ticketID string) (*attachments.Set, *dispatch.Loop, *error) {
	loop := dispatch.NewLoop()
	set := attachments.NewSet(attachments.SetConfig{
		Context:  ctx,
		Loop:     loop,
		API:      c.api.Attachments,
		TicketID: ticketID,
		Logger:   c.log,
	})
	var firstErr error
	set.OnError(func(op string, err error) {
		if firstErr == nil {
			firstErr = errors.New(browser.ErrorText(op, err))
		}
	})
	return set, loop, &firstErr
}

func newAttachmentsListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list <ticket-id>",
		Short: "List the attachments of a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, loop, _ := c.openSet(cmd.Context(), args[0])
			set.Load()
			if err := drain(cmd.Context(), loop); err != nil {
				return err
			}
			all := set.List().All()
			return c.render(all, func(w *tabwriter.Writer) {
				row(w, "ID", "FILENAME", "UPLOADED", "IMAGE")
				for _, a := range all {
					image := ""
					if a.IsImage() {
						image = "yes"
					}
					row(w, a.ID, a.Filename, formatTime(a.UploadedAt), image)
				}
			})
		},
	}
}

func newAttachmentsUploadCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <ticket-id> <file>...",
		Short: "Upload files to a ticket",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, loop, failed := c.openSet(cmd.Context(), args[0])
			for _, path := range args[1:] {
				set.Upload(path)
			}
			if err := drain(cmd.Context(), loop); err != nil {
				return err
			}
			for _, a := range set.List().All() {
				fmt.Fprintf(c.out, "📎 %s (%s)\n", a.Filename, a.ID)
			}
			return *failed
		},
	}
}

func newAttachmentsDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <ticket-id> <attachment-id>",
		Aliases: []string{"rm"},
		Short:   "Delete an attachment",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, loop, failed := c.openSet(cmd.Context(), args[0])
			set.Delete(args[1])
			if err := drain(cmd.Context(), loop); err != nil {
				return err
			}
			if *failed != nil {
				return *failed
			}
			fmt.Fprintf(c.out, "🗑️  Deleted attachment %s\n", args[1])
			return nil
		},
	}
}

func newAttachmentsDownloadCmd(c *cli) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "download <ticket-id> <attachment-id>",
		Short: "Download an attachment",
		Long: `Download an attachment. Without --out the file is saved in the current
directory under the name the server suggests.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, _, _ := c.openSet(cmd.Context(), args[0])

			dir := "."
			if out != "" {
				dir = filepath.Dir(out)
			}
			tmp, err := os.CreateTemp(dir, ".deskline-download-*")
			if err != nil {
				return fmt.Errorf("failed to create file: %w", err)
			}
			defer os.Remove(tmp.Name())

			name, err := set.Download(cmd.Context(), args[1], tmp)
			if cerr := tmp.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			target := out
			if target == "" {
				target = filepath.Base(name)
				if name == "" || target == "." || target == string(filepath.Separator) {
					target = args[1]
				}
			}
			if err := os.Rename(tmp.Name(), target); err != nil {
				return fmt.Errorf("failed to save %s: %w", target, err)
			}
			fmt.Fprintf(c.out, "⬇️  Saved %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "O", "", "Output file")
	return cmd
}
