package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deskline/deskline/internal/config"
)

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change the client configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := c.cfg
				return c.render(cfg, func(w *tabwriter.Writer) {
					row(w, "KEY", "VALUE")
					row(w, "file", c.manager.Path())
					row(w, "api.base_url", cfg.API.BaseURL)
					row(w, "api.version", cfg.API.Version)
					row(w, "api.url", cfg.FullAPIURL())
					row(w, "http.timeout", cfg.HTTP.Timeout.String())
					row(w, "http.user_agent", cfg.HTTP.UserAgent)
					row(w, "log.level", cfg.Log.Level)
					row(w, "log.format", cfg.Log.Format)
					row(w, "log.file", cfg.Log.File)
					row(w, "session.file", cfg.Session.File)
				})
			},
		},
		&cobra.Command{
			Use:   "set-url <base-url>",
			Short: "Save the backend base URL to config.ini",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.Validate(&config.Config{
					API:  config.APIConfig{BaseURL: config.NormalizeBaseURL(args[0])},
					HTTP: c.cfg.HTTP,
					Log:  c.cfg.Log,
				}); err != nil {
					return err
				}
				if err := c.manager.SetAPIBaseURL(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "✅ API base URL set to %s in %s\n", config.NormalizeBaseURL(args[0]), c.manager.Path())
				return nil
			},
		},
	)
	return cmd
}
