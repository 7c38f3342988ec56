package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/deskline/deskline/internal/config"
	"github.com/deskline/deskline/internal/dispatch"
	"github.com/deskline/deskline/internal/tui"
)

func newTUICmd(c *cli) *cobra.Command {
	// The alternate screen owns the terminal, so logs go to log.file or
	// nowhere.
	return &cobra.Command{
		Use:         "tui",
		Short:       "Open the interactive ticket browser",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationLogs: logsFileOnly},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}

			// Changes take effect on the next start.
			c.manager.Watch(func(cfg *config.Config, err error) {
				if err != nil {
					c.log.Warn().Err(err).Msg("config reload failed")
					return
				}
				c.log.Info().Str("api", cfg.FullAPIURL()).Msg("config changed; restart to apply")
			})

			model := tui.NewModel(tui.Config{
				Loop:   dispatch.NewLoop(),
				API:    c.api,
				Token:  c.api.Token(),
				Logger: c.log,
			})
			defer model.Browser().Close()

			program := tea.NewProgram(model,
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
				tea.WithInput(c.in),
				tea.WithOutput(c.out),
			)
			_, err := program.Run()
			return err
		},
	}
}
