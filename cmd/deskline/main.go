package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/deskline/deskline/internal/apierrors"
	"github.com/deskline/deskline/internal/client"
	"github.com/deskline/deskline/internal/config"
	"github.com/deskline/deskline/internal/dispatch"
	"github.com/deskline/deskline/internal/logger"
	"github.com/deskline/deskline/internal/session"
	"github.com/deskline/deskline/internal/version"
)

const (
	annotationLogs = "logs"
	logsFileOnly   = "file-only"
)

var errNotLoggedIn = errors.New("not logged in: run 'deskline login' first")

type globalFlags struct {
	configDir string
	apiURL    string
	token     string
	logLevel  string
	logFormat string
	output    string
	stats     bool
}

// cli carries what every command needs once the root pre-run has loaded
// configuration.
type cli struct {
	flags globalFlags

	in     io.Reader
	stdin  *bufio.Reader
	out    io.Writer
	errOut io.Writer

	manager  *config.Manager
	cfg      *config.Config
	log      zerolog.Logger
	logFile  io.Closer
	registry *prometheus.Registry
	sessions *session.Store
	api      *client.Client
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "deskline",
		Short: "Deskline - terminal client for the ticket desk",
		Long: `Deskline Command Line Interface

Browse, filter and search tickets, create and edit them, and work with
their comments and attachments against a ticket desk REST backend.`,
		Version:            version.Get().String(),
		SilenceUsage:       true,
		PersistentPreRunE:  c.setup,
		PersistentPostRunE: c.teardown,
	}
	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&c.flags.configDir, "config", "", "Directory containing config.ini")
	flags.StringVar(&c.flags.apiURL, "api-url", "", "Backend base URL (overrides config and environment)")
	flags.StringVar(&c.flags.token, "token", "", "Session token to use instead of the saved one")
	flags.StringVar(&c.flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&c.flags.logFormat, "log-format", "", "Log format: console or json")
	flags.StringVarP(&c.flags.output, "output", "o", "table", "Output format: table, json or yaml")
	flags.BoolVar(&c.flags.stats, "stats", false, "Print per-route request statistics on exit")

	root.AddCommand(
		newLoginCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newRegisterCmd(c),
		newConfigCmd(c),
		newDictionariesCmd(c),
		newRolesCmd(c),
		newTicketsCmd(c),
		newCommentsCmd(c),
		newAttachmentsCmd(c),
		newTUICmd(c),
		newVersionCmd(c),
	)
	return root
}

func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			return c.render(info, func(w *tabwriter.Writer) {
				row(w, "Deskline CLI", info.String())
				row(w, "Go", info.GoVersion)
				row(w, "Platform", info.Platform)
			})
		},
	}
}

func (c *cli) setup(cmd *cobra.Command, args []string) error {
	switch c.flags.output {
	case formatTable, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown output format %q", c.flags.output)
	}

	manager, err := config.Load(c.flags.configDir, cmd.Flags())
	if err != nil {
		return err
	}
	c.manager = manager
	c.cfg = manager.Get()

	validator := config.NewValidator(c.cfg)
	if err := validator.Validate(); err != nil {
		return err
	}

	var logOut io.Writer = c.errOut
	if c.cfg.Log.File != "" {
		f, err := logger.OpenFile(c.cfg.Log.File)
		if err != nil {
			return err
		}
		c.logFile = f
		logOut = f
	} else if cmd.Annotations[annotationLogs] == logsFileOnly {
		logOut = io.Discard
	}
	c.log = logger.New(logger.Options{Level: c.cfg.Log.Level, Format: c.cfg.Log.Format, Output: logOut})
	for _, warning := range validator.Warnings() {
		c.log.Warn().Msg(warning)
	}

	c.sessions = session.NewStore(c.cfg.Session.File)
	token := c.flags.token
	if token == "" {
		token, err = c.sessions.Load()
		if err != nil && !errors.Is(err, session.ErrNoSession) {
			c.log.Warn().Err(err).Msg("could not read saved session")
		}
	}

	c.registry = prometheus.NewRegistry()
	c.api = client.NewClient(&client.Config{
		BaseURL:    c.cfg.FullAPIURL(),
		Token:      token,
		UserAgent:  c.cfg.HTTP.UserAgent,
		Timeout:    c.cfg.HTTP.Timeout,
		Logger:     c.log,
		Registerer: c.registry,
	})
	c.log.Debug().Str("api", c.cfg.FullAPIURL()).Str("config", manager.Path()).Msg("configuration loaded")
	return nil
}

func (c *cli) teardown(cmd *cobra.Command, args []string) error {
	if c.logFile != nil {
		defer c.logFile.Close()
	}
	if !c.flags.stats || c.registry == nil {
		return nil
	}
	stats, err := client.Summarize(c.registry)
	if err != nil {
		return err
	}
	return printStats(c.errOut, stats)
}

func (c *cli) requireLogin() error {
	if c.api.Token() == "" {
		return errNotLoggedIn
	}
	return nil
}

// drain runs the dispatch loop until every request it started has
// completed.
func drain(ctx context.Context, loop *dispatch.Loop) error {
	if err := loop.RunUntilIdle(ctx); err != nil {
		return fmt.Errorf("interrupted: %w", err)
	}
	return nil
}

// hint suggests the next step for errors a user can fix.
func hint(err error) string {
	switch {
	case apierrors.IsUnauthorized(err):
		return "💡 The session was rejected; run 'deskline login' again."
	case apierrors.IsValidation(err), errors.Is(err, errNotLoggedIn):
		return ""
	case apierrors.IsNotFound(err):
		return "💡 Check the id; 'deskline tickets list --all-columns' shows ticket ids."
	}
	var netErr *apierrors.NetworkError
	if errors.As(err, &netErr) {
		return "💡 Is the backend running? See 'deskline config show' for the URL in use."
	}
	return ""
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
	if err := newRootCmd(c).ExecuteContext(ctx); err != nil {
		if h := hint(err); h != "" {
			fmt.Fprintln(os.Stderr, h)
		}
		os.Exit(1)
	}
}
