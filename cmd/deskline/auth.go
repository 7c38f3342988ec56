package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/deskline/deskline/internal/client"
	"github.com/deskline/deskline/internal/session"
	"github.com/deskline/deskline/internal/users"
)

func newLoginCmd(c *cli) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if username == "" {
				if username, err = c.prompt("Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = c.promptSecret("Password: "); err != nil {
					return err
				}
			}

			token, err := c.api.Auth.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			if err := c.sessions.Save(token); err != nil {
				return err
			}
			c.api.SetToken(token)
			c.log.Info().Str("user_id", session.UserID(token)).Msg("logged in")
			fmt.Fprintf(c.out, "✅ Logged in as %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.sessions.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "👋 Logged out")
			return nil
		},
	}
}

type identity struct {
	UserID       string `json:"user_id" yaml:"user_id"`
	Username     string `json:"username,omitempty" yaml:"username,omitempty"`
	DepartmentID int    `json:"department_id,omitempty" yaml:"department_id,omitempty"`
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user the session token belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			me := identity{UserID: session.UserID(c.api.Token())}
			if me.UserID == "" {
				return fmt.Errorf("session token carries no user id")
			}

			if body, err := c.api.Users.List(cmd.Context()); err != nil {
				c.log.Warn().Err(err).Msg("could not load users")
			} else if all, err := users.Parse(body); err == nil {
				if u, ok := users.Find(all, me.UserID); ok {
					me.Username = u.Username
					me.DepartmentID = u.DepartmentID
				}
			}

			return c.render(me, func(w *tabwriter.Writer) {
				row(w, "USER ID", "USERNAME", "DEPARTMENT")
				row(w, me.UserID, me.Username, fmt.Sprint(me.DepartmentID))
			})
		},
	}
}

func newRegisterCmd(c *cli) *cobra.Command {
	var req client.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a user account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				var err error
				if req.Password, err = c.promptSecret("Password: "); err != nil {
					return err
				}
			}
			id, err := c.api.Auth.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "✅ Registered %s (id %s)\n", req.Username, id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "Username")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Password (prompted when omitted)")
	cmd.Flags().StringVar(&req.RoleID, "role", "", "Role id")
	cmd.Flags().IntVar(&req.DepartmentID, "department", 0, "Department id")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) prompt(label string) (string, error) {
	fmt.Fprint(c.errOut, label)
	line, err := c.reader().ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads without echo when stdin is a terminal.
func (c *cli) promptSecret(label string) (string, error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(c.errOut, label)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.errOut)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(secret), nil
	}
	return c.prompt(label)
}

func (c *cli) reader() *bufio.Reader {
	if c.stdin == nil {
		c.stdin = bufio.NewReader(c.in)
	}
	return c.stdin
}
