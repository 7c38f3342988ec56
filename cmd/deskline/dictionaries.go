package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deskline/deskline/internal/apierrors"
	"github.com/deskline/deskline/internal/dictionary"
	"github.com/deskline/deskline/internal/dispatch"
)

type dictionaryListing struct {
	Domain  dictionary.Domain  `json:"domain" yaml:"domain"`
	Entries []dictionary.Entry `json:"entries" yaml:"entries"`
	Error   string             `json:"error,omitempty" yaml:"error,omitempty"`
}

func newDictionariesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "dictionaries",
		Aliases: []string{"dicts"},
		Short:   "List ticket statuses, priorities and departments",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			loop := dispatch.NewLoop()
			store := dictionary.NewStore()
			failures := map[dictionary.Domain]error{}
			store.FetchAll(cmd.Context(), loop, c.api.Dictionaries, c.log, func(domain dictionary.Domain, err error) {
				if err != nil {
					failures[domain] = err
				}
			})
			if err := drain(cmd.Context(), loop); err != nil {
				return err
			}

			listings := make([]dictionaryListing, 0, len(dictionary.Domains))
			for _, domain := range dictionary.Domains {
				l := dictionaryListing{Domain: domain, Entries: store.Entries(domain)}
				if err := failures[domain]; err != nil {
					l.Error = apierrors.Message(err)
				}
				listings = append(listings, l)
			}

			return c.render(listings, func(w *tabwriter.Writer) {
				row(w, "DOMAIN", "ID", "LABEL", "CODE")
				for _, l := range listings {
					if l.Error != "" {
						row(w, string(l.Domain), "-", "error: "+l.Error, "")
						continue
					}
					for _, e := range l.Entries {
						row(w, string(l.Domain), fmt.Sprint(e.ID), e.Label, e.Code)
					}
				}
			})
		},
	}
}

func newRolesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List the roles a new account can be registered with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.api.Dictionaries.Roles(cmd.Context())
			if err != nil {
				return err
			}
			roles, err := dictionary.ParseEntries(body)
			if err != nil {
				return err
			}
			return c.render(roles, func(w *tabwriter.Writer) {
				row(w, "ID", "ROLE")
				for _, r := range roles {
					row(w, fmt.Sprint(r.ID), r.Label)
				}
			})
		},
	}
}
