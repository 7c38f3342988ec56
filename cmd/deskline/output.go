package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/xeonx/timeago"
	"gopkg.in/yaml.v3"

	"github.com/deskline/deskline/internal/client"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// render writes v as JSON or YAML, or hands a tabwriter to table for the
// default table output.
func (c *cli) render(v any, table func(w *tabwriter.Writer)) error {
	switch c.flags.output {
	case formatJSON:
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(c.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	table(w)
	return w.Flush()
}

func row(w io.Writer, cells ...string) {
	fmt.Fprintln(w, strings.Join(cells, "\t"))
}

func printStats(w io.Writer, stats []client.RouteStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row(tw, "METHOD", "ROUTE", "COUNT", "AVG", "OUTCOMES")
	for _, s := range stats {
		var outcomes []string
		for _, name := range []string{client.OutcomeOK, client.OutcomeAPIError, client.OutcomeNetworkError} {
			if n := s.Requests[name]; n > 0 {
				outcomes = append(outcomes, fmt.Sprintf("%s=%.0f", name, n))
			}
		}
		row(tw, s.Method, s.Route, fmt.Sprint(s.Count), s.Average().String(), strings.Join(outcomes, " "))
	}
	return tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// formatAge adds the relative age, e.g. "2024-03-01 10:00 (3 days ago)".
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", formatTime(t), timeago.English.Format(t))
}
