// Package history reads a ticket's change log and turns its entries into
// readable lines.
package history

import (
	"strconv"
	"strings"
	"time"

	"github.com/deskline/deskline/internal/apierrors"
	"github.com/deskline/deskline/internal/dictionary"
	"github.com/deskline/deskline/internal/wire"
)

// Entry is one row of GET /tickets/{id}/history.
type Entry struct {
	ID        string    `json:"history_id" yaml:"history_id"`
	TicketID  string    `json:"ticket_id" yaml:"ticket_id"`
	ChangedAt time.Time `json:"changed_at" yaml:"changed_at"`
	ChangedBy string    `json:"changed_by" yaml:"changed_by"`
	FieldName string    `json:"field_name" yaml:"field_name"`
	OldValue  string    `json:"old_value" yaml:"old_value"`
	NewValue  string    `json:"new_value" yaml:"new_value"`
}

// Parse reads a history body, oldest entry first as the server sent it.
func Parse(body []byte) ([]Entry, error) {
	objs, _, err := wire.DecodeArray(body)
	if err != nil {
		return nil, &apierrors.InvalidResponseError{Operation: "ticket history", Reason: err.Error()}
	}
	entries := make([]Entry, 0, len(objs))
	for _, obj := range objs {
		entries = append(entries, Entry{
			ID:        obj.String("history_id"),
			TicketID:  obj.String("ticket_id"),
			ChangedAt: obj.Time("changed_at"),
			ChangedBy: obj.String("changed_by"),
			FieldName: obj.String("field_name"),
			OldValue:  obj.String("old_value"),
			NewValue:  obj.String("new_value"),
		})
	}
	return entries, nil
}

// Resolver turns dictionary ids into labels.
type Resolver interface {
	Resolve(domain dictionary.Domain, id int) string
}

var dictionaryFields = map[string]dictionary.Domain{
	"status_id":     dictionary.Status,
	"priority_id":   dictionary.Priority,
	"department_id": dictionary.Department,
}

var fieldLabels = map[string]string{
	"title":         "Title",
	"description":   "Description",
	"status_id":     "Status",
	"priority_id":   "Priority",
	"department_id": "Department",
	"assignee_id":   "Assignee",
}

// Change is an Entry with its ids replaced by names.
type Change struct {
	When    time.Time `json:"changed_at" yaml:"changed_at"`
	Actor   string    `json:"actor" yaml:"actor"`
	Field   string    `json:"field" yaml:"field"`
	Old     string    `json:"old" yaml:"old"`
	New     string    `json:"new" yaml:"new"`
	Message string    `json:"message" yaml:"message"`
}

// Describe resolves e for display. The actor and assignee values are looked
// up in names and fall back to the raw id. Dictionary fields are resolved
// through r. Long free-text values are shortened.
func Describe(e Entry, names map[string]string, r Resolver) Change {
	c := Change{
		When:  e.ChangedAt,
		Actor: lookup(names, e.ChangedBy),
		Field: fieldLabel(e.FieldName),
		Old:   e.OldValue,
		New:   e.NewValue,
	}

	switch domain, ok := dictionaryFields[e.FieldName]; {
	case ok && r != nil:
		c.Old = resolveValue(r, domain, e.OldValue)
		c.New = resolveValue(r, domain, e.NewValue)
	case e.FieldName == "assignee_id":
		c.Old = lookup(names, e.OldValue)
		c.New = lookup(names, e.NewValue)
	default:
		c.Old = Excerpt(c.Old, 50)
		c.New = Excerpt(c.New, 50)
	}

	c.Message = ChangeMessage(c.Field, c.Old, c.New)
	return c
}

func lookup(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}

func fieldLabel(field string) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	return field
}

func resolveValue(r Resolver, domain dictionary.Domain, raw string) string {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return r.Resolve(domain, id)
}

// Excerpt shortens s to at most maxLen characters, ending in "...".
func Excerpt(s string, maxLen int) string {
	if maxLen <= 3 {
		maxLen = 50
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// ChangeMessage phrases one field change.
func ChangeMessage(field, oldVal, newVal string) string {
	if oldVal == "" {
		return field + " set to " + newVal
	}
	if newVal == "" {
		return field + " cleared (was: " + oldVal + ")"
	}
	return field + " changed from " + oldVal + " to " + newVal
}
