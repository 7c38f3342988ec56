// Package tickets holds the ticket record and the full-replace collection
// that backs the ticket list.
package tickets

import (
	"strconv"
	"time"

	"github.com/deskline/deskline/internal/dictionary"
	"github.com/deskline/deskline/internal/wire"
)

// Resolver turns dictionary ids into labels.
type Resolver interface {
	Resolve(domain dictionary.Domain, id int) string
}

// Ticket is one ticket as shown in the list. Status, Priority and
// Department are resolved when the ticket is parsed and are not updated
// afterwards. A zero CreatedAt or UpdatedAt means the server sent no
// usable timestamp.
type Ticket struct {
	ID           string    `json:"ticket_id" yaml:"ticket_id"`
	Title        string    `json:"title" yaml:"title"`
	Description  string    `json:"description" yaml:"description"`
	StatusID     int       `json:"status_id" yaml:"status_id"`
	Status       string    `json:"status" yaml:"status"`
	PriorityID   int       `json:"priority_id" yaml:"priority_id"`
	Priority     string    `json:"priority" yaml:"priority"`
	DepartmentID int       `json:"department_id" yaml:"department_id"`
	Department   string    `json:"department" yaml:"department"`
	AssigneeID   string    `json:"assignee_id" yaml:"assignee_id"`
	AssigneeName string    `json:"assignee_name" yaml:"assignee_name"`
	CreatorID    string    `json:"creator_id" yaml:"creator_id"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	CreatedAtRaw string    `json:"-" yaml:"-"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// Parse builds a Ticket from one server object. Missing ids read as -1.
func Parse(obj wire.Object, r Resolver) Ticket {
	t := Ticket{
		ID:           obj.String("ticket_id"),
		Title:        obj.String("title"),
		Description:  obj.String("description"),
		StatusID:     obj.Int("status_id", -1),
		PriorityID:   obj.Int("priority_id", -1),
		DepartmentID: obj.Int("department_id", -1),
		AssigneeID:   obj.String("assignee_id"),
		AssigneeName: obj.String("assignee_name"),
		CreatorID:    obj.String("creator_id"),
		CreatedAtRaw: obj.String("created_at"),
		UpdatedAt:    obj.Time("updated_at"),
	}
	t.CreatedAt = wire.ParseTime(t.CreatedAtRaw)

	t.Status = resolve(r, dictionary.Status, t.StatusID)
	t.Priority = resolve(r, dictionary.Priority, t.PriorityID)
	t.Department = resolve(r, dictionary.Department, t.DepartmentID)
	return t
}

func resolve(r Resolver, domain dictionary.Domain, id int) string {
	if r == nil {
		return strconv.Itoa(id)
	}
	return r.Resolve(domain, id)
}

// ToJSON returns the editable fields as a request body. ticket_id is left
// out when empty.
func (t Ticket) ToJSON() map[string]any {
	obj := map[string]any{
		"title":         t.Title,
		"description":   t.Description,
		"status_id":     t.StatusID,
		"priority_id":   t.PriorityID,
		"department_id": t.DepartmentID,
		"assignee_id":   t.AssigneeID,
		"creator_id":    t.CreatorID,
	}
	if t.ID != "" {
		obj["ticket_id"] = t.ID
	}
	return obj
}

// IsZero reports whether t is the empty record returned for missing rows.
func (t Ticket) IsZero() bool {
	return t.ID == "" && t.Title == "" && t.CreatedAt.IsZero()
}
