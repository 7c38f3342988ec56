package tickets

import (
	"time"

	"github.com/deskline/deskline/internal/apierrors"
	"github.com/deskline/deskline/internal/wire"
)

// DateLayout is the date-only format of the Created At and Updated At
// columns.
const DateLayout = "01/02/2006"

// Column indexes of the tabular projection.
const (
	ColumnID = iota
	ColumnTitle
	ColumnStatus
	ColumnPriority
	ColumnDepartment
	ColumnAssignee
	ColumnCreatedAt
	ColumnUpdatedAt
)

// Column describes one column of the ticket table.
type Column struct {
	Title  string
	Hidden bool
}

var columns = []Column{
	{Title: "ID", Hidden: true},
	{Title: "Title"},
	{Title: "Status"},
	{Title: "Priority"},
	{Title: "Department"},
	{Title: "Assignee"},
	{Title: "Created At", Hidden: true},
	{Title: "Updated At"},
}

// Columns returns the table columns in index order.
func Columns() []Column {
	out := make([]Column, len(columns))
	copy(out, columns)
	return out
}

// Collection is the ticket list currently on screen. It is only ever
// replaced wholesale.
type Collection struct {
	resolver Resolver
	items    []Ticket
}

func NewCollection(r Resolver) *Collection {
	return &Collection{resolver: r}
}

// Load replaces the contents with objs, in order.
func (c *Collection) Load(objs []wire.Object) {
	items := make([]Ticket, 0, len(objs))
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		items = append(items, Parse(obj, c.resolver))
	}
	c.items = items
}

// LoadBody parses a list response and loads it. A body that is not a JSON
// array leaves the collection untouched and returns an invalid response
// error. It returns the number of non-object elements skipped.
func (c *Collection) LoadBody(body []byte) (int, error) {
	objs, skipped, err := wire.DecodeArray(body)
	if err != nil {
		return 0, &apierrors.InvalidResponseError{Operation: "list tickets", Reason: err.Error()}
	}
	c.Load(objs)
	return skipped, nil
}

// Len returns the row count.
func (c *Collection) Len() int {
	return len(c.items)
}

// Get returns the ticket at row, or the zero Ticket when row is out of
// range.
func (c *Collection) Get(row int) Ticket {
	if row < 0 || row >= len(c.items) {
		return Ticket{}
	}
	return c.items[row]
}

// All returns a copy of the rows.
func (c *Collection) All() []Ticket {
	out := make([]Ticket, len(c.items))
	copy(out, c.items)
	return out
}

// Index returns the row of the ticket with id, or -1.
func (c *Collection) Index(id string) int {
	for i, t := range c.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Cell renders one table cell. Out-of-range rows or columns render empty.
func (c *Collection) Cell(row, col int) string {
	if row < 0 || row >= len(c.items) {
		return ""
	}
	return CellOf(c.items[row], col)
}

// CellOf renders column col of t.
func CellOf(t Ticket, col int) string {
	switch col {
	case ColumnID:
		return t.ID
	case ColumnTitle:
		return t.Title
	case ColumnStatus:
		return t.Status
	case ColumnPriority:
		return t.Priority
	case ColumnDepartment:
		return t.Department
	case ColumnAssignee:
		return t.AssigneeName
	case ColumnCreatedAt:
		return formatDate(t.CreatedAt)
	case ColumnUpdatedAt:
		return formatDate(t.UpdatedAt)
	}
	return ""
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
