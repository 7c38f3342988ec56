// Package comments holds the per-ticket comment list and the thread that
// loads and posts to it.
package comments

import (
	"fmt"
	"time"

	"github.com/deskline/deskline/internal/wire"
)

// DisplayLayout is the timestamp layout used by Display.
const DisplayLayout = "15:04 02.01.2006"

// Comment is one entry of GET /tickets/{id}/comments.
type Comment struct {
	ID              string    `json:"comment_id" yaml:"comment_id"`
	TicketID        string    `json:"ticket_id" yaml:"ticket_id"`
	TicketCreatedAt string    `json:"ticket_created_at" yaml:"ticket_created_at"`
	AuthorID        string    `json:"author_id" yaml:"author_id"`
	AuthorName      string    `json:"author_name" yaml:"author_name"`
	Content         string    `json:"content" yaml:"content"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
}

// Parse reads a comment object.
func Parse(obj wire.Object) Comment {
	return Comment{
		ID:              obj.String("comment_id"),
		TicketID:        obj.String("ticket_id"),
		TicketCreatedAt: obj.String("ticket_created_at"),
		AuthorID:        obj.String("author_id"),
		AuthorName:      obj.String("author_name"),
		Content:         obj.String("content"),
		CreatedAt:       obj.Time("created_at"),
	}
}

// Display renders the comment as "[15:04 02.01.2006] author: content".
func (c Comment) Display() string {
	stamp := ""
	if !c.CreatedAt.IsZero() {
		stamp = c.CreatedAt.Local().Format(DisplayLayout)
	}
	return fmt.Sprintf("[%s] %s: %s", stamp, c.AuthorName, c.Content)
}

// List is an ordered comment collection.
type List struct {
	items []Comment
}

func NewList() *List {
	return &List{}
}

// Load replaces the list with objs, in order.
func (l *List) Load(objs []wire.Object) {
	items := make([]Comment, 0, len(objs))
	for _, obj := range objs {
		items = append(items, Parse(obj))
	}
	l.items = items
}

func (l *List) Append(c Comment) {
	l.items = append(l.items, c)
}

// Get returns the comment at row, or the zero Comment when row is out of
// range.
func (l *List) Get(row int) Comment {
	if row < 0 || row >= len(l.items) {
		return Comment{}
	}
	return l.items[row]
}

func (l *List) Len() int {
	return len(l.items)
}

// All returns a copy of the comments.
func (l *List) All() []Comment {
	out := make([]Comment, len(l.items))
	copy(out, l.items)
	return out
}

// Update replaces the comment at row. Out of range rows are ignored.
func (l *List) Update(row int, c Comment) {
	if row < 0 || row >= len(l.items) {
		return
	}
	l.items[row] = c
}

// Remove deletes the comment at row. Out of range rows are ignored.
func (l *List) Remove(row int) {
	if row < 0 || row >= len(l.items) {
		return
	}
	l.items = append(l.items[:row], l.items[row+1:]...)
}

func (l *List) Clear() {
	l.items = nil
}
