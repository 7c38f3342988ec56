// Package attachments holds the per-ticket attachment list and the set that
// loads, uploads, deletes and downloads its files.
package attachments

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/deskline/deskline/internal/wire"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// Attachment is one entry of GET /tickets/{id}/attachments.
type Attachment struct {
	ID              string    `json:"attachment_id" yaml:"attachment_id"`
	TicketID        string    `json:"ticket_id" yaml:"ticket_id"`
	TicketCreatedAt string    `json:"ticket_created_at" yaml:"ticket_created_at"`
	Filename        string    `json:"filename" yaml:"filename"`
	FilePath        string    `json:"file_path" yaml:"file_path"`
	UploadedBy      string    `json:"uploaded_by" yaml:"uploaded_by"`
	UploadedAt      time.Time `json:"uploaded_at" yaml:"uploaded_at"`
}

func Parse(obj wire.Object) Attachment {
	return Attachment{
		ID:              obj.String("attachment_id"),
		TicketID:        obj.String("ticket_id"),
		TicketCreatedAt: obj.String("ticket_created_at"),
		Filename:        obj.String("filename"),
		FilePath:        obj.String("file_path"),
		UploadedBy:      obj.String("uploaded_by"),
		UploadedAt:      obj.Time("uploaded_at"),
	}
}

// IsImage reports whether the file can be previewed as an image, judged by
// its extension alone.
func (a Attachment) IsImage() bool {
	return imageExtensions[strings.ToLower(filepath.Ext(a.Filename))]
}

// Display renders the attachment as "[15:04 02.01.2006] name (path)".
func (a Attachment) Display() string {
	stamp := ""
	if !a.UploadedAt.IsZero() {
		stamp = a.UploadedAt.Local().Format("15:04 02.01.2006")
	}
	return fmt.Sprintf("[%s] %s (%s)", stamp, a.Filename, a.FilePath)
}

// List is an ordered attachment collection.
type List struct {
	items []Attachment
}

func NewList() *List {
	return &List{}
}

func (l *List) Load(objs []wire.Object) {
	items := make([]Attachment, 0, len(objs))
	for _, obj := range objs {
		items = append(items, Parse(obj))
	}
	l.items = items
}

func (l *List) Append(a Attachment) {
	l.items = append(l.items, a)
}

// Get returns the attachment at row, or the zero value when out of range.
func (l *List) Get(row int) Attachment {
	if row < 0 || row >= len(l.items) {
		return Attachment{}
	}
	return l.items[row]
}

func (l *List) Len() int {
	return len(l.items)
}

func (l *List) All() []Attachment {
	out := make([]Attachment, len(l.items))
	copy(out, l.items)
	return out
}

func (l *List) Update(row int, a Attachment) {
	if row < 0 || row >= len(l.items) {
		return
	}
	l.items[row] = a
}

func (l *List) Remove(row int) {
	if row < 0 || row >= len(l.items) {
		return
	}
	l.items = append(l.items[:row], l.items[row+1:]...)
}

// Index returns the row of the attachment with id, or -1.
func (l *List) Index(id string) int {
	for i, a := range l.items {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (l *List) Clear() {
	l.items = nil
}
