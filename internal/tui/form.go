package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/deskline/deskline/internal/apierrors"
	"github.com/deskline/deskline/internal/editor"
)

type formField int

const (
	fieldTitle formField = iota
	fieldDescription
	fieldDepartment
	fieldStatus
	fieldPriority
	fieldAssignee
	fieldComment
)

const shownComments = 8

// form renders an editor.Session and feeds it keyboard input.
type form struct {
	session     *editor.Session
	title       textinput.Model
	description textinput.Model
	comment     textinput.Model
	field       formField
	err         string
}

func newInput(placeholder, value string) textinput.Model {
	input := textinput.New()
	input.Prompt = ""
	input.Placeholder = placeholder
	input.SetValue(value)
	return input
}

func newForm(session *editor.Session) *form {
	f := &form{
		session:     session,
		title:       newInput("Title", session.Title()),
		description: newInput("Description", session.Description()),
		comment:     newInput("Write a comment and press Enter", ""),
	}
	f.title.Focus()

	session.OnError(func(err error) {
		f.err = apierrors.Message(err)
	})
	if thread := session.Comments(); thread != nil {
		thread.OnError(func(err error) {
			f.err = "Error posting comment: " + apierrors.Message(err)
		})
	}
	if files := session.Attachments(); files != nil {
		files.OnError(func(op string, err error) {
			f.err = fmt.Sprintf("Error %s: %s", op, apierrors.Message(err))
		})
	}
	return f
}

func (f *form) lastField() formField {
	if f.session.Mode() == editor.ModeEdit {
		return fieldComment
	}
	return fieldAssignee
}

func (f *form) move(delta int) tea.Cmd {
	count := int(f.lastField()) + 1
	f.field = formField((int(f.field) + delta + count) % count)

	f.title.Blur()
	f.description.Blur()
	f.comment.Blur()
	switch f.field {
	case fieldTitle:
		return f.title.Focus()
	case fieldDescription:
		return f.description.Focus()
	case fieldComment:
		return f.comment.Focus()
	}
	return nil
}

// step returns the next enabled option after the current one, wrapping
// around.
func step[T comparable](picker *editor.Picker[T], delta int) (T, bool) {
	var zero T
	options := picker.Options()
	n := len(options)
	if n == 0 {
		return zero, false
	}
	i := picker.Index()
	for range options {
		i = ((i+delta)%n + n) % n
		if !options[i].Disabled {
			return options[i].Value, true
		}
	}
	return zero, false
}

func (f *form) cycle(delta int) {
	s := f.session
	switch f.field {
	case fieldDepartment:
		if v, ok := step(s.Departments(), delta); ok {
			s.SelectDepartment(v)
		}
	case fieldStatus:
		if v, ok := step(s.Statuses(), delta); ok {
			s.SelectStatus(v)
		}
	case fieldPriority:
		if v, ok := step(s.Priorities(), delta); ok {
			s.SelectPriority(v)
		}
	case fieldAssignee:
		if v, ok := step(s.Assignees(), delta); ok {
			s.SelectAssignee(v)
		}
	}
}

func (f *form) update(message tea.KeyMsg, keys KeyMap) tea.Cmd {
	switch {
	case key.Matches(message, keys.Save):
		f.err = ""
		if err := f.session.Save(); err != nil {
			f.err = apierrors.Message(err)
		}
		return nil
	case key.Matches(message, keys.FocusToggle):
		return f.move(1)
	case key.Matches(message, keys.FocusBack):
		return f.move(-1)
	}

	var cmd tea.Cmd
	switch f.field {
	case fieldTitle:
		f.title, cmd = f.title.Update(message)
		f.session.SetTitle(f.title.Value())
	case fieldDescription:
		f.description, cmd = f.description.Update(message)
		f.session.SetDescription(f.description.Value())
	case fieldComment:
		if message.Type == tea.KeyEnter {
			f.session.Comments().Post(f.comment.Value())
			f.comment.Reset()
			return nil
		}
		f.comment, cmd = f.comment.Update(message)
	default:
		switch {
		case key.Matches(message, keys.Left), key.Matches(message, keys.Up):
			f.cycle(-1)
		case key.Matches(message, keys.Right), key.Matches(message, keys.Down):
			f.cycle(1)
		}
	}
	return cmd
}

func (f *form) view(theme Theme, width int) string {
	s := f.session
	heading := "Create New Ticket"
	if s.Mode() == editor.ModeEdit {
		heading = "Edit Ticket " + s.Ticket().ID
	}

	label := lipgloss.NewStyle().Width(13).Foreground(theme.FaintText)
	focused := lipgloss.NewStyle().Foreground(theme.SelectedForeground).Background(theme.SelectedBackground)
	row := func(field formField, name, value string) string {
		if f.field == field {
			value = focused.Render(value)
		}
		return label.Render(name) + value
	}
	choice := func(text string) string { return "‹ " + text + " ›" }

	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground).Render(heading) +
			lipgloss.NewStyle().Foreground(theme.FaintText).Render("  ["+s.State().String()+"]"),
		"",
		row(fieldTitle, "Title", f.title.View()),
		row(fieldDescription, "Description", f.description.View()),
		row(fieldDepartment, "Department", choice(s.Departments().Label())),
		row(fieldStatus, "Status", choice(s.Statuses().Label())),
		row(fieldPriority, "Priority", choice(s.Priorities().Label())),
		row(fieldAssignee, "Assignee", choice(s.Assignees().Label())),
		"",
	}

	if s.CanSave() {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.BadgeOpen).Render("C-s save"))
	} else {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.FaintText).Render("save unavailable"))
	}
	if f.err != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.ErrorText).Render(f.err))
	}

	if thread := s.Comments(); thread != nil {
		all := thread.List().All()
		lines = append(lines, "", lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Comments (%d)", len(all))))
		if len(all) > shownComments {
			all = all[len(all)-shownComments:]
		}
		for _, c := range all {
			lines = append(lines, "  "+c.Display())
		}
		lines = append(lines, row(fieldComment, "  >", f.comment.View()))
	}
	if files := s.Attachments(); files != nil {
		all := files.List().All()
		lines = append(lines, "", lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Attachments (%d)", len(all))))
		for _, a := range all {
			marker := "  "
			if a.IsImage() {
				marker = "🖼 "
			}
			lines = append(lines, "  "+marker+a.Display())
		}
	}

	lines = append(lines, "", lipgloss.NewStyle().Foreground(theme.HelpText).
		Render("Tab next field · ←/→ change option · C-s save · Esc close"))

	out := strings.Join(lines, "\n")
	if width > 0 {
		out = lipgloss.NewStyle().MaxWidth(width).Render(out)
	}
	return out
}
