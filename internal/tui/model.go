// Package tui is the interactive terminal front end: a filter sidebar, the
// ticket table, a search bar, and a form for creating and editing tickets
// with their comments and attachments.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/deskline/deskline/internal/apierrors"
	"github.com/deskline/deskline/internal/browser"
	"github.com/deskline/deskline/internal/client"
	"github.com/deskline/deskline/internal/dispatch"
	"github.com/deskline/deskline/internal/editor"
	"github.com/deskline/deskline/internal/tickets"
)

// Focus is the region that receives keyboard input.
type Focus int

const (
	FocusTable Focus = iota
	FocusSidebar
	FocusSearch
	FocusConfirm
	FocusForm
)

const sidebarWidth = 22

// loopMsg carries one dispatch completion into the bubbletea update loop so
// that it runs on the UI goroutine.
type loopMsg struct {
	fn func()
}

func waitForLoop(loop *dispatch.Loop) tea.Cmd {
	return func() tea.Msg {
		return loopMsg{fn: <-loop.Queue()}
	}
}

type sidebarItem struct {
	label      string
	scope      browser.Scope
	department int
}

// Config wires the model to the API.
type Config struct {
	Loop   *dispatch.Loop
	API    *client.Client
	Token  string
	Logger zerolog.Logger
	Theme  *Theme
}

// Model is the bubbletea model of the browser. It is used through a
// pointer so that dispatch callbacks can update it in place.
type Model struct {
	loop    *dispatch.Loop
	api     *client.Client
	token   string
	log     zerolog.Logger
	browser *browser.Browser
	keys    KeyMap
	theme   Theme

	focus         Focus
	width         int
	height        int
	sidebarCursor int
	cursor        int
	scrollOffset  int

	search    textinput.Model
	confirmID string
	form      *form

	status      string
	statusError bool
}

// NewModel creates the model and its browser. Nothing is requested until
// Init.
func NewModel(cfg Config) *Model {
	theme := DefaultTheme
	if cfg.Theme != nil {
		theme = *cfg.Theme
	}

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search tickets"
	search.CharLimit = 200

	model := &Model{
		loop:   cfg.Loop,
		api:    cfg.API,
		token:  cfg.Token,
		log:    cfg.Logger,
		keys:   DefaultKeyMap,
		theme:  theme,
		search: search,
	}
	model.browser = browser.New(browser.Config{
		Loop:         cfg.Loop,
		Dictionaries: cfg.API.Dictionaries,
		Tickets:      cfg.API.Tickets,
		Token:        cfg.Token,
		Logger:       cfg.Logger,
	})
	model.browser.OnStatus(func(text string) {
		model.status = text
		model.statusError = strings.HasPrefix(text, "Error")
	})
	model.browser.OnError(func(op string, err error) {
		model.status = browser.ErrorText(op, err)
		model.statusError = true
	})
	model.browser.OnLoaded(func(int) {
		model.clampCursor()
	})
	return model
}

// Browser exposes the underlying list state.
func (model *Model) Browser() *browser.Browser {
	return model.browser
}

// Focus returns the region receiving input.
func (model *Model) Focus() Focus {
	return model.focus
}

// Status returns the status bar text.
func (model *Model) Status() string {
	return model.status
}

// Init implements tea.Model. It starts the initial loads and begins
// draining the dispatch loop.
func (model *Model) Init() tea.Cmd {
	model.browser.Start()
	return waitForLoop(model.loop)
}

// Update implements tea.Model.
func (model *Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case loopMsg:
		model.loop.Exec(message.fn)
		return model, waitForLoop(model.loop)

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.search.Width = message.Width - 4

	case tea.KeyMsg:
		switch model.focus {
		case FocusSearch:
			return model.handleSearchKeys(message)
		case FocusConfirm:
			return model.handleConfirmKeys(message)
		case FocusForm:
			return model.handleFormKeys(message)
		}

		switch {
		case key.Matches(message, model.keys.Quit):
			model.browser.Close()
			return model, tea.Quit

		case key.Matches(message, model.keys.FocusToggle):
			if model.focus == FocusTable {
				model.focus = FocusSidebar
			} else {
				model.focus = FocusTable
			}

		case key.Matches(message, model.keys.Search):
			model.focus = FocusSearch
			return model, model.search.Focus()

		case key.Matches(message, model.keys.Refresh):
			model.report(model.browser.Reload())

		case key.Matches(message, model.keys.New):
			model.openForm(nil)

		default:
			if model.focus == FocusSidebar {
				model.handleSidebarKeys(message)
			} else {
				model.handleTableKeys(message)
			}
		}
	}
	return model, nil
}

func (model *Model) report(err error) {
	if err == nil {
		return
	}
	model.status = apierrors.Message(err)
	model.statusError = true
}

func (model *Model) sidebarItems() []sidebarItem {
	items := []sidebarItem{
		{label: "All Tickets", scope: browser.ScopeAll},
		{label: "My Tickets", scope: browser.ScopeMine},
	}
	for _, dept := range model.browser.Departments() {
		items = append(items, sidebarItem{label: dept.Label, scope: browser.ScopeDepartment, department: dept.ID})
	}
	return items
}

func (model *Model) handleSidebarKeys(message tea.KeyMsg) {
	items := model.sidebarItems()
	switch {
	case key.Matches(message, model.keys.Up):
		if model.sidebarCursor > 0 {
			model.sidebarCursor--
		}
	case key.Matches(message, model.keys.Down):
		if model.sidebarCursor < len(items)-1 {
			model.sidebarCursor++
		}
	case key.Matches(message, model.keys.Open):
		if model.sidebarCursor >= len(items) {
			return
		}
		item := items[model.sidebarCursor]
		model.cursor, model.scrollOffset = 0, 0
		switch item.scope {
		case browser.ScopeMine:
			model.report(model.browser.ShowMine())
		case browser.ScopeDepartment:
			model.report(model.browser.ShowDepartment(item.department))
		default:
			model.report(model.browser.ShowAll())
		}
		model.focus = FocusTable
	}
}

func (model *Model) handleTableKeys(message tea.KeyMsg) {
	rows := model.browser.Collection().Len()
	switch {
	case key.Matches(message, model.keys.Up):
		if model.cursor > 0 {
			model.cursor--
		}
	case key.Matches(message, model.keys.Down):
		if model.cursor < rows-1 {
			model.cursor++
		}
	case key.Matches(message, model.keys.Open):
		if rows == 0 {
			return
		}
		ticket := model.browser.Collection().Get(model.cursor)
		model.openForm(&ticket)
	case key.Matches(message, model.keys.Delete):
		if rows == 0 {
			return
		}
		model.confirmID = model.browser.Collection().Get(model.cursor).ID
		model.focus = FocusConfirm
	}
	model.ensureCursorVisible()
}

func (model *Model) handleSearchKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyEnter:
		model.search.Blur()
		model.focus = FocusTable
		model.cursor, model.scrollOffset = 0, 0
		model.report(model.browser.Search(model.search.Value()))
		return model, nil
	case tea.KeyEsc:
		model.search.Blur()
		model.focus = FocusTable
		return model, nil
	}
	var cmd tea.Cmd
	model.search, cmd = model.search.Update(message)
	return model, cmd
}

func (model *Model) handleConfirmKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(message, model.keys.Confirm) {
		model.browser.DeleteTicket(model.confirmID)
	}
	model.confirmID = ""
	model.focus = FocusTable
	return model, nil
}

func (model *Model) openForm(ticket *tickets.Ticket) {
	session := editor.New(editor.Config{
		Loop:         model.loop,
		Store:        model.browser.Store(),
		Dictionaries: model.api.Dictionaries,
		Users:        model.api.Users,
		Tickets:      model.api.Tickets,
		Comments:     model.api.Comments,
		Attachments:  model.api.Attachments,
		Token:        model.token,
		Ticket:       ticket,
		Logger:       model.log,
	})
	model.form = newForm(session)
	session.OnSaved(func(saved tickets.Ticket) {
		model.closeForm()
		model.status = fmt.Sprintf("Ticket %s saved", saved.ID)
		model.statusError = false
		model.report(model.browser.Reload())
	})
	model.focus = FocusForm
	session.Start()
}

func (model *Model) closeForm() {
	if model.form == nil {
		return
	}
	model.form.session.Close()
	model.form = nil
	model.focus = FocusTable
}

func (model *Model) handleFormKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(message, model.keys.Cancel) {
		model.closeForm()
		return model, nil
	}
	return model, model.form.update(message, model.keys)
}

func (model *Model) clampCursor() {
	rows := model.browser.Collection().Len()
	if model.cursor >= rows {
		model.cursor = rows - 1
	}
	if model.cursor < 0 {
		model.cursor = 0
	}
	model.ensureCursorVisible()
}

func (model *Model) visibleRows() int {
	rows := model.height - 5
	if rows < 3 {
		return 3
	}
	return rows
}

func (model *Model) ensureCursorVisible() {
	visible := model.visibleRows()
	if model.cursor < model.scrollOffset {
		model.scrollOffset = model.cursor
	}
	if model.cursor >= model.scrollOffset+visible {
		model.scrollOffset = model.cursor - visible + 1
	}
}

// View implements tea.Model.
func (model *Model) View() string {
	if model.form != nil {
		return model.form.view(model.theme, model.width)
	}

	var sections []string
	sections = append(sections, model.renderHeader())
	content := lipgloss.JoinHorizontal(lipgloss.Top, model.renderSidebar(), " ", model.renderTable())
	sections = append(sections, content)
	sections = append(sections, model.renderStatus())
	sections = append(sections, model.renderHelp())
	return strings.Join(sections, "\n")
}

func (model *Model) renderHeader() string {
	style := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground)
	header := style.Render(model.browser.Title())
	if model.focus == FocusSearch {
		return header + "  " + model.search.View()
	}
	if q, ok := model.browser.Filter().Get(browser.KeySearch); ok {
		header += lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("  search: " + q)
	}
	return header
}

func (model *Model) renderSidebar() string {
	var lines []string
	for i, item := range model.sidebarItems() {
		line := fmt.Sprintf(" %-*s", sidebarWidth-1, item.label)
		style := lipgloss.NewStyle().Foreground(model.theme.NormalText)
		if i == model.sidebarCursor && model.focus == FocusSidebar {
			style = style.Background(model.theme.SelectedBackground).Foreground(model.theme.SelectedForeground)
		}
		lines = append(lines, style.Render(line))
	}
	return lipgloss.NewStyle().
		Width(sidebarWidth).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(model.theme.BorderColor).
		Render(strings.Join(lines, "\n"))
}

var columnWidths = map[int]int{
	tickets.ColumnTitle:      28,
	tickets.ColumnStatus:     10,
	tickets.ColumnPriority:   10,
	tickets.ColumnDepartment: 14,
	tickets.ColumnAssignee:   14,
	tickets.ColumnUpdatedAt:  10,
}

func pad(text string, width int) string {
	runes := []rune(text)
	if len(runes) > width {
		return string(runes[:width-1]) + "…"
	}
	return text + strings.Repeat(" ", width-len(runes))
}

func (model *Model) renderTable() string {
	columns := tickets.Columns()
	var header []string
	for i, col := range columns {
		if col.Hidden {
			continue
		}
		header = append(header, pad(col.Title, columnWidths[i]))
	}
	lines := []string{lipgloss.NewStyle().Bold(true).Render(strings.Join(header, " "))}

	collection := model.browser.Collection()
	if collection.Len() == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("No tickets"))
		return strings.Join(lines, "\n")
	}

	end := model.scrollOffset + model.visibleRows()
	if end > collection.Len() {
		end = collection.Len()
	}
	for row := model.scrollOffset; row < end; row++ {
		var cells []string
		for i, col := range columns {
			if col.Hidden {
				continue
			}
			if i == tickets.ColumnStatus {
				cells = append(cells, model.theme.badge(collection.Cell(row, i), columnWidths[i]))
				continue
			}
			cells = append(cells, pad(collection.Cell(row, i), columnWidths[i]))
		}
		line := strings.Join(cells, " ")
		if row == model.cursor && model.focus == FocusTable {
			line = lipgloss.NewStyle().Background(model.theme.SelectedBackground).Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (model *Model) renderStatus() string {
	if model.focus == FocusConfirm {
		return lipgloss.NewStyle().Foreground(model.theme.ErrorText).
			Render(fmt.Sprintf("Delete ticket %s? (y/n)", model.confirmID))
	}
	color := model.theme.FaintText
	if model.statusError {
		color = model.theme.ErrorText
	}
	return lipgloss.NewStyle().Foreground(color).Render(model.status)
}

func (model *Model) renderHelp() string {
	bindings := []key.Binding{
		model.keys.Up, model.keys.Down, model.keys.FocusToggle, model.keys.Open,
		model.keys.New, model.keys.Delete, model.keys.Search, model.keys.Refresh, model.keys.Quit,
	}
	var parts []string
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(strings.Join(parts, " · "))
}
