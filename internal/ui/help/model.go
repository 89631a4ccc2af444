// Package help renders the help overlay: key bindings, mouse gestures
// and how board columns map to ticket statuses.
package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ticketboard/internal/keys"
	"github.com/nhle/ticketboard/internal/theme"
)

// ColumnStatus pairs a column title with the ticket status its cards
// carry.
type ColumnStatus struct {
	Title  string
	Status string
}

// Model is the help overlay view.
type Model struct {
	keys    *keys.KeyMap
	help    help.Model
	columns []ColumnStatus
	width   int
	height  int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// SetColumns replaces the column to status listing.
func (m *Model) SetColumns(cols []ColumnStatus) {
	m.columns = cols
}

// View renders the help overlay.
func (m Model) View() string {
	heading := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite)

	m.help.Width = m.width - 4
	m.help.ShowAll = true

	sections := []string{
		heading.MarginBottom(1).Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		"",
		theme.HelpStyle.Render(
			"Mouse: drag a card to move it, drag a column by its title to reorder. " +
				"Moves are disabled while a filter is active."),
	}
	if len(m.columns) > 0 {
		sections = append(sections, "", heading.Render("Columns"), m.columnLines())
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) columnLines() string {
	lines := make([]string, 0, len(m.columns))
	for _, c := range m.columns {
		lines = append(lines, "  "+c.Title+" → "+theme.DimmedStyle.Render(c.Status))
	}
	return strings.Join(lines, "\n")
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
