// Package prompt is a single-line text input used for column titles,
// comments and the search box.
package prompt

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ticketboard/internal/theme"
)

// Purpose tells the parent what a submitted value is for.
type Purpose int

// Prompt purposes.
const (
	PurposeAddColumn Purpose = iota
	PurposeRenameColumn
	PurposeAddComment
	// PurposeSearch accepts an empty value, which clears the search.
	PurposeSearch
)

// SubmitMsg is emitted when the user confirms a value.
type SubmitMsg struct {
	Purpose Purpose
	// Target is the column or task the value applies to.
	Target string
	Value  string
}

// CancelMsg is emitted when the user dismisses the prompt.
type CancelMsg struct{}

// Model is the prompt view.
type Model struct {
	input   textinput.Model
	title   string
	purpose Purpose
	target  string
	width   int
}

// New creates a prompt.
func New(width int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 500
	ti.Width = width - 6
	return Model{input: ti, width: width}
}

// Start opens the prompt with a title and initial value.
func (m *Model) Start(purpose Purpose, target, title, initial string) tea.Cmd {
	m.purpose = purpose
	m.target = target
	m.title = title
	m.input.SetValue(initial)
	m.input.CursorEnd()
	return m.input.Focus()
}

// Update handles messages for the prompt.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyEnter:
			value := strings.TrimSpace(m.input.Value())
			if value == "" && m.purpose != PurposeSearch {
				return m, nil
			}
			m.input.Blur()
			submit := SubmitMsg{Purpose: m.purpose, Target: m.target, Value: value}
			return m, func() tea.Msg { return submit }
		case tea.KeyEsc:
			m.input.Blur()
			return m, func() tea.Msg { return CancelMsg{} }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the prompt.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(m.title),
		m.input.View(),
		theme.HelpStyle.Render("enter to confirm, esc to cancel"))

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the prompt width.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.input.Width = width - 6
}
