// Package confirm asks a yes/no question before a destructive action.
package confirm

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Kind identifies what is being confirmed.
type Kind int

// Confirmable actions.
const (
	DeleteTask Kind = iota
	DeleteColumn
)

// ResultMsg is emitted when the question is answered or dismissed.
// Confirmed is false when the user declined or pressed esc.
type ResultMsg struct {
	Kind      Kind
	Target    string
	Confirmed bool
}

type formBindings struct {
	confirm bool
}

// Model wraps a huh confirm form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	kind   Kind
	target string
	width  int
}

// New creates a confirm dialog.
func New(width int) Model {
	return Model{fb: &formBindings{}, width: width}
}

// Start asks question about target. The default answer is no.
func (m *Model) Start(kind Kind, target, question, description string) tea.Cmd {
	m.kind = kind
	m.target = target
	m.fb.confirm = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Description(description).
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(max(40, min(m.width-4, 80)))
	return m.form.Init()
}

// Update handles messages for the dialog.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		return m, m.result(m.fb.confirm)
	case huh.StateAborted:
		return m, m.result(false)
	}
	return m, cmd
}

func (m Model) result(confirmed bool) tea.Cmd {
	r := ResultMsg{Kind: m.kind, Target: m.target, Confirmed: confirmed}
	return func() tea.Msg { return r }
}

// View renders the dialog.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(m.form.View())
}

// SetSize updates the dialog width.
func (m *Model) SetSize(width, height int) {
	m.width = width
}
