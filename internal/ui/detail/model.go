package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ticketboard/internal/keys"
	"github.com/nhle/ticketboard/internal/model"
	"github.com/nhle/ticketboard/internal/theme"
)

// BackMsg signals the parent to navigate back to the board.
type BackMsg struct{}

// CommentsLoadedMsg carries the comments fetched for a task.
type CommentsLoadedMsg struct {
	TaskID   string
	Comments []model.Comment
	Err      error
}

// Action identifies what the user asked to do from the detail view.
type Action string

// Detail view actions.
const (
	ActionEdit    Action = "edit"
	ActionComment Action = "comment"
)

// ActionMsg signals the parent to execute an action on the current task.
type ActionMsg struct {
	Action Action
	TaskID string
}

// Model is the task detail view component.
type Model struct {
	task     *model.Task
	column   string
	comments []model.Comment
	err      error
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool
	now      func() time.Time
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, max(height-2, 1))
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
		now:      time.Now,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case CommentsLoadedMsg:
		if m.task == nil || msg.TaskID != m.task.ID {
			return m, nil
		}
		m.comments = msg.Comments
		m.err = msg.Err
		m.loading = false
		m.viewport.SetContent(m.renderContent())
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.AddComment):
			return m, m.action(ActionComment)

		case key.Matches(msg, m.keys.EditTask):
			return m, m.action(ActionEdit)
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) action(a Action) tea.Cmd {
	if m.task == nil {
		return nil
	}
	id := m.task.ID
	return func() tea.Msg { return ActionMsg{Action: a, TaskID: id} }
}

// View renders the detail view.
func (m Model) View() string {
	if m.task == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No task selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}

	task := m.task
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(task.Title))

	badges := []string{theme.PriorityStyle(task.Priority).Render(task.Priority.Label())}
	if m.column != "" {
		badges = append(badges, "  ", theme.DimmedStyle.Render(m.column))
	}
	if task.ExternalID != nil {
		badges = append(badges, "  ", theme.DimmedStyle.Render(fmt.Sprintf("#%d", *task.ExternalID)))
	} else {
		badges = append(badges, "  ", theme.DimmedStyle.Render("draft"))
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, badges...))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	if !task.CreatedAt.IsZero() {
		sections = append(sections, fmt.Sprintf(
			"%s  %s",
			metaStyle.Render("Created:"),
			valStyle.Render(task.CreatedAt.Format("2006-01-02 15:04")),
		))
	}
	if task.DueDate != nil {
		due := valStyle
		if task.IsOverdue(m.now()) {
			due = theme.OverdueStyle
		}
		sections = append(sections, fmt.Sprintf(
			"%s      %s",
			metaStyle.Render("Due:"),
			due.Render(task.DueDate.Format("2006-01-02")),
		))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	descHeaderStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	sections = append(sections, descHeaderStyle.Render("Description"))

	body := task.Description
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description")
	}
	sections = append(sections, body)

	sections = append(sections, "", separator, "")
	sections = append(sections, m.renderComments()...)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderComments() []string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	italic := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)

	switch {
	case m.task.ExternalID == nil:
		return []string{italic.Render("Comments are available once the task is synced")}
	case m.loading:
		return []string{italic.Render("Loading comments...")}
	case m.err != nil:
		return []string{theme.ErrorStyle.Render("Comments unavailable: " + m.err.Error())}
	case len(m.comments) == 0:
		return []string{headerStyle.Render("Comments"), "", italic.Render("No comments yet")}
	}

	out := []string{headerStyle.Render(fmt.Sprintf("Comments (%d)", len(m.comments))), ""}
	authorStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)
	timeStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	for _, c := range m.comments {
		out = append(out,
			fmt.Sprintf("%s  %s",
				authorStyle.Render(fmt.Sprintf("user %d", c.UserID)),
				timeStyle.Render(c.CreatedAt.Format("2006-01-02 15:04"))),
			c.Text,
			"",
		)
	}
	return out
}

// SetTask shows task and marks its comments as loading. column is the
// title of the column holding the task.
func (m *Model) SetTask(task model.Task, column string) {
	m.task = &task
	m.column = column
	m.comments = nil
	m.err = nil
	m.loading = task.ExternalID != nil
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Refresh re-renders task after an edit, keeping loaded comments.
func (m *Model) Refresh(task model.Task, column string) {
	if m.task == nil || m.task.ID != task.ID {
		m.SetTask(task, column)
		return
	}
	m.task = &task
	m.column = column
	m.viewport.SetContent(m.renderContent())
}

// AppendComment adds a freshly posted comment to the list.
func (m *Model) AppendComment(c model.Comment) {
	m.comments = append(m.comments, c)
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoBottom()
}

// TaskID returns the id of the task being shown, or "".
func (m Model) TaskID() string {
	if m.task == nil {
		return ""
	}
	return m.task.ID
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(height-2, 1)
	m.viewport.SetContent(m.renderContent())
}
