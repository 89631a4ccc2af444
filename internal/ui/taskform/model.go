package taskform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ticketboard/internal/model"
	"github.com/nhle/ticketboard/internal/theme"
)

const dateLayout = "2006-01-02"

// TaskCreatedMsg is dispatched when a new task is submitted via the form.
type TaskCreatedMsg struct {
	ColumnID string
	Input    model.TaskInput
}

// TaskUpdatedMsg is dispatched when an existing task is edited. Patch only
// carries the fields the user changed.
type TaskUpdatedMsg struct {
	TaskID string
	Patch  model.TaskPatch
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	priority    model.Priority
	dueDate     string
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form        *huh.Form
	fb          *formBindings
	editMode    bool
	original    model.Task
	columnID    string
	columnTitle string
	lastErr     string
	width       int
	height      int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{priority: model.PriorityMedium},
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for a new task in the given column.
func (m *Model) StartCreate(column model.Column) tea.Cmd {
	m.editMode = false
	m.original = model.Task{}
	m.columnID = column.ID
	m.columnTitle = column.Title
	m.lastErr = ""
	m.fb.title = ""
	m.fb.description = ""
	m.fb.priority = model.PriorityMedium
	m.fb.dueDate = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form for editing an existing task.
func (m *Model) StartEdit(task model.Task) tea.Cmd {
	m.editMode = true
	m.original = task
	m.columnID = ""
	m.columnTitle = ""
	m.lastErr = ""
	m.fb.title = task.Title
	m.fb.description = task.Description
	m.fb.priority = task.Priority
	if !task.Priority.Valid() {
		m.fb.priority = model.PriorityMedium
	}
	m.fb.dueDate = ""
	if task.DueDate != nil {
		m.fb.dueDate = task.DueDate.Format(dateLayout)
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Retry reopens the last submitted form with its values kept, showing
// why the submission failed.
func (m *Model) Retry(reason string) tea.Cmd {
	m.lastErr = reason
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		result := m.submission()
		return m, func() tea.Msg { return result }
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.columnTitle != "" {
		titleText += " in " + m.columnTitle
	}
	if m.editMode {
		titleText = "Edit Task"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n"
	if m.lastErr != "" {
		content += theme.ErrorStyle.Render(m.lastErr) + "\n\n"
	}
	content += m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	opts := make([]huh.Option[model.Priority], 0, len(model.Priorities))
	for _, p := range model.Priorities {
		opts = append(opts, huh.NewOption(p.Label(), p))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What needs to be done?").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Description").
				Placeholder("Optional details...").
				Value(&m.fb.description),
			huh.NewSelect[model.Priority]().
				Title("Priority").
				Options(opts...).
				Value(&m.fb.priority),
			huh.NewInput().
				Title("Due Date").
				Placeholder("YYYY-MM-DD (optional)").
				Value(&m.fb.dueDate).
				Validate(validateOptionalDate),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

// submission turns the bound values into the message for the parent.
func (m Model) submission() tea.Msg {
	title := strings.TrimSpace(m.fb.title)
	desc := strings.TrimSpace(m.fb.description)
	due := parseDue(m.fb.dueDate)

	if !m.editMode {
		return TaskCreatedMsg{
			ColumnID: m.columnID,
			Input: model.TaskInput{
				Title:       title,
				Description: desc,
				Priority:    m.fb.priority,
				DueDate:     due,
			},
		}
	}

	var patch model.TaskPatch
	if title != m.original.Title {
		patch.Title = &title
	}
	if desc != m.original.Description {
		patch.Description = &desc
	}
	if p := m.fb.priority; p != m.original.Priority {
		patch.Priority = &p
	}
	if !sameDay(due, m.original.DueDate) {
		patch.DueDate = &due
	}
	return TaskUpdatedMsg{TaskID: m.original.ID, Patch: patch}
}

func parseDue(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format(dateLayout) == b.Format(dateLayout)
}

func (m Model) formWidth() int {
	return max(40, min(m.width-4, 100))
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	_, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}
