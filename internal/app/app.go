package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/ticketboard/internal/dnd"
	"github.com/nhle/ticketboard/internal/keys"
	"github.com/nhle/ticketboard/internal/model"
	"github.com/nhle/ticketboard/internal/reconcile"
	appsync "github.com/nhle/ticketboard/internal/sync"
	"github.com/nhle/ticketboard/internal/theme"
	"github.com/nhle/ticketboard/internal/ui"
	"github.com/nhle/ticketboard/internal/ui/command"
	"github.com/nhle/ticketboard/internal/ui/confirm"
	"github.com/nhle/ticketboard/internal/ui/detail"
	helpview "github.com/nhle/ticketboard/internal/ui/help"
	"github.com/nhle/ticketboard/internal/ui/kanban"
	"github.com/nhle/ticketboard/internal/ui/prompt"
	"github.com/nhle/ticketboard/internal/ui/taskform"
)

// Board is the reconciliation controller as seen by the UI.
type Board interface {
	State() model.BoardState
	Load(ctx context.Context) reconcile.LoadResult
	Move(ctx context.Context, r dnd.DragEndResult) error
	CreateTask(ctx context.Context, columnID string, in model.TaskInput) (model.Task, error)
	UpdateTask(ctx context.Context, taskID string, patch model.TaskPatch) (model.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	Comments(ctx context.Context, taskID string) ([]model.Comment, error)
	AddComment(ctx context.Context, taskID, text string) (model.Comment, error)
	StatusFor(columnID string) string
	AddColumn(ctx context.Context, title string) (model.Column, error)
	RenameColumn(ctx context.Context, columnID, title string) error
	DeleteColumn(ctx context.Context, columnID string) error
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBoard ViewState = iota
	ViewDetail
	ViewHelp
	ViewCommand
	ViewTaskForm
	ViewPrompt
	ViewConfirm
)

// opTimeout bounds a single UI-initiated call to the ticket store.
const opTimeout = 30 * time.Second

// Options configures the root model.
type Options struct {
	Board  Board
	Poller *appsync.Poller
	Logger log.FieldLogger

	// Source names the ticket store shown in the header.
	Source string
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and access to the board controller.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	board        Board
	poller       *appsync.Poller
	log          log.FieldLogger
	keys         *keys.KeyMap
	source       string

	kanban      kanban.Model
	detail      detail.Model
	helpView    helpview.Model
	commandView command.Model
	taskForm    taskform.Model
	prompt      prompt.Model
	confirm     confirm.Model

	ready       bool
	loaded      bool
	busy        int
	origin      reconcile.Origin
	notice      string
	noticeIsErr bool
	authExpired bool
}

// New creates a new root application model.
func New(opts Options) Model {
	km := keys.DefaultKeyMap()
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return Model{
		currentView: ViewBoard,
		board:       opts.Board,
		poller:      opts.Poller,
		log:         logger,
		keys:        km,
		source:      opts.Source,
		kanban:      kanban.New(km, logger),
		detail:      detail.New(km, 80, 24),
		helpView:    helpview.New(km, 80, 24),
		commandView: command.New(80, 24),
		taskForm:    taskform.New(80, 24),
		prompt:      prompt.New(80),
		confirm:     confirm.New(80),
	}
}

// Init loads the board.
func (m Model) Init() tea.Cmd {
	return m.load()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.kanban.SetSize(w, h)
		m.kanban.SetOrigin(0, m.layout.HeaderHeight)
		m.detail.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.taskForm.SetSize(w, h)
		m.prompt.SetSize(w, h)
		m.confirm.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case loadedMsg:
		m.loaded = true
		m.origin = msg.result.Origin
		m.kanban.SetState(msg.state)
		switch {
		case msg.result.RemoteErr != nil:
			m.setError(fmt.Sprintf("ticket store unreachable, showing %s board: %v", msg.result.Origin, msg.result.RemoteErr))
		case len(msg.result.Dropped) > 0:
			m.setNotice(fmt.Sprintf("%d tickets hidden: no column for status %v", len(msg.result.Dropped), msg.result.Dropped))
		}
		if m.poller != nil {
			return m, m.poller.Start()
		}
		return m, nil

	case appsync.SyncResultMsg:
		m.authExpired = msg.AuthError
		if msg.Error != nil {
			m.setError("refresh failed: " + msg.Error.Error())
			m.kanban.SetState(m.board.State())
		} else {
			m.origin = reconcile.OriginRemote
			m.kanban.SetState(msg.Board)
			m.refreshDetail()
		}
		return m, m.poller.WaitForNextResult()

	case boardChangedMsg:
		m.busy = max(m.busy-1, 0)
		m.kanban.SetState(msg.state)
		m.refreshDetail()
		if msg.err != nil {
			m.log.WithError(msg.err).WithField("op", msg.op).Warn("board operation failed")
			m.setError(msg.op + " failed: " + msg.err.Error())
			if msg.fromForm && !reconcile.IsNotFound(msg.err) {
				m.open(ViewTaskForm)
				return m, m.taskForm.Retry(msg.op + " failed: " + msg.err.Error())
			}
		} else if msg.done != "" {
			m.setNotice(msg.done)
		}
		return m, nil

	case kanban.MoveRequestMsg:
		return m, m.move(msg.Result)

	case kanban.NoticeMsg:
		m.setNotice(msg.Text)
		return m, nil

	case taskform.TaskCreatedMsg:
		m.currentView = ViewBoard
		return m, m.createTask(msg.ColumnID, msg.Input)

	case taskform.TaskUpdatedMsg:
		m.currentView = m.previousView
		if msg.Patch.IsEmpty() {
			return m, nil
		}
		return m, m.updateTask(msg.TaskID, msg.Patch)

	case taskform.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case prompt.SubmitMsg:
		m.currentView = m.previousView
		return m, m.handlePrompt(msg)

	case prompt.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case confirm.ResultMsg:
		m.currentView = ViewBoard
		if !msg.Confirmed {
			return m, nil
		}
		switch msg.Kind {
		case confirm.DeleteTask:
			return m, m.deleteTask(msg.Target)
		case confirm.DeleteColumn:
			return m, m.deleteColumn(msg.Target)
		}
		return m, nil

	case detail.CommentsLoadedMsg:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case commentAddedMsg:
		if msg.err != nil {
			m.setError("comment failed: " + msg.err.Error())
			return m, nil
		}
		if m.detail.TaskID() == msg.taskID {
			m.detail.AppendComment(msg.comment)
		}
		m.setNotice("comment added")
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewBoard
		return m, nil

	case detail.ActionMsg:
		task, ok := m.kanban.State().Tasks[msg.TaskID]
		if !ok {
			return m, nil
		}
		switch msg.Action {
		case detail.ActionEdit:
			return m, m.openEdit(task)
		case detail.ActionComment:
			return m, m.openCommentPrompt(task)
		}
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(msg)

	case tea.MouseMsg:
		if m.currentView == ViewBoard {
			var cmd tea.Cmd
			m.kanban, cmd = m.kanban.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.currentView == ViewBoard {
			m.notice = ""
		}
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
		if m.currentView == ViewBoard {
			if cmd, handled := m.handleBoardKey(msg); handled {
				return m, cmd
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// typing reports whether the active view consumes printable keys.
func (m Model) typing() bool {
	switch m.currentView {
	case ViewCommand, ViewTaskForm, ViewPrompt, ViewConfirm:
		return true
	}
	return false
}

func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.Type == tea.KeyCtrlC {
		return m.quit(), true
	}
	if m.typing() {
		if m.currentView == ViewCommand && key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
			return nil, true
		}
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		m.openHelp()
		return nil, true

	case key.Matches(msg, m.keys.Command):
		m.open(ViewCommand)
		return m.commandView.Focus(), true

	case m.currentView == ViewHelp && key.Matches(msg, m.keys.Back):
		m.currentView = m.previousView
		return nil, true
	}
	return nil, false
}

func (m *Model) handleBoardKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit(), true

	case key.Matches(msg, m.keys.Refresh):
		return m.refresh(), true

	case key.Matches(msg, m.keys.NewTask):
		col, ok := m.kanban.SelectedColumn()
		if !ok {
			m.setNotice("add a column first")
			return nil, true
		}
		m.open(ViewTaskForm)
		return m.taskForm.StartCreate(col), true

	case key.Matches(msg, m.keys.EditTask):
		if task, ok := m.kanban.SelectedTask(); ok {
			return m.openEdit(task), true
		}
		return nil, true

	case key.Matches(msg, m.keys.DeleteTask):
		task, ok := m.kanban.SelectedTask()
		if !ok {
			return nil, true
		}
		m.open(ViewConfirm)
		return m.confirm.Start(confirm.DeleteTask, task.ID,
			fmt.Sprintf("Delete task %q?", task.Title),
			"The ticket is deleted from the ticket store."), true

	case key.Matches(msg, m.keys.Comments):
		task, ok := m.kanban.SelectedTask()
		if !ok {
			return nil, true
		}
		m.open(ViewDetail)
		m.detail.SetTask(task, m.columnTitleOf(task.ID))
		return m.loadComments(task), true

	case key.Matches(msg, m.keys.AddComment):
		if task, ok := m.kanban.SelectedTask(); ok {
			return m.openCommentPrompt(task), true
		}
		return nil, true

	case key.Matches(msg, m.keys.AddColumn):
		m.open(ViewPrompt)
		return m.prompt.Start(prompt.PurposeAddColumn, "", "New column", ""), true

	case key.Matches(msg, m.keys.RenameColumn):
		col, ok := m.kanban.SelectedColumn()
		if !ok {
			return nil, true
		}
		m.open(ViewPrompt)
		return m.prompt.Start(prompt.PurposeRenameColumn, col.ID, "Rename column", col.Title), true

	case key.Matches(msg, m.keys.DeleteColumn):
		col, ok := m.kanban.SelectedColumn()
		if !ok {
			return nil, true
		}
		m.open(ViewConfirm)
		return m.confirm.Start(confirm.DeleteColumn, col.ID,
			fmt.Sprintf("Delete column %q?", col.Title),
			fmt.Sprintf("Its %d cards are removed from the board; their tickets are kept.", len(col.TaskIDs))), true

	case key.Matches(msg, m.keys.Search):
		m.open(ViewPrompt)
		return m.prompt.Start(prompt.PurposeSearch, "", "Search cards", ""), true

	case key.Matches(msg, m.keys.CyclePriority):
		m.kanban.CyclePriority()
		return nil, true

	case key.Matches(msg, m.keys.ClearFilters):
		m.kanban.ClearFilters()
		return nil, true
	}
	return nil, false
}

func (m *Model) open(v ViewState) {
	if m.currentView != v {
		m.previousView = m.currentView
	}
	m.currentView = v
}

// openHelp shows the help overlay with the current column to status
// mapping.
func (m *Model) openHelp() {
	cols := m.board.State().OrderedColumns()
	mapping := make([]helpview.ColumnStatus, 0, len(cols))
	for _, col := range cols {
		mapping = append(mapping, helpview.ColumnStatus{Title: col.Title, Status: m.board.StatusFor(col.ID)})
	}
	m.helpView.SetColumns(mapping)
	m.open(ViewHelp)
}

func (m *Model) openEdit(task model.Task) tea.Cmd {
	m.open(ViewTaskForm)
	return m.taskForm.StartEdit(task)
}

func (m *Model) openCommentPrompt(task model.Task) tea.Cmd {
	if task.ExternalID == nil {
		m.setNotice("task is not synced yet")
		return nil
	}
	m.open(ViewPrompt)
	return m.prompt.Start(prompt.PurposeAddComment, task.ID, "Comment on "+task.Title, "")
}

func (m *Model) handlePrompt(msg prompt.SubmitMsg) tea.Cmd {
	switch msg.Purpose {
	case prompt.PurposeAddColumn:
		return m.addColumn(msg.Value)
	case prompt.PurposeRenameColumn:
		return m.renameColumn(msg.Target, msg.Value)
	case prompt.PurposeAddComment:
		return m.addComment(msg.Target, msg.Value)
	case prompt.PurposeSearch:
		m.kanban.SetQuery(msg.Value)
	}
	return nil
}

// executeCommand handles a command from the command palette.
func (m *Model) executeCommand(cmd command.CommandMsg) tea.Cmd {
	switch cmd.Name() {
	case "refresh", "sync":
		return m.refresh()
	case "quit", "q":
		return m.quit()
	case "help":
		m.openHelp()
		return nil
	case "add-column":
		if cmd.Args() == "" {
			m.setError("usage: add-column <title>")
			return nil
		}
		return m.addColumn(cmd.Args())
	case "rename-column":
		col, ok := m.kanban.SelectedColumn()
		if !ok || cmd.Args() == "" {
			m.setError("usage: rename-column <title>")
			return nil
		}
		return m.renameColumn(col.ID, cmd.Args())
	case "delete-column":
		col, ok := m.kanban.SelectedColumn()
		if !ok {
			return nil
		}
		return m.deleteColumn(col.ID)
	case "clear-filters", "clear":
		m.kanban.ClearFilters()
		return nil
	default:
		m.setError(fmt.Sprintf("unknown command %q", string(cmd)))
		return nil
	}
}

func (m *Model) quit() tea.Cmd {
	if m.poller != nil {
		m.poller.Stop()
	}
	return tea.Quit
}

func (m *Model) refresh() tea.Cmd {
	if m.poller == nil {
		return m.load()
	}
	m.setNotice("refreshing...")
	return m.poller.Refresh()
}

// refreshDetail re-renders the open detail view after the board changed.
func (m *Model) refreshDetail() {
	id := m.detail.TaskID()
	if id == "" {
		return
	}
	task, ok := m.kanban.State().Tasks[id]
	if !ok {
		if m.currentView == ViewDetail {
			m.currentView = ViewBoard
		}
		return
	}
	m.detail.Refresh(task, m.columnTitleOf(id))
}

func (m Model) columnTitleOf(taskID string) string {
	state := m.kanban.State()
	if colID, _, ok := state.ColumnOf(taskID); ok {
		return state.Columns[colID].Title
	}
	return ""
}

func (m *Model) setNotice(s string) {
	m.notice = s
	m.noticeIsErr = false
}

func (m *Model) setError(s string) {
	m.notice = s
	m.noticeIsErr = true
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewBoard:
		m.kanban, cmd = m.kanban.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTaskForm:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewPrompt:
		m.prompt, cmd = m.prompt.Update(msg)
	case ViewConfirm:
		m.confirm, cmd = m.confirm.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.header())
	content := m.renderContent()
	dragging := m.currentView == ViewBoard && m.kanban.Dragging()
	statusBar := m.layout.RenderStatusBar(m.statusText(), dragging)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

func (m Model) header() ui.Header {
	h := ui.Header{Source: m.source, Sync: m.syncStatus()}
	if m.loaded {
		h.Origin = string(m.origin)
		h.Tasks = m.kanban.State().TaskCount()
	}
	return h
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	var content string
	switch m.currentView {
	case ViewBoard:
		content = m.kanban.View()
	case ViewDetail:
		content = m.detail.View()
	case ViewHelp:
		content = m.helpView.View()
	case ViewCommand:
		content = m.commandView.View()
	case ViewTaskForm:
		content = m.taskForm.View()
	case ViewPrompt:
		content = m.prompt.View()
	case ViewConfirm:
		content = m.confirm.View()
	}
	return lipgloss.NewStyle().
		Height(m.layout.ContentHeight()).
		MaxHeight(m.layout.ContentHeight()).
		Render(content)
}

// syncStatus returns a short string describing the refresh state.
func (m Model) syncStatus() string {
	if m.poller == nil {
		return ui.SyncLabel(m.busy, nil)
	}
	st := m.poller.Status()
	return ui.SyncLabel(m.busy, &st)
}

// statusText returns the status bar contents: drag feedback first, then
// the last notice, then key hints.
func (m Model) statusText() string {
	if m.currentView == ViewBoard && m.kanban.Dragging() {
		return m.kanban.DragStatus()
	}
	if m.authExpired && m.currentView == ViewBoard {
		return theme.ErrorStyle.Render("ticket API rejected the token; run `ticketboard token set`")
	}
	if m.notice != "" && m.currentView == ViewBoard {
		if m.noticeIsErr {
			return theme.ErrorStyle.Render(m.notice)
		}
		return m.notice
	}
	return m.keyHints()
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewDetail:
		return "esc back | a comment | e edit | j/k scroll"
	case ViewTaskForm, ViewPrompt, ViewConfirm:
		return "enter submit | esc cancel"
	default:
		if label := m.kanban.FilterLabel(); label != "" {
			return "filtered by " + label + " | x clear"
		}
		return "q quit | ? help | n new | H/L move | drag with mouse | / search"
	}
}
