// Package kanban renders the board and turns mouse and keyboard input into
// drag results. It never changes the board itself: every move is sent to
// the parent as a MoveRequestMsg and the new board comes back via SetState.
package kanban

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/ticketboard/internal/board"
	"github.com/nhle/ticketboard/internal/dnd"
	"github.com/nhle/ticketboard/internal/keys"
	"github.com/nhle/ticketboard/internal/model"
)

// TrackID is the container id of the row of columns.
const TrackID = board.ColumnTrackID

const (
	cardHeight     = 4 // border, title, meta, border
	columnChrome   = 3 // border, title, rule
	minColumnWidth = 14
)

// MoveRequestMsg asks the parent to apply a completed drag or keyboard move.
type MoveRequestMsg struct {
	Result dnd.DragEndResult
}

// NoticeMsg carries a short message for the status bar.
type NoticeMsg struct {
	Text string
}

// Model is the board view.
type Model struct {
	state model.BoardState
	keys  *keys.KeyMap
	dnd   *dnd.Context

	// drops collects drag results from the dnd context between updates.
	drops *[]dnd.DragEndResult

	col        int
	row        int
	offset     int
	selectedID string

	query    string
	priority model.Priority

	originX int
	originY int
	width   int
	height  int
	now     func() time.Time
}

// New creates a board view.
func New(km *keys.KeyMap, logger log.FieldLogger) Model {
	drops := &[]dnd.DragEndResult{}
	ctx := dnd.NewContext(dnd.WithLogger(logger), dnd.WithActivationDistance(1))
	ctx.OnDragEnd(func(r dnd.DragEndResult) {
		*drops = append(*drops, r)
	})
	return Model{
		state: model.NewBoardState(),
		keys:  km,
		dnd:   ctx,
		drops: drops,
		now:   time.Now,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetState replaces the board being shown. The cursor follows the
// selected task when it still exists.
func (m *Model) SetState(state model.BoardState) {
	m.state = state
	m.restoreCursor()
	m.relayout()
}

// State returns the board being shown.
func (m Model) State() model.BoardState {
	return m.state
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.relayout()
}

// SetOrigin sets the screen position of the view's top-left corner, used
// to map mouse coordinates.
func (m *Model) SetOrigin(x, y int) {
	m.originX = x
	m.originY = y
	m.relayout()
}

// SetQuery filters cards by a case-insensitive title or description match.
func (m *Model) SetQuery(q string) {
	m.query = strings.TrimSpace(q)
	m.row = 0
	m.restoreCursor()
	m.relayout()
}

// CyclePriority steps the priority filter through all, low, medium, high.
func (m *Model) CyclePriority() {
	switch m.priority {
	case "":
		m.priority = model.Priorities[0]
	default:
		i := slices.Index(model.Priorities, m.priority)
		if i < 0 || i == len(model.Priorities)-1 {
			m.priority = ""
		} else {
			m.priority = model.Priorities[i+1]
		}
	}
	m.restoreCursor()
	m.relayout()
}

// ClearFilters removes the search and priority filters.
func (m *Model) ClearFilters() {
	m.query = ""
	m.priority = ""
	m.restoreCursor()
	m.relayout()
}

// Filtered reports whether a filter hides any cards. Moves are disabled
// while it is true since visible positions differ from column positions.
func (m Model) Filtered() bool {
	return m.query != "" || m.priority != ""
}

// FilterLabel describes the active filters.
func (m Model) FilterLabel() string {
	var parts []string
	if m.query != "" {
		parts = append(parts, fmt.Sprintf("search %q", m.query))
	}
	if m.priority != "" {
		parts = append(parts, "priority "+m.priority.Label())
	}
	return strings.Join(parts, ", ")
}

// Dragging reports whether a mouse drag is in progress.
func (m Model) Dragging() bool {
	return m.dnd.Dragging()
}

// DragStatus describes the drop target under the pointer.
func (m Model) DragStatus() string {
	s, ok := m.dnd.Session()
	if !ok {
		return ""
	}
	target, ok := m.dnd.Preview()
	if !ok {
		return fmt.Sprintf("dragging %s", m.itemLabel(s.ItemType, s.DraggableID))
	}
	dest := target.ContainerID
	if col, ok := m.state.Columns[target.ContainerID]; ok {
		dest = col.Title
	}
	if s.ItemType == dnd.ItemColumn {
		dest = "column order"
	}
	return fmt.Sprintf("dragging %s to %s, position %d",
		m.itemLabel(s.ItemType, s.DraggableID), dest, m.absoluteIndex(target.ContainerID, target.Index)+1)
}

// absoluteIndex converts an insertion index among the drawn cards of a
// container into an index in the full column.
func (m Model) absoluteIndex(containerID string, index int) int {
	if i := slices.Index(m.state.ColumnOrder, containerID); i >= 0 {
		return index + m.firstVisible(i)
	}
	return index
}

func (m Model) itemLabel(t dnd.ItemType, id string) string {
	if t == dnd.ItemColumn {
		if col, ok := m.state.Columns[id]; ok {
			return "column " + col.Title
		}
	}
	if task, ok := m.state.Tasks[id]; ok {
		return task.Title
	}
	return id
}

// SelectedTask returns the task under the cursor.
func (m Model) SelectedTask() (model.Task, bool) {
	col, ok := m.SelectedColumn()
	if !ok {
		return model.Task{}, false
	}
	tasks := m.visibleTasks(col)
	if m.row < 0 || m.row >= len(tasks) {
		return model.Task{}, false
	}
	return tasks[m.row], true
}

// SelectedColumn returns the column under the cursor.
func (m Model) SelectedColumn() (model.Column, bool) {
	if m.col < 0 || m.col >= len(m.state.ColumnOrder) {
		return model.Column{}, false
	}
	col, ok := m.state.Columns[m.state.ColumnOrder[m.col]]
	return col, ok
}

// Update handles keyboard and mouse input.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left):
		m.moveCursor(-1, 0)
	case key.Matches(msg, m.keys.Right):
		m.moveCursor(1, 0)
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(0, -1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(0, 1)
	case key.Matches(msg, m.keys.MoveLeft):
		return m, m.keyboardMove(m.taskMove(-1, 0))
	case key.Matches(msg, m.keys.MoveRight):
		return m, m.keyboardMove(m.taskMove(1, 0))
	case key.Matches(msg, m.keys.MoveUp):
		return m, m.keyboardMove(m.taskMove(0, -1))
	case key.Matches(msg, m.keys.MoveDown):
		return m, m.keyboardMove(m.taskMove(0, 1))
	case key.Matches(msg, m.keys.ColumnLeft):
		return m, m.keyboardMove(m.columnMove(-1))
	case key.Matches(msg, m.keys.ColumnRight):
		return m, m.keyboardMove(m.columnMove(1))
	}
	return m, nil
}

func (m *Model) moveCursor(dc, dr int) {
	n := len(m.state.ColumnOrder)
	if n == 0 {
		return
	}
	col := max(0, min(m.col+dc, n-1))
	if col != m.col {
		m.col = col
		m.offset = 0
	}
	selected, _ := m.SelectedColumn()
	rows := len(m.visibleTasks(selected))
	if dc != 0 {
		m.row = min(m.row, max(rows-1, 0))
	} else {
		m.row = max(0, min(m.row+dr, rows-1))
	}
	m.selectedID = ""
	if t, ok := m.SelectedTask(); ok {
		m.selectedID = t.ID
	}
	m.scroll()
	m.relayout()
}

// taskMove builds the result of shifting the selected card by dc columns
// or dr rows. Column changes land at the top of the target column.
func (m Model) taskMove(dc, dr int) (dnd.DragEndResult, bool) {
	task, ok := m.SelectedTask()
	if !ok {
		return dnd.DragEndResult{}, false
	}
	src := m.state.ColumnOrder[m.col]
	r := dnd.DragEndResult{
		DraggableID: task.ID,
		ItemType:    dnd.ItemTask,
		Source:      dnd.Location{ContainerID: src, Index: m.row},
	}
	if dc != 0 {
		target := m.col + dc
		if target < 0 || target >= len(m.state.ColumnOrder) {
			return dnd.DragEndResult{}, false
		}
		r.Destination = &dnd.Location{ContainerID: m.state.ColumnOrder[target], Index: 0}
		return r, true
	}
	target := m.row + dr
	if target < 0 || target >= len(m.state.Columns[src].TaskIDs) {
		return dnd.DragEndResult{}, false
	}
	r.Destination = &dnd.Location{ContainerID: src, Index: target}
	return r, true
}

func (m Model) columnMove(dc int) (dnd.DragEndResult, bool) {
	col, ok := m.SelectedColumn()
	if !ok {
		return dnd.DragEndResult{}, false
	}
	target := m.col + dc
	if target < 0 || target >= len(m.state.ColumnOrder) {
		return dnd.DragEndResult{}, false
	}
	return dnd.DragEndResult{
		DraggableID: col.ID,
		ItemType:    dnd.ItemColumn,
		Source:      dnd.Location{ContainerID: TrackID, Index: m.col},
		Destination: &dnd.Location{ContainerID: TrackID, Index: target},
	}, true
}

func (m *Model) keyboardMove(r dnd.DragEndResult, ok bool) tea.Cmd {
	if !ok {
		return nil
	}
	if m.Filtered() {
		return notice("clear filters to move cards")
	}
	m.follow(r)
	return func() tea.Msg { return MoveRequestMsg{Result: r} }
}

// follow points the cursor at the moved item's destination so it is
// restored there once the new board arrives.
func (m *Model) follow(r dnd.DragEndResult) {
	if r.Destination == nil {
		return
	}
	if r.ItemType == dnd.ItemColumn {
		m.col = r.Destination.Index
		return
	}
	m.selectedID = r.DraggableID
}

func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	ev, ok := pointerEvent(msg)
	if !ok {
		return m, nil
	}
	if ev.Action == dnd.PointerDown {
		m.selectAt(ev.Position)
	}

	if ev.Action == dnd.PointerUp {
		// The drop index is resolved from the last move, so replay the
		// release position first.
		m.dnd.HandlePointer(dnd.PointerEvent{Action: dnd.PointerMove, Button: ev.Button, Position: ev.Position})
	}
	m.dnd.HandlePointer(ev)

	drops := *m.drops
	*m.drops = (*m.drops)[:0]

	var cmds []tea.Cmd
	for _, r := range drops {
		if r.Destination != nil {
			dest := *r.Destination
			dest.Index = m.absoluteIndex(dest.ContainerID, dest.Index)
			r.Destination = &dest
		}
		if r.IsNoop() {
			continue
		}
		m.follow(r)
		cmds = append(cmds, func() tea.Msg { return MoveRequestMsg{Result: r} })
	}
	return m, tea.Batch(cmds...)
}

// pointerEvent maps a terminal mouse event onto the drag engine. Cells
// are addressed by their center so that a row never sits exactly on a
// card boundary.
func pointerEvent(msg tea.MouseMsg) (dnd.PointerEvent, bool) {
	pos := dnd.Point{X: float64(msg.X) + 0.5, Y: float64(msg.Y) + 0.5}
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return dnd.PointerEvent{}, false
		}
		return dnd.PointerEvent{Action: dnd.PointerDown, Button: dnd.ButtonPrimary, Position: pos}, true
	case tea.MouseActionMotion:
		return dnd.PointerEvent{Action: dnd.PointerMove, Button: dnd.ButtonPrimary, Position: pos}, true
	case tea.MouseActionRelease:
		return dnd.PointerEvent{Action: dnd.PointerUp, Button: dnd.ButtonPrimary, Position: pos}, true
	}
	return dnd.PointerEvent{}, false
}

// selectAt moves the cursor to the card or column under p.
func (m *Model) selectAt(p dnd.Point) {
	for i, colID := range m.state.ColumnOrder {
		if !m.columnRect(i).Contains(p) {
			continue
		}
		first := m.firstVisible(i)
		m.col = i
		m.offset = first
		m.row = first
		m.selectedID = ""
		tasks := m.visibleTasks(m.state.Columns[colID])
		for j := range m.visibleRows(len(tasks) - first) {
			if m.cardRect(i, j).Contains(p) {
				m.row = first + j
				m.selectedID = tasks[first+j].ID
				break
			}
		}
		m.relayout()
		return
	}
}

func (m *Model) restoreCursor() {
	defer m.scroll()
	if m.selectedID != "" {
		if colID, _, ok := m.state.ColumnOf(m.selectedID); ok {
			col := m.state.Columns[colID]
			for j, t := range m.visibleTasks(col) {
				if t.ID == m.selectedID {
					m.col = slices.Index(m.state.ColumnOrder, colID)
					m.row = j
					return
				}
			}
		}
	}
	n := len(m.state.ColumnOrder)
	m.col = max(0, min(m.col, n-1))
	col, _ := m.SelectedColumn()
	m.row = max(0, min(m.row, len(m.visibleTasks(col))-1))
}

// scroll keeps the cursor row inside the focused column's window.
func (m *Model) scroll() {
	c := m.capacity()
	switch {
	case m.row < m.offset:
		m.offset = m.row
	case m.row >= m.offset+c:
		m.offset = m.row - c + 1
	}
	m.offset = max(m.offset, 0)
}

func (m Model) visibleTasks(col model.Column) []model.Task {
	q := strings.ToLower(m.query)
	out := make([]model.Task, 0, len(col.TaskIDs))
	for _, id := range col.TaskIDs {
		t, ok := m.state.Tasks[id]
		if !ok {
			continue
		}
		if m.priority != "" && t.Priority != m.priority {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func notice(text string) tea.Cmd {
	return func() tea.Msg { return NoticeMsg{Text: text} }
}
