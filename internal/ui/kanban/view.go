package kanban

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ticketboard/internal/dnd"
	"github.com/nhle/ticketboard/internal/model"
	"github.com/nhle/ticketboard/internal/theme"
)

func (m Model) columnWidth() int {
	n := len(m.state.ColumnOrder)
	if n == 0 {
		return m.width
	}
	return max(m.width/n, minColumnWidth)
}

// capacity is the number of cards that fit in a column.
func (m Model) capacity() int {
	return max((m.height-columnChrome-1)/cardHeight, 1)
}

func (m Model) visibleRows(n int) int {
	return min(n, m.capacity())
}

// firstVisible returns the index of the first card drawn in column i. Only
// the focused column scrolls.
func (m Model) firstVisible(i int) int {
	if i != m.col {
		return 0
	}
	return m.offset
}

func (m Model) columnRect(i int) dnd.Rect {
	w := m.columnWidth()
	return dnd.R(m.originX+i*w, m.originY, w, m.height)
}

// titleRect is the drag handle of column i.
func (m Model) titleRect(i int) dnd.Rect {
	w := m.columnWidth()
	return dnd.R(m.originX+i*w, m.originY+1, w, 1)
}

// cardRect is the screen area of the card drawn in slot j of column i.
func (m Model) cardRect(i, j int) dnd.Rect {
	w := m.columnWidth()
	return dnd.R(m.originX+i*w+1, m.originY+columnChrome+j*cardHeight, w-2, cardHeight)
}

// relayout re-registers every drop container and draggable with the
// drag engine. Nothing is draggable while a filter is active.
func (m *Model) relayout() {
	m.dnd.ResetLayout()
	if m.width <= 0 || m.height <= 0 {
		return
	}

	n := len(m.state.ColumnOrder)
	w := m.columnWidth()
	m.dnd.RegisterDroppable(dnd.Droppable{
		ID:      TrackID,
		Accepts: dnd.ItemColumn,
		Bounds:  dnd.R(m.originX, m.originY, w*n, m.height),
		Axis:    dnd.Horizontal,
	})
	for i, colID := range m.state.ColumnOrder {
		m.dnd.RegisterDroppable(dnd.Droppable{
			ID:      colID,
			Accepts: dnd.ItemTask,
			Bounds:  m.columnRect(i),
			Axis:    dnd.Vertical,
		})
	}

	if m.Filtered() {
		return
	}

	for i, colID := range m.state.ColumnOrder {
		handle := m.titleRect(i)
		m.dnd.RegisterDraggable(dnd.Draggable{
			ID:          colID,
			Type:        dnd.ItemColumn,
			ContainerID: TrackID,
			Index:       i,
			Bounds:      m.columnRect(i),
			Handle:      &handle,
		})

		ids := m.state.Columns[colID].TaskIDs
		first := m.firstVisible(i)
		for j := range m.visibleRows(len(ids) - first) {
			m.dnd.RegisterDraggable(dnd.Draggable{
				ID:          ids[first+j],
				Type:        dnd.ItemTask,
				ContainerID: colID,
				Index:       first + j,
				Bounds:      m.cardRect(i, j),
			})
		}
	}
}

// View renders the board.
func (m Model) View() string {
	if len(m.state.ColumnOrder) == 0 {
		return theme.DimmedStyle.Render("No columns. Press N to add one.")
	}

	session, dragging := m.dnd.Session()
	target, hasTarget := m.dnd.Preview()

	w := m.columnWidth()
	cols := make([]string, 0, len(m.state.ColumnOrder))
	for i, colID := range m.state.ColumnOrder {
		col := m.state.Columns[colID]
		tasks := m.visibleTasks(col)

		style := theme.ColumnStyle
		switch {
		case dragging && hasTarget && session.ItemType == dnd.ItemTask && target.ContainerID == colID:
			style = theme.DropTargetColumnStyle
		case dragging && session.ItemType == dnd.ItemColumn && session.DraggableID == colID:
			style = theme.DropTargetColumnStyle
		case i == m.col:
			style = theme.FocusedColumnStyle
		}

		title := fmt.Sprintf("%s (%d)", col.Title, len(tasks))
		lines := []string{
			theme.ColumnTitleStyle.Render(truncate(title, w-2)),
			theme.DimmedStyle.Render(strings.Repeat("─", max(w-2, 0))),
		}

		first := m.firstVisible(i)
		shown := tasks[min(first, len(tasks)):]
		shown = shown[:m.visibleRows(len(shown))]
		for j, t := range shown {
			selected := i == m.col && first+j == m.row
			lines = append(lines, m.renderCard(t, w-2, selected, dragging && session.DraggableID == t.ID))
		}
		if hidden := len(tasks) - first - len(shown); hidden > 0 {
			lines = append(lines, theme.DimmedStyle.Render(fmt.Sprintf(" +%d more", hidden)))
		}
		if dragging && hasTarget && session.ItemType == dnd.ItemTask && target.ContainerID == colID {
			lines = append(lines, theme.DropMarkerStyle.Render(fmt.Sprintf(" ▸ drop at %d", m.absoluteIndex(colID, target.Index)+1)))
		}

		cols = append(cols, style.
			Width(w-2).
			Height(max(m.height-2, 0)).
			MaxHeight(m.height).
			Render(strings.Join(lines, "\n")))
	}

	return lipgloss.NewStyle().MaxWidth(m.width).Render(
		lipgloss.JoinHorizontal(lipgloss.Top, cols...))
}

func (m Model) renderCard(t model.Task, width int, selected, dragged bool) string {
	style := theme.CardStyle
	switch {
	case dragged:
		style = theme.DraggingCardStyle
	case selected:
		style = theme.SelectedCardStyle
	}

	inner := max(width-4, 1)
	meta := theme.PriorityStyle(t.Priority).Render("● " + t.Priority.Label())
	if t.DueDate != nil {
		due := "due " + t.DueDate.Format("Jan 02")
		if t.IsOverdue(m.now()) {
			meta += " " + theme.OverdueStyle.Render(due)
		} else {
			meta += " " + theme.DimmedStyle.Render(due)
		}
	}
	if t.ExternalID == nil {
		meta += " " + theme.DimmedStyle.Render("draft")
	}

	return style.Width(max(width-2, 1)).Render(
		truncate(t.Title, inner) + "\n" + lipgloss.NewStyle().MaxWidth(inner).Render(meta))
}

// truncate shortens s to at most n cells, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= n {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > n {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
