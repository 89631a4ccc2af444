package ticketstore

import (
	"sort"

	"github.com/nhle/ticketboard/internal/model"
)

// StatusMap translates between board columns and remote ticket statuses.
// Configured columns carry an explicit status; any other column (one
// added on the board at runtime) uses its own id as the status.
type StatusMap struct {
	byColumn map[string]string
	byStatus map[string]string
}

// NewStatusMap builds the mapping from the configured columns. Columns
// with an empty status fall back to their id.
func NewStatusMap(columns []model.ColumnConfig) StatusMap {
	m := StatusMap{
		byColumn: make(map[string]string, len(columns)),
		byStatus: make(map[string]string, len(columns)),
	}
	for _, c := range columns {
		status := c.Status
		if status == "" {
			status = c.ID
		}
		m.byColumn[c.ID] = status
		m.byStatus[status] = c.ID
	}
	return m
}

// StatusFor returns the remote status of a column.
func (m StatusMap) StatusFor(columnID string) string {
	if s, ok := m.byColumn[columnID]; ok {
		return s
	}
	return columnID
}

// ColumnFor returns the column holding tickets with status, looking
// first at the configured columns and then at the board's own columns.
func (m StatusMap) ColumnFor(status string, state model.BoardState) (string, bool) {
	if id, ok := m.byStatus[status]; ok {
		if _, exists := state.Columns[id]; exists {
			return id, true
		}
	}
	if _, exists := state.Columns[status]; exists {
		if _, configured := m.byColumn[status]; !configured {
			return status, true
		}
	}
	return "", false
}

// Group lays fetched tickets out on a copy of layout: the columns and
// their order are kept. A ticket still in the column it occupied in
// layout keeps its position, new arrivals follow in fetch order and
// tickets no longer fetched are removed. Statuses without a column are
// returned as dropped.
func (m StatusMap) Group(layout model.BoardState, byStatus map[string][]model.Task) (model.BoardState, []string) {
	state := layout.Clone()
	state.Tasks = make(map[string]model.Task)

	statuses := make([]string, 0, len(byStatus))
	for s := range byStatus {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)

	var dropped []string
	arrivals := make(map[string][]string)
	placed := make(map[string]string)
	for _, status := range statuses {
		colID, ok := m.ColumnFor(status, state)
		if !ok {
			dropped = append(dropped, status)
			continue
		}
		for _, t := range byStatus[status] {
			if _, dup := state.Tasks[t.ID]; dup {
				continue
			}
			state.Tasks[t.ID] = t
			placed[t.ID] = colID
			arrivals[colID] = append(arrivals[colID], t.ID)
		}
	}

	for id, col := range state.Columns {
		ids := make([]string, 0, len(arrivals[id]))
		kept := make(map[string]bool)
		for _, taskID := range col.TaskIDs {
			if placed[taskID] == id && !kept[taskID] {
				ids = append(ids, taskID)
				kept[taskID] = true
			}
		}
		for _, taskID := range arrivals[id] {
			if !kept[taskID] {
				ids = append(ids, taskID)
			}
		}
		col.TaskIDs = ids
		state.Columns[id] = col
	}
	return state, dropped
}
