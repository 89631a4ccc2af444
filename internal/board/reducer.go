package board

import (
	"slices"

	"github.com/nhle/ticketboard/internal/dnd"
	"github.com/nhle/ticketboard/internal/model"
)

// Apply returns the state that results from applying action to state.
// Actions that reference unknown tasks or columns leave the state
// unchanged.
func Apply(state model.BoardState, action Action) model.BoardState {
	switch a := action.(type) {
	case MoveItem:
		return moveItem(state, a.Result)
	case AddTask:
		return addTask(state, a)
	case UpdateTask:
		return updateTask(state, a)
	case DeleteTask:
		return deleteTask(state, a.TaskID)
	case AddColumn:
		return addColumn(state, a.Column)
	case RenameColumn:
		return renameColumn(state, a)
	case DeleteColumn:
		return deleteColumn(state, a.ColumnID)
	case ReplaceState:
		return a.State.Clone()
	default:
		return state
	}
}

func moveItem(state model.BoardState, r dnd.DragEndResult) model.BoardState {
	if r.IsNoop() {
		return state
	}

	switch r.ItemType {
	case dnd.ItemColumn:
		order, ok := reorder(state.ColumnOrder, r.DraggableID, r.Source.Index, r.Destination.Index)
		if !ok {
			return state
		}
		next := state.Clone()
		next.ColumnOrder = order
		return next

	case dnd.ItemTask:
		if _, ok := state.Tasks[r.DraggableID]; !ok {
			return state
		}
		if r.SameContainer() {
			col, ok := state.Columns[r.Source.ContainerID]
			if !ok {
				return state
			}
			ids, ok := reorder(col.TaskIDs, r.DraggableID, r.Source.Index, r.Destination.Index)
			if !ok {
				return state
			}
			next := state.Clone()
			col = next.Columns[col.ID]
			col.TaskIDs = ids
			next.Columns[col.ID] = col
			return next
		}
		return transfer(state, r)
	}
	return state
}

// transfer moves a task between two columns in a single state update.
func transfer(state model.BoardState, r dnd.DragEndResult) model.BoardState {
	src, ok := state.Columns[r.Source.ContainerID]
	if !ok {
		return state
	}
	dst, ok := state.Columns[r.Destination.ContainerID]
	if !ok {
		return state
	}
	from := locate(src.TaskIDs, r.DraggableID, r.Source.Index)
	if from < 0 {
		return state
	}

	next := state.Clone()
	src = next.Columns[src.ID]
	dst = next.Columns[dst.ID]
	src.TaskIDs = slices.Delete(src.TaskIDs, from, from+1)
	dst.TaskIDs = slices.Insert(dst.TaskIDs, clamp(r.Destination.Index, len(dst.TaskIDs)), r.DraggableID)
	next.Columns[src.ID] = src
	next.Columns[dst.ID] = dst
	return next
}

// reorder performs a splice-remove-then-insert of id within ids. The
// destination index applies to the sequence after removal.
func reorder(ids []string, id string, from, to int) ([]string, bool) {
	from = locate(ids, id, from)
	if from < 0 {
		return nil, false
	}
	out := slices.Clone(ids)
	out = slices.Delete(out, from, from+1)
	out = slices.Insert(out, clamp(to, len(out)), id)
	return out, true
}

// locate returns the index of id in ids, trusting hint when it matches.
func locate(ids []string, id string, hint int) int {
	if hint >= 0 && hint < len(ids) && ids[hint] == id {
		return hint
	}
	return slices.Index(ids, id)
}

func clamp(i, n int) int {
	return max(0, min(i, n))
}

func addTask(state model.BoardState, a AddTask) model.BoardState {
	if a.Task.ID == "" {
		return state
	}
	if _, exists := state.Tasks[a.Task.ID]; exists {
		return state
	}
	if _, ok := state.Columns[a.ColumnID]; !ok {
		return state
	}

	next := state.Clone()
	next.Tasks[a.Task.ID] = a.Task
	col := next.Columns[a.ColumnID]
	col.TaskIDs = append(col.TaskIDs, a.Task.ID)
	next.Columns[a.ColumnID] = col
	return next
}

func updateTask(state model.BoardState, a UpdateTask) model.BoardState {
	task, ok := state.Tasks[a.TaskID]
	if !ok || a.Patch.IsEmpty() {
		return state
	}
	next := state.Clone()
	next.Tasks[a.TaskID] = a.Patch.ApplyTo(task)
	return next
}

func deleteTask(state model.BoardState, taskID string) model.BoardState {
	if _, ok := state.Tasks[taskID]; !ok {
		return state
	}
	next := state.Clone()
	delete(next.Tasks, taskID)
	for id, col := range next.Columns {
		col.TaskIDs = slices.DeleteFunc(col.TaskIDs, func(t string) bool { return t == taskID })
		next.Columns[id] = col
	}
	return next
}

func addColumn(state model.BoardState, c model.Column) model.BoardState {
	if c.ID == "" {
		return state
	}
	if _, exists := state.Columns[c.ID]; exists {
		return state
	}
	next := state.Clone()
	c.TaskIDs = []string{}
	next.Columns[c.ID] = c
	next.ColumnOrder = append(next.ColumnOrder, c.ID)
	return next
}

func renameColumn(state model.BoardState, a RenameColumn) model.BoardState {
	col, ok := state.Columns[a.ColumnID]
	if !ok {
		return state
	}
	next := state.Clone()
	col = next.Columns[col.ID]
	col.Title = a.Title
	next.Columns[col.ID] = col
	return next
}

func deleteColumn(state model.BoardState, columnID string) model.BoardState {
	col, ok := state.Columns[columnID]
	if !ok {
		return state
	}
	next := state.Clone()
	for _, taskID := range col.TaskIDs {
		delete(next.Tasks, taskID)
	}
	delete(next.Columns, columnID)
	next.ColumnOrder = slices.DeleteFunc(next.ColumnOrder, func(id string) bool { return id == columnID })
	return next
}
