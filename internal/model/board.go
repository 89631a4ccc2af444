package model

import "slices"

// Column is a workflow stage holding an ordered list of task ids.
// The order of TaskIDs is the visual card order.
type Column struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	TaskIDs []string `json:"task_ids"`
}

// BoardState is the normalized state of the whole board.
type BoardState struct {
	Tasks       map[string]Task   `json:"tasks"`
	Columns     map[string]Column `json:"columns"`
	ColumnOrder []string          `json:"column_order"`
}

// NewBoardState returns an empty board with initialized maps.
func NewBoardState() BoardState {
	return BoardState{
		Tasks:       make(map[string]Task),
		Columns:     make(map[string]Column),
		ColumnOrder: []string{},
	}
}

// Clone returns a deep copy of the state. Task values are copied by value;
// the pointer fields they hold are treated as immutable.
func (s BoardState) Clone() BoardState {
	out := BoardState{
		Tasks:       make(map[string]Task, len(s.Tasks)),
		Columns:     make(map[string]Column, len(s.Columns)),
		ColumnOrder: slices.Clone(s.ColumnOrder),
	}
	if out.ColumnOrder == nil {
		out.ColumnOrder = []string{}
	}
	for id, t := range s.Tasks {
		out.Tasks[id] = t
	}
	for id, c := range s.Columns {
		c.TaskIDs = slices.Clone(c.TaskIDs)
		out.Columns[id] = c
	}
	return out
}

// ColumnOf returns the id of the column holding taskID and the task's
// index within it.
func (s BoardState) ColumnOf(taskID string) (columnID string, index int, ok bool) {
	for _, colID := range s.ColumnOrder {
		col, exists := s.Columns[colID]
		if !exists {
			continue
		}
		if i := slices.Index(col.TaskIDs, taskID); i >= 0 {
			return colID, i, true
		}
	}
	return "", -1, false
}

// OrderedColumns returns the columns in display order.
func (s BoardState) OrderedColumns() []Column {
	cols := make([]Column, 0, len(s.ColumnOrder))
	for _, id := range s.ColumnOrder {
		if c, ok := s.Columns[id]; ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// TaskCount returns the number of tasks on the board.
func (s BoardState) TaskCount() int {
	return len(s.Tasks)
}
