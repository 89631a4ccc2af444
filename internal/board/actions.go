// Package board holds the pure state transitions of the kanban board.
// Every transition takes a BoardState and an Action and returns a new
// BoardState; the input is never mutated.
package board

import (
	"github.com/nhle/ticketboard/internal/dnd"
	"github.com/nhle/ticketboard/internal/model"
)

// ColumnTrackID is the container id of the row of columns. Column drags
// start and end in it.
const ColumnTrackID = "board"

// Action is a state transition request understood by Apply.
type Action interface {
	action()
}

// MoveItem applies a completed drag to the board.
type MoveItem struct {
	Result dnd.DragEndResult
}

// AddTask appends a task to the end of a column.
type AddTask struct {
	ColumnID string
	Task     model.Task
}

// UpdateTask merges a patch into an existing task.
type UpdateTask struct {
	TaskID string
	Patch  model.TaskPatch
}

// DeleteTask removes a task from the board.
type DeleteTask struct {
	TaskID string
}

// AddColumn appends an empty column to the board.
type AddColumn struct {
	Column model.Column
}

// RenameColumn changes a column's title.
type RenameColumn struct {
	ColumnID string
	Title    string
}

// DeleteColumn removes a column and every task in it.
type DeleteColumn struct {
	ColumnID string
}

// ReplaceState swaps the whole board, as after a remote refetch.
type ReplaceState struct {
	State model.BoardState
}

func (MoveItem) action()     {}
func (AddTask) action()      {}
func (UpdateTask) action()   {}
func (DeleteTask) action()   {}
func (AddColumn) action()    {}
func (RenameColumn) action() {}
func (DeleteColumn) action() {}
func (ReplaceState) action() {}
