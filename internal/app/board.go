package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/ticketboard/internal/dnd"
	"github.com/nhle/ticketboard/internal/model"
	"github.com/nhle/ticketboard/internal/reconcile"
	"github.com/nhle/ticketboard/internal/ui/detail"
)

// loadedMsg carries the outcome of the initial load.
type loadedMsg struct {
	result reconcile.LoadResult
	state  model.BoardState
}

// boardChangedMsg is sent after any board operation, successful or not.
// state is the board after the operation, including a resync on failure.
type boardChangedMsg struct {
	op    string
	done  string
	state model.BoardState
	err   error

	// fromForm marks operations submitted from the task form, which is
	// reopened when they fail.
	fromForm bool
}

// commentAddedMsg is sent after a comment is posted.
type commentAddedMsg struct {
	taskID  string
	comment model.Comment
	err     error
}

func (m *Model) load() tea.Cmd {
	b := m.board
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		res := b.Load(ctx)
		return loadedMsg{result: res, state: b.State()}
	}
}

// run executes fn against the board in the background and reports the
// resulting board state.
func (m *Model) run(op, done string, fn func(ctx context.Context, b Board) error) tea.Cmd {
	return m.runOp(boardChangedMsg{op: op, done: done}, fn)
}

// runForm is run for task form submissions.
func (m *Model) runForm(op, done string, fn func(ctx context.Context, b Board) error) tea.Cmd {
	return m.runOp(boardChangedMsg{op: op, done: done, fromForm: true}, fn)
}

func (m *Model) runOp(result boardChangedMsg, fn func(ctx context.Context, b Board) error) tea.Cmd {
	b := m.board
	m.busy++
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		result.err = fn(ctx, b)
		result.state = b.State()
		return result
	}
}

func (m *Model) move(r dnd.DragEndResult) tea.Cmd {
	return m.run("move", "", func(ctx context.Context, b Board) error {
		return b.Move(ctx, r)
	})
}

func (m *Model) createTask(columnID string, in model.TaskInput) tea.Cmd {
	return m.runForm("create task", fmt.Sprintf("created %q", in.Title), func(ctx context.Context, b Board) error {
		_, err := b.CreateTask(ctx, columnID, in)
		return err
	})
}

func (m *Model) updateTask(taskID string, patch model.TaskPatch) tea.Cmd {
	return m.runForm("update task", "task updated", func(ctx context.Context, b Board) error {
		_, err := b.UpdateTask(ctx, taskID, patch)
		return err
	})
}

func (m *Model) deleteTask(taskID string) tea.Cmd {
	return m.run("delete task", "task deleted", func(ctx context.Context, b Board) error {
		return b.DeleteTask(ctx, taskID)
	})
}

func (m *Model) addColumn(title string) tea.Cmd {
	return m.run("add column", fmt.Sprintf("added column %q", title), func(ctx context.Context, b Board) error {
		_, err := b.AddColumn(ctx, title)
		return err
	})
}

func (m *Model) renameColumn(columnID, title string) tea.Cmd {
	return m.run("rename column", "column renamed", func(ctx context.Context, b Board) error {
		return b.RenameColumn(ctx, columnID, title)
	})
}

func (m *Model) deleteColumn(columnID string) tea.Cmd {
	return m.run("delete column", "column deleted", func(ctx context.Context, b Board) error {
		return b.DeleteColumn(ctx, columnID)
	})
}

func (m *Model) loadComments(task model.Task) tea.Cmd {
	if task.ExternalID == nil {
		return nil
	}
	b := m.board
	id := task.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		comments, err := b.Comments(ctx, id)
		return detail.CommentsLoadedMsg{TaskID: id, Comments: comments, Err: err}
	}
}

func (m *Model) addComment(taskID, text string) tea.Cmd {
	b := m.board
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		c, err := b.AddComment(ctx, taskID, text)
		return commentAddedMsg{taskID: taskID, comment: c, err: err}
	}
}
