package board

import (
	"time"

	"github.com/nhle/ticketboard/internal/model"
)

// Empty builds a board with the configured columns and no tasks.
func Empty(columns []model.ColumnConfig) model.BoardState {
	state := model.NewBoardState()
	for _, c := range columns {
		state.Columns[c.ID] = model.Column{ID: c.ID, Title: c.Title, TaskIDs: []string{}}
		state.ColumnOrder = append(state.ColumnOrder, c.ID)
	}
	return state
}

// Default returns the starter board used when neither the remote store
// nor the snapshot cache can provide one.
func Default(columns []model.ColumnConfig, now time.Time) model.BoardState {
	state := Empty(columns)
	if len(columns) == 0 {
		return state
	}

	due := func(days int) *time.Time {
		d := now.AddDate(0, 0, days).Truncate(24 * time.Hour)
		return &d
	}
	samples := []struct {
		column int
		task   model.Task
	}{
		{0, model.Task{ID: "task-1", Title: "Design the project", Description: "Sketch mockups and wireframes for the app", Priority: model.PriorityHigh, DueDate: due(7)}},
		{0, model.Task{ID: "task-2", Title: "Set up the development environment", Description: "Install dependencies and configure the project", Priority: model.PriorityMedium}},
		{1, model.Task{ID: "task-3", Title: "Build the basic components", Description: "Create reusable interface components", Priority: model.PriorityLow, DueDate: due(14)}},
	}
	for _, s := range samples {
		col := columns[min(s.column, len(columns)-1)]
		s.task.CreatedAt = now
		state = Apply(state, AddTask{ColumnID: col.ID, Task: s.task})
	}
	return state
}
