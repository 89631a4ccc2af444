package testutil

import (
	"testing"
	"time"

	"github.com/nhle/ticketboard/internal/model"
	"github.com/nhle/ticketboard/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SampleBoard returns a small board with two columns and three linked
// tasks: column-1 holds task-1 and task-2, column-2 holds task-3.
func SampleBoard() model.BoardState {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	due := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	ext := func(n int64) *int64 { return &n }

	state := model.NewBoardState()
	state.Tasks = map[string]model.Task{
		"task-1": {ID: "task-1", Title: "Fix login", Description: "500 on submit", Priority: model.PriorityHigh, DueDate: &due, CreatedAt: created, ExternalID: ext(1)},
		"task-2": {ID: "task-2", Title: "Update docs", Priority: model.PriorityLow, CreatedAt: created, ExternalID: ext(2)},
		"task-3": {ID: "task-3", Title: "Review PR", Priority: model.PriorityMedium, CreatedAt: created, ExternalID: ext(3)},
	}
	state.Columns = map[string]model.Column{
		"column-1": {ID: "column-1", Title: "To Do", TaskIDs: []string{"task-1", "task-2"}},
		"column-2": {ID: "column-2", Title: "In Progress", TaskIDs: []string{"task-3"}},
	}
	state.ColumnOrder = []string{"column-1", "column-2"}
	return state
}

// SampleColumns returns the column configuration matching SampleBoard.
func SampleColumns() []model.ColumnConfig {
	return []model.ColumnConfig{
		{ID: "column-1", Title: "To Do", Status: "open"},
		{ID: "column-2", Title: "In Progress", Status: "in_progress"},
	}
}
