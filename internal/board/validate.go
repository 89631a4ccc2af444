package board

import (
	"fmt"

	"github.com/nhle/ticketboard/internal/model"
)

// Validate checks the board's referential integrity: every listed task
// exists, every task sits in exactly one column, and the column order is
// a duplicate-free permutation of the columns.
func Validate(state model.BoardState) error {
	owner := make(map[string]string, len(state.Tasks))
	for colID, col := range state.Columns {
		if col.ID != colID {
			return fmt.Errorf("column %q is stored under key %q", col.ID, colID)
		}
		for _, taskID := range col.TaskIDs {
			if _, ok := state.Tasks[taskID]; !ok {
				return fmt.Errorf("column %q lists unknown task %q", colID, taskID)
			}
			if prev, dup := owner[taskID]; dup {
				return fmt.Errorf("task %q appears in both %q and %q", taskID, prev, colID)
			}
			owner[taskID] = colID
		}
	}
	for taskID := range state.Tasks {
		if _, ok := owner[taskID]; !ok {
			return fmt.Errorf("task %q is not in any column", taskID)
		}
	}

	if len(state.ColumnOrder) != len(state.Columns) {
		return fmt.Errorf("column order has %d entries for %d columns", len(state.ColumnOrder), len(state.Columns))
	}
	seen := make(map[string]bool, len(state.ColumnOrder))
	for _, id := range state.ColumnOrder {
		if seen[id] {
			return fmt.Errorf("column %q repeated in column order", id)
		}
		if _, ok := state.Columns[id]; !ok {
			return fmt.Errorf("column order references unknown column %q", id)
		}
		seen[id] = true
	}
	return nil
}
