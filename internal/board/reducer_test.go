package board

import (
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/nhle/ticketboard/internal/dnd"
	"github.com/nhle/ticketboard/internal/model"
)

// fixture builds a board from column id -> task ids, in the given order.
func fixture(t *testing.T, cols ...[]string) model.BoardState {
	t.Helper()
	state := model.NewBoardState()
	for _, c := range cols {
		id := c[0]
		col := model.Column{ID: id, Title: id, TaskIDs: []string{}}
		for _, taskID := range c[1:] {
			state.Tasks[taskID] = model.Task{ID: taskID, Title: taskID, Priority: model.PriorityMedium}
			col.TaskIDs = append(col.TaskIDs, taskID)
		}
		state.Columns[id] = col
		state.ColumnOrder = append(state.ColumnOrder, id)
	}
	if err := Validate(state); err != nil {
		t.Fatalf("invalid fixture: %v", err)
	}
	return state
}

func taskMove(id, from string, fromIdx int, to string, toIdx int) MoveItem {
	return MoveItem{Result: dnd.DragEndResult{
		DraggableID: id,
		ItemType:    dnd.ItemTask,
		Source:      dnd.Location{ContainerID: from, Index: fromIdx},
		Destination: &dnd.Location{ContainerID: to, Index: toIdx},
	}}
}

func columnMove(id string, fromIdx, toIdx int) MoveItem {
	return MoveItem{Result: dnd.DragEndResult{
		DraggableID: id,
		ItemType:    dnd.ItemColumn,
		Source:      dnd.Location{ContainerID: "board", Index: fromIdx},
		Destination: &dnd.Location{ContainerID: "board", Index: toIdx},
	}}
}

func TestApplyMoveTask(t *testing.T) {
	tests := []struct {
		name   string
		action MoveItem
		wantA  []string
		wantB  []string
	}{
		{
			name:   "reorder first to last",
			action: taskMove("a", "A", 0, "A", 2),
			wantA:  []string{"b", "c", "a"},
			wantB:  []string{"z"},
		},
		{
			name:   "reorder last to first",
			action: taskMove("c", "A", 2, "A", 0),
			wantA:  []string{"c", "a", "b"},
			wantB:  []string{"z"},
		},
		{
			name:   "cross column to top",
			action: taskMove("b", "A", 1, "B", 0),
			wantA:  []string{"a", "c"},
			wantB:  []string{"b", "z"},
		},
		{
			name:   "cross column append",
			action: taskMove("a", "A", 0, "B", 1),
			wantA:  []string{"b", "c"},
			wantB:  []string{"z", "a"},
		},
		{
			name:   "destination index clamped",
			action: taskMove("a", "A", 0, "B", 99),
			wantA:  []string{"b", "c"},
			wantB:  []string{"z", "a"},
		},
		{
			name:   "stale source index is located",
			action: taskMove("c", "A", 0, "B", 0),
			wantA:  []string{"a", "b"},
			wantB:  []string{"c", "z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := fixture(t, []string{"A", "a", "b", "c"}, []string{"B", "z"})
			got := Apply(state, tt.action)

			if ids := got.Columns["A"].TaskIDs; !slices.Equal(ids, tt.wantA) {
				t.Errorf("column A = %v, want %v", ids, tt.wantA)
			}
			if ids := got.Columns["B"].TaskIDs; !slices.Equal(ids, tt.wantB) {
				t.Errorf("column B = %v, want %v", ids, tt.wantB)
			}
			if err := Validate(got); err != nil {
				t.Errorf("result violates invariants: %v", err)
			}
			if ids := state.Columns["A"].TaskIDs; !slices.Equal(ids, []string{"a", "b", "c"}) {
				t.Errorf("input state mutated: column A = %v", ids)
			}
		})
	}
}

func TestApplyMoveTaskAcrossColumns(t *testing.T) {
	state := fixture(t, []string{"colA", "x", "y"}, []string{"colB", "z"})
	got := Apply(state, taskMove("y", "colA", 1, "colB", 0))

	if ids := got.Columns["colA"].TaskIDs; !slices.Equal(ids, []string{"x"}) {
		t.Errorf("colA = %v, want [x]", ids)
	}
	if ids := got.Columns["colB"].TaskIDs; !slices.Equal(ids, []string{"y", "z"}) {
		t.Errorf("colB = %v, want [y z]", ids)
	}
}

func TestApplyNoopMoves(t *testing.T) {
	state := fixture(t, []string{"A", "a", "b"}, []string{"B"})

	tests := []struct {
		name   string
		action MoveItem
	}{
		{"same location", taskMove("a", "A", 0, "A", 0)},
		{"same column location", MoveItem{Result: dnd.DragEndResult{
			DraggableID: "A", ItemType: dnd.ItemColumn,
			Source:      dnd.Location{ContainerID: "board", Index: 0},
			Destination: &dnd.Location{ContainerID: "board", Index: 0},
		}}},
		{"no destination", MoveItem{Result: dnd.DragEndResult{
			DraggableID: "a", ItemType: dnd.ItemTask,
			Source: dnd.Location{ContainerID: "A", Index: 0},
		}}},
		{"unknown task", taskMove("ghost", "A", 0, "B", 0)},
		{"unknown source column", taskMove("a", "Q", 0, "B", 0)},
		{"unknown destination column", taskMove("a", "A", 0, "Q", 0)},
		{"task not in source column", taskMove("a", "B", 0, "A", 1)},
		{"unknown column", columnMove("Q", 0, 1)},
		{"unknown item type", MoveItem{Result: dnd.DragEndResult{
			DraggableID: "a", ItemType: dnd.ItemType("label"),
			Source:      dnd.Location{ContainerID: "A", Index: 0},
			Destination: &dnd.Location{ContainerID: "B", Index: 0},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(state, tt.action)
			if !reflect.DeepEqual(got, state) {
				t.Errorf("state changed:\n got %+v\nwant %+v", got, state)
			}
		})
	}
}

func TestApplyNoopForEveryLocation(t *testing.T) {
	state := fixture(t, []string{"A", "a", "b", "c"}, []string{"B", "z"})
	for _, colID := range state.ColumnOrder {
		for i, id := range state.Columns[colID].TaskIDs {
			got := Apply(state, taskMove(id, colID, i, colID, i))
			if !reflect.DeepEqual(got, state) {
				t.Errorf("no-op move of %s at %s[%d] changed the state", id, colID, i)
			}
		}
	}
}

func TestApplyMoveColumn(t *testing.T) {
	tests := []struct {
		name    string
		action  MoveItem
		wantOrd []string
	}{
		{"first to last", columnMove("A", 0, 2), []string{"B", "C", "A"}},
		{"last to first", columnMove("C", 2, 0), []string{"C", "A", "B"}},
		{"middle forward", columnMove("B", 1, 2), []string{"A", "C", "B"}},
		{"clamped", columnMove("A", 0, 10), []string{"B", "C", "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := fixture(t, []string{"A", "a"}, []string{"B"}, []string{"C", "c"})
			got := Apply(state, tt.action)
			if !slices.Equal(got.ColumnOrder, tt.wantOrd) {
				t.Errorf("column order = %v, want %v", got.ColumnOrder, tt.wantOrd)
			}
			if !slices.Equal(state.ColumnOrder, []string{"A", "B", "C"}) {
				t.Errorf("input column order mutated: %v", state.ColumnOrder)
			}
			if err := Validate(got); err != nil {
				t.Errorf("result violates invariants: %v", err)
			}
		})
	}
}

func TestApplyTaskCRUD(t *testing.T) {
	state := fixture(t, []string{"A", "a"}, []string{"B", "b"})

	added := Apply(state, AddTask{ColumnID: "B", Task: model.Task{ID: "n", Title: "new", Priority: model.PriorityHigh}})
	if ids := added.Columns["B"].TaskIDs; !slices.Equal(ids, []string{"b", "n"}) {
		t.Errorf("after add, column B = %v", ids)
	}
	if added.Tasks["n"].Title != "new" {
		t.Errorf("added task not stored: %+v", added.Tasks["n"])
	}
	if _, ok := state.Tasks["n"]; ok {
		t.Error("AddTask mutated its input")
	}

	dup := Apply(added, AddTask{ColumnID: "A", Task: model.Task{ID: "n"}})
	if !reflect.DeepEqual(dup, added) {
		t.Error("adding a duplicate id changed the state")
	}
	if got := Apply(state, AddTask{ColumnID: "Q", Task: model.Task{ID: "n"}}); !reflect.DeepEqual(got, state) {
		t.Error("adding to an unknown column changed the state")
	}

	title := "renamed"
	prio := model.PriorityLow
	updated := Apply(added, UpdateTask{TaskID: "n", Patch: model.TaskPatch{Title: &title, Priority: &prio}})
	if got := updated.Tasks["n"]; got.Title != "renamed" || got.Priority != model.PriorityLow {
		t.Errorf("after update, task = %+v", got)
	}
	if added.Tasks["n"].Title != "new" {
		t.Error("UpdateTask mutated its input")
	}

	deleted := Apply(updated, DeleteTask{TaskID: "n"})
	if _, ok := deleted.Tasks["n"]; ok {
		t.Error("task still present after delete")
	}
	if ids := deleted.Columns["B"].TaskIDs; !slices.Equal(ids, []string{"b"}) {
		t.Errorf("after delete, column B = %v", ids)
	}

	for _, s := range []model.BoardState{added, updated, deleted} {
		if err := Validate(s); err != nil {
			t.Errorf("invariant violated: %v", err)
		}
	}
}

func TestApplyColumnCRUD(t *testing.T) {
	state := fixture(t, []string{"A", "t1", "t2"}, []string{"B", "t3"})

	added := Apply(state, AddColumn{Column: model.Column{ID: "C", Title: "Review", TaskIDs: []string{"bogus"}}})
	if !slices.Equal(added.ColumnOrder, []string{"A", "B", "C"}) {
		t.Errorf("column order = %v", added.ColumnOrder)
	}
	if c := added.Columns["C"]; c.Title != "Review" || len(c.TaskIDs) != 0 {
		t.Errorf("new column = %+v, want empty Review", c)
	}

	renamed := Apply(added, RenameColumn{ColumnID: "C", Title: "QA"})
	if renamed.Columns["C"].Title != "QA" || added.Columns["C"].Title != "Review" {
		t.Errorf("rename: got %q, input now %q", renamed.Columns["C"].Title, added.Columns["C"].Title)
	}

	deleted := Apply(renamed, DeleteColumn{ColumnID: "A"})
	for _, id := range []string{"t1", "t2"} {
		if _, ok := deleted.Tasks[id]; ok {
			t.Errorf("task %s survived column delete", id)
		}
	}
	if _, ok := deleted.Columns["A"]; ok {
		t.Error("column A still present")
	}
	if !slices.Equal(deleted.ColumnOrder, []string{"B", "C"}) {
		t.Errorf("column order after delete = %v", deleted.ColumnOrder)
	}
	if _, ok := deleted.Tasks["t3"]; !ok {
		t.Error("task in another column was removed")
	}

	for _, s := range []model.BoardState{added, renamed, deleted} {
		if err := Validate(s); err != nil {
			t.Errorf("invariant violated: %v", err)
		}
	}

	if got := Apply(state, DeleteColumn{ColumnID: "Q"}); !reflect.DeepEqual(got, state) {
		t.Error("deleting unknown column changed the state")
	}
	if got := Apply(state, RenameColumn{ColumnID: "Q", Title: "x"}); !reflect.DeepEqual(got, state) {
		t.Error("renaming unknown column changed the state")
	}
}

func TestApplyReplaceState(t *testing.T) {
	state := fixture(t, []string{"A", "a"})
	fresh := fixture(t, []string{"X", "x1", "x2"})

	got := Apply(state, ReplaceState{State: fresh})
	if !reflect.DeepEqual(got, fresh) {
		t.Errorf("ReplaceState = %+v, want %+v", got, fresh)
	}
	col := got.Columns["X"]
	col.TaskIDs[0] = "changed"
	if fresh.Columns["X"].TaskIDs[0] != "x1" {
		t.Error("ReplaceState shares slices with its argument")
	}
}

func TestInvariantHoldsAcrossSequence(t *testing.T) {
	state := fixture(t, []string{"A", "a", "b", "c"}, []string{"B", "d"}, []string{"C"})
	actions := []Action{
		taskMove("a", "A", 0, "C", 0),
		taskMove("d", "B", 0, "C", 1),
		columnMove("C", 2, 0),
		taskMove("c", "A", 1, "A", 0),
		AddTask{ColumnID: "B", Task: model.Task{ID: "e", CreatedAt: time.Now()}},
		DeleteTask{TaskID: "b"},
		taskMove("e", "B", 0, "A", 5),
		DeleteColumn{ColumnID: "C"},
		AddColumn{Column: model.Column{ID: "D"}},
		taskMove("c", "A", 0, "D", 0),
	}
	for i, a := range actions {
		state = Apply(state, a)
		if err := Validate(state); err != nil {
			t.Fatalf("after action %d (%T): %v", i, a, err)
		}
	}

	if !slices.Equal(state.ColumnOrder, []string{"A", "B", "D"}) {
		t.Errorf("final column order = %v", state.ColumnOrder)
	}
	if ids := state.Columns["A"].TaskIDs; !slices.Equal(ids, []string{"e"}) {
		t.Errorf("final column A = %v", ids)
	}
	if ids := state.Columns["D"].TaskIDs; !slices.Equal(ids, []string{"c"}) {
		t.Errorf("final column D = %v", ids)
	}
}
