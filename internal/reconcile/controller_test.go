package reconcile_test

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/nhle/ticketboard/internal/board"
	"github.com/nhle/ticketboard/internal/dnd"
	"github.com/nhle/ticketboard/internal/model"
	"github.com/nhle/ticketboard/internal/reconcile"
	"github.com/nhle/ticketboard/internal/store"
	"github.com/nhle/ticketboard/internal/ticketstore"
	"github.com/nhle/ticketboard/tests/testutil"
)

// fakeTickets wraps a MemoryStore with injectable failures and call counts.
type fakeTickets struct {
	*ticketstore.MemoryStore

	fetchErr  error
	statusErr error
	createErr error
	updateErr error
	deleteErr error

	fetches     int
	statusCalls int
}

func (f *fakeTickets) FetchAll(ctx context.Context) (map[string][]model.Task, error) {
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.MemoryStore.FetchAll(ctx)
}

func (f *fakeTickets) UpdateStatus(ctx context.Context, id int64, status string) (model.Task, error) {
	f.statusCalls++
	if f.statusErr != nil {
		return model.Task{}, f.statusErr
	}
	return f.MemoryStore.UpdateStatus(ctx, id, status)
}

func (f *fakeTickets) CreateTask(ctx context.Context, status string, in model.TaskInput) (model.Task, error) {
	if f.createErr != nil {
		return model.Task{}, f.createErr
	}
	return f.MemoryStore.CreateTask(ctx, status, in)
}

func (f *fakeTickets) UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	if f.updateErr != nil {
		return model.Task{}, f.updateErr
	}
	return f.MemoryStore.UpdateTask(ctx, id, patch)
}

func (f *fakeTickets) DeleteTask(ctx context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryStore.DeleteTask(ctx, id)
}

func serverError(op string) error {
	return &ticketstore.RemoteError{Op: op, StatusCode: http.StatusInternalServerError, Err: errors.New("boom")}
}

type harness struct {
	ctrl    *reconcile.Controller
	tickets *fakeTickets
	cache   *store.SQLiteStore
	logs    *test.Hook
}

// newHarness returns a controller over a ticket store seeded with the
// sample board. The board is loaded unless the fetch is set to fail.
func newHarness(t *testing.T) *harness {
	t.Helper()
	mem := ticketstore.NewMemoryStore(ticketstore.WithIDGenerator(counter(100)))
	mem.Seed(testutil.SampleBoard(), ticketstore.NewStatusMap(testutil.SampleColumns()))

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	h := &harness{
		tickets: &fakeTickets{MemoryStore: mem},
		cache:   testutil.NewTestStore(t),
		logs:    hook,
	}
	h.ctrl = reconcile.New(h.tickets, testutil.SampleColumns(),
		reconcile.WithCache(h.cache),
		reconcile.WithColumnIDs(board.NewCounterGenerator("column", 10)),
		reconcile.WithClock(func() time.Time { return time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) }),
		reconcile.WithLogger(logger),
	)
	return h
}

func (h *harness) load(t *testing.T) {
	t.Helper()
	if res := h.ctrl.Load(context.Background()); res.Origin != reconcile.OriginRemote {
		t.Fatalf("Load origin = %s (%v), want remote", res.Origin, res.RemoteErr)
	}
}

func counter(start int64) func() int64 {
	n := start
	return func() int64 {
		n++
		return n
	}
}

func taskIDs(state model.BoardState, columnID string) []string {
	return state.Columns[columnID].TaskIDs
}

func move(id string, from string, fromIdx int, to string, toIdx int) dnd.DragEndResult {
	return dnd.DragEndResult{
		DraggableID: id,
		ItemType:    dnd.ItemTask,
		Source:      dnd.Location{ContainerID: from, Index: fromIdx},
		Destination: &dnd.Location{ContainerID: to, Index: toIdx},
	}
}

func TestLoadFromRemote(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	state := h.ctrl.State()
	if got := taskIDs(state, "column-1"); !slices.Equal(got, []string{"task-1", "task-2"}) {
		t.Errorf("column-1 = %v, want [task-1 task-2]", got)
	}
	if got := taskIDs(state, "column-2"); !slices.Equal(got, []string{"task-3"}) {
		t.Errorf("column-2 = %v, want [task-3]", got)
	}
	if err := board.Validate(state); err != nil {
		t.Errorf("Validate: %v", err)
	}

	cached, err := h.cache.LoadBoard(context.Background())
	if err != nil {
		t.Fatalf("LoadBoard: %v", err)
	}
	if !reflect.DeepEqual(cached.ColumnOrder, state.ColumnOrder) || len(cached.Tasks) != 3 {
		t.Errorf("snapshot = %+v, want the loaded board", cached)
	}
}

func TestLoadKeepsCachedLayout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	layout := board.Empty(testutil.SampleColumns())
	layout = board.Apply(layout, board.AddColumn{Column: model.Column{ID: "in_progress_extra", Title: "Extra"}})
	layout = board.Apply(layout, board.RenameColumn{ColumnID: "column-1", Title: "Backlog"})
	if err := h.cache.SaveBoard(ctx, layout); err != nil {
		t.Fatal(err)
	}

	h.load(t)
	state := h.ctrl.State()
	if state.Columns["column-1"].Title != "Backlog" {
		t.Errorf("title = %q, want cached title", state.Columns["column-1"].Title)
	}
	if len(state.ColumnOrder) != 3 {
		t.Errorf("ColumnOrder = %v, want cached extra column kept", state.ColumnOrder)
	}
}

func TestLoadFallbacks(t *testing.T) {
	t.Run("cache", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		if err := h.cache.SaveBoard(ctx, testutil.SampleBoard()); err != nil {
			t.Fatal(err)
		}
		h.tickets.fetchErr = serverError("fetch_all")

		res := h.ctrl.Load(ctx)
		if res.Origin != reconcile.OriginCache || res.RemoteErr == nil {
			t.Fatalf("Load = %+v, want cache origin with remote error", res)
		}
		if got := taskIDs(h.ctrl.State(), "column-1"); !slices.Equal(got, []string{"task-1", "task-2"}) {
			t.Errorf("column-1 = %v", got)
		}
	})

	t.Run("default", func(t *testing.T) {
		h := newHarness(t)
		h.tickets.fetchErr = serverError("fetch_all")

		res := h.ctrl.Load(context.Background())
		if res.Origin != reconcile.OriginDefault {
			t.Fatalf("Origin = %s, want default", res.Origin)
		}
		state := h.ctrl.State()
		if state.TaskCount() != 3 {
			t.Errorf("tasks = %d, want the 3 starter tasks", state.TaskCount())
		}
		if err := board.Validate(state); err != nil {
			t.Errorf("Validate: %v", err)
		}
	})
}

func TestMoveWithinColumnIsLocal(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	if err := h.ctrl.Move(context.Background(), move("task-1", "column-1", 0, "column-1", 1)); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if got := taskIDs(h.ctrl.State(), "column-1"); !slices.Equal(got, []string{"task-2", "task-1"}) {
		t.Errorf("column-1 = %v, want [task-2 task-1]", got)
	}
	if h.tickets.statusCalls != 0 {
		t.Errorf("status calls = %d, want 0", h.tickets.statusCalls)
	}
}

func TestResyncKeepsLocalOrder(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	ctx := context.Background()

	if err := h.ctrl.Move(ctx, move("task-1", "column-1", 0, "column-1", 1)); err != nil {
		t.Fatalf("Move: %v", err)
	}
	created, err := h.tickets.MemoryStore.CreateTask(ctx, "open", model.TaskInput{Title: "New ticket"})
	if err != nil {
		t.Fatal(err)
	}
	if err := h.tickets.MemoryStore.DeleteTask(ctx, 3); err != nil {
		t.Fatal(err)
	}

	if err := h.ctrl.Resync(ctx); err != nil {
		t.Fatalf("Resync: %v", err)
	}

	state := h.ctrl.State()
	want := []string{"task-2", "task-1", created.ID}
	if got := taskIDs(state, "column-1"); !slices.Equal(got, want) {
		t.Errorf("column-1 = %v, want %v", got, want)
	}
	if got := taskIDs(state, "column-2"); len(got) != 0 {
		t.Errorf("column-2 = %v, want the deleted ticket gone", got)
	}
	if err := board.Validate(state); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestMoveAcrossColumns(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	if err := h.ctrl.Move(context.Background(), move("task-2", "column-1", 1, "column-2", 0)); err != nil {
		t.Fatalf("Move: %v", err)
	}

	state := h.ctrl.State()
	if got := taskIDs(state, "column-1"); !slices.Equal(got, []string{"task-1"}) {
		t.Errorf("column-1 = %v, want [task-1]", got)
	}
	if got := taskIDs(state, "column-2"); !slices.Equal(got, []string{"task-2", "task-3"}) {
		t.Errorf("column-2 = %v, want [task-2 task-3]", got)
	}
	if ticket, _ := h.tickets.Ticket(2); ticket.Status != "in_progress" {
		t.Errorf("remote status = %q, want in_progress", ticket.Status)
	}

	cached, err := h.cache.LoadBoard(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := taskIDs(cached, "column-2"); !slices.Equal(got, []string{"task-2", "task-3"}) {
		t.Errorf("snapshot column-2 = %v, want the confirmed move", got)
	}
}

func TestMoveRollsBackAndResyncs(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	before := h.ctrl.State()
	fetchesBefore := h.tickets.fetches

	h.tickets.statusErr = serverError("update_status")
	err := h.ctrl.Move(context.Background(), move("task-2", "column-1", 1, "column-2", 0))

	if !ticketstore.IsRemoteError(err) {
		t.Fatalf("err = %v, want RemoteError", err)
	}
	if !reflect.DeepEqual(h.ctrl.State(), before) {
		t.Error("local state changed after a rejected move")
	}
	if h.tickets.fetches != fetchesBefore+1 {
		t.Errorf("fetches = %d, want a resync", h.tickets.fetches-fetchesBefore)
	}

	var warned bool
	for _, e := range h.logs.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["draggable_id"] == "task-2" {
			warned = true
		}
	}
	if !warned {
		t.Error("rejected move was not logged")
	}
}

func TestMoveResyncPicksUpServerTruth(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	// Someone else moved task-1 to in_progress.
	if _, err := h.tickets.MemoryStore.UpdateStatus(context.Background(), 1, "in_progress"); err != nil {
		t.Fatal(err)
	}
	h.tickets.statusErr = serverError("update_status")

	_ = h.ctrl.Move(context.Background(), move("task-2", "column-1", 1, "column-2", 0))

	state := h.ctrl.State()
	if got := taskIDs(state, "column-1"); !slices.Equal(got, []string{"task-2"}) {
		t.Errorf("column-1 = %v, want [task-2]", got)
	}
	if got := taskIDs(state, "column-2"); !slices.Equal(got, []string{"task-3", "task-1"}) {
		t.Errorf("column-2 = %v, want [task-3 task-1]", got)
	}
}

func TestMoveFailureWithFailedResync(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	before := h.ctrl.State()

	moveErr := serverError("update_status")
	fetchErr := serverError("fetch_all")
	h.tickets.statusErr = moveErr
	h.tickets.fetchErr = fetchErr

	err := h.ctrl.Move(context.Background(), move("task-1", "column-1", 0, "column-2", 1))
	if !errors.Is(err, moveErr) || !errors.Is(err, fetchErr) {
		t.Fatalf("err = %v, want both the move and resync failures", err)
	}
	if !reflect.DeepEqual(h.ctrl.State(), before) {
		t.Error("local state changed")
	}
}

func TestMoveValidation(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	tests := []struct {
		name    string
		result  dnd.DragEndResult
		check   func(error) bool
		wantErr string
	}{
		{"unknown task", move("task-9", "column-1", 0, "column-2", 0), reconcile.IsNotFound, "not found"},
		{"unknown destination", move("task-1", "column-1", 0, "column-9", 0), reconcile.IsInvalidDrag, "invalid drag"},
		{"unknown column", dnd.DragEndResult{
			DraggableID: "column-9",
			ItemType:    dnd.ItemColumn,
			Source:      dnd.Location{ContainerID: "board", Index: 0},
			Destination: &dnd.Location{ContainerID: "board", Index: 1},
		}, reconcile.IsNotFound, "not found"},
		{"column dropped into a column", dnd.DragEndResult{
			DraggableID: "column-1",
			ItemType:    dnd.ItemColumn,
			Source:      dnd.Location{ContainerID: "board", Index: 0},
			Destination: &dnd.Location{ContainerID: "column-2", Index: 0},
		}, reconcile.IsInvalidDrag, "invalid drag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := h.ctrl.State()
			err := h.ctrl.Move(context.Background(), tt.result)
			if !tt.check(err) {
				t.Fatalf("err = %v, want %s", err, tt.wantErr)
			}
			if !reflect.DeepEqual(h.ctrl.State(), before) {
				t.Error("state changed")
			}
		})
	}
	if h.tickets.statusCalls != 0 {
		t.Errorf("status calls = %d, want 0", h.tickets.statusCalls)
	}
}

func TestMoveDraftTaskAcrossColumns(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	draft := h.ctrl.State()
	draft = board.Apply(draft, board.AddTask{ColumnID: "column-1", Task: model.Task{ID: "draft-1", Title: "draft"}})
	if err := h.cache.SaveBoard(context.Background(), draft); err != nil {
		t.Fatal(err)
	}
	h.tickets.fetchErr = serverError("fetch_all")
	if res := h.ctrl.Load(context.Background()); res.Origin != reconcile.OriginCache {
		t.Fatalf("Origin = %s, want cache", res.Origin)
	}

	err := h.ctrl.Move(context.Background(), move("draft-1", "column-1", 2, "column-2", 0))
	if !reconcile.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFoundError for a task with no ticket", err)
	}
}

func TestMoveColumnIsLocal(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	err := h.ctrl.Move(context.Background(), dnd.DragEndResult{
		DraggableID: "column-1",
		ItemType:    dnd.ItemColumn,
		Source:      dnd.Location{ContainerID: "board", Index: 0},
		Destination: &dnd.Location{ContainerID: "board", Index: 1},
	})
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if got := h.ctrl.State().ColumnOrder; !slices.Equal(got, []string{"column-2", "column-1"}) {
		t.Errorf("ColumnOrder = %v", got)
	}
	if h.tickets.statusCalls != 0 {
		t.Error("column move reached the ticket store")
	}
}

func TestNoopMove(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	before := h.ctrl.State()

	r := move("task-1", "column-1", 0, "column-1", 0)
	if err := h.ctrl.Move(context.Background(), r); err != nil {
		t.Fatalf("Move: %v", err)
	}
	r.Destination = nil
	if err := h.ctrl.Move(context.Background(), r); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !reflect.DeepEqual(h.ctrl.State(), before) {
		t.Error("no-op move changed the board")
	}
}

func TestCreateTask(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	ctx := context.Background()

	task, err := h.ctrl.CreateTask(ctx, "column-2", model.TaskInput{Title: "New ticket"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID != "task-101" || task.Priority != model.PriorityMedium {
		t.Errorf("task = %+v, want task-101 with medium priority", task)
	}
	if got := taskIDs(h.ctrl.State(), "column-2"); !slices.Equal(got, []string{"task-3", "task-101"}) {
		t.Errorf("column-2 = %v", got)
	}
	if ticket, _ := h.tickets.Ticket(101); ticket.Status != "in_progress" {
		t.Errorf("remote status = %q, want in_progress", ticket.Status)
	}

	if _, err := h.ctrl.CreateTask(ctx, "column-9", model.TaskInput{Title: "x"}); !reconcile.IsNotFound(err) {
		t.Errorf("unknown column err = %v, want NotFoundError", err)
	}
}

func TestCRUDFailureLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	ctx := context.Background()
	before := h.ctrl.State()

	h.tickets.createErr = serverError("create_task")
	h.tickets.updateErr = serverError("update_task")
	h.tickets.deleteErr = serverError("delete_task")
	title := "changed"

	if _, err := h.ctrl.CreateTask(ctx, "column-1", model.TaskInput{Title: "x"}); !ticketstore.IsRemoteError(err) {
		t.Errorf("CreateTask err = %v", err)
	}
	if _, err := h.ctrl.UpdateTask(ctx, "task-1", model.TaskPatch{Title: &title}); !ticketstore.IsRemoteError(err) {
		t.Errorf("UpdateTask err = %v", err)
	}
	if err := h.ctrl.DeleteTask(ctx, "task-1"); !ticketstore.IsRemoteError(err) {
		t.Errorf("DeleteTask err = %v", err)
	}

	if !reflect.DeepEqual(h.ctrl.State(), before) {
		t.Error("state changed after failed CRUD")
	}
	if h.tickets.fetches != 1 {
		t.Errorf("fetches = %d, want no resync for CRUD failures", h.tickets.fetches)
	}
}

func TestUpdateAndDeleteTask(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	ctx := context.Background()

	title := "Fix login page"
	prio := model.PriorityLow
	task, err := h.ctrl.UpdateTask(ctx, "task-1", model.TaskPatch{Title: &title, Priority: &prio})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if task.Title != title || task.Priority != prio {
		t.Errorf("task = %+v", task)
	}
	if ticket, _ := h.tickets.Ticket(1); ticket.Title != title || ticket.Priority != "low" {
		t.Errorf("remote ticket = %+v", ticket)
	}

	if err := h.ctrl.DeleteTask(ctx, "task-1"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	state := h.ctrl.State()
	if _, ok := state.Tasks["task-1"]; ok {
		t.Error("task-1 still on the board")
	}
	if got := taskIDs(state, "column-1"); !slices.Equal(got, []string{"task-2"}) {
		t.Errorf("column-1 = %v", got)
	}
	if _, ok := h.tickets.Ticket(1); ok {
		t.Error("ticket 1 still on the server")
	}

	if err := h.ctrl.DeleteTask(ctx, "task-1"); !reconcile.IsNotFound(err) {
		t.Errorf("second delete err = %v, want NotFoundError", err)
	}
}

func TestColumnOperations(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	ctx := context.Background()

	col, err := h.ctrl.AddColumn(ctx, "  Review ")
	if err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	if col.ID != "column-11" || col.Title != "Review" {
		t.Errorf("column = %+v", col)
	}
	if h.ctrl.StatusFor(col.ID) != "column-11" {
		t.Errorf("runtime column status = %q, want its id", h.ctrl.StatusFor(col.ID))
	}
	if _, err := h.ctrl.AddColumn(ctx, " "); err == nil {
		t.Error("AddColumn accepted an empty title")
	}

	if err := h.ctrl.RenameColumn(ctx, col.ID, "Code review"); err != nil {
		t.Fatalf("RenameColumn: %v", err)
	}
	if got := h.ctrl.State().Columns[col.ID].Title; got != "Code review" {
		t.Errorf("title = %q", got)
	}
	if err := h.ctrl.RenameColumn(ctx, "column-9", "x"); !reconcile.IsNotFound(err) {
		t.Errorf("rename unknown err = %v", err)
	}

	if err := h.ctrl.DeleteColumn(ctx, "column-1"); err != nil {
		t.Fatalf("DeleteColumn: %v", err)
	}
	state := h.ctrl.State()
	if _, ok := state.Tasks["task-1"]; ok {
		t.Error("task-1 survived its column")
	}
	if slices.Contains(state.ColumnOrder, "column-1") {
		t.Error("column-1 still in column order")
	}
	if len(h.tickets.Tickets()) != 3 {
		t.Error("deleting a column removed remote tickets")
	}
}

func TestResyncDropsUnmappedStatuses(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	ctx := context.Background()

	if _, err := h.tickets.MemoryStore.UpdateStatus(ctx, 3, "archived"); err != nil {
		t.Fatal(err)
	}
	h.logs.Reset()

	if err := h.ctrl.Resync(ctx); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if _, ok := h.ctrl.State().Tasks["task-3"]; ok {
		t.Error("ticket with unmapped status is on the board")
	}

	var warned bool
	for _, e := range h.logs.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["status"] == "archived" {
			warned = true
		}
	}
	if !warned {
		t.Error("dropped status was not logged")
	}
}

func TestComments(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	ctx := context.Background()

	if _, err := h.ctrl.AddComment(ctx, "task-3", "looks good"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	comments, err := h.ctrl.Comments(ctx, "task-3")
	if err != nil {
		t.Fatalf("Comments: %v", err)
	}
	if len(comments) != 1 || comments[0].Text != "looks good" || comments[0].TicketID != 3 {
		t.Errorf("comments = %+v", comments)
	}

	if _, err := h.ctrl.Comments(ctx, "task-9"); !reconcile.IsNotFound(err) {
		t.Errorf("unknown task err = %v", err)
	}
}
