// Package reconcile keeps the local board in step with the remote ticket
// store. Moves across columns and task edits are confirmed remotely
// before the reducer runs; a failed move triggers a full resync.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/ticketboard/internal/board"
	"github.com/nhle/ticketboard/internal/dnd"
	"github.com/nhle/ticketboard/internal/model"
	"github.com/nhle/ticketboard/internal/store"
	"github.com/nhle/ticketboard/internal/ticketstore"
)

// Origin says where the board shown after Load came from.
type Origin string

const (
	OriginRemote  Origin = "remote"
	OriginCache   Origin = "cache"
	OriginDefault Origin = "default"
)

// LoadResult describes the outcome of Load. The board is usable for
// every origin; RemoteErr is set when the ticket store could not be read.
type LoadResult struct {
	Origin    Origin
	RemoteErr error

	// Dropped lists fetched statuses that match no column.
	Dropped []string
}

// Controller owns the board state. It is safe for concurrent use; remote
// calls are made without holding the state lock.
type Controller struct {
	mu    sync.Mutex
	state model.BoardState

	tickets   ticketstore.TicketStore
	cache     store.SnapshotStore
	statuses  ticketstore.StatusMap
	columns   []model.ColumnConfig
	columnIDs board.IDGenerator
	now       func() time.Time
	log       log.FieldLogger
}

// Option configures a Controller.
type Option func(*Controller)

// WithCache sets the snapshot cache written after every change.
func WithCache(s store.SnapshotStore) Option {
	return func(c *Controller) { c.cache = s }
}

// WithColumnIDs sets the id generator for columns added at runtime.
func WithColumnIDs(g board.IDGenerator) Option {
	return func(c *Controller) { c.columnIDs = g }
}

// WithClock sets the time source used for the default board.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l log.FieldLogger) Option {
	return func(c *Controller) { c.log = l }
}

// New creates a controller over tickets with the configured columns. The
// board starts empty until Load is called.
func New(tickets ticketstore.TicketStore, columns []model.ColumnConfig, opts ...Option) *Controller {
	c := &Controller{
		tickets:   tickets,
		cache:     store.NopStore{},
		statuses:  ticketstore.NewStatusMap(columns),
		columns:   columns,
		columnIDs: board.UUIDGenerator{Prefix: "column"},
		now:       time.Now,
		log:       log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = board.Empty(columns)
	return c
}

// State returns a copy of the current board.
func (c *Controller) State() model.BoardState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// StatusFor returns the remote status tickets in columnID carry.
func (c *Controller) StatusFor(columnID string) string {
	return c.statuses.StatusFor(columnID)
}

// Load fills the board, preferring the ticket store, then the snapshot
// cache, then the built-in default board. A cached snapshot also
// provides the column layout for remote data.
func (c *Controller) Load(ctx context.Context) LoadResult {
	snapshot, haveSnapshot := c.loadSnapshot(ctx)

	layout := board.Empty(c.columns)
	if haveSnapshot {
		layout = withConfiguredColumns(snapshot, c.columns)
	}

	byStatus, err := c.tickets.FetchAll(ctx)
	if err == nil {
		state, dropped := c.group(layout, byStatus)
		c.mu.Lock()
		c.state = state
		c.saveLocked(ctx)
		c.mu.Unlock()
		return LoadResult{Origin: OriginRemote, Dropped: dropped}
	}

	c.log.WithError(err).Warn("fetching tickets failed, falling back to local board")

	c.mu.Lock()
	defer c.mu.Unlock()
	if haveSnapshot {
		c.state = snapshot
		return LoadResult{Origin: OriginCache, RemoteErr: err}
	}
	c.state = board.Default(c.columns, c.now())
	return LoadResult{Origin: OriginDefault, RemoteErr: err}
}

func (c *Controller) loadSnapshot(ctx context.Context) (model.BoardState, bool) {
	state, err := c.cache.LoadBoard(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNoSnapshot) {
			c.log.WithError(err).Error("reading board snapshot")
		}
		return model.BoardState{}, false
	}
	if err := board.Validate(state); err != nil {
		c.log.WithError(err).Warn("discarding inconsistent board snapshot")
		return model.BoardState{}, false
	}
	return state, true
}

// withConfiguredColumns appends configured columns missing from state.
func withConfiguredColumns(state model.BoardState, columns []model.ColumnConfig) model.BoardState {
	for _, col := range columns {
		if _, ok := state.Columns[col.ID]; ok {
			continue
		}
		state = board.Apply(state, board.AddColumn{Column: model.Column{ID: col.ID, Title: col.Title}})
	}
	return state
}

func (c *Controller) group(layout model.BoardState, byStatus map[string][]model.Task) (model.BoardState, []string) {
	state, dropped := c.statuses.Group(layout, byStatus)
	for _, status := range dropped {
		c.log.WithFields(log.Fields{
			"status": status,
			"count":  len(byStatus[status]),
		}).Warn("dropping tickets with unmapped status")
	}
	return state, dropped
}

// Resync replaces the board's tasks with the ticket store's current
// contents, keeping the local column layout.
func (c *Controller) Resync(ctx context.Context) error {
	byStatus, err := c.tickets.FetchAll(ctx)
	if err != nil {
		c.log.WithError(err).Error("resync failed")
		return fmt.Errorf("resyncing board: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	state, _ := c.group(c.state, byStatus)
	c.state = board.Apply(c.state, board.ReplaceState{State: state})
	c.saveLocked(ctx)
	return nil
}

// Move applies a completed drag. Reordering within a column and moving
// columns are local. Moving a task to another column first updates the
// ticket's status; if that fails the local board is left untouched and
// rebuilt from the ticket store.
func (c *Controller) Move(ctx context.Context, r dnd.DragEndResult) error {
	if r.IsNoop() {
		return nil
	}
	logger := c.log.WithFields(log.Fields{
		"draggable_id": r.DraggableID,
		"source":       r.Source.String(),
		"destination":  r.Destination.String(),
	})

	c.mu.Lock()
	remote, err := c.checkMoveLocked(r)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if !remote {
		c.state = board.Apply(c.state, board.MoveItem{Result: r})
		c.saveLocked(ctx)
		c.mu.Unlock()
		logger.Debug("applied local move")
		return nil
	}
	extID := *c.state.Tasks[r.DraggableID].ExternalID
	c.mu.Unlock()

	status := c.statuses.StatusFor(r.Destination.ContainerID)
	logger = logger.WithFields(log.Fields{"external_id": extID, "status": status})

	if _, err := c.tickets.UpdateStatus(ctx, extID, status); err != nil {
		logger.WithError(err).Warn("status update rejected, resyncing board")
		moveErr := fmt.Errorf("moving %s to %s: %w", r.DraggableID, r.Destination.ContainerID, err)
		if resyncErr := c.Resync(ctx); resyncErr != nil {
			return errors.Join(moveErr, resyncErr)
		}
		return moveErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = board.Apply(c.state, board.MoveItem{Result: r})
	c.saveLocked(ctx)
	logger.Debug("applied confirmed move")
	return nil
}

// checkMoveLocked validates r against the board and reports whether the
// move needs a remote status change.
func (c *Controller) checkMoveLocked(r dnd.DragEndResult) (bool, error) {
	switch r.ItemType {
	case dnd.ItemColumn:
		if _, ok := c.state.Columns[r.DraggableID]; !ok {
			return false, &NotFoundError{Kind: "column", ID: r.DraggableID}
		}
		if r.Destination.ContainerID != board.ColumnTrackID {
			return false, &InvalidDragError{DraggableID: r.DraggableID, ContainerID: r.Destination.ContainerID}
		}
		return false, nil

	case dnd.ItemTask:
		task, ok := c.state.Tasks[r.DraggableID]
		if !ok {
			return false, &NotFoundError{Kind: "task", ID: r.DraggableID}
		}
		if _, ok := c.state.Columns[r.Destination.ContainerID]; !ok {
			return false, &InvalidDragError{DraggableID: r.DraggableID, ContainerID: r.Destination.ContainerID}
		}
		if r.SameContainer() {
			return false, nil
		}
		if !task.HasExternalID() {
			return false, &NotFoundError{Kind: "ticket", ID: r.DraggableID}
		}
		return true, nil
	}
	return false, fmt.Errorf("unsupported item type %q", r.ItemType)
}

// CreateTask creates a ticket with the column's status and appends the
// returned task to the column.
func (c *Controller) CreateTask(ctx context.Context, columnID string, in model.TaskInput) (model.Task, error) {
	c.mu.Lock()
	_, ok := c.state.Columns[columnID]
	c.mu.Unlock()
	if !ok {
		return model.Task{}, &NotFoundError{Kind: "column", ID: columnID}
	}
	if !in.Priority.Valid() {
		in.Priority = model.PriorityMedium
	}

	task, err := c.tickets.CreateTask(ctx, c.statuses.StatusFor(columnID), in)
	if err != nil {
		return model.Task{}, fmt.Errorf("creating task: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = board.Apply(c.state, board.AddTask{ColumnID: columnID, Task: task})
	c.saveLocked(ctx)
	c.log.WithFields(log.Fields{"task_id": task.ID, "column_id": columnID}).Info("created task")
	return task, nil
}

// UpdateTask patches a task remotely, then locally.
func (c *Controller) UpdateTask(ctx context.Context, taskID string, patch model.TaskPatch) (model.Task, error) {
	extID, err := c.externalID(taskID)
	if err != nil {
		return model.Task{}, err
	}
	if patch.IsEmpty() {
		return c.task(taskID)
	}

	if _, err := c.tickets.UpdateTask(ctx, extID, patch); err != nil {
		return model.Task{}, fmt.Errorf("updating task %s: %w", taskID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = board.Apply(c.state, board.UpdateTask{TaskID: taskID, Patch: patch})
	c.saveLocked(ctx)
	c.log.WithFields(log.Fields{"task_id": taskID, "external_id": extID}).Info("updated task")

	task, ok := c.state.Tasks[taskID]
	if !ok {
		return model.Task{}, &NotFoundError{Kind: "task", ID: taskID}
	}
	return task, nil
}

// DeleteTask deletes the ticket, then removes the task from the board.
func (c *Controller) DeleteTask(ctx context.Context, taskID string) error {
	extID, err := c.externalID(taskID)
	if err != nil {
		return err
	}
	if err := c.tickets.DeleteTask(ctx, extID); err != nil {
		return fmt.Errorf("deleting task %s: %w", taskID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = board.Apply(c.state, board.DeleteTask{TaskID: taskID})
	c.saveLocked(ctx)
	c.log.WithFields(log.Fields{"task_id": taskID, "external_id": extID}).Info("deleted task")
	return nil
}

// Comments lists the comments on a task's ticket.
func (c *Controller) Comments(ctx context.Context, taskID string) ([]model.Comment, error) {
	extID, err := c.externalID(taskID)
	if err != nil {
		return nil, err
	}
	comments, err := c.tickets.ListComments(ctx, extID)
	if err != nil {
		return nil, fmt.Errorf("listing comments for %s: %w", taskID, err)
	}
	return comments, nil
}

// AddComment posts a comment on a task's ticket.
func (c *Controller) AddComment(ctx context.Context, taskID, text string) (model.Comment, error) {
	extID, err := c.externalID(taskID)
	if err != nil {
		return model.Comment{}, err
	}
	comment, err := c.tickets.AddComment(ctx, extID, text)
	if err != nil {
		return model.Comment{}, fmt.Errorf("commenting on %s: %w", taskID, err)
	}
	return comment, nil
}

// AddColumn appends a new empty column. Columns are local to the board.
func (c *Controller) AddColumn(ctx context.Context, title string) (model.Column, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Column{}, fmt.Errorf("column title must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	col := model.Column{ID: c.columnIDs.NewID(), Title: title, TaskIDs: []string{}}
	c.state = board.Apply(c.state, board.AddColumn{Column: col})
	c.saveLocked(ctx)
	return col, nil
}

// RenameColumn changes a column's title.
func (c *Controller) RenameColumn(ctx context.Context, columnID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("column title must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.state.Columns[columnID]; !ok {
		return &NotFoundError{Kind: "column", ID: columnID}
	}
	c.state = board.Apply(c.state, board.RenameColumn{ColumnID: columnID, Title: title})
	c.saveLocked(ctx)
	return nil
}

// DeleteColumn removes a column and its tasks from the board. The
// tickets themselves are left on the server.
func (c *Controller) DeleteColumn(ctx context.Context, columnID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, ok := c.state.Columns[columnID]
	if !ok {
		return &NotFoundError{Kind: "column", ID: columnID}
	}
	c.state = board.Apply(c.state, board.DeleteColumn{ColumnID: columnID})
	c.saveLocked(ctx)
	c.log.WithFields(log.Fields{"column_id": columnID, "tasks": len(col.TaskIDs)}).Info("deleted column")
	return nil
}

func (c *Controller) task(taskID string) (model.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	task, ok := c.state.Tasks[taskID]
	if !ok {
		return model.Task{}, &NotFoundError{Kind: "task", ID: taskID}
	}
	return task, nil
}

func (c *Controller) externalID(taskID string) (int64, error) {
	task, err := c.task(taskID)
	if err != nil {
		return 0, err
	}
	if !task.HasExternalID() {
		return 0, &NotFoundError{Kind: "ticket", ID: taskID}
	}
	return *task.ExternalID, nil
}

// saveLocked writes the board to the snapshot cache. The cache is a
// fallback only, so failures are logged and otherwise ignored.
func (c *Controller) saveLocked(ctx context.Context) {
	if err := c.cache.SaveBoard(ctx, c.state); err != nil {
		c.log.WithError(err).Warn("saving board snapshot")
	}
}
