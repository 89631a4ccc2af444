package ticketstore

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nhle/ticketboard/internal/model"
)

// MemoryStore is an in-process TicketStore. It backs the mock API server
// and stands in for the remote API when it cannot be reached.
type MemoryStore struct {
	mu       sync.Mutex
	tickets  map[int64]Ticket
	order    []int64
	comments map[int64][]TicketComment
	userID   int64

	nextID        func() int64
	nextCommentID atomic.Int64
	now           func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithIDGenerator sets the source of new ticket ids.
func WithIDGenerator(next func() int64) MemoryOption {
	return func(s *MemoryStore) { s.nextID = next }
}

// WithClock sets the time source for created/updated timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// WithUserID sets the author recorded on new tickets and comments.
func WithUserID(id int64) MemoryOption {
	return func(s *MemoryStore) { s.userID = id }
}

// NewMemoryStore returns an empty store. Without WithIDGenerator ticket
// ids count up from 1.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		tickets:  make(map[int64]Ticket),
		comments: make(map[int64][]TicketComment),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.nextID == nil {
		var n atomic.Int64
		s.nextID = func() int64 { return n.Add(1) }
	}
	return s
}

// Seed loads every task of state as a ticket, using statuses to map
// columns to ticket statuses. Tasks without an ExternalID get a new id.
func (s *MemoryStore) Seed(state model.BoardState, statuses StatusMap) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, col := range state.OrderedColumns() {
		status := statuses.StatusFor(col.ID)
		for _, taskID := range col.TaskIDs {
			task, ok := state.Tasks[taskID]
			if !ok {
				continue
			}
			id := s.allocID(task.ExternalID)
			t := ticketFromTask(id, status, task)
			if t.CreatedAt.IsZero() {
				t.CreatedAt = s.now().UTC()
			}
			t.UpdatedAt = t.CreatedAt
			t.UserID = s.userID
			s.put(t)
		}
	}
}

func (s *MemoryStore) allocID(existing *int64) int64 {
	if existing != nil {
		if _, taken := s.tickets[*existing]; !taken {
			return *existing
		}
	}
	for {
		id := s.nextID()
		if _, taken := s.tickets[id]; !taken {
			return id
		}
	}
}

func (s *MemoryStore) put(t Ticket) {
	if _, exists := s.tickets[t.ID]; !exists {
		s.order = append(s.order, t.ID)
	}
	s.tickets[t.ID] = t
}

func ticketFromTask(id int64, status string, task model.Task) Ticket {
	t := Ticket{
		ID:          id,
		Title:       task.Title,
		Description: task.Description,
		Status:      status,
		Priority:    PriorityToWire(task.Priority),
		CreatedAt:   task.CreatedAt,
	}
	if task.DueDate != nil {
		t.DueDate = task.DueDate.Format(dueDateLayout)
	}
	return t
}

func notFound(op string, id int64) *RemoteError {
	return remoteErr(op, http.StatusNotFound, "ticket %d not found", id)
}

// Tickets returns every ticket in creation order.
func (s *MemoryStore) Tickets() []Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Ticket, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tickets[id])
	}
	return out
}

// Ticket returns a single ticket.
func (s *MemoryStore) Ticket(id int64) (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	return t, ok
}

// Ping implements TicketStore.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// FetchAll implements TicketStore.
func (s *MemoryStore) FetchAll(ctx context.Context) (map[string][]model.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, &RemoteError{Op: "fetch_all", Err: err}
	}
	out := make(map[string][]model.Task)
	for _, t := range s.Tickets() {
		out[t.Status] = append(out[t.Status], t.Task())
	}
	return out, nil
}

// CreateTask implements TicketStore.
func (s *MemoryStore) CreateTask(ctx context.Context, status string, in model.TaskInput) (model.Task, error) {
	if err := ctx.Err(); err != nil {
		return model.Task{}, &RemoteError{Op: "create_task", Err: err}
	}
	if err := validateTitle(in.Title); err != nil {
		return model.Task{}, remoteErr("create_task", http.StatusBadRequest, "%v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	t := ticketFromTask(s.allocID(nil), status, model.Task{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		CreatedAt:   now,
	})
	t.UpdatedAt = now
	t.UserID = s.userID
	s.put(t)
	return t.Task(), nil
}

// UpdateTask implements TicketStore.
func (s *MemoryStore) UpdateTask(ctx context.Context, externalID int64, patch model.TaskPatch) (model.Task, error) {
	if err := ctx.Err(); err != nil {
		return model.Task{}, &RemoteError{Op: "update_task", Err: err}
	}
	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return model.Task{}, remoteErr("update_task", http.StatusBadRequest, "%v", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[externalID]
	if !ok {
		return model.Task{}, notFound("update_task", externalID)
	}
	task := patch.ApplyTo(t.Task())
	updated := ticketFromTask(t.ID, t.Status, task)
	updated.UserID = t.UserID
	updated.UpdatedAt = s.now().UTC()
	s.tickets[externalID] = updated
	return updated.Task(), nil
}

// UpdateStatus implements TicketStore.
func (s *MemoryStore) UpdateStatus(ctx context.Context, externalID int64, status string) (model.Task, error) {
	if err := ctx.Err(); err != nil {
		return model.Task{}, &RemoteError{Op: "update_status", Err: err}
	}
	if status == "" {
		return model.Task{}, remoteErr("update_status", http.StatusBadRequest, "status must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[externalID]
	if !ok {
		return model.Task{}, notFound("update_status", externalID)
	}
	t.Status = status
	t.UpdatedAt = s.now().UTC()
	s.tickets[externalID] = t
	return t.Task(), nil
}

// DeleteTask implements TicketStore.
func (s *MemoryStore) DeleteTask(ctx context.Context, externalID int64) error {
	if err := ctx.Err(); err != nil {
		return &RemoteError{Op: "delete_task", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[externalID]; !ok {
		return notFound("delete_task", externalID)
	}
	delete(s.tickets, externalID)
	delete(s.comments, externalID)
	s.order = slices.DeleteFunc(s.order, func(id int64) bool { return id == externalID })
	return nil
}

// ListComments implements TicketStore.
func (s *MemoryStore) ListComments(ctx context.Context, externalID int64) ([]model.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, &RemoteError{Op: "list_comments", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[externalID]; !ok {
		return nil, notFound("list_comments", externalID)
	}
	out := make([]model.Comment, 0, len(s.comments[externalID]))
	for _, c := range s.comments[externalID] {
		out = append(out, c.Comment())
	}
	return out, nil
}

// AddComment implements TicketStore.
func (s *MemoryStore) AddComment(ctx context.Context, externalID int64, text string) (model.Comment, error) {
	if err := ctx.Err(); err != nil {
		return model.Comment{}, &RemoteError{Op: "add_comment", Err: err}
	}
	if text == "" {
		return model.Comment{}, remoteErr("add_comment", http.StatusBadRequest, "comment text must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[externalID]; !ok {
		return model.Comment{}, notFound("add_comment", externalID)
	}
	now := s.now().UTC()
	c := TicketComment{
		ID:        s.nextCommentID.Add(1),
		TicketID:  externalID,
		UserID:    s.userID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.comments[externalID] = append(s.comments[externalID], c)
	return c.Comment(), nil
}
