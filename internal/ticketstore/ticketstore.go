// Package ticketstore is the remote side of the board: the TicketStore
// contract, an HTTP client for the ticket REST API, a retry decorator and
// an in-memory store used as a mock backend.
package ticketstore

import (
	"context"

	"github.com/nhle/ticketboard/internal/model"
)

// TicketStore is the remote ticket backend the board reconciles against.
// Every method fails with a *RemoteError when the backend is unreachable
// or answers with a non-2xx status.
type TicketStore interface {
	// CreateTask creates a ticket with the given status. The returned
	// task carries the new ExternalID and its board id.
	CreateTask(ctx context.Context, status string, in model.TaskInput) (model.Task, error)

	// UpdateTask changes the fields set in patch.
	UpdateTask(ctx context.Context, externalID int64, patch model.TaskPatch) (model.Task, error)

	DeleteTask(ctx context.Context, externalID int64) error

	// UpdateStatus moves a ticket to another workflow status.
	UpdateStatus(ctx context.Context, externalID int64, status string) (model.Task, error)

	// FetchAll returns every ticket grouped by status, in remote order.
	FetchAll(ctx context.Context) (map[string][]model.Task, error)

	ListComments(ctx context.Context, externalID int64) ([]model.Comment, error)
	AddComment(ctx context.Context, externalID int64, text string) (model.Comment, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
