package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the urgency of a ticket as shown on its card.
type Priority string

// Priority levels, in ascending urgency.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority in ascending urgency.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Label returns the capitalized display name of the priority.
func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	default:
		return string(p)
	}
}

// ParsePriority converts a case-insensitive name into a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// Task is a single card on the board, mirroring one remote ticket.
type Task struct {
	// ID is the board-local identifier used in column task lists.
	ID string `json:"id"`

	// Title is the one-line summary shown on the card.
	Title string `json:"title"`

	// Description is the optional body text.
	Description string `json:"description,omitempty"`

	// Priority is the card's urgency.
	Priority Priority `json:"priority"`

	// DueDate is the optional deadline (date only).
	DueDate *time.Time `json:"due_date,omitempty"`

	// CreatedAt is when the ticket was created.
	CreatedAt time.Time `json:"created_at"`

	// ExternalID links the card to its remote ticket. It is nil for
	// drafts that have not been synced.
	ExternalID *int64 `json:"external_id,omitempty"`
}

// IsOverdue reports whether the task has a due date before now.
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now)
}

// HasExternalID reports whether the task is linked to a remote ticket.
func (t Task) HasExternalID() bool {
	return t.ExternalID != nil
}

// TaskPatch carries the fields to change on an existing task.
// Nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *Priority
	DueDate     **time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.DueDate == nil
}

// ApplyTo returns a copy of t with the patch applied.
func (p TaskPatch) ApplyTo(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	return t
}

// TaskInput holds the user-supplied fields for a new task.
type TaskInput struct {
	Title       string
	Description string
	Priority    Priority
	DueDate     *time.Time
}
