package ticketstore

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/ticketboard/internal/model"
)

// dueDateLayout is the wire format of ticket due dates.
const dueDateLayout = "2006-01-02"

// Ticket is a ticket as exchanged with the REST API.
type Ticket struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	DueDate     string    `json:"due_date,omitempty"`
	UserID      int64     `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TicketComment is a comment as exchanged with the REST API.
type TicketComment struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	UserID    int64     `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskIDFor returns the board id of the task mirroring ticket id.
func TaskIDFor(externalID int64) string {
	return "task-" + strconv.FormatInt(externalID, 10)
}

// ParseTaskID extracts the ticket id from a board task id.
func ParseTaskID(taskID string) (int64, bool) {
	raw, ok := strings.CutPrefix(taskID, "task-")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// PriorityToWire maps a board priority onto the API's priority values.
func PriorityToWire(p model.Priority) string {
	if !p.Valid() {
		return string(model.PriorityMedium)
	}
	return string(p)
}

// PriorityFromWire maps an API priority onto the board, treating
// unknown values as medium.
func PriorityFromWire(s string) model.Priority {
	p, err := model.ParsePriority(s)
	if err != nil {
		return model.PriorityMedium
	}
	return p
}

// Task converts the ticket into a board task.
func (t Ticket) Task() model.Task {
	id := t.ID
	task := model.Task{
		ID:          TaskIDFor(t.ID),
		Title:       t.Title,
		Description: t.Description,
		Priority:    PriorityFromWire(t.Priority),
		CreatedAt:   t.CreatedAt,
		ExternalID:  &id,
	}
	if d, err := time.Parse(dueDateLayout, t.DueDate); err == nil {
		task.DueDate = &d
	}
	return task
}

// Comment converts the wire comment into the board model.
func (c TicketComment) Comment() model.Comment {
	return model.Comment{
		ID:        c.ID,
		TicketID:  c.TicketID,
		UserID:    c.UserID,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// createBody builds the request body for a new ticket. Template fields
// are copied first so the explicit fields always win.
func createBody(template map[string]any, status string, in model.TaskInput, userID int64) map[string]any {
	body := make(map[string]any, len(template)+6)
	maps.Copy(body, template)
	body["title"] = in.Title
	body["description"] = in.Description
	body["status"] = status
	body["priority"] = PriorityToWire(in.Priority)
	if in.DueDate != nil {
		body["due_date"] = in.DueDate.Format(dueDateLayout)
	}
	if userID != 0 {
		body["user_id"] = userID
	}
	return body
}

// updateBody builds a partial update containing only the patched fields.
func updateBody(template map[string]any, patch model.TaskPatch) map[string]any {
	body := make(map[string]any, len(template)+4)
	maps.Copy(body, template)
	if patch.Title != nil {
		body["title"] = *patch.Title
	}
	if patch.Description != nil {
		body["description"] = *patch.Description
	}
	if patch.Priority != nil {
		body["priority"] = PriorityToWire(*patch.Priority)
	}
	if patch.DueDate != nil {
		if *patch.DueDate == nil {
			body["due_date"] = nil
		} else {
			body["due_date"] = (*patch.DueDate).Format(dueDateLayout)
		}
	}
	return body
}

// expandPath replaces the {id} placeholder in an endpoint path.
func expandPath(path string, id int64) string {
	return strings.ReplaceAll(path, "{id}", strconv.FormatInt(id, 10))
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("ticket title must not be empty")
	}
	return nil
}
