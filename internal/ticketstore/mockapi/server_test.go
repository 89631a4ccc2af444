package mockapi_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/nhle/ticketboard/internal/model"
	"github.com/nhle/ticketboard/internal/ticketstore"
	"github.com/nhle/ticketboard/internal/ticketstore/mockapi"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func newServer(t *testing.T, token string) (*ticketstore.MemoryStore, *httptest.Server) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	mem := ticketstore.NewMemoryStore(ticketstore.WithClock(fixedClock), ticketstore.WithUserID(7))
	srv := httptest.NewServer(mockapi.New(mem, mockapi.Options{Prefix: "/api", Token: token, Logger: logger}))
	t.Cleanup(srv.Close)
	return mem, srv
}

func newClient(baseURL, token string) *ticketstore.Client {
	cfg := model.DefaultConfig().API
	cfg.BaseURL = baseURL + "/api"
	cfg.TimeoutSec = 2
	return ticketstore.NewClient(cfg, token)
}

func TestClientRoundTrip(t *testing.T) {
	mem, srv := newServer(t, "")
	client := newClient(srv.URL, "")
	ctx := context.Background()

	if err := client.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	due := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	created, err := client.CreateTask(ctx, "open", model.TaskInput{
		Title:    "Write release notes",
		Priority: model.PriorityHigh,
		DueDate:  &due,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if created.ExternalID == nil {
		t.Fatal("created task has no external id")
	}
	id := *created.ExternalID
	if created.ID != ticketstore.TaskIDFor(id) {
		t.Errorf("ID = %q, want %q", created.ID, ticketstore.TaskIDFor(id))
	}
	if created.Priority != model.PriorityHigh {
		t.Errorf("Priority = %q, want high", created.Priority)
	}
	if created.DueDate == nil || !created.DueDate.Equal(due) {
		t.Errorf("DueDate = %v, want %v", created.DueDate, due)
	}

	if _, err := client.UpdateStatus(ctx, id, "done"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got, _ := mem.Ticket(id); got.Status != "done" {
		t.Errorf("server status = %q, want done", got.Status)
	}

	title := "Write the release notes"
	updated, err := client.UpdateTask(ctx, id, model.TaskPatch{Title: &title})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Title != title {
		t.Errorf("Title = %q, want %q", updated.Title, title)
	}
	if updated.DueDate == nil {
		t.Error("untouched due date was cleared")
	}

	byStatus, err := client.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(byStatus["done"]) != 1 || byStatus["done"][0].ID != created.ID {
		t.Errorf("FetchAll = %+v, want one done task", byStatus)
	}

	if err := client.DeleteTask(ctx, id); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, ok := mem.Ticket(id); ok {
		t.Error("ticket still present after delete")
	}
}

func TestClientClearsDueDate(t *testing.T) {
	mem, srv := newServer(t, "")
	client := newClient(srv.URL, "")
	ctx := context.Background()

	due := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	created, err := client.CreateTask(ctx, "open", model.TaskInput{Title: "a", DueDate: &due})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	var cleared *time.Time
	if _, err := client.UpdateTask(ctx, *created.ExternalID, model.TaskPatch{DueDate: &cleared}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if got, _ := mem.Ticket(*created.ExternalID); got.DueDate != "" {
		t.Errorf("due_date = %q, want cleared", got.DueDate)
	}
}

func TestClientComments(t *testing.T) {
	_, srv := newServer(t, "")
	client := newClient(srv.URL, "")
	ctx := context.Background()

	created, err := client.CreateTask(ctx, "open", model.TaskInput{Title: "a"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	id := *created.ExternalID

	if _, err := client.AddComment(ctx, id, "first"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if _, err := client.AddComment(ctx, id, "second"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	comments, err := client.ListComments(ctx, id)
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 2 || comments[0].Text != "first" || comments[1].Text != "second" {
		t.Fatalf("comments = %+v", comments)
	}
	if comments[0].UserID != 7 || comments[0].TicketID != id {
		t.Errorf("comment = %+v, want user 7 on ticket %d", comments[0], id)
	}
}

func TestClientNotFound(t *testing.T) {
	_, srv := newServer(t, "")
	client := newClient(srv.URL, "")

	_, err := client.UpdateStatus(context.Background(), 999, "done")
	if !ticketstore.IsNotFound(err) {
		t.Fatalf("err = %v, want remote 404", err)
	}
	if !strings.Contains(err.Error(), "ticket 999 not found") {
		t.Errorf("err = %q, want server message", err)
	}
}

func TestBearerToken(t *testing.T) {
	_, srv := newServer(t, "s3cret")

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusUnauthorized},
		{"valid", "s3cret", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newClient(srv.URL, tt.token).FetchAll(context.Background())
			if tt.status == 0 {
				if err != nil {
					t.Fatalf("FetchAll: %v", err)
				}
				return
			}
			var remote *ticketstore.RemoteError
			if !errors.As(err, &remote) || remote.StatusCode != tt.status {
				t.Fatalf("err = %v, want status %d", err, tt.status)
			}
		})
	}

	// The health check stays open.
	if err := newClient(srv.URL, "").Ping(context.Background()); err != nil {
		t.Errorf("Ping without token: %v", err)
	}
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	_, srv := newServer(t, "")

	resp, err := http.Post(srv.URL+"/api/tickets", "application/json", strings.NewReader(`{"title":"  "}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListTicketsFiltersByStatus(t *testing.T) {
	mem, srv := newServer(t, "")
	ctx := context.Background()
	if _, err := mem.CreateTask(ctx, "open", model.TaskInput{Title: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := mem.CreateTask(ctx, "done", model.TaskInput{Title: "b"}); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(srv.URL + "/api/tickets?status=done")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	body := string(raw)
	if !strings.Contains(body, `"title":"b"`) || strings.Contains(body, `"title":"a"`) {
		t.Errorf("body = %s, want only the done ticket", body)
	}
}
