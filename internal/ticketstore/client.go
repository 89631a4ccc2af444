package ticketstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/ticketboard/internal/model"
)

// Client is a thin HTTP client for the ticket REST API. It handles
// Bearer token authentication, configurable endpoint paths and JSON
// (de)serialization. It does not retry; wrap it with WithRetry.
type Client struct {
	baseURL    string
	token      string
	userID     int64
	endpoints  model.EndpointsConfig
	defaults   map[string]map[string]any
	httpClient *http.Client
}

// NewClient creates a ticket API client from the API configuration.
// An empty token sends no Authorization header.
func NewClient(cfg model.APIConfig, token string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     token,
		userID:    cfg.UserID,
		endpoints: cfg.Endpoints,
		defaults:  cfg.Defaults,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// errorResponse is the error body shape returned by the API.
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Ping implements TicketStore.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, c.endpoints.HealthCheck, nil, nil)
}

// FetchAll implements TicketStore.
func (c *Client) FetchAll(ctx context.Context) (map[string][]model.Task, error) {
	var tickets []Ticket
	if err := c.do(ctx, "fetch_all", http.MethodGet, c.endpoints.ListTickets, nil, &tickets); err != nil {
		return nil, err
	}
	out := make(map[string][]model.Task)
	for _, t := range tickets {
		out[t.Status] = append(out[t.Status], t.Task())
	}
	return out, nil
}

// CreateTask implements TicketStore.
func (c *Client) CreateTask(ctx context.Context, status string, in model.TaskInput) (model.Task, error) {
	if err := validateTitle(in.Title); err != nil {
		return model.Task{}, err
	}
	body := createBody(c.defaults["create_ticket"], status, in, c.userID)

	var created Ticket
	if err := c.do(ctx, "create_task", http.MethodPost, c.endpoints.CreateTicket, body, &created); err != nil {
		return model.Task{}, err
	}
	task := created.Task()
	if task.DueDate == nil {
		task.DueDate = in.DueDate
	}
	return task, nil
}

// UpdateTask implements TicketStore.
func (c *Client) UpdateTask(ctx context.Context, externalID int64, patch model.TaskPatch) (model.Task, error) {
	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return model.Task{}, err
		}
	}
	body := updateBody(c.defaults["update_ticket"], patch)
	return c.update(ctx, "update_task", externalID, body)
}

// UpdateStatus implements TicketStore.
func (c *Client) UpdateStatus(ctx context.Context, externalID int64, status string) (model.Task, error) {
	body := map[string]any{"status": status}
	return c.update(ctx, "update_status", externalID, body)
}

func (c *Client) update(ctx context.Context, op string, externalID int64, body map[string]any) (model.Task, error) {
	var updated Ticket
	path := expandPath(c.endpoints.UpdateTicket, externalID)
	if err := c.do(ctx, op, http.MethodPut, path, body, &updated); err != nil {
		return model.Task{}, err
	}
	return updated.Task(), nil
}

// DeleteTask implements TicketStore.
func (c *Client) DeleteTask(ctx context.Context, externalID int64) error {
	path := expandPath(c.endpoints.DeleteTicket, externalID)
	return c.do(ctx, "delete_task", http.MethodDelete, path, nil, nil)
}

// ListComments implements TicketStore.
func (c *Client) ListComments(ctx context.Context, externalID int64) ([]model.Comment, error) {
	path := expandPath(c.endpoints.ListComments, externalID)
	if !strings.Contains(c.endpoints.ListComments, "{id}") {
		path += "?" + url.Values{"ticket_id": {strconv.FormatInt(externalID, 10)}}.Encode()
	}

	var wire []TicketComment
	if err := c.do(ctx, "list_comments", http.MethodGet, path, nil, &wire); err != nil {
		return nil, err
	}
	comments := make([]model.Comment, 0, len(wire))
	for _, w := range wire {
		comments = append(comments, w.Comment())
	}
	return comments, nil
}

// AddComment implements TicketStore.
func (c *Client) AddComment(ctx context.Context, externalID int64, text string) (model.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return model.Comment{}, fmt.Errorf("comment text must not be empty")
	}
	body := make(map[string]any)
	for k, v := range c.defaults["create_comment"] {
		body[k] = v
	}
	body["ticket_id"] = externalID
	body["user_id"] = c.userID
	body["text"] = text

	var created TicketComment
	path := expandPath(c.endpoints.CreateComment, externalID)
	if err := c.do(ctx, "add_comment", http.MethodPost, path, body, &created); err != nil {
		return model.Comment{}, err
	}
	return created.Comment(), nil
}

// do builds the request, handles auth and JSON (de)serialization, and
// maps every failure onto a *RemoteError.
func (c *Client) do(
	ctx context.Context,
	op string,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteError{Op: op, Err: fmt.Errorf("executing request %s %s: %w", method, path, err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RemoteError{Op: op, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rerr := remoteErr(op, resp.StatusCode, "unexpected status on %s %s: %s",
			method, path, errorMessage(respBody))
		if resp.StatusCode == http.StatusUnauthorized {
			rerr.Err = fmt.Errorf("authentication failed (401): check the API token for %s", c.baseURL)
		}
		rerr.RetryAfter = retryAfter(resp)
		return rerr
	}

	// No content to parse (e.g. 204).
	if result == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return &RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err),
		}
	}
	return nil
}

func errorMessage(body []byte) string {
	var e errorResponse
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// retryAfter reads the Retry-After header in seconds.
func retryAfter(resp *http.Response) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}
