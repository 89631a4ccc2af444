// Package mockapi serves a MemoryStore over the ticket REST API, for
// local development and for exercising the HTTP client end to end.
package mockapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/ticketboard/internal/model"
	"github.com/nhle/ticketboard/internal/ticketstore"
)

// DefaultStatus is assigned to tickets created without a status.
const DefaultStatus = "open"

// Options configures the server.
type Options struct {
	// Prefix is prepended to every route, e.g. "/api".
	Prefix string

	// Token, when set, is required as a Bearer token on every request
	// except the health check.
	Token string

	Logger log.FieldLogger
}

// New builds an echo server exposing store.
func New(store *ticketstore.MemoryStore, opts Options) *echo.Echo {
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(opts.Logger))

	Register(e.Group(strings.TrimRight(opts.Prefix, "/")), store, opts.Token)
	return e
}

// Register wires the ticket routes onto g.
func Register(g *echo.Group, store *ticketstore.MemoryStore, token string) {
	g.GET("/health", healthz())

	api := g.Group("", bearerAuth(token))
	api.GET("/tickets", listTickets(store))
	api.POST("/tickets", createTicket(store))
	api.GET("/tickets/:id", getTicket(store))
	api.PUT("/tickets/:id", updateTicket(store))
	api.DELETE("/tickets/:id", deleteTicket(store))
	api.GET("/comments", listComments(store))
	api.POST("/comments", createComment(store))
}

func requestLogger(logger log.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.WithFields(log.Fields{
				"method":   c.Request().Method,
				"path":     c.Request().URL.Path,
				"status":   c.Response().Status,
				"duration": time.Since(start).String(),
			}).Info("mock api request")
			return nil
		}
	}
}

func bearerAuth(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return next(c)
			}
			got, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if !ok || got != token {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing token")
			}
			return next(c)
		}
	}
}

// optionalString distinguishes an absent JSON field from an explicit null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := jsonUnmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

type ticketRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Status      *string        `json:"status"`
	Priority    *string        `json:"priority"`
	DueDate     optionalString `json:"due_date"`
}

type commentRequest struct {
	TicketID int64  `json:"ticket_id"`
	Text     string `json:"text"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

func listTickets(store *ticketstore.MemoryStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		status := c.QueryParam("status")
		out := []ticketstore.Ticket{}
		for _, t := range store.Tickets() {
			if status != "" && t.Status != status {
				continue
			}
			out = append(out, t)
		}
		return c.JSON(http.StatusOK, out)
	}
}

func getTicket(store *ticketstore.MemoryStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := ticketID(c)
		if err != nil {
			return err
		}
		t, ok := store.Ticket(id)
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "ticket not found")
		}
		return c.JSON(http.StatusOK, t)
	}
}

func createTicket(store *ticketstore.MemoryStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req ticketRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket body")
		}
		if req.Title == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "title is required")
		}

		in := model.TaskInput{Title: *req.Title}
		if req.Description != nil {
			in.Description = *req.Description
		}
		in.Priority = model.PriorityMedium
		if req.Priority != nil {
			in.Priority = ticketstore.PriorityFromWire(*req.Priority)
		}
		due, err := parseDue(req.DueDate)
		if err != nil {
			return err
		}
		if due != nil {
			in.DueDate = *due
		}
		status := DefaultStatus
		if req.Status != nil && *req.Status != "" {
			status = *req.Status
		}

		task, err := store.CreateTask(c.Request().Context(), status, in)
		if err != nil {
			return httpError(err)
		}
		t, _ := store.Ticket(*task.ExternalID)
		return c.JSON(http.StatusCreated, t)
	}
}

func updateTicket(store *ticketstore.MemoryStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := ticketID(c)
		if err != nil {
			return err
		}
		var req ticketRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket body")
		}

		ctx := c.Request().Context()
		patch := model.TaskPatch{Title: req.Title, Description: req.Description}
		if req.Priority != nil {
			p := ticketstore.PriorityFromWire(*req.Priority)
			patch.Priority = &p
		}
		if patch.DueDate, err = parseDue(req.DueDate); err != nil {
			return err
		}

		if !patch.IsEmpty() {
			if _, err := store.UpdateTask(ctx, id, patch); err != nil {
				return httpError(err)
			}
		}
		if req.Status != nil {
			if _, err := store.UpdateStatus(ctx, id, *req.Status); err != nil {
				return httpError(err)
			}
		}

		t, ok := store.Ticket(id)
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "ticket not found")
		}
		return c.JSON(http.StatusOK, t)
	}
}

func deleteTicket(store *ticketstore.MemoryStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := ticketID(c)
		if err != nil {
			return err
		}
		if err := store.DeleteTask(c.Request().Context(), id); err != nil {
			return httpError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func listComments(store *ticketstore.MemoryStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.QueryParam("ticket_id"), 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "ticket_id query parameter is required")
		}
		comments, err := store.ListComments(c.Request().Context(), id)
		if err != nil {
			return httpError(err)
		}
		out := make([]ticketstore.TicketComment, 0, len(comments))
		for _, cm := range comments {
			out = append(out, wireComment(cm))
		}
		return c.JSON(http.StatusOK, out)
	}
}

func createComment(store *ticketstore.MemoryStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req commentRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid comment body")
		}
		cm, err := store.AddComment(c.Request().Context(), req.TicketID, req.Text)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusCreated, wireComment(cm))
	}
}

func wireComment(cm model.Comment) ticketstore.TicketComment {
	return ticketstore.TicketComment{
		ID:        cm.ID,
		TicketID:  cm.TicketID,
		UserID:    cm.UserID,
		Text:      cm.Text,
		CreatedAt: cm.CreatedAt,
		UpdatedAt: cm.UpdatedAt,
	}
}

func ticketID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid ticket id")
	}
	return id, nil
}

// parseDue converts the optional due date field into a patch value:
// nil when absent, a pointer to nil when explicitly cleared.
func parseDue(o optionalString) (**time.Time, error) {
	if !o.Set {
		return nil, nil
	}
	var due *time.Time
	if o.Value != nil && *o.Value != "" {
		d, err := time.Parse("2006-01-02", *o.Value)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "due_date must be YYYY-MM-DD")
		}
		due = &d
	}
	return &due, nil
}

// httpError maps store errors onto HTTP responses.
func httpError(err error) error {
	var remote *ticketstore.RemoteError
	if errors.As(err, &remote) && remote.StatusCode != 0 {
		return echo.NewHTTPError(remote.StatusCode, remote.Err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
