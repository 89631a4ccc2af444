package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/nhle/ticketboard/internal/board"
	"github.com/nhle/ticketboard/internal/credential"
	"github.com/nhle/ticketboard/internal/model"
	"github.com/nhle/ticketboard/internal/ticketstore"
)

// Ticket store sources shown in the board header.
const (
	sourceAPI  = "api"
	sourceMock = "mock"
)

func loadConfig(path string) (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newFileLogger writes JSON lines to the configured log file. The TUI
// owns the terminal, so nothing may go to stdout or stderr while it runs.
func newFileLogger(cfg model.LogConfig) (*log.Logger, func() error, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	logger := log.New()
	logger.SetLevel(level)
	logger.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})

	if cfg.File == "" {
		logger.SetOutput(io.Discard)
		return logger, func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger.SetOutput(f)
	return logger, f.Close, nil
}

// newCLILogger logs to w, as text on a terminal and JSON otherwise.
func newCLILogger(w io.Writer, level string) *log.Logger {
	logger := log.New()
	logger.SetOutput(w)
	if lvl, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&log.JSONFormatter{})
	}
	return logger
}

// newAPIStore returns the retrying HTTP ticket store.
func newAPIStore(cfg *model.AppConfig, logger log.FieldLogger) (ticketstore.TicketStore, error) {
	token, err := credential.APIToken()
	if err != nil {
		return nil, fmt.Errorf("reading API token: %w", err)
	}
	client := ticketstore.NewClient(cfg.API, token)
	return ticketstore.WithRetry(client, ticketstore.RetryOptions{
		MaxRetries: cfg.API.MaxRetries,
		Logger:     logger,
	}), nil
}

// newMockStore returns an in-memory store seeded with the starter board.
func newMockStore(cfg *model.AppConfig) *ticketstore.MemoryStore {
	mem := ticketstore.NewMemoryStore(ticketstore.WithUserID(cfg.API.UserID))
	columns := cfg.Board.Columns
	mem.Seed(board.Default(columns, time.Now()), ticketstore.NewStatusMap(columns))
	return mem
}

// openTicketStore checks that the API answers and falls back to the mock
// store when it does not and the config allows it.
func openTicketStore(ctx context.Context, cfg *model.AppConfig, logger log.FieldLogger) (ticketstore.TicketStore, string, error) {
	api, err := newAPIStore(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.API.Timeout())
	defer cancel()
	pingErr := api.Ping(pingCtx)
	if pingErr == nil {
		return api, sourceAPI, nil
	}
	if !cfg.API.MockFallback {
		logger.WithError(pingErr).Warn("ticket API unreachable")
		return api, sourceAPI, nil
	}

	logger.WithError(pingErr).WithField("base_url", cfg.API.BaseURL).Warn("ticket API unreachable, using mock store")
	return newMockStore(cfg), sourceMock, nil
}
