package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/ticketboard/internal/ticketstore/mockapi"
)

func newMockAPICmd(configPath *string) *cobra.Command {
	var (
		addr  string
		token string
	)

	cmd := &cobra.Command{
		Use:   "mock-api",
		Short: "Serve an in-memory ticket API",
		Long: "Serves the ticket REST API from memory, seeded with the starter board. " +
			"Point api.base_url at it to try the board without a real backend.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMockAPI(cmd, *configPath, addr, token)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: host and port of api.base_url)")
	cmd.Flags().StringVar(&token, "token", "", "require this Bearer token on every request")
	return cmd
}

func runMockAPI(cmd *cobra.Command, configPath, addr, token string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := newCLILogger(cmd.ErrOrStderr(), cfg.Log.Level)

	prefix := ""
	if u, err := url.Parse(cfg.API.BaseURL); err == nil {
		prefix = u.Path
		if addr == "" {
			addr = u.Host
		}
	}
	if addr == "" {
		return fmt.Errorf("no listen address: set --addr or api.base_url")
	}

	e := mockapi.New(newMockStore(cfg), mockapi.Options{
		Prefix: prefix,
		Token:  token,
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", addr).WithField("prefix", prefix).Info("mock ticket API listening")
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	logger.Info("mock ticket API stopped")
	return nil
}
