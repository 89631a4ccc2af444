package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nhle/ticketboard/internal/app"
	"github.com/nhle/ticketboard/internal/reconcile"
	"github.com/nhle/ticketboard/internal/store"
	appsync "github.com/nhle/ticketboard/internal/sync"
)

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Open the board (default)",
		Long:  "Loads the board from the ticket API, or the local snapshot when the API is down, and opens it in the terminal.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(cmd, *configPath)
		},
	}
}

func runBoard(cmd *cobra.Command, configPath string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("ticketboard needs an interactive terminal")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, closeLog, err := newFileLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := commandContext(cmd)

	tickets, source, err := openTicketStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	cache, err := store.Open(cfg.Cache)
	if err != nil {
		logger.WithError(err).WithField("backend", cfg.Cache.Backend).Warn("snapshot cache unavailable")
		cache = store.NopStore{}
	}
	defer cache.Close()

	ctrl := reconcile.New(tickets, cfg.Board.Columns,
		reconcile.WithCache(cache),
		reconcile.WithLogger(logger),
	)

	var poller *appsync.Poller
	if cfg.Board.PollInterval() > 0 || cfg.Board.RefreshSchedule != "" {
		poller, err = appsync.New(ctrl, appsync.Options{
			Interval: cfg.Board.PollInterval(),
			Schedule: cfg.Board.RefreshSchedule,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		defer poller.Stop()
	}

	logger.WithField("source", source).Info("starting board")

	p := tea.NewProgram(app.New(app.Options{
		Board:  ctrl,
		Poller: poller,
		Logger: logger,
		Source: source,
	}), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running board: %w", err)
	}
	return nil
}
