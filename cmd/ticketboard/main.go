package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nhle/ticketboard/internal/model"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ticketboard",
		Short: "Ticketboard, a kanban board for your ticket API",
		Long: "Ticketboard shows remote tickets as cards on a terminal kanban board. " +
			"Cards and columns can be dragged with the mouse or moved with the keyboard.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(cmd, configPath)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", model.DefaultConfigPath(), "path to config file")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRunCmd(&configPath))
	cmd.AddCommand(newMockAPICmd(&configPath))
	cmd.AddCommand(newCommentsCmd(&configPath))
	cmd.AddCommand(newSnapshotCmd(&configPath))
	cmd.AddCommand(newConfigCmd(&configPath))
	cmd.AddCommand(newTokenCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ticketboard %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()
	os.Exit(execute(newRootCmd()))
}
