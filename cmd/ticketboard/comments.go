package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nhle/ticketboard/internal/ticketstore"
)

func newCommentsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Read and write ticket comments",
	}

	cmd.AddCommand(newCommentsListCmd(configPath))
	cmd.AddCommand(newCommentsAddCmd(configPath))
	return cmd
}

func newCommentsListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list <ticket-id>",
		Short: "List the comments on a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTicketID(args[0])
			if err != nil {
				return err
			}
			tickets, err := commentStore(cmd, *configPath)
			if err != nil {
				return err
			}
			return listComments(cmd, tickets, id)
		},
	}
}

func newCommentsAddCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "add <ticket-id> <text>...",
		Short: "Add a comment to a ticket",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTicketID(args[0])
			if err != nil {
				return err
			}
			text := strings.TrimSpace(strings.Join(args[1:], " "))
			if text == "" {
				return fmt.Errorf("comment text must not be empty")
			}
			tickets, err := commentStore(cmd, *configPath)
			if err != nil {
				return err
			}
			return addComment(cmd, tickets, id, text)
		},
	}
}

// parseTicketID accepts a remote id ("42") or a board task id ("task-42").
func parseTicketID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "task-"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ticket id %q", s)
	}
	return id, nil
}

func commentStore(cmd *cobra.Command, configPath string) (ticketstore.TicketStore, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return newAPIStore(cfg, newCLILogger(cmd.ErrOrStderr(), cfg.Log.Level))
}

func listComments(cmd *cobra.Command, tickets ticketstore.TicketStore, id int64) error {
	ctx := commandContext(cmd)
	comments, err := tickets.ListComments(ctx, id)
	if err != nil {
		return fmt.Errorf("listing comments on ticket %d: %w", id, err)
	}

	out := cmd.OutOrStdout()
	if len(comments) == 0 {
		fmt.Fprintf(out, "No comments on ticket %d\n", id)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tCREATED\tTEXT")
	for _, c := range comments {
		fmt.Fprintf(w, "%d\tuser %d\t%s\t%s\n", c.ID, c.UserID, c.CreatedAt.Local().Format("2006-01-02 15:04"), c.Text)
	}
	return w.Flush()
}

func addComment(cmd *cobra.Command, tickets ticketstore.TicketStore, id int64, text string) error {
	c, err := tickets.AddComment(commandContext(cmd), id, text)
	if err != nil {
		return fmt.Errorf("adding comment to ticket %d: %w", id, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added comment %d to ticket %d\n", c.ID, id)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
