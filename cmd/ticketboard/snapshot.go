package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nhle/ticketboard/internal/model"
	"github.com/nhle/ticketboard/internal/store"
)

// snapshotDoc is the YAML shape printed by "snapshot show".
type snapshotDoc struct {
	Backend string           `yaml:"backend"`
	SavedAt string           `yaml:"saved_at,omitempty"`
	Columns []snapshotColumn `yaml:"columns"`
}

type snapshotColumn struct {
	ID    string         `yaml:"id"`
	Title string         `yaml:"title"`
	Tasks []snapshotTask `yaml:"tasks"`
}

type snapshotTask struct {
	ID         string `yaml:"id"`
	Title      string `yaml:"title"`
	Priority   string `yaml:"priority"`
	Due        string `yaml:"due,omitempty"`
	ExternalID *int64 `yaml:"external_id,omitempty"`
}

func newSnapshotCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect the local board snapshot",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the cached board as YAML",
		Long:  "Prints the board snapshot the app falls back to when the ticket API is unreachable.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotShow(cmd, *configPath)
		},
	})
	return cmd
}

func runSnapshotShow(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	cache, err := store.Open(cfg.Cache)
	if err != nil {
		return fmt.Errorf("opening %s cache: %w", cfg.Cache.Backend, err)
	}
	defer cache.Close()

	ctx := commandContext(cmd)
	state, err := cache.LoadBoard(ctx)
	if errors.Is(err, store.ErrNoSnapshot) {
		fmt.Fprintln(cmd.OutOrStdout(), "No snapshot saved yet")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	doc := newSnapshotDoc(cfg.Cache.Backend, state)
	if at, err := cache.SavedAt(ctx); err == nil {
		doc.SavedAt = at.Local().Format(time.RFC3339)
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return enc.Close()
}

func newSnapshotDoc(backend string, state model.BoardState) snapshotDoc {
	doc := snapshotDoc{Backend: backend, Columns: []snapshotColumn{}}
	for _, col := range state.OrderedColumns() {
		sc := snapshotColumn{ID: col.ID, Title: col.Title, Tasks: []snapshotTask{}}
		for _, id := range col.TaskIDs {
			t, ok := state.Tasks[id]
			if !ok {
				continue
			}
			st := snapshotTask{ID: t.ID, Title: t.Title, Priority: t.Priority.Label(), ExternalID: t.ExternalID}
			if t.DueDate != nil {
				st.Due = t.DueDate.Format("2006-01-02")
			}
			sc.Tasks = append(sc.Tasks, st)
		}
		doc.Columns = append(doc.Columns, sc)
	}
	return doc
}
