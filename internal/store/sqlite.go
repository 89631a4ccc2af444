package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/ticketboard/internal/model"
)

const metaSavedAt = "saved_at"

// SQLiteStore implements SnapshotStore using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// In-memory databases are per-connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.GetContext(ctx, &v, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// SaveBoard replaces the stored snapshot with state in one transaction.
func (s *SQLiteStore) SaveBoard(ctx context.Context, state model.BoardState) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM board_tasks"); err != nil {
		return fmt.Errorf("clearing tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM board_columns"); err != nil {
		return fmt.Errorf("clearing columns: %w", err)
	}

	colStmt, err := tx.PreparexContext(ctx,
		"INSERT INTO board_columns (id, title, position) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing column insert: %w", err)
	}
	defer colStmt.Close()

	taskStmt, err := tx.PreparexContext(ctx, `
		INSERT INTO board_tasks (
			id, column_id, position,
			title, description, priority,
			due_date, created_at, external_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing task insert: %w", err)
	}
	defer taskStmt.Close()

	for pos, col := range state.OrderedColumns() {
		if _, err := colStmt.ExecContext(ctx, col.ID, col.Title, pos); err != nil {
			return fmt.Errorf("saving column %s: %w", col.ID, err)
		}
		for i, taskID := range col.TaskIDs {
			t, ok := state.Tasks[taskID]
			if !ok {
				continue
			}
			var due *time.Time
			if t.DueDate != nil {
				d := t.DueDate.UTC()
				due = &d
			}
			_, err := taskStmt.ExecContext(ctx,
				t.ID, col.ID, i,
				t.Title, t.Description, string(t.Priority),
				due, t.CreatedAt.UTC(), t.ExternalID,
			)
			if err != nil {
				return fmt.Errorf("saving task %s: %w", t.ID, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO board_meta (key, value) VALUES (?, ?)",
		metaSavedAt, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording snapshot time: %w", err)
	}

	return tx.Commit()
}

// LoadBoard reads the stored snapshot. It returns ErrNoSnapshot when
// SaveBoard has never been called.
func (s *SQLiteStore) LoadBoard(ctx context.Context) (model.BoardState, error) {
	if _, err := s.SavedAt(ctx); err != nil {
		return model.BoardState{}, err
	}

	var cols []struct {
		ID    string `db:"id"`
		Title string `db:"title"`
	}
	err := s.db.SelectContext(ctx, &cols,
		"SELECT id, title FROM board_columns ORDER BY position")
	if err != nil {
		return model.BoardState{}, fmt.Errorf("querying columns: %w", err)
	}

	state := model.NewBoardState()
	for _, c := range cols {
		state.Columns[c.ID] = model.Column{ID: c.ID, Title: c.Title, TaskIDs: []string{}}
		state.ColumnOrder = append(state.ColumnOrder, c.ID)
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, column_id, title, description, priority,
		       due_date, created_at, external_id
		FROM board_tasks
		ORDER BY column_id, position`)
	if err != nil {
		return model.BoardState{}, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		columnID, task, err := scanBoardTask(rows)
		if err != nil {
			return model.BoardState{}, err
		}
		col, ok := state.Columns[columnID]
		if !ok {
			continue
		}
		state.Tasks[task.ID] = task
		col.TaskIDs = append(col.TaskIDs, task.ID)
		state.Columns[columnID] = col
	}

	return state, rows.Err()
}

// SavedAt implements SnapshotStore.
func (s *SQLiteStore) SavedAt(ctx context.Context) (time.Time, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, "SELECT value FROM board_meta WHERE key = ?", metaSavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading snapshot time: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing snapshot time %q: %w", raw, err)
	}
	return t, nil
}

// scanBoardTask scans a board_tasks row.
func scanBoardTask(rows interface{ Scan(dest ...interface{}) error }) (string, model.Task, error) {
	var (
		task     model.Task
		columnID string
		priority string
		dueDate  *time.Time
		extID    *int64
	)

	err := rows.Scan(
		&task.ID, &columnID, &task.Title, &task.Description, &priority,
		&dueDate, &task.CreatedAt, &extID,
	)
	if err != nil {
		return "", model.Task{}, fmt.Errorf("scanning task row: %w", err)
	}

	task.Priority = model.Priority(priority)
	task.DueDate = dueDate
	task.ExternalID = extID
	return columnID, task, nil
}
