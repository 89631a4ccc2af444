package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS board_columns (
	id       TEXT PRIMARY KEY,
	title    TEXT NOT NULL,
	position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS board_tasks (
	id          TEXT PRIMARY KEY,
	column_id   TEXT NOT NULL REFERENCES board_columns(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	priority    TEXT NOT NULL DEFAULT 'medium' CHECK(priority IN ('low', 'medium', 'high')),
	due_date    DATETIME,
	created_at  DATETIME NOT NULL,
	external_id INTEGER
);

CREATE TABLE IF NOT EXISTS board_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_board_tasks_column_position
	ON board_tasks(column_id, position);

CREATE UNIQUE INDEX IF NOT EXISTS idx_board_tasks_external_id
	ON board_tasks(external_id) WHERE external_id IS NOT NULL;

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
