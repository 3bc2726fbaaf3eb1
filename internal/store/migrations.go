package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Versions are sequential from 1; runMigrations records each one.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS tasks (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	is_completed INTEGER NOT NULL DEFAULT 0 CHECK(is_completed IN (0, 1)),
	priority     TEXT NOT NULL DEFAULT '' CHECK(priority IN ('', 'high', 'medium', 'low')),
	due_date     DATETIME,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS subtasks (
	id           TEXT NOT NULL,
	task_id      TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	title        TEXT NOT NULL,
	is_completed INTEGER NOT NULL DEFAULT 0 CHECK(is_completed IN (0, 1)),
	sort_order   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (task_id, id)
);

CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);
CREATE INDEX IF NOT EXISTS idx_subtasks_task_id ON subtasks(task_id, sort_order);

`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS chat_sessions (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id            TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
	seq           INTEGER NOT NULL,
	role          TEXT NOT NULL CHECK(role IN ('user', 'model')),
	text          TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL,
	suggestions   TEXT NOT NULL DEFAULT '',
	related_task  TEXT NOT NULL DEFAULT '',
	related_tasks TEXT NOT NULL DEFAULT '',
	pending_task  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_chat_sessions_updated_at ON chat_sessions(updated_at);
CREATE INDEX IF NOT EXISTS idx_chat_messages_session_seq ON chat_messages(session_id, seq);

`,
	},
	{
		version: 3,
		sql: `
CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

`,
	},
}
