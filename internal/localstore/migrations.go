package localstore

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

CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notification_cache (
	id            INTEGER PRIMARY KEY,
	owner_user_id INTEGER NOT NULL DEFAULT 0,
	kind          TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	message       TEXT NOT NULL DEFAULT '',
	read          INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL,
	payload       TEXT NOT NULL DEFAULT '{}',
	position      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_cache_position ON notification_cache(position);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
