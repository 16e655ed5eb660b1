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

CREATE TABLE IF NOT EXISTS classifications (
	message_id   TEXT PRIMARY KEY,
	category     TEXT NOT NULL,
	priority     TEXT NOT NULL,
	redundant    INTEGER NOT NULL DEFAULT 0 CHECK(redundant IN (0, 1)),
	redundant_of TEXT NOT NULL DEFAULT '',
	confidence   REAL NOT NULL DEFAULT 0,
	rationale    TEXT NOT NULL DEFAULT '',
	manual       INTEGER NOT NULL DEFAULT 0 CHECK(manual IN (0, 1)),
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_classifications_category ON classifications(category);

CREATE TABLE IF NOT EXISTS tags (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	color      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS message_tags (
	message_id TEXT NOT NULL,
	tag_id     TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (message_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_message_tags_tag_id ON message_tags(tag_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS preferences (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
