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

CREATE TABLE IF NOT EXISTS library_entries (
	book_id    INTEGER PRIMARY KEY,
	title      TEXT NOT NULL,
	authors    TEXT NOT NULL DEFAULT '',
	publisher  TEXT NOT NULL DEFAULT '',
	thumbnail  TEXT NOT NULL DEFAULT '',
	isbn13     TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL CHECK(status IN ('TO_READ', 'READING', 'COMPLETED')),
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_library_status ON library_entries(status);
CREATE INDEX IF NOT EXISTS idx_library_updated_at ON library_entries(updated_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS sync_state (
	key       TEXT PRIMARY KEY,
	synced_at DATETIME NOT NULL
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
