package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create credentials",
		SQL: `
			CREATE TABLE credentials (
				kind          TEXT NOT NULL,
				cache_key     TEXT NOT NULL,
				value         TEXT NOT NULL CHECK (value <> ''),
				expires_at    INTEGER NOT NULL,
				refresh_token TEXT NOT NULL DEFAULT '',
				subject       TEXT NOT NULL DEFAULT '',
				scope         TEXT NOT NULL DEFAULT '',
				updated_at    TEXT NOT NULL DEFAULT (datetime('now')),
				PRIMARY KEY (kind, cache_key)
			);

			CREATE INDEX idx_credentials_expiry ON credentials (expires_at);
		`,
	},
	{
		Version: 2,
		Name:    "create subscribers",
		SQL: `
			CREATE TABLE subscribers (
				id              TEXT PRIMARY KEY,
				open_id         TEXT NOT NULL,
				account         TEXT NOT NULL,
				subscribed      INTEGER NOT NULL DEFAULT 0,
				scene           TEXT NOT NULL DEFAULT '',
				subscribed_at   TEXT,
				unsubscribed_at TEXT,
				last_seen_at    TEXT NOT NULL,
				message_count   INTEGER NOT NULL DEFAULT 0
			);

			CREATE UNIQUE INDEX idx_subscribers_user ON subscribers (account, open_id);
			CREATE INDEX idx_subscribers_active ON subscribers (account, subscribed);
		`,
	},
}
