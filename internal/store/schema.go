package store

const Schema = `
CREATE TABLE IF NOT EXISTS media (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	media_type TEXT NOT NULL,
	provider TEXT NOT NULL,
	provider_id TEXT NOT NULL,
	provider_keys TEXT NOT NULL DEFAULT '{}',  -- JSON object
	primary_title TEXT NOT NULL,
	secondary_title TEXT NOT NULL DEFAULT '',
	cover_image_url TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (media_type, provider, provider_id)
);

CREATE TABLE IF NOT EXISTS activity_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	media_id INTEGER NOT NULL,
	media_type TEXT NOT NULL,
	status TEXT NOT NULL,
	score REAL,  -- NULL when unscored
	progress INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (user_id, media_id),
	FOREIGN KEY (media_id) REFERENCES media(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_activity_user ON activity_entries(user_id, media_type);

CREATE TABLE IF NOT EXISTS profiles (
	user_id TEXT PRIMARY KEY,
	preserve_local_on_sync BOOLEAN NOT NULL DEFAULT 1,
	use_rawg_for_games BOOLEAN NOT NULL DEFAULT 0,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS credentials (
	user_id TEXT NOT NULL,
	provider TEXT NOT NULL,
	access_token TEXT NOT NULL,
	token_type TEXT NOT NULL DEFAULT '',
	expiry DATETIME,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, provider)
);

CREATE TABLE IF NOT EXISTS cache (
	key TEXT PRIMARY KEY,
	data BLOB,
	expires_at DATETIME
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
