package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS research_queries (
    id TEXT PRIMARY KEY,
    query TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    summary TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS research_steps (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    query_id TEXT NOT NULL REFERENCES research_queries(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    description TEXT NOT NULL,
    reasoning TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    result TEXT NOT NULL DEFAULT '',
    confidence REAL,
    start_time TEXT NOT NULL,
    end_time TEXT,
    duration REAL
);

CREATE TABLE IF NOT EXISTS profiles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    query_id TEXT NOT NULL REFERENCES research_queries(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    organization TEXT NOT NULL DEFAULT '',
    location TEXT NOT NULL DEFAULT '',
    profile_url TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    expertise TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS insights (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    query_id TEXT NOT NULL REFERENCES research_queries(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    content TEXT NOT NULL
);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "lookup indexes",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_research_queries_created ON research_queries(created_at);
CREATE INDEX IF NOT EXISTS idx_research_queries_status ON research_queries(status);
CREATE INDEX IF NOT EXISTS idx_research_steps_query ON research_steps(query_id, position);
CREATE INDEX IF NOT EXISTS idx_profiles_query ON profiles(query_id, position);
CREATE INDEX IF NOT EXISTS idx_insights_query ON insights(query_id, position);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
