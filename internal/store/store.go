// Package store is the relational persistence layer: organizations, projects,
// documents, structure metadata, segments, translations and dictionary
// entries, backed by SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Schema creates all tables. Applied by Init; idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS organizations (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	source_lang TEXT NOT NULL DEFAULT '',
	target_lang TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_org ON projects(org_id);
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	filename TEXT NOT NULL,
	format TEXT NOT NULL,
	status TEXT NOT NULL,
	content BLOB,
	segment_count INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id);
CREATE TABLE IF NOT EXISTS structure_metadata (
	document_id TEXT PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
	json TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS segments (
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	idx INTEGER NOT NULL,
	source_text TEXT NOT NULL,
	PRIMARY KEY (document_id, idx)
);
CREATE TABLE IF NOT EXISTS segment_positions (
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	segment_index INTEGER NOT NULL,
	json TEXT NOT NULL,
	PRIMARY KEY (document_id, segment_index)
);
CREATE TABLE IF NOT EXISTS translations (
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	segment_index INTEGER NOT NULL,
	text TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (document_id, segment_index)
);
CREATE TABLE IF NOT EXISTS dictionary_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	definition TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_dictionary_project ON dictionary_entries(project_id);
`

// Store wraps the database handle.
type Store struct {
	db *sql.DB
}

// Open connects to the SQLite database at path (":memory:" works for tests).
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &Store{db: db}, nil
}

// Init applies the schema.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
