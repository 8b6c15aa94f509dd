package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Organization is one tenant.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Project groups documents under an organization with a language pair.
type Project struct {
	ID         string    `json:"id"`
	OrgID      string    `json:"org_id"`
	Name       string    `json:"name"`
	SourceLang string    `json:"source_lang,omitempty"`
	TargetLang string    `json:"target_lang,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Store) CreateOrganization(ctx context.Context, o Organization) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, created_at) VALUES (?, ?, ?)`,
		o.ID, o.Name, o.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

func (s *Store) ListOrganizations(ctx context.Context) ([]Organization, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM organizations ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var out []Organization
	for rows.Next() {
		var o Organization
		var created int64
		if err := rows.Scan(&o.ID, &o.Name, &created); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		o.CreatedAt = time.Unix(created, 0)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) CreateProject(ctx context.Context, p Project) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, org_id, name, source_lang, target_lang, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.OrgID, p.Name, p.SourceLang, p.TargetLang, p.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, org_id, name, source_lang, target_lang, created_at
		 FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.OrgID, &p.Name, &p.SourceLang, &p.TargetLang, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	p.CreatedAt = time.Unix(created, 0)
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context, orgID string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, org_id, name, source_lang, target_lang, created_at
		 FROM projects WHERE org_id = ? ORDER BY created_at`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		var created int64
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Name, &p.SourceLang, &p.TargetLang, &created); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.CreatedAt = time.Unix(created, 0)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReplaceDictionary swaps a project's dictionary entries in one transaction.
func (s *Store) ReplaceDictionary(ctx context.Context, projectID string, entries [][3]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM dictionary_entries WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("clear dictionary: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO dictionary_entries (project_id, source, target, definition) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, projectID, e[0], e[1], e[2]); err != nil {
			return fmt.Errorf("insert dictionary entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit dictionary: %w", err)
	}
	return nil
}

// DictionaryEntry is one stored term pair.
type DictionaryEntry struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	Definition string `json:"definition,omitempty"`
}

func (s *Store) ListDictionary(ctx context.Context, projectID string) ([]DictionaryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, target, definition FROM dictionary_entries WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list dictionary: %w", err)
	}
	defer rows.Close()

	var out []DictionaryEntry
	for rows.Next() {
		var e DictionaryEntry
		if err := rows.Scan(&e.Source, &e.Target, &e.Definition); err != nil {
			return nil, fmt.Errorf("scan dictionary entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
