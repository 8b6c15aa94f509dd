package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oxylab/docseg/internal/engine"
	"github.com/oxylab/docseg/internal/overlay"
)

// Document is one uploaded source document.
type Document struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Filename     string    `json:"filename"`
	Format       string    `json:"format"`
	Status       string    `json:"status"`
	SegmentCount int       `json:"segment_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *Store) CreateDocument(ctx context.Context, d Document, content []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, project_id, filename, format, status, content, segment_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ProjectID, d.Filename, d.Format, d.Status, content, d.SegmentCount,
		d.CreatedAt.Unix(), d.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	var d Document
	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, filename, format, status, segment_count, created_at, updated_at
		 FROM documents WHERE id = ?`, id).
		Scan(&d.ID, &d.ProjectID, &d.Filename, &d.Format, &d.Status, &d.SegmentCount, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	d.CreatedAt = time.Unix(created, 0)
	d.UpdatedAt = time.Unix(updated, 0)
	return &d, nil
}

// GetDocumentContent returns the raw uploaded bytes.
func (s *Store) GetDocumentContent(ctx context.Context, id string) ([]byte, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM documents WHERE id = ?`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document content: %w", err)
	}
	return content, nil
}

func (s *Store) ListDocuments(ctx context.Context, projectID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, filename, format, status, segment_count, created_at, updated_at
		 FROM documents WHERE project_id = ? ORDER BY created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		var created, updated int64
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Filename, &d.Format, &d.Status, &d.SegmentCount, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.CreatedAt = time.Unix(created, 0)
		d.UpdatedAt = time.Unix(updated, 0)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDocumentStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// SaveParse persists one parse atomically: segments, structure metadata and
// the segment count. Any previous parse of the document — metadata, segments
// and stale translations — is invalidated and replaced.
func (s *Store) SaveParse(ctx context.Context, docID string, segments []engine.Segment, meta *engine.StructureMetadata) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"segments", "segment_positions", "translations", "structure_metadata"} {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE document_id = ?`, docID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO segments (document_id, idx, source_text) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare segment insert: %w", err)
	}
	defer stmt.Close()
	for _, seg := range segments {
		if _, err := stmt.ExecContext(ctx, docID, seg.Index, seg.SourceText); err != nil {
			return fmt.Errorf("insert segment %d: %w", seg.Index, err)
		}
	}

	if meta != nil {
		blob, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO structure_metadata (document_id, json, created_at) VALUES (?, ?, ?)`,
			docID, string(blob), time.Now().Unix()); err != nil {
			return fmt.Errorf("insert metadata: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET segment_count = ?, updated_at = ? WHERE id = ?`,
		len(segments), time.Now().Unix(), docID); err != nil {
		return fmt.Errorf("update segment count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit parse: %w", err)
	}
	return nil
}

func (s *Store) ListSegments(ctx context.Context, docID string) ([]engine.Segment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, source_text FROM segments WHERE document_id = ? ORDER BY idx`, docID)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var out []engine.Segment
	for rows.Next() {
		var seg engine.Segment
		if err := rows.Scan(&seg.Index, &seg.SourceText); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}

// LoadMetadata returns the structure metadata of the document's last parse.
func (s *Store) LoadMetadata(ctx context.Context, docID string) (*engine.StructureMetadata, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT json FROM structure_metadata WHERE document_id = ?`, docID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}

	var meta engine.StructureMetadata
	if err := json.Unmarshal([]byte(blob), &meta); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &meta, nil
}

// SaveSegmentPositions replaces the document's page draw positions, keyed by
// segment index. These come from the OCR service for scanned sources and feed
// the overlay renderer.
func (s *Store) SaveSegmentPositions(ctx context.Context, docID string, positions map[uint32][]overlay.Position) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM segment_positions WHERE document_id = ?`, docID); err != nil {
		return fmt.Errorf("clear segment positions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO segment_positions (document_id, segment_index, json) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare position insert: %w", err)
	}
	defer stmt.Close()
	for idx, list := range positions {
		if len(list) == 0 {
			continue
		}
		blob, err := json.Marshal(list)
		if err != nil {
			return fmt.Errorf("marshal positions %d: %w", idx, err)
		}
		if _, err := stmt.ExecContext(ctx, docID, idx, string(blob)); err != nil {
			return fmt.Errorf("insert positions %d: %w", idx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit positions: %w", err)
	}
	return nil
}

// GetSegmentPositions returns the document's draw positions keyed by segment
// index.
func (s *Store) GetSegmentPositions(ctx context.Context, docID string) (map[uint32][]overlay.Position, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT segment_index, json FROM segment_positions WHERE document_id = ?`, docID)
	if err != nil {
		return nil, fmt.Errorf("get segment positions: %w", err)
	}
	defer rows.Close()

	out := make(map[uint32][]overlay.Position)
	for rows.Next() {
		var idx uint32
		var blob string
		if err := rows.Scan(&idx, &blob); err != nil {
			return nil, fmt.Errorf("scan positions: %w", err)
		}
		var list []overlay.Position
		if err := json.Unmarshal([]byte(blob), &list); err != nil {
			return nil, fmt.Errorf("unmarshal positions %d: %w", idx, err)
		}
		out[idx] = list
	}
	return out, rows.Err()
}

// UpsertTranslations writes replacement texts for the given segment indices.
func (s *Store) UpsertTranslations(ctx context.Context, docID string, texts map[uint32]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO translations (document_id, segment_index, text, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(document_id, segment_index) DO UPDATE SET text = excluded.text, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare translation upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for idx, text := range texts {
		if _, err := stmt.ExecContext(ctx, docID, idx, text, now); err != nil {
			return fmt.Errorf("upsert translation %d: %w", idx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit translations: %w", err)
	}
	return nil
}

// GetTranslations returns the document's translations keyed by segment index.
func (s *Store) GetTranslations(ctx context.Context, docID string) (map[uint32]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT segment_index, text FROM translations WHERE document_id = ?`, docID)
	if err != nil {
		return nil, fmt.Errorf("get translations: %w", err)
	}
	defer rows.Close()

	out := make(map[uint32]string)
	for rows.Next() {
		var idx uint32
		var text string
		if err := rows.Scan(&idx, &text); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		out[idx] = text
	}
	return out, rows.Err()
}
