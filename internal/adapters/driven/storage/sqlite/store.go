// Package sqlite provides a SQLite-backed KnowledgeStore.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/darkcube-team/cuby/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/darkcube-team/cuby/internal/core/domain"
	"github.com/darkcube-team/cuby/internal/core/ports/driven"
)

// Ensure KnowledgeStore implements the interface.
var _ driven.KnowledgeStore = (*KnowledgeStore)(nil)

// KnowledgeStore persists documents, chunks, and embeddings in SQLite.
// Every mutation is durable on commit, so Persist is a no-op.
type KnowledgeStore struct {
	db   *sql.DB
	path string
}

// NewKnowledgeStore creates a SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.cuby/knowledge.db.
func NewKnowledgeStore(dataDir string) (*KnowledgeStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".cuby")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "knowledge.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys so removing a document cascades to its chunks
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &KnowledgeStore{db: db, path: dbPath}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *KnowledgeStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *KnowledgeStore) Close() error {
	return s.db.Close()
}

// SaveDocument stores or updates a document record.
func (s *KnowledgeStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, format, word_count, ingested_at, seq)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM documents))
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			format = excluded.format,
			word_count = excluded.word_count,
			ingested_at = excluded.ingested_at
	`, doc.ID, doc.Name, doc.Format, doc.WordCount, doc.IngestedAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// CommitDocument upserts the document and swaps its chunk set inside
// one transaction. A failed commit leaves both untouched.
func (s *KnowledgeStore) CommitDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, name, format, word_count, ingested_at, seq)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM documents))
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			format = excluded.format,
			word_count = excluded.word_count,
			ingested_at = excluded.ingested_at
	`, doc.ID, doc.Name, doc.Format, doc.WordCount, doc.IngestedAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("deleting old chunks: %w", err)
	}
	for i := range chunks {
		c := &chunks[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (id, document_id, position, content, start_off, end_off,
				start_word, end_word, embedding, hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, doc.ID, c.Position, c.Content, c.Start, c.End,
			c.StartWord, c.EndWord, float32SliceToBytes(c.Embedding), c.Hash)
		if err != nil {
			return fmt.Errorf("inserting chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing document: %w", err)
	}
	return nil
}

// ReplaceChunks atomically swaps the chunk set of a document inside one
// transaction.
func (s *KnowledgeStore) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	var exists int
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM documents WHERE id = ?", documentID)
	if err := row.Scan(&exists); err != nil {
		return fmt.Errorf("checking document: %w", err)
	}
	if exists == 0 {
		return domain.ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting old chunks: %w", err)
	}

	for i := range chunks {
		c := &chunks[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (id, document_id, position, content, start_off, end_off,
				start_word, end_word, embedding, hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, documentID, c.Position, c.Content, c.Start, c.End,
			c.StartWord, c.EndWord, float32SliceToBytes(c.Embedding), c.Hash)
		if err != nil {
			return fmt.Errorf("inserting chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

// RemoveDocument removes the document and, via the foreign key cascade,
// all its chunks. Removing an absent document is a no-op.
func (s *KnowledgeStore) RemoveDocument(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", documentID); err != nil {
		return fmt.Errorf("removing document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *KnowledgeStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, format, word_count, ingested_at
		FROM documents WHERE id = ?
	`, id)

	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.Name, &doc.Format, &doc.WordCount, &doc.IngestedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns all documents in insertion order.
func (s *KnowledgeStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, format, word_count, ingested_at
		FROM documents ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Format, &doc.WordCount, &doc.IngestedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// AllChunks returns every chunk in document insertion order then position.
func (s *KnowledgeStore) AllChunks(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.position, c.content, c.start_off, c.end_off,
			c.start_word, c.end_word, c.embedding, c.hash
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		ORDER BY d.seq, c.position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var embedding []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Position, &c.Content, &c.Start, &c.End,
			&c.StartWord, &c.EndWord, &embedding, &c.Hash); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Embedding = bytesToFloat32Slice(embedding)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// ModelInfo returns the recorded embedding model, or a zero value.
func (s *KnowledgeStore) ModelInfo(ctx context.Context) (domain.ModelInfo, error) {
	row := s.db.QueryRowContext(ctx, "SELECT name, dimensions FROM model_info WHERE id = 1")

	var info domain.ModelInfo
	if err := row.Scan(&info.Name, &info.Dimensions); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ModelInfo{}, nil
		}
		return domain.ModelInfo{}, fmt.Errorf("scanning model info: %w", err)
	}
	return info, nil
}

// SetModelInfo records the embedding model for the stored vectors.
func (s *KnowledgeStore) SetModelInfo(ctx context.Context, info domain.ModelInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO model_info (id, name, dimensions) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, dimensions = excluded.dimensions
	`, info.Name, info.Dimensions)
	if err != nil {
		return fmt.Errorf("saving model info: %w", err)
	}
	return nil
}

// Persist is a no-op: SQLite is durable per committed statement.
func (s *KnowledgeStore) Persist(_ context.Context) error {
	return nil
}

// Load is a no-op: the database is opened and migrated at construction.
func (s *KnowledgeStore) Load(_ context.Context) error {
	return nil
}

// migrate applies pending .up.sql migrations in version order.
func (s *KnowledgeStore) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
