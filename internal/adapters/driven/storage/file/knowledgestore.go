// Package file provides a JSON-snapshot KnowledgeStore. The whole store
// lives in one file; Persist writes a fresh temp file and renames it over
// the old one, so a crash mid-write never corrupts the durable state.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/darkcube-team/cuby/internal/adapters/driven/storage/memory"
	"github.com/darkcube-team/cuby/internal/core/domain"
	"github.com/darkcube-team/cuby/internal/core/ports/driven"
)

// Ensure KnowledgeStore implements the interface.
var _ driven.KnowledgeStore = (*KnowledgeStore)(nil)

// DefaultFileName is the store file name inside the data directory.
const DefaultFileName = "knowledge.json"

// KnowledgeStore keeps the working set in memory and snapshots it to a
// single JSON file on Persist.
type KnowledgeStore struct {
	*memory.KnowledgeStore
	path string
}

// snapshot is the serialized store layout.
type snapshot struct {
	Model     modelJSON      `json:"model"`
	Documents []documentJSON `json:"documents"`
}

type modelJSON struct {
	Name       string `json:"name"`
	Dimensions int    `json:"dimensions"`
}

type documentJSON struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Format     string      `json:"format"`
	WordCount  int         `json:"word_count"`
	IngestedAt time.Time   `json:"ingested_at"`
	Chunks     []chunkJSON `json:"chunks"`
}

type chunkJSON struct {
	ID        string    `json:"id"`
	Position  int       `json:"position"`
	Content   string    `json:"content"`
	Start     int       `json:"start"`
	End       int       `json:"end"`
	StartWord int       `json:"start_word"`
	EndWord   int       `json:"end_word"`
	Embedding []float32 `json:"embedding,omitempty"`
	Hash      string    `json:"hash"`
}

// NewKnowledgeStore creates a store backed by the given file path.
// If dataDir is empty, defaults to ~/.cuby/knowledge.json. The parent
// directory is created; the file itself is not touched until Persist.
func NewKnowledgeStore(path string) (*KnowledgeStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".cuby", DefaultFileName)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &KnowledgeStore{
		KnowledgeStore: memory.NewKnowledgeStore(),
		path:           path,
	}, nil
}

// Path returns the store file path.
func (s *KnowledgeStore) Path() string {
	return s.path
}

// Persist writes the full store to a temp file in the same directory and
// renames it over the target path.
func (s *KnowledgeStore) Persist(ctx context.Context) error {
	snap, err := s.buildSnapshot(ctx)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), DefaultFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

// Load reads the snapshot file into the working set. A missing file
// yields an empty store and nil; an unreadable one yields an empty store
// and domain.ErrStoreCorrupt so the caller can warn instead of crash.
func (s *KnowledgeStore) Load(ctx context.Context) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", domain.ErrStoreCorrupt, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreCorrupt, err)
	}

	for i := range snap.Documents {
		d := &snap.Documents[i]
		doc := domain.Document{
			ID:         d.ID,
			Name:       d.Name,
			Format:     d.Format,
			WordCount:  d.WordCount,
			IngestedAt: d.IngestedAt,
		}
		if err := s.SaveDocument(ctx, &doc); err != nil {
			return err
		}

		chunks := make([]domain.Chunk, len(d.Chunks))
		for j, c := range d.Chunks {
			chunks[j] = domain.Chunk{
				ID:         c.ID,
				DocumentID: d.ID,
				Position:   c.Position,
				Content:    c.Content,
				Start:      c.Start,
				End:        c.End,
				StartWord:  c.StartWord,
				EndWord:    c.EndWord,
				Embedding:  c.Embedding,
				Hash:       c.Hash,
			}
		}
		if err := s.ReplaceChunks(ctx, d.ID, chunks); err != nil {
			return err
		}
	}

	return s.SetModelInfo(ctx, domain.ModelInfo{
		Name:       snap.Model.Name,
		Dimensions: snap.Model.Dimensions,
	})
}

func (s *KnowledgeStore) buildSnapshot(ctx context.Context) (*snapshot, error) {
	docs, err := s.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.AllChunks(ctx)
	if err != nil {
		return nil, err
	}
	model, err := s.ModelInfo(ctx)
	if err != nil {
		return nil, err
	}

	byDoc := make(map[string][]chunkJSON, len(docs))
	for _, c := range all {
		byDoc[c.DocumentID] = append(byDoc[c.DocumentID], chunkJSON{
			ID:        c.ID,
			Position:  c.Position,
			Content:   c.Content,
			Start:     c.Start,
			End:       c.End,
			StartWord: c.StartWord,
			EndWord:   c.EndWord,
			Embedding: c.Embedding,
			Hash:      c.Hash,
		})
	}

	snap := &snapshot{
		Model:     modelJSON{Name: model.Name, Dimensions: model.Dimensions},
		Documents: make([]documentJSON, 0, len(docs)),
	}
	for _, d := range docs {
		snap.Documents = append(snap.Documents, documentJSON{
			ID:         d.ID,
			Name:       d.Name,
			Format:     d.Format,
			WordCount:  d.WordCount,
			IngestedAt: d.IngestedAt,
			Chunks:     byDoc[d.ID],
		})
	}
	return snap, nil
}
