// Package memory provides an in-memory KnowledgeStore, used in tests and
// as the working set behind the file-backed store.
package memory

import (
	"context"
	"sync"

	"github.com/darkcube-team/cuby/internal/core/domain"
	"github.com/darkcube-team/cuby/internal/core/ports/driven"
)

// Ensure KnowledgeStore implements the interface.
var _ driven.KnowledgeStore = (*KnowledgeStore)(nil)

// KnowledgeStore is an in-memory implementation of driven.KnowledgeStore.
// All reads return copies so callers observe a consistent snapshot.
type KnowledgeStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	order     []string // document IDs in insertion order
	chunks    map[string][]domain.Chunk
	model     domain.ModelInfo
}

// NewKnowledgeStore creates a new in-memory knowledge store.
func NewKnowledgeStore() *KnowledgeStore {
	return &KnowledgeStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// SaveDocument stores or updates a document record.
func (s *KnowledgeStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[doc.ID]; !exists {
		s.order = append(s.order, doc.ID)
	}
	s.documents[doc.ID] = *doc
	return nil
}

// CommitDocument stores the document and its chunk set under one lock.
func (s *KnowledgeStore) CommitDocument(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[doc.ID]; !exists {
		s.order = append(s.order, doc.ID)
	}
	s.documents[doc.ID] = *doc
	s.chunks[doc.ID] = append([]domain.Chunk(nil), chunks...)
	return nil
}

// ReplaceChunks atomically swaps the chunk set of a document.
func (s *KnowledgeStore) ReplaceChunks(_ context.Context, documentID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[documentID]; !exists {
		return domain.ErrNotFound
	}
	s.chunks[documentID] = append([]domain.Chunk(nil), chunks...)
	return nil
}

// RemoveDocument removes the document and all its chunks. No-op if absent.
func (s *KnowledgeStore) RemoveDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[documentID]; !exists {
		return nil
	}
	delete(s.documents, documentID)
	delete(s.chunks, documentID)
	for i, id := range s.order {
		if id == documentID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *KnowledgeStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments returns all documents in insertion order.
func (s *KnowledgeStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.order))
	for _, id := range s.order {
		docs = append(docs, s.documents[id])
	}
	return docs, nil
}

// AllChunks returns a snapshot of every chunk in document insertion order
// then chunk position.
func (s *KnowledgeStore) AllChunks(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []domain.Chunk
	for _, id := range s.order {
		all = append(all, s.chunks[id]...)
	}
	return all, nil
}

// ModelInfo returns the recorded embedding model.
func (s *KnowledgeStore) ModelInfo(_ context.Context) (domain.ModelInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model, nil
}

// SetModelInfo records the embedding model for the stored vectors.
func (s *KnowledgeStore) SetModelInfo(_ context.Context, info domain.ModelInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = info
	return nil
}

// Persist is a no-op: the store has no durable backing.
func (s *KnowledgeStore) Persist(_ context.Context) error {
	return nil
}

// Load is a no-op: the store starts empty.
func (s *KnowledgeStore) Load(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *KnowledgeStore) Close() error {
	return nil
}
