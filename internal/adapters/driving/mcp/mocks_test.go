package mcp

import (
	"context"

	"github.com/darkcube-team/cuby/internal/core/domain"
)

// mockKnowledgeService is a mock implementation of driving.KnowledgeService.
type mockKnowledgeService struct {
	results   []domain.RetrievedChunk
	documents []domain.Document
	enabled   bool
	err       error

	lastQuery string
	lastK     int
}

func (m *mockKnowledgeService) Ingest(_ context.Context, _ string, _ domain.DocumentMeta) (string, error) {
	return "", m.err
}

func (m *mockKnowledgeService) Query(_ context.Context, text string, k int) ([]domain.RetrievedChunk, error) {
	m.lastQuery = text
	m.lastK = k
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockKnowledgeService) Remove(_ context.Context, _ string) error {
	return m.err
}

func (m *mockKnowledgeService) Documents(_ context.Context) ([]domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.documents, nil
}

func (m *mockKnowledgeService) RetrievalEnabled() bool {
	return m.enabled
}
