package cli

import (
	"context"
	"time"

	"github.com/darkcube-team/cuby/internal/core/domain"
	"github.com/darkcube-team/cuby/internal/core/ports/driving"
)

// mockKnowledgeService is a mock implementation of driving.KnowledgeService.
type mockKnowledgeService struct {
	results   []domain.RetrievedChunk
	documents []domain.Document
	enabled   bool
	err       error

	lastIngestText string
	lastIngestMeta domain.DocumentMeta
	lastRemoved    string
	lastQuery      string
	lastK          int
}

func (m *mockKnowledgeService) Ingest(_ context.Context, text string, meta domain.DocumentMeta) (string, error) {
	m.lastIngestText = text
	m.lastIngestMeta = meta
	if m.err != nil {
		return "", m.err
	}
	return "doc-new", nil
}

func (m *mockKnowledgeService) Query(_ context.Context, text string, k int) ([]domain.RetrievedChunk, error) {
	m.lastQuery = text
	m.lastK = k
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockKnowledgeService) Remove(_ context.Context, id string) error {
	m.lastRemoved = id
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

// mockSessionController is a mock implementation of driving.SessionController.
// Events are pre-loaded; the channel is closed as soon as the session starts.
type mockSessionController struct {
	events   []domain.SessionEvent
	startErr error
	state    domain.SessionState

	ch chan domain.SessionEvent
}

func (m *mockSessionController) Start(_ context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.ch = make(chan domain.SessionEvent, len(m.events)+1)
	for _, ev := range m.events {
		m.ch <- ev
	}
	close(m.ch)
	if m.state == "" {
		m.state = domain.StateClosed
	}
	return nil
}

func (m *mockSessionController) Stop(_ context.Context) error { return nil }

func (m *mockSessionController) SubmitText(_ context.Context, _ string) error { return nil }

func (m *mockSessionController) Events() <-chan domain.SessionEvent { return m.ch }

func (m *mockSessionController) State() domain.SessionState { return m.state }

// setupTestServices swaps the package-level services for mocks and
// returns the mock plus a cleanup restoring the originals.
func setupTestServices() (*mockKnowledgeService, func()) {
	prevKnowledge := knowledgeService
	prevSession := newSession

	mock := &mockKnowledgeService{
		enabled: true,
		results: []domain.RetrievedChunk{
			{
				Chunk:    domain.Chunk{ID: "chunk-1", DocumentID: "doc-1", Position: 0, Content: "alpha beta gamma"},
				Document: domain.Document{ID: "doc-1", Name: "notes.txt"},
				Score:    0.91,
			},
		},
		documents: []domain.Document{
			{ID: "doc-1", Name: "notes.txt", Format: "txt", WordCount: 120,
				IngestedAt: time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)},
		},
	}
	knowledgeService = mock

	return mock, func() {
		knowledgeService = prevKnowledge
		newSession = prevSession
	}
}

func setupTestSession(mock *mockSessionController) func() {
	prev := newSession
	newSession = func(_ context.Context, _ SessionOptions) (driving.SessionController, error) {
		return mock, nil
	}
	return func() {
		newSession = prev
	}
}
