package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/darkcube-team/cuby/internal/chunker"
	"github.com/darkcube-team/cuby/internal/core/domain"
	"github.com/darkcube-team/cuby/internal/core/ports/driven"
	"github.com/darkcube-team/cuby/internal/core/ports/driving"
	"github.com/darkcube-team/cuby/internal/logger"
)

// Ensure KnowledgeEngine implements the interface.
var _ driving.KnowledgeService = (*KnowledgeEngine)(nil)

// KnowledgeEngine ingests documents and answers similarity queries.
// Ingestion is serialized: a second Ingest while one is running waits
// its turn, so the store never interleaves two documents' writes.
type KnowledgeEngine struct {
	store    driven.KnowledgeStore
	embedder driven.EmbeddingService
	splitter *chunker.Splitter
	cfg      domain.Config

	// ingestMu serializes Ingest and Remove, each as one whole
	// ingest-and-persist cycle.
	ingestMu sync.Mutex

	stateMu          sync.RWMutex
	retrievalEnabled bool
}

// NewKnowledgeEngine creates a knowledge engine. The embedder is
// optional; with a nil embedder the engine runs with retrieval disabled
// and commits chunks without vectors.
func NewKnowledgeEngine(
	store driven.KnowledgeStore,
	embedder driven.EmbeddingService,
	cfg domain.Config,
) (*KnowledgeEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	splitter, err := chunker.New(cfg.WindowSize, cfg.Overlap)
	if err != nil {
		return nil, err
	}

	return &KnowledgeEngine{
		store:    store,
		embedder: embedder,
		splitter: splitter,
		cfg:      cfg,
	}, nil
}

// Start loads the store and probes the embedding backend. A corrupt
// store surfaces as a warning and an empty store, never a refusal to
// start. A reachable embedder whose model or dimensions differ from
// what the store recorded triggers a full re-embed; otherwise only
// chunks left without vectors by a previous degraded run are embedded.
func (e *KnowledgeEngine) Start(ctx context.Context) error {
	logger.Section("Knowledge Engine Start")

	if err := e.store.Load(ctx); err != nil {
		if errors.Is(err, domain.ErrStoreCorrupt) {
			logger.Warn("Knowledge store is corrupt, starting empty: %v", err)
		} else {
			return fmt.Errorf("load store: %w", err)
		}
	}

	if e.embedder == nil {
		logger.Warn("No embedding service configured, retrieval disabled")
		e.setRetrievalEnabled(false)
		return nil
	}

	if err := e.embedder.Ping(ctx); err != nil {
		logger.Warn("Embedding backend unavailable, retrieval disabled: %v", err)
		e.setRetrievalEnabled(false)
		return nil
	}
	e.setRetrievalEnabled(true)
	logger.Info("Embedding backend reachable: model=%s dimensions=%d",
		e.embedder.ModelName(), e.embedder.Dimensions())

	if err := e.reconcileEmbeddings(ctx); err != nil {
		// Mid-reconcile backend loss degrades instead of failing start
		if errors.Is(err, domain.ErrModelUnavailable) {
			logger.Warn("Embedding backend lost during re-embed, retrieval disabled: %v", err)
			e.setRetrievalEnabled(false)
			return nil
		}
		return err
	}
	return nil
}

// reconcileEmbeddings brings stored vectors in line with the active
// embedding model.
func (e *KnowledgeEngine) reconcileEmbeddings(ctx context.Context) error {
	info, err := e.store.ModelInfo(ctx)
	if err != nil {
		return fmt.Errorf("read model info: %w", err)
	}

	active := domain.ModelInfo{
		Name:       e.embedder.ModelName(),
		Dimensions: e.embedder.Dimensions(),
	}

	chunks, err := e.store.AllChunks(ctx)
	if err != nil {
		return fmt.Errorf("read chunks: %w", err)
	}

	var stale []domain.Chunk
	if info != (domain.ModelInfo{}) && info != active {
		logger.Warn("Embedding model changed (%s/%d -> %s/%d), re-embedding all chunks",
			info.Name, info.Dimensions, active.Name, active.Dimensions)
		stale = chunks
	} else {
		for _, c := range chunks {
			if !c.Embedded() {
				stale = append(stale, c)
			}
		}
		if len(stale) > 0 {
			logger.Info("Re-embedding %d chunks left without vectors", len(stale))
		}
	}

	if len(stale) > 0 {
		if err := e.reembed(ctx, chunks, stale); err != nil {
			return err
		}
	}

	if err := e.store.SetModelInfo(ctx, active); err != nil {
		return fmt.Errorf("record model info: %w", err)
	}
	return e.store.Persist(ctx)
}

// reembed regenerates vectors for the stale chunks and writes each
// affected document back as a whole.
func (e *KnowledgeEngine) reembed(ctx context.Context, all, stale []domain.Chunk) error {
	texts := make([]string, len(stale))
	for i, c := range stale {
		texts[i] = c.Content
	}

	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("re-embed: %w", err)
	}

	fresh := make(map[string][]float32, len(stale))
	for i, c := range stale {
		fresh[c.ID] = vectors[i]
	}

	byDoc := make(map[string][]domain.Chunk)
	var docOrder []string
	for _, c := range all {
		if v, ok := fresh[c.ID]; ok {
			c.Embedding = v
		}
		if _, seen := byDoc[c.DocumentID]; !seen {
			docOrder = append(docOrder, c.DocumentID)
		}
		byDoc[c.DocumentID] = append(byDoc[c.DocumentID], c)
	}

	for _, docID := range docOrder {
		if err := e.store.ReplaceChunks(ctx, docID, byDoc[docID]); err != nil {
			return fmt.Errorf("write re-embedded chunks for %s: %w", docID, err)
		}
	}
	return nil
}

// Ingest chunks, embeds, and commits a document. Re-ingesting under the
// same name replaces the previous document. If the embedding backend
// drops out mid-ingest the chunks are committed without vectors and
// retrieval is disabled until the next successful start.
func (e *KnowledgeEngine) Ingest(ctx context.Context, text string, meta domain.DocumentMeta) (string, error) {
	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()

	logger.Section("Document Ingestion")
	logger.Debug("Ingesting %q (format=%s)", meta.Name, meta.Format)

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: document %q has no content", domain.ErrInvalidConfig, meta.Name)
	}

	docID, err := e.resolveDocumentID(ctx, meta.Name)
	if err != nil {
		return "", err
	}

	chunks := e.splitter.Split(docID, text)
	logger.Debug("Split into %d chunks (window=%d overlap=%d)",
		len(chunks), e.cfg.WindowSize, e.cfg.Overlap)

	if e.RetrievalEnabled() {
		if err := e.embedChunks(ctx, chunks); err != nil {
			if !errors.Is(err, domain.ErrModelUnavailable) {
				return "", err
			}
			// Commit without vectors; they are regenerated on the next
			// start with a reachable backend.
			logger.Warn("Embedding backend unavailable mid-ingest, committing without vectors: %v", err)
			for i := range chunks {
				chunks[i].Embedding = nil
			}
			e.setRetrievalEnabled(false)
		}
	}

	doc := &domain.Document{
		ID:         docID,
		Name:       meta.Name,
		Format:     meta.Format,
		WordCount:  chunker.WordCount(text),
		IngestedAt: time.Now().UTC(),
	}

	// One atomic commit: a failure here leaves the previous document
	// version fully intact, metadata and chunks alike.
	if err := e.store.CommitDocument(ctx, doc, chunks); err != nil {
		return "", fmt.Errorf("commit document: %w", err)
	}
	if e.embedder != nil && e.RetrievalEnabled() {
		info := domain.ModelInfo{Name: e.embedder.ModelName(), Dimensions: e.embedder.Dimensions()}
		if err := e.store.SetModelInfo(ctx, info); err != nil {
			return "", fmt.Errorf("record model info: %w", err)
		}
	}
	if err := e.store.Persist(ctx); err != nil {
		return "", fmt.Errorf("persist store: %w", err)
	}

	logger.Info("Ingested %q: %d words, %d chunks", meta.Name, doc.WordCount, len(chunks))
	return docID, nil
}

// resolveDocumentID reuses the ID of an existing document with the same
// name so re-ingestion replaces rather than duplicates.
func (e *KnowledgeEngine) resolveDocumentID(ctx context.Context, name string) (string, error) {
	docs, err := e.store.ListDocuments(ctx)
	if err != nil {
		return "", fmt.Errorf("list documents: %w", err)
	}
	for _, d := range docs {
		if d.Name == name {
			logger.Debug("Replacing existing document %s (%s)", d.ID, name)
			return d.ID, nil
		}
	}
	return uuid.New().String(), nil
}

// embedChunks fills in the embedding vector of every chunk, in place.
func (e *KnowledgeEngine) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return nil
}

// Query returns the k most similar chunks in descending score order.
// Ties keep store order: earlier documents first, then earlier chunk
// positions.
func (e *KnowledgeEngine) Query(ctx context.Context, text string, k int) ([]domain.RetrievedChunk, error) {
	if !e.RetrievalEnabled() {
		return nil, fmt.Errorf("%w: retrieval is disabled", domain.ErrModelUnavailable)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return []domain.RetrievedChunk{}, nil
	}
	if k <= 0 {
		k = e.cfg.TopK
	}

	logger.Section("Knowledge Query")
	logger.Debug("Query: %q (k=%d)", text, k)

	vectors, err := e.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	query := vectors[0]

	chunks, err := e.store.AllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chunks: %w", err)
	}

	type scored struct {
		chunk domain.Chunk
		score float64
	}
	candidates := make([]scored, 0, len(chunks))
	for _, c := range chunks {
		if !c.Embedded() || len(c.Embedding) != len(query) {
			continue
		}
		candidates = append(candidates, scored{chunk: c, score: cosineSimilarity(query, c.Embedding)})
	}

	// Stable sort keeps store order for equal scores
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	docs := make(map[string]domain.Document)
	results := make([]domain.RetrievedChunk, 0, len(candidates))
	for _, cand := range candidates {
		doc, ok := docs[cand.chunk.DocumentID]
		if !ok {
			d, err := e.store.GetDocument(ctx, cand.chunk.DocumentID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return nil, fmt.Errorf("get document %s: %w", cand.chunk.DocumentID, err)
			}
			doc = *d
			docs[doc.ID] = doc
		}
		results = append(results, domain.RetrievedChunk{
			Chunk:    cand.chunk,
			Document: doc,
			Score:    cand.score,
		})
	}

	logger.Debug("Query returned %d results", len(results))
	return results, nil
}

// Remove deletes a document and its chunks. Idempotent.
func (e *KnowledgeEngine) Remove(ctx context.Context, documentID string) error {
	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()

	if err := e.store.RemoveDocument(ctx, documentID); err != nil {
		return fmt.Errorf("remove document: %w", err)
	}
	if err := e.store.Persist(ctx); err != nil {
		return fmt.Errorf("persist store: %w", err)
	}
	logger.Info("Removed document %s", documentID)
	return nil
}

// Documents lists the ingested documents.
func (e *KnowledgeEngine) Documents(ctx context.Context) ([]domain.Document, error) {
	return e.store.ListDocuments(ctx)
}

// RetrievalEnabled reports whether similarity queries are available.
func (e *KnowledgeEngine) RetrievalEnabled() bool {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.retrievalEnabled
}

func (e *KnowledgeEngine) setRetrievalEnabled(enabled bool) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.retrievalEnabled = enabled
}

// cosineSimilarity computes the cosine of the angle between two vectors
// of equal length. Zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
