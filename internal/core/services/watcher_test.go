package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkcube-team/cuby/internal/core/domain"
)

// recordingKnowledge implements driving.KnowledgeService and records
// ingests and removals.
type recordingKnowledge struct {
	mu      sync.Mutex
	ingests map[string]string // name -> text
	ids     map[string]string // name -> id
	removed []string
}

func newRecordingKnowledge() *recordingKnowledge {
	return &recordingKnowledge{
		ingests: make(map[string]string),
		ids:     make(map[string]string),
	}
}

func (r *recordingKnowledge) Ingest(_ context.Context, text string, meta domain.DocumentMeta) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingests[meta.Name] = text
	if _, ok := r.ids[meta.Name]; !ok {
		r.ids[meta.Name] = uuid.New().String()
	}
	return r.ids[meta.Name], nil
}

func (r *recordingKnowledge) Query(_ context.Context, _ string, _ int) ([]domain.RetrievedChunk, error) {
	return nil, nil
}

func (r *recordingKnowledge) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, id)
	return nil
}

func (r *recordingKnowledge) Documents(_ context.Context) ([]domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var docs []domain.Document
	for name, id := range r.ids {
		docs = append(docs, domain.Document{ID: id, Name: name})
	}
	return docs, nil
}

func (r *recordingKnowledge) RetrievalEnabled() bool { return true }

func (r *recordingKnowledge) ingestedText(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	text, ok := r.ingests[name]
	return text, ok
}

func startWatcher(t *testing.T, knowledge *recordingKnowledge, dir string) *DirectoryWatcher {
	t.Helper()
	w, err := NewDirectoryWatcher(knowledge, dir, 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { w.Close() })
	return w
}

func TestWatcherIngestsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("existing notes"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.pdf"), []byte("binary"), 0644))

	knowledge := newRecordingKnowledge()
	startWatcher(t, knowledge, dir)

	text, ok := knowledge.ingestedText("notes.txt")
	require.True(t, ok)
	assert.Equal(t, "existing notes", text)

	_, ok = knowledge.ingestedText("ignored.pdf")
	assert.False(t, ok)
}

func TestWatcherIngestsNewFile(t *testing.T) {
	dir := t.TempDir()
	knowledge := newRecordingKnowledge()
	startWatcher(t, knowledge, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.md"), []byte("# fresh content"), 0644))

	waitFor(t, func() bool {
		_, ok := knowledge.ingestedText("new.md")
		return ok
	})
}

func TestWatcherExtractsMarkup(t *testing.T) {
	dir := t.TempDir()
	knowledge := newRecordingKnowledge()
	startWatcher(t, knowledge, dir)

	html := "<html><body><p>billing policy</p></body></html>"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "policy.html"), []byte(html), 0644))

	waitFor(t, func() bool {
		text, ok := knowledge.ingestedText("policy.html")
		return ok && text == "billing policy"
	})
}

func TestWatcherDebouncesWriteBursts(t *testing.T) {
	dir := t.TempDir()
	knowledge := newRecordingKnowledge()
	startWatcher(t, knowledge, dir)

	path := filepath.Join(dir, "draft.txt")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("draft v"+string(rune('0'+i))), 0644))
		time.Sleep(5 * time.Millisecond)
	}

	waitFor(t, func() bool {
		text, ok := knowledge.ingestedText("draft.txt")
		return ok && text == "draft v4"
	})
}

func TestWatcherRemovesDeletedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")
	require.NoError(t, os.WriteFile(path, []byte("soon gone"), 0644))

	knowledge := newRecordingKnowledge()
	startWatcher(t, knowledge, dir)

	_, ok := knowledge.ingestedText("gone.txt")
	require.True(t, ok)

	require.NoError(t, os.Remove(path))

	waitFor(t, func() bool {
		knowledge.mu.Lock()
		defer knowledge.mu.Unlock()
		return len(knowledge.removed) == 1
	})
}

func TestWatcherSkipsHiddenAndEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.txt"), []byte("secret"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), []byte("   \n"), 0644))

	knowledge := newRecordingKnowledge()
	startWatcher(t, knowledge, dir)

	knowledge.mu.Lock()
	defer knowledge.mu.Unlock()
	assert.Empty(t, knowledge.ingests)
}

func TestWatcherRejectsMissingDirectory(t *testing.T) {
	_, err := NewDirectoryWatcher(newRecordingKnowledge(), "/does/not/exist", 0)
	assert.Error(t, err)
}
