package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/darkcube-team/cuby/internal/core/domain"
	"github.com/darkcube-team/cuby/internal/core/ports/driving"
	"github.com/darkcube-team/cuby/internal/extract"
	"github.com/darkcube-team/cuby/internal/logger"
)

// DefaultDebounce coalesces rapid editor write bursts into one ingest.
const DefaultDebounce = 500 * time.Millisecond

// DirectoryWatcher keeps the knowledge store in sync with a directory
// of plain-text files: new and changed files are re-ingested, deleted
// files are removed.
type DirectoryWatcher struct {
	knowledge driving.KnowledgeService
	dir       string
	debounce  time.Duration

	watcher *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewDirectoryWatcher creates a watcher over dir. debounce of 0 uses
// DefaultDebounce.
func NewDirectoryWatcher(knowledge driving.KnowledgeService, dir string, debounce time.Duration) (*DirectoryWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("knowledge directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidConfig, dir)
	}

	return &DirectoryWatcher{
		knowledge: knowledge,
		dir:       dir,
		debounce:  debounce,
		timers:    make(map[string]*time.Timer),
		done:      make(chan struct{}),
	}, nil
}

// Start ingests the directory's current contents, then watches for
// changes until Close.
func (w *DirectoryWatcher) Start() error {
	logger.Section("Knowledge Directory Watch")
	logger.Debug("Watching %s", w.dir)

	if err := w.syncExisting(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close() //nolint:errcheck
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.watcher = watcher

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Close stops watching. Pending debounced ingests are cancelled.
func (w *DirectoryWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		if w.watcher != nil {
			err = w.watcher.Close()
		}
		w.wg.Wait()

		w.mu.Lock()
		for _, t := range w.timers {
			t.Stop()
		}
		w.mu.Unlock()
	})
	return err
}

// syncExisting ingests every watchable file already in the directory.
func (w *DirectoryWatcher) syncExisting() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if w.watchable(path) {
			w.ingestFile(path)
		}
	}
	return nil
}

func (w *DirectoryWatcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watch error: %v", err)
		}
	}
}

func (w *DirectoryWatcher) handleEvent(ev fsnotify.Event) {
	if !w.watchable(ev.Name) {
		return
	}

	switch {
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.cancelPending(ev.Name)
		w.removeFile(ev.Name)

	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		w.scheduleIngest(ev.Name)
	}
}

// scheduleIngest (re)arms the per-path debounce timer.
func (w *DirectoryWatcher) scheduleIngest(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}
		w.ingestFile(path)
	})
}

func (w *DirectoryWatcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *DirectoryWatcher) ingestFile(path string) {
	if !w.watchable(path) {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// The file may be gone again already
		logger.Warn("Read %s: %v", path, err)
		return
	}
	text, format := extract.File(path, data)
	if text == "" {
		return
	}

	meta := domain.DocumentMeta{Name: filepath.Base(path), Format: format}
	if _, err := w.knowledge.Ingest(context.Background(), text, meta); err != nil {
		logger.Warn("Ingest %s: %v", meta.Name, err)
		return
	}
	logger.Info("Ingested %s from watch directory", meta.Name)
}

func (w *DirectoryWatcher) removeFile(path string) {
	name := filepath.Base(path)

	docs, err := w.knowledge.Documents(context.Background())
	if err != nil {
		logger.Warn("List documents: %v", err)
		return
	}
	for _, d := range docs {
		if d.Name == name {
			if err := w.knowledge.Remove(context.Background(), d.ID); err != nil {
				logger.Warn("Remove %s: %v", name, err)
			} else {
				logger.Info("Removed %s after deletion from watch directory", name)
			}
			return
		}
	}
}

// watchable reports whether a path should be synced. Hidden files and
// unrecognised extensions are skipped.
func (w *DirectoryWatcher) watchable(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return extract.Supported(path)
}
