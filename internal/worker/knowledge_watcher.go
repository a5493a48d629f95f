package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"bodymind-ai/internal/app"
	"bodymind-ai/internal/knowledge"
)

type FileIngester interface {
	IngestPath(ctx context.Context, path string, req knowledge.IngestRequest) (*app.IngestResult, error)
}

// KnowledgeWatcher ingests supported files dropped into a directory. Editors
// write in bursts, so a file is ingested once it has been quiet for settle.
type KnowledgeWatcher struct {
	dir           string
	settle        time.Duration
	ingestOnStart bool
	ingester      FileIngester
	logger        *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewKnowledgeWatcher(dir string, settle time.Duration, ingestOnStart bool, ingester FileIngester, logger *slog.Logger) *KnowledgeWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KnowledgeWatcher{
		dir:           dir,
		settle:        settle,
		ingestOnStart: ingestOnStart,
		ingester:      ingester,
		logger:        logger.With("worker", "knowledge_watcher", "dir", dir),
		pending:       make(map[string]*time.Timer),
	}
}

func (w *KnowledgeWatcher) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create watch dir failed: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher failed: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s failed: %w", w.dir, err)
	}
	w.watcher = watcher

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	if w.ingestOnStart {
		w.scanExisting(watchCtx)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if shouldIngest(event) {
					w.schedule(watchCtx, event.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("file watcher error", "error", err)
			}
		}
	}()

	w.logger.Info("knowledge watcher started")
	return nil
}

func (w *KnowledgeWatcher) scanExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("scan watch dir failed", "error", err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() && eligible(e.Name()) {
			w.schedule(ctx, filepath.Join(w.dir, e.Name()))
		}
	}
}

func shouldIngest(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	if !eligible(filepath.Base(event.Name)) {
		return false
	}
	info, err := os.Stat(event.Name)
	return err == nil && !info.IsDir()
}

func eligible(name string) bool {
	return !strings.HasPrefix(name, ".") && app.SupportedFile(name)
}

// schedule (re)arms the settle timer for path. A timer that already fired
// is replaced rather than reset so each timer runs its callback once.
func (w *KnowledgeWatcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.settle)
		return
	}

	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.ingest(ctx, path)
	})
	w.pending[path] = t
}

func (w *KnowledgeWatcher) ingest(ctx context.Context, path string) {
	result, err := w.ingester.IngestPath(ctx, path, knowledge.IngestRequest{})
	if err != nil {
		w.logger.Error("ingest watched file failed", "path", path, "error", err)
		return
	}
	w.logger.Info("watched file ingested",
		"path", path, "chunks", result.ChunksAdded, "deferred", result.Deferred)
}

func (w *KnowledgeWatcher) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.watcher != nil {
		_ = w.watcher.Close()
	}

	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
}
