package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bodymind-ai/internal/app"
	"bodymind-ai/internal/knowledge"
)

type recordingIngester struct {
	mu    sync.Mutex
	paths []string
	seen  chan string
}

func newRecordingIngester() *recordingIngester {
	return &recordingIngester{seen: make(chan string, 16)}
}

func (r *recordingIngester) IngestPath(_ context.Context, path string, _ knowledge.IngestRequest) (*app.IngestResult, error) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	r.seen <- path
	return &app.IngestResult{ChunksAdded: 1}, nil
}

func (r *recordingIngester) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

func TestShouldIngest(t *testing.T) {
	dir := t.TempDir()
	write := func(name string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("protein"), 0o600))
		return path
	}
	txt := write("notes.txt")
	hidden := write(".notes.md")
	docx := write("report.docx")
	sub := filepath.Join(dir, "sub.md")
	require.NoError(t, os.Mkdir(sub, 0o755))

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"create txt", fsnotify.Event{Name: txt, Op: fsnotify.Create}, true},
		{"write txt", fsnotify.Event{Name: txt, Op: fsnotify.Write | fsnotify.Chmod}, true},
		{"chmod only", fsnotify.Event{Name: txt, Op: fsnotify.Chmod}, false},
		{"remove", fsnotify.Event{Name: filepath.Join(dir, "gone.txt"), Op: fsnotify.Remove}, false},
		{"hidden", fsnotify.Event{Name: hidden, Op: fsnotify.Create}, false},
		{"unsupported", fsnotify.Event{Name: docx, Op: fsnotify.Create}, false},
		{"directory", fsnotify.Event{Name: sub, Op: fsnotify.Create}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldIngest(tt.event))
		})
	}
}

func TestSchedule_CoalescesBursts(t *testing.T) {
	ingester := newRecordingIngester()
	w := NewKnowledgeWatcher(t.TempDir(), 50*time.Millisecond, false, ingester, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		w.schedule(ctx, "/kb/a.md")
	}
	w.schedule(ctx, "/kb/b.md")

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case p := <-ingester.seen:
			got[p] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for scheduled ingest")
		}
	}
	w.Close()

	assert.Equal(t, map[string]bool{"/kb/a.md": true, "/kb/b.md": true}, got)
	assert.Equal(t, 2, ingester.count())
}

func TestKnowledgeWatcher_IngestsNewFiles(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.txt")
	require.NoError(t, os.WriteFile(existing, []byte("calorie deficit"), 0o600))

	ingester := newRecordingIngester()
	w := NewKnowledgeWatcher(dir, 20*time.Millisecond, true, ingester, nil)
	require.NoError(t, w.Start(context.Background()))
	defer w.Close()

	select {
	case p := <-ingester.seen:
		assert.Equal(t, existing, p)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for startup scan")
	}

	added := filepath.Join(dir, "protein.md")
	require.NoError(t, os.WriteFile(added, []byte("protein intake"), 0o600))

	select {
	case p := <-ingester.seen:
		assert.Equal(t, added, p)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for file change event")
	}
}

func TestKnowledgeWatcher_CloseCancelsPending(t *testing.T) {
	ingester := newRecordingIngester()
	w := NewKnowledgeWatcher(t.TempDir(), time.Hour, false, ingester, nil)
	w.schedule(context.Background(), "/kb/slow.md")

	w.Close()
	assert.Zero(t, ingester.count())
}
