package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bodymind-ai/internal/ai"
	"bodymind-ai/internal/index"
	"bodymind-ai/internal/knowledge"
	"bodymind-ai/internal/model"
	"bodymind-ai/internal/repository"
)

var embedAxes = []string{"protein", "calorie", "sleep", "hiit"}

// axisEmbedder counts axis keywords; a small constant keeps vectors non-zero.
type axisEmbedder struct {
	mu     sync.Mutex
	err    error
	failOn string
	calls  int
}

func (e *axisEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		if e.failOn != "" && strings.Contains(lower, e.failOn) {
			return nil, errors.Join(ai.ErrEmbeddingUnavailable, errors.New("provider rejected input"))
		}
		v := make([]float32, len(embedAxes)+1)
		for j, axis := range embedAxes {
			v[j] = float32(strings.Count(lower, axis))
		}
		v[len(embedAxes)] = 0.1
		out[i] = v
	}
	return out, nil
}

func (e *axisEmbedder) Dimension() int { return len(embedAxes) + 1 }

func (e *axisEmbedder) fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func newSQLIndex(t *testing.T, embedder ai.Embedder) *index.SQLIndex {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "kb.db")), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.KnowledgeChunk{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	idx, err := index.NewSQLIndex(context.Background(), repository.NewKnowledgeChunkRepository(db), embedder, "sqlite", embedder.Dimension(), nil)
	require.NoError(t, err)
	return idx
}

type recordingDeferrer struct {
	requests []knowledge.IngestRequest
	err      error
}

func (d *recordingDeferrer) Defer(_ context.Context, req knowledge.IngestRequest) error {
	if d.err != nil {
		return d.err
	}
	d.requests = append(d.requests, req)
	return nil
}

// scriptedGenerator records every request and answers from a fixed script.
type scriptedGenerator struct {
	mu       sync.Mutex
	reply    string
	err      error
	chunks   []string
	requests []generatorCall
}

type generatorCall struct {
	SystemPrompt string
	History      []ai.ChatMessage
	UserMessage  string
}

func (g *scriptedGenerator) Generate(_ context.Context, systemPrompt string, history []ai.ChatMessage, userMessage string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, generatorCall{systemPrompt, append([]ai.ChatMessage(nil), history...), userMessage})
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *scriptedGenerator) GenerateStream(ctx context.Context, systemPrompt string, history []ai.ChatMessage, userMessage string, onChunk func(string) error) (string, error) {
	if _, err := g.Generate(ctx, systemPrompt, history, userMessage); err != nil {
		return "", err
	}
	var full strings.Builder
	for _, c := range g.chunks {
		full.WriteString(c)
		if err := onChunk(c); err != nil {
			return full.String(), err
		}
	}
	return full.String(), nil
}
