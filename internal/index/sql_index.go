package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"bodymind-ai/internal/ai"
	"bodymind-ai/internal/knowledge"
	"bodymind-ai/internal/model"
)

// ChunkStore is the durable side of SQLIndex.
type ChunkStore interface {
	CreateBatch(ctx context.Context, chunks []model.KnowledgeChunk) error
	ListAll(ctx context.Context) ([]model.KnowledgeChunk, error)
	DeleteAll(ctx context.Context) error
	Revision(ctx context.Context) (model.KnowledgeRevision, error)
	Ping(ctx context.Context) error
}

// SQLIndex keeps every chunk vector in memory and mirrors it to a gorm
// store. Searches are brute force over the in-memory view, which is reloaded
// whenever the store revision differs from the one last seen, so writes from
// another process (kbctl) become visible.
type SQLIndex struct {
	mu         sync.RWMutex
	store      ChunkStore
	embedder   ai.Embedder
	backend    string
	configured int
	dimension  int
	chunks     []knowledge.Chunk
	revision   model.KnowledgeRevision
	logger     *slog.Logger
}

// NewSQLIndex loads all persisted chunks. A dimension of 0 adopts the size
// of the first stored or added vector.
func NewSQLIndex(ctx context.Context, store ChunkStore, embedder ai.Embedder, backend string, dimension int, logger *slog.Logger) (*SQLIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx := &SQLIndex{
		store:      store,
		embedder:   embedder,
		backend:    backend,
		configured: dimension,
		dimension:  dimension,
		logger:     logger,
	}
	if err := idx.reload(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (s *SQLIndex) reload(ctx context.Context) error {
	rows, err := s.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", knowledge.ErrIndexUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = make([]knowledge.Chunk, 0, len(rows))
	s.dimension = s.configured
	s.revision = model.KnowledgeRevision{Total: int64(len(rows))}
	skipped := 0
	for i := range rows {
		s.revision.Include(&rows[i])
		chunk := rows[i].ToChunk()
		if len(chunk.Embedding) == 0 {
			skipped++
			continue
		}
		if s.dimension == 0 {
			s.dimension = len(chunk.Embedding)
		}
		if len(chunk.Embedding) != s.dimension {
			skipped++
			continue
		}
		s.chunks = append(s.chunks, chunk)
	}
	if skipped > 0 {
		s.logger.Warn("skipped stored chunks with unusable embeddings",
			"skipped", skipped, "dimension", s.dimension)
	}
	s.logger.Info("knowledge index loaded", "backend", s.backend, "chunks", len(s.chunks), "dimension", s.dimension)
	return nil
}

func (s *SQLIndex) Add(ctx context.Context, chunks []knowledge.Chunk) (int, error) {
	chunks = embeddable(chunks)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := s.embedder.Embed(ctx, texts(chunks))
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: expected %d embeddings, got %d", ai.ErrEmbeddingUnavailable, len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimension
	if dim == 0 {
		dim = len(vectors[0])
	}
	rows := make([]model.KnowledgeChunk, len(chunks))
	for i := range chunks {
		if len(vectors[i]) != dim {
			return 0, fmt.Errorf("%w: chunk %d has %d, index expects %d", knowledge.ErrDimensionMismatch, i, len(vectors[i]), dim)
		}
		chunks[i].Embedding = vectors[i]
		rows[i] = model.NewKnowledgeChunk(chunks[i])
	}

	if err := s.store.CreateBatch(ctx, rows); err != nil {
		return 0, fmt.Errorf("%w: %w", knowledge.ErrIndexUnavailable, err)
	}
	s.dimension = dim
	s.chunks = append(s.chunks, chunks...)
	// Rows written elsewhere since the last sync leave this short of the
	// store revision, which forces a reload on the next read.
	s.revision.Total += int64(len(rows))
	for i := range rows {
		s.revision.Include(&rows[i])
	}
	return len(chunks), nil
}

// refresh reloads the in-memory view when the store changed underneath it.
func (s *SQLIndex) refresh(ctx context.Context) error {
	rev, err := s.store.Revision(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", knowledge.ErrIndexUnavailable, err)
	}
	s.mu.RLock()
	current := s.revision
	s.mu.RUnlock()
	if rev == current {
		return nil
	}
	s.logger.Info("knowledge store changed, reloading index", "stored_chunks", rev.Total)
	return s.reload(ctx)
}

func (s *SQLIndex) Search(ctx context.Context, query []float32, k int, threshold knowledge.Distance) ([]knowledge.Hit, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 {
		return nil, nil
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d, index expects %d", knowledge.ErrDimensionMismatch, len(query), s.dimension)
	}

	hits := make([]knowledge.Hit, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		d := knowledge.CosineDistance(query, chunk.Embedding)
		if !d.Within(threshold) {
			continue
		}
		chunk.Embedding = nil
		hits = append(hits, knowledge.Hit{Chunk: chunk, Distance: d})
	}
	// Stable sort keeps insertion order among equal distances.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *SQLIndex) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("%w: %w", knowledge.ErrIndexUnavailable, err)
	}
	s.chunks = nil
	s.dimension = s.configured
	s.revision = model.KnowledgeRevision{}
	return nil
}

func (s *SQLIndex) Stats(ctx context.Context) Stats {
	refreshErr := s.refresh(ctx)

	s.mu.RLock()
	count := len(s.chunks)
	dim := s.dimension
	s.mu.RUnlock()

	stats := Stats{ChunkCount: count, Backend: s.backend, Dimension: dim, Status: statusFor(count)}
	if refreshErr != nil {
		stats.Status = StatusUnavailable
	}
	return stats
}

func (s *SQLIndex) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", knowledge.ErrIndexUnavailable, err)
	}
	return nil
}

func (s *SQLIndex) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}
