package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"bodymind-ai/internal/ai"
	"bodymind-ai/internal/knowledge"
)

const pgvectorBackend = "pgvector"

// PgVectorIndex keeps vectors in Postgres and lets the `<=>` operator rank
// them, so the corpus is never loaded into process memory.
type PgVectorIndex struct {
	mu        sync.RWMutex
	pool      *pgxpool.Pool
	embedder  ai.Embedder
	dimension int
	logger    *slog.Logger
}

// NewPgVectorIndex creates the table if needed. The vector column is typed,
// so the dimension must be known up front.
func NewPgVectorIndex(ctx context.Context, pool *pgxpool.Pool, embedder ai.Embedder, dimension int, logger *slog.Logger) (*PgVectorIndex, error) {
	if dimension <= 0 {
		return nil, errors.New("pgvector index requires a positive embedding dimension")
	}
	if logger == nil {
		logger = slog.Default()
	}
	idx := &PgVectorIndex{
		pool:      pool,
		embedder:  embedder,
		dimension: dimension,
		logger:    logger,
	}
	if err := idx.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (p *PgVectorIndex) ensureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS knowledge_chunks (
		id BIGSERIAL PRIMARY KEY,
		chunk_id TEXT NOT NULL UNIQUE,
		document_id TEXT NOT NULL,
		position INT NOT NULL,
		title TEXT,
		source TEXT,
		topic TEXT,
		content TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_knowledge_chunks_document_id ON knowledge_chunks(document_id);
	`, p.dimension)
	if _, err := p.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("%w: create pgvector schema failed: %w", knowledge.ErrIndexUnavailable, err)
	}
	return nil
}

func (p *PgVectorIndex) Add(ctx context.Context, chunks []knowledge.Chunk) (int, error) {
	chunks = embeddable(chunks)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := p.embedder.Embed(ctx, texts(chunks))
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: expected %d embeddings, got %d", ai.ErrEmbeddingUnavailable, len(chunks), len(vectors))
	}
	for i := range vectors {
		if len(vectors[i]) != p.dimension {
			return 0, fmt.Errorf("%w: chunk %d has %d, index expects %d", knowledge.ErrDimensionMismatch, i, len(vectors[i]), p.dimension)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i, c := range chunks {
			batch.Queue(`
				INSERT INTO knowledge_chunks (chunk_id, document_id, position, title, source, topic, content, embedding)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				c.ID, c.DocumentID, c.Position, c.Title, c.Source, c.Topic, c.Text, pgvector.NewVector(vectors[i]),
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return 0, fmt.Errorf("%w: insert chunks failed: %w", knowledge.ErrIndexUnavailable, err)
	}
	return len(chunks), nil
}

func (p *PgVectorIndex) Search(ctx context.Context, query []float32, k int, threshold knowledge.Distance) ([]knowledge.Hit, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}
	if len(query) != p.dimension {
		return nil, fmt.Errorf("%w: query has %d, index expects %d", knowledge.ErrDimensionMismatch, len(query), p.dimension)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	rows, err := p.pool.Query(ctx, `
		SELECT chunk_id, document_id, position, title, source, topic, content,
		       embedding <=> $1 AS distance
		FROM knowledge_chunks
		WHERE embedding <=> $1 <= $2
		ORDER BY distance ASC, id ASC
		LIMIT $3`,
		pgvector.NewVector(query), float64(threshold), k,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: search failed: %w", knowledge.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var hits []knowledge.Hit
	for rows.Next() {
		var (
			hit      knowledge.Hit
			distance float64
		)
		if err := rows.Scan(
			&hit.Chunk.ID,
			&hit.Chunk.DocumentID,
			&hit.Chunk.Position,
			&hit.Chunk.Title,
			&hit.Chunk.Source,
			&hit.Chunk.Topic,
			&hit.Chunk.Text,
			&distance,
		); err != nil {
			return nil, fmt.Errorf("%w: scan hit failed: %w", knowledge.ErrIndexUnavailable, err)
		}
		hit.Distance = knowledge.Distance(distance)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read hits failed: %w", knowledge.ErrIndexUnavailable, err)
	}
	return hits, nil
}

func (p *PgVectorIndex) Clear(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.pool.Exec(ctx, "TRUNCATE knowledge_chunks RESTART IDENTITY"); err != nil {
		return fmt.Errorf("%w: clear failed: %w", knowledge.ErrIndexUnavailable, err)
	}
	return nil
}

func (p *PgVectorIndex) Stats(ctx context.Context) Stats {
	stats := Stats{Backend: pgvectorBackend, Dimension: p.dimension, Status: StatusUnavailable}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var count int
	if err := p.pool.QueryRow(ctx, "SELECT count(*) FROM knowledge_chunks").Scan(&count); err != nil {
		p.logger.Warn("count pgvector chunks failed", "error", err)
		return stats
	}
	stats.ChunkCount = count
	stats.Status = statusFor(count)
	return stats
}

func (p *PgVectorIndex) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", knowledge.ErrIndexUnavailable, err)
	}
	return nil
}

func (p *PgVectorIndex) Dimension() int {
	return p.dimension
}
