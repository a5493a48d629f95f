// Package index stores embedded chunks and answers nearest-neighbour queries
// by cosine distance.
package index

import (
	"context"
	"strings"

	"bodymind-ai/internal/knowledge"
)

const (
	StatusReady       = "ready"
	StatusEmpty       = "empty"
	StatusUnavailable = "unavailable"
)

// Stats summarises the corpus held by an index.
type Stats struct {
	ChunkCount int    `json:"total_chunks"`
	Status     string `json:"status"`
	Backend    string `json:"backend"`
	Dimension  int    `json:"dimension"`
}

// Index is the vector store used by the retrieval and ingestion paths.
//
// Add embeds the chunks and persists them before making them searchable.
// Search returns at most k hits ordered by ascending distance; hits farther
// than threshold are dropped.
type Index interface {
	Add(ctx context.Context, chunks []knowledge.Chunk) (int, error)
	Search(ctx context.Context, query []float32, k int, threshold knowledge.Distance) ([]knowledge.Hit, error)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) Stats
	Ping(ctx context.Context) error
	Dimension() int
}

func statusFor(count int) string {
	if count == 0 {
		return StatusEmpty
	}
	return StatusReady
}

// embeddable drops chunks that carry no text; providers reject empty input.
func embeddable(chunks []knowledge.Chunk) []knowledge.Chunk {
	out := make([]knowledge.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) != "" {
			out = append(out, c)
		}
	}
	return out
}

func texts(chunks []knowledge.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
