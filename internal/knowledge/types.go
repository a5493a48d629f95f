// Package knowledge holds the corpus types shared by the ingestion and
// retrieval paths: documents, chunks, distances and retrieval results.
package knowledge

import "time"

// Document is a reference text supplied by an ingestion caller.
// It is immutable once chunked.
type Document struct {
	ID         string    `json:"id"`
	Text       string    `json:"-"`
	Title      string    `json:"title"`
	Source     string    `json:"source"`
	Category   string    `json:"category"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Chunk is a bounded segment of one Document and the unit of storage and retrieval.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Position   int       `json:"position"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"-"`
	Title      string    `json:"title"`
	Source     string    `json:"source"`
	Topic      string    `json:"topic"`
}

// Hit is a chunk matched by a query together with its distance.
type Hit struct {
	Chunk    Chunk    `json:"chunk"`
	Distance Distance `json:"distance"`
}

// RetrievalPath records which lookup produced a RetrievalResult.
type RetrievalPath string

const (
	PathVector   RetrievalPath = "vector"
	PathFallback RetrievalPath = "fallback"
)

// RetrievalResult is recomputed per query and never cached.
type RetrievalResult struct {
	Hits    []Hit         `json:"hits"`
	Sources []string      `json:"sources"`
	Topics  []string      `json:"topics"`
	Path    RetrievalPath `json:"path"`
}

// Empty reports whether the result carries no grounding text.
func (r *RetrievalResult) Empty() bool {
	return r == nil || len(r.Hits) == 0
}

// IngestRequest is the payload accepted on the write path, both directly and
// through the deferred ingestion queue.
type IngestRequest struct {
	Text     string `json:"text"`
	Title    string `json:"title"`
	Source   string `json:"source"`
	Category string `json:"category"`
}
