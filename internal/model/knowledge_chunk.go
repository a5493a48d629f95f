package model

import (
	"encoding/json"
	"time"

	"bodymind-ai/internal/knowledge"
)

// KnowledgeChunk is the durable row behind one indexed chunk.
// Embedding is stored as JSON array of float32 for portability across dialects.
type KnowledgeChunk struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ChunkID    string    `gorm:"size:64;not null;uniqueIndex" json:"chunk_id"`
	DocumentID string    `gorm:"size:64;not null;index" json:"document_id"`
	Position   int       `gorm:"not null" json:"position"`
	Title      string    `gorm:"size:255" json:"title"`
	Source     string    `gorm:"size:512" json:"source"`
	Topic      string    `gorm:"size:64;index" json:"topic"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Embedding  string    `gorm:"type:text" json:"-"`
	Dimension  int       `gorm:"not null" json:"dimension"`
	CreatedAt  time.Time `json:"created_at"`
}

func (KnowledgeChunk) TableName() string {
	return "knowledge_chunks"
}

// KnowledgeRevision fingerprints the chunk table. Any insert or delete made
// by another process changes at least one field.
type KnowledgeRevision struct {
	Total      int64
	MaxID      int64
	MaxChunkID string
}

// Include folds one stored row into the fingerprint. Total is not touched.
func (r *KnowledgeRevision) Include(row *KnowledgeChunk) {
	if int64(row.ID) > r.MaxID {
		r.MaxID = int64(row.ID)
	}
	if row.ChunkID > r.MaxChunkID {
		r.MaxChunkID = row.ChunkID
	}
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (c *KnowledgeChunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (c *KnowledgeChunk) SetEmbedding(vec []float32) {
	c.Dimension = len(vec)
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}

// NewKnowledgeChunk builds a row from an embedded chunk.
func NewKnowledgeChunk(chunk knowledge.Chunk) KnowledgeChunk {
	row := KnowledgeChunk{
		ChunkID:    chunk.ID,
		DocumentID: chunk.DocumentID,
		Position:   chunk.Position,
		Title:      chunk.Title,
		Source:     chunk.Source,
		Topic:      chunk.Topic,
		Content:    chunk.Text,
	}
	row.SetEmbedding(chunk.Embedding)
	return row
}

// ToChunk converts the row back into a domain chunk.
func (c *KnowledgeChunk) ToChunk() knowledge.Chunk {
	return knowledge.Chunk{
		ID:         c.ChunkID,
		DocumentID: c.DocumentID,
		Position:   c.Position,
		Text:       c.Content,
		Embedding:  c.EmbeddingVector(),
		Title:      c.Title,
		Source:     c.Source,
		Topic:      c.Topic,
	}
}
