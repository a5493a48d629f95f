package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"bodymind-ai/internal/ai"
	"bodymind-ai/internal/index"
	"bodymind-ai/internal/knowledge"
	"bodymind-ai/internal/pkg/pdfextract"
)

const (
	defaultDocumentTitle = "Untitled"
	defaultCategory      = "research"
	maxIngestFileSize    = 10 << 20 // 10 MB
)

// IngestDeferrer queues an ingest request for a later retry when the
// embedding provider is down.
type IngestDeferrer interface {
	Defer(ctx context.Context, req knowledge.IngestRequest) error
}

type IngestResult struct {
	DocumentID  string      `json:"document_id,omitempty"`
	Title       string      `json:"title"`
	ChunksAdded int         `json:"chunks_added"`
	Deferred    bool        `json:"deferred"`
	Stats       index.Stats `json:"stats"`
}

// KnowledgeService owns the write path: chunk, embed, persist.
type KnowledgeService struct {
	chunker  *knowledge.Chunker
	index    index.Index
	deferrer IngestDeferrer
	logger   *slog.Logger
	now      func() time.Time
}

func NewKnowledgeService(chunker *knowledge.Chunker, idx index.Index, deferrer IngestDeferrer, logger *slog.Logger) *KnowledgeService {
	if chunker == nil {
		chunker = knowledge.NewChunker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KnowledgeService{
		chunker:  chunker,
		index:    idx,
		deferrer: deferrer,
		logger:   logger,
		now:      time.Now,
	}
}

// IngestText chunks and indexes one document. When embedding is unavailable
// and a deferrer is configured, the request is queued and Deferred is set.
func (s *KnowledgeService) IngestText(ctx context.Context, req knowledge.IngestRequest) (*IngestResult, error) {
	result, err := s.ingest(ctx, req)
	if err == nil || s.deferrer == nil || !errors.Is(err, ai.ErrEmbeddingUnavailable) {
		return result, err
	}

	if deferErr := s.deferrer.Defer(ctx, normalizeRequest(req)); deferErr != nil {
		s.logger.Error("defer ingestion failed", "title", req.Title, "error", deferErr)
		return nil, err
	}
	s.logger.Warn("embedding unavailable, ingestion deferred", "title", req.Title, "error", err)
	return &IngestResult{
		Title:    normalizeRequest(req).Title,
		Deferred: true,
		Stats:    s.Stats(ctx),
	}, nil
}

// Reingest runs a previously deferred request without deferring it again.
func (s *KnowledgeService) Reingest(ctx context.Context, req knowledge.IngestRequest) (*IngestResult, error) {
	return s.ingest(ctx, req)
}

func (s *KnowledgeService) ingest(ctx context.Context, req knowledge.IngestRequest) (*IngestResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, knowledge.ErrEmptyContent
	}
	if s.index == nil {
		return nil, fmt.Errorf("%w: no index configured", knowledge.ErrIndexUnavailable)
	}

	doc := s.newDocument(req)
	chunks := s.chunker.Split(doc)
	if len(chunks) == 0 {
		return nil, knowledge.ErrEmptyContent
	}

	added, err := s.index.Add(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("index document %q failed: %w", doc.Title, err)
	}
	s.logger.Info("document ingested", "document_id", doc.ID, "title", doc.Title, "chunks", added)

	return &IngestResult{
		DocumentID:  doc.ID,
		Title:       doc.Title,
		ChunksAdded: added,
		Stats:       s.Stats(ctx),
	}, nil
}

func (s *KnowledgeService) newDocument(req knowledge.IngestRequest) knowledge.Document {
	req = normalizeRequest(req)
	return knowledge.Document{
		ID:         uuid.NewString(),
		Text:       req.Text,
		Title:      req.Title,
		Source:     req.Source,
		Category:   req.Category,
		IngestedAt: s.now(),
	}
}

// IngestFile extracts text from a .txt, .md or .pdf upload. Title defaults to
// the file name without extension and Source to the file name.
func (s *KnowledgeService) IngestFile(ctx context.Context, filename string, r io.Reader, req knowledge.IngestRequest) (*IngestResult, error) {
	text, err := ExtractFileText(filename, r)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(filename)
	if strings.TrimSpace(req.Title) == "" {
		req.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if strings.TrimSpace(req.Source) == "" {
		req.Source = base
	}
	req.Text = text
	return s.IngestText(ctx, req)
}

// IngestPath ingests a file from the local filesystem.
func (s *KnowledgeService) IngestPath(ctx context.Context, path string, req knowledge.IngestRequest) (*IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", knowledge.ErrIngestion, path, err)
	}
	defer f.Close()
	if strings.TrimSpace(req.Source) == "" {
		req.Source = path
	}
	return s.IngestFile(ctx, path, f, req)
}

// SupportedFile reports whether the extension can be ingested.
func SupportedFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".pdf":
		return true
	}
	return false
}

// ExtractFileText returns the plain text of a supported file.
func ExtractFileText(filename string, r io.Reader) (string, error) {
	if !SupportedFile(filename) {
		return "", fmt.Errorf("%w: %s", knowledge.ErrUnsupportedFormat, filepath.Ext(filename))
	}

	limited := io.LimitReader(r, maxIngestFileSize+1)
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		text, err := pdfextract.ExtractText(limited)
		if err != nil {
			return "", fmt.Errorf("%w: extract pdf text: %w", knowledge.ErrIngestion, err)
		}
		return text, nil
	}

	raw, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("%w: read file: %w", knowledge.ErrIngestion, err)
	}
	if len(raw) > maxIngestFileSize {
		return "", fmt.Errorf("%w: file larger than %d bytes", knowledge.ErrIngestion, maxIngestFileSize)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: file is not valid UTF-8", knowledge.ErrIngestion)
	}
	return string(raw), nil
}

func (s *KnowledgeService) Stats(ctx context.Context) index.Stats {
	if s.index == nil {
		return index.Stats{Status: index.StatusUnavailable}
	}
	return s.index.Stats(ctx)
}

func (s *KnowledgeService) Clear(ctx context.Context) error {
	if s.index == nil {
		return fmt.Errorf("%w: no index configured", knowledge.ErrIndexUnavailable)
	}
	if err := s.index.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("knowledge index cleared")
	return nil
}

// SeedIfEmpty loads the preset corpus when the index holds no chunks and
// returns the number of documents ingested.
func (s *KnowledgeService) SeedIfEmpty(ctx context.Context) (int, error) {
	stats := s.Stats(ctx)
	if stats.Status == index.StatusUnavailable {
		return 0, fmt.Errorf("%w: cannot seed", knowledge.ErrIndexUnavailable)
	}
	if stats.ChunkCount > 0 {
		return 0, nil
	}
	return s.Seed(ctx)
}

// Seed ingests every preset document unconditionally. All presets go to
// the index in one Add, so a failure leaves none of them behind.
func (s *KnowledgeService) Seed(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, fmt.Errorf("%w: no index configured", knowledge.ErrIndexUnavailable)
	}

	presets := PresetDocuments()
	var chunks []knowledge.Chunk
	for _, req := range presets {
		chunks = append(chunks, s.chunker.Split(s.newDocument(req))...)
	}
	added, err := s.index.Add(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("seed preset knowledge failed: %w", err)
	}
	s.logger.Info("preset knowledge seeded", "documents", len(presets), "chunks", added)
	return len(presets), nil
}

func normalizeRequest(req knowledge.IngestRequest) knowledge.IngestRequest {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		req.Title = defaultDocumentTitle
	}
	req.Source = strings.TrimSpace(req.Source)
	if req.Source == "" {
		req.Source = "manual"
	}
	req.Category = strings.TrimSpace(req.Category)
	if req.Category == "" {
		req.Category = defaultCategory
	}
	return req
}
