package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"bodymind-ai/internal/ai"
	"bodymind-ai/internal/fallback"
	"bodymind-ai/internal/index"
	"bodymind-ai/internal/knowledge"
)

const (
	DefaultTopK                              = 3
	DefaultScoreThreshold knowledge.Distance = 0.7
)

// RetrievalService picks the vector path when it can and the keyword
// fallback otherwise. Provider failures never surface as errors.
type RetrievalService struct {
	index        index.Index
	embedder     ai.Embedder
	matcher      *fallback.Matcher
	queryTimeout time.Duration
	logger       *slog.Logger
}

// NewRetrievalService accepts nil for any collaborator that is not
// configured; a nil embedder or index disables the vector path.
func NewRetrievalService(
	idx index.Index,
	embedder ai.Embedder,
	matcher *fallback.Matcher,
	queryTimeout time.Duration,
	logger *slog.Logger,
) *RetrievalService {
	if queryTimeout <= 0 {
		queryTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalService{
		index:        idx,
		embedder:     embedder,
		matcher:      matcher,
		queryTimeout: queryTimeout,
		logger:       logger,
	}
}

// Retrieve returns nil with no error when neither path has content. The
// only error is the caller's own context being done.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, k int, threshold knowledge.Distance) (*knowledge.RetrievalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if k <= 0 {
		k = DefaultTopK
	}

	if s.vectorReady(ctx) {
		result, err := s.searchVector(ctx, query, k, threshold)
		switch {
		case err != nil:
			s.logger.Warn("vector retrieval failed, using keyword fallback", "error", err)
		case !result.Empty():
			return result, nil
		}
	}

	return s.searchFallback(query), nil
}

func (s *RetrievalService) vectorReady(ctx context.Context) bool {
	if s.index == nil || s.embedder == nil {
		return false
	}
	return s.index.Stats(ctx).Status == index.StatusReady
}

func (s *RetrievalService) searchVector(ctx context.Context, query string, k int, threshold knowledge.Distance) (*knowledge.RetrievalResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, errors.Join(ai.ErrEmbeddingUnavailable, errors.New("no query embedding returned"))
	}

	hits, err := s.index.Search(ctx, vectors[0], k, threshold)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	result := &knowledge.RetrievalResult{Hits: hits, Path: knowledge.PathVector}
	sources := newOrderedSet()
	topics := newOrderedSet()
	for _, h := range hits {
		sources.add(h.Chunk.Title)
		sources.add(h.Chunk.Source)
		topics.add(h.Chunk.Topic)
	}
	result.Sources = sources.items
	result.Topics = topics.items
	return result, nil
}

// FallbackTopics lists the keyword topics in match order; nil when the
// fallback matcher is disabled.
func (s *RetrievalService) FallbackTopics() []fallback.Topic {
	if s.matcher == nil {
		return nil
	}
	return s.matcher.Topics()
}

func (s *RetrievalService) searchFallback(query string) *knowledge.RetrievalResult {
	if s.matcher == nil {
		return nil
	}
	match, ok := s.matcher.Match(query)
	if !ok {
		return nil
	}

	result := &knowledge.RetrievalResult{
		Sources: match.Citations,
		Path:    knowledge.PathFallback,
	}
	for _, t := range match.Topics {
		result.Hits = append(result.Hits, knowledge.Hit{
			Chunk: knowledge.Chunk{
				ID:     "fallback:" + t.Key,
				Text:   t.Content,
				Title:  t.Title,
				Source: strings.Join(withoutTitle(t.Citations, t.Title), ", "),
				Topic:  t.Key,
			},
			Distance: knowledge.NoDistance,
		})
		result.Topics = append(result.Topics, t.Key)
	}
	return result
}

func withoutTitle(citations []string, title string) []string {
	out := make([]string, 0, len(citations))
	for _, c := range citations {
		if c != title {
			out = append(out, c)
		}
	}
	return out
}

// orderedSet deduplicates trimmed, non-empty strings in first-seen order.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (o *orderedSet) add(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	if _, ok := o.seen[v]; ok {
		return
	}
	o.seen[v] = struct{}{}
	o.items = append(o.items, v)
}
