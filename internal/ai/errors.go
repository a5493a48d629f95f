package ai

import "errors"

var (
	// ErrEmbeddingUnavailable reports that the embedding provider could not
	// produce vectors: not configured, unreachable, non-2xx, malformed reply
	// or deadline exceeded.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrGenerationUnavailable reports that the generation provider failed to answer.
	ErrGenerationUnavailable = errors.New("generation provider unavailable")
)
