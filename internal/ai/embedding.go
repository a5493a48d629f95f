package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultEmbeddingBatchSize = 16

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the configured vector size, or 0 when the provider decides.
	Dimension() int
}

// EmbeddingConfig holds API settings for text-embedding (OpenAI-compatible).
type EmbeddingConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	BatchSize int
}

// EmbeddingClient calls an OpenAI-compatible /embeddings endpoint.
type EmbeddingClient struct {
	httpClient *http.Client
	cfg        EmbeddingConfig
}

func NewEmbeddingClient(cfg EmbeddingConfig, timeout time.Duration) *EmbeddingClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultEmbeddingBatchSize
	}
	return &EmbeddingClient{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}
}

// Enabled reports whether the client has enough settings to call the provider.
func (c *EmbeddingClient) Enabled() bool {
	return strings.TrimSpace(c.cfg.APIKey) != "" &&
		strings.TrimSpace(c.cfg.BaseURL) != "" &&
		strings.TrimSpace(c.cfg.Model) != ""
}

func (c *EmbeddingClient) Dimension() int {
	return c.cfg.Dimension
}

// Embed returns one vector per text. Texts are sent in batches of
// cfg.BatchSize; every failure wraps ErrEmbeddingUnavailable.
func (c *EmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: provider not configured", ErrEmbeddingUnavailable)
	}

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		result = append(result, vectors...)
	}
	return result, nil
}

func (c *EmbeddingClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"model": c.cfg.Model,
		"input": texts,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal embedding request failed: %w", ErrEmbeddingUnavailable, err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: build embedding request failed: %w", ErrEmbeddingUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding request failed: %w", ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read embedding response failed: %w", ErrEmbeddingUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: embedding response status %d: %s", ErrEmbeddingUnavailable, resp.StatusCode, truncate(string(raw), 256))
	}

	var parsed struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse embedding json failed: %w", ErrEmbeddingUnavailable, err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingUnavailable, len(texts), len(parsed.Data))
	}

	// Providers may answer out of order; place each vector by its index.
	result := make([][]float32, len(texts))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(texts) || result[item.Index] != nil {
			return nil, fmt.Errorf("%w: invalid embedding index %d", ErrEmbeddingUnavailable, item.Index)
		}
		if len(item.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", ErrEmbeddingUnavailable, item.Index)
		}
		result[item.Index] = item.Embedding
	}
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
