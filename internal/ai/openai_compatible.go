package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator produces assistant text from a system prompt, prior turns and
// the new user message.
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, history []ChatMessage, userMessage string) (string, error)
	GenerateStream(ctx context.Context, systemPrompt string, history []ChatMessage, userMessage string, onChunk func(chunk string) error) (string, error)
}

type ChatConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

type OpenAICompatibleClient struct {
	httpClient *http.Client
	cfg        ChatConfig
}

func NewOpenAICompatibleClient(cfg ChatConfig, timeout time.Duration) *OpenAICompatibleClient {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &OpenAICompatibleClient{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}
}

func (c *OpenAICompatibleClient) Enabled() bool {
	return strings.TrimSpace(c.cfg.APIKey) != "" &&
		strings.TrimSpace(c.cfg.BaseURL) != "" &&
		strings.TrimSpace(c.cfg.Model) != ""
}

func (c *OpenAICompatibleClient) Generate(ctx context.Context, systemPrompt string, history []ChatMessage, userMessage string) (string, error) {
	return c.Complete(ctx, BuildMessages(systemPrompt, history, userMessage))
}

func (c *OpenAICompatibleClient) GenerateStream(
	ctx context.Context,
	systemPrompt string,
	history []ChatMessage,
	userMessage string,
	onChunk func(chunk string) error,
) (string, error) {
	return c.StreamComplete(ctx, BuildMessages(systemPrompt, history, userMessage), onChunk)
}

// BuildMessages lays out system prompt, history and user message in the
// order chat-completion APIs expect.
func BuildMessages(systemPrompt string, history []ChatMessage, userMessage string) []ChatMessage {
	messages := make([]ChatMessage, 0, len(history)+2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, ChatMessage{Role: RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, history...)
	messages = append(messages, ChatMessage{Role: RoleUser, Content: userMessage})
	return messages
}

func (c *OpenAICompatibleClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("%w: provider not configured", ErrGenerationUnavailable)
	}

	req, err := c.newRequest(ctx, messages, false)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: llm request failed: %w", ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read llm response failed: %w", ErrGenerationUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: llm response status %d: %s", ErrGenerationUnavailable, resp.StatusCode, truncate(string(raw), 256))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: parse llm json failed: %w", ErrGenerationUnavailable, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty llm choices", ErrGenerationUnavailable)
	}
	return parsed.Choices[0].Message.Content, nil
}

// StreamComplete reads server-sent deltas and hands each to onChunk. An error
// returned by onChunk aborts the stream and is returned unchanged.
func (c *OpenAICompatibleClient) StreamComplete(
	ctx context.Context,
	messages []ChatMessage,
	onChunk func(chunk string) error,
) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("%w: provider not configured", ErrGenerationUnavailable)
	}

	req, err := c.newRequest(ctx, messages, true)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: llm stream request failed: %w", ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: llm stream status %d: %s", ErrGenerationUnavailable, resp.StatusCode, truncate(string(raw), 256))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var full strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		text := chunk.Choices[0].Delta.Content
		if text == "" {
			continue
		}

		full.WriteString(text)
		if onChunk != nil {
			if err := onChunk(text); err != nil {
				return full.String(), err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: scan llm stream failed: %w", ErrGenerationUnavailable, err)
	}
	return full.String(), nil
}

func (c *OpenAICompatibleClient) newRequest(ctx context.Context, messages []ChatMessage, stream bool) (*http.Request, error) {
	reqBody := map[string]interface{}{
		"model":    c.cfg.Model,
		"messages": messages,
		"stream":   stream,
	}
	if c.cfg.Temperature > 0 {
		reqBody["temperature"] = c.cfg.Temperature
	}
	if c.cfg.MaxTokens > 0 {
		reqBody["max_tokens"] = c.cfg.MaxTokens
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal llm request failed: %w", ErrGenerationUnavailable, err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: build llm request failed: %w", ErrGenerationUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	return req, nil
}
