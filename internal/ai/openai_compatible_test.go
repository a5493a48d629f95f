package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAICompatibleClient_Generate(t *testing.T) {
	var got struct {
		Model    string        `json:"model"`
		Messages []ChatMessage `json:"messages"`
		Stream   bool          `json:"stream"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Aim for 1.6 g/kg."}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAICompatibleClient(ChatConfig{BaseURL: srv.URL, APIKey: "k", Model: "qwen"}, time.Second)
	history := []ChatMessage{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}

	reply, err := client.Generate(context.Background(), "You are a coach.", history, "how much protein?")

	require.NoError(t, err)
	assert.Equal(t, "Aim for 1.6 g/kg.", reply)
	assert.Equal(t, "qwen", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, ChatMessage{Role: RoleSystem, Content: "You are a coach."}, got.Messages[0])
	assert.Equal(t, "hi", got.Messages[1].Content)
	assert.Equal(t, ChatMessage{Role: RoleUser, Content: "how much protein?"}, got.Messages[3])
}

func TestOpenAICompatibleClient_GenerateFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewOpenAICompatibleClient(ChatConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"}, time.Second)
	_, err := client.Generate(context.Background(), "", nil, "hi")
	assert.ErrorIs(t, err, ErrGenerationUnavailable)

	unconfigured := NewOpenAICompatibleClient(ChatConfig{}, time.Second)
	_, err = unconfigured.Generate(context.Background(), "", nil, "hi")
	assert.ErrorIs(t, err, ErrGenerationUnavailable)
}

func TestOpenAICompatibleClient_GenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Eat ", "more ", "protein."} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewOpenAICompatibleClient(ChatConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"}, time.Second)

	var parts []string
	full, err := client.GenerateStream(context.Background(), "sys", nil, "hi", func(chunk string) error {
		parts = append(parts, chunk)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "Eat more protein.", full)
	assert.Equal(t, []string{"Eat ", "more ", "protein."}, parts)
}

func TestOpenAICompatibleClient_StreamCallbackErrorStops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n\n")
	}))
	defer srv.Close()

	client := NewOpenAICompatibleClient(ChatConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"}, time.Second)
	stop := errors.New("client gone")

	_, err := client.GenerateStream(context.Background(), "", nil, "hi", func(string) error { return stop })

	assert.ErrorIs(t, err, stop)
	assert.NotErrorIs(t, err, ErrGenerationUnavailable)
}

func TestBuildMessages_SkipsEmptySystemPrompt(t *testing.T) {
	msgs := BuildMessages("  ", nil, "hello")
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.True(t, strings.EqualFold(msgs[0].Content, "hello"))
}
