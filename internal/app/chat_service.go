package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"bodymind-ai/internal/ai"
	"bodymind-ai/internal/knowledge"
	"bodymind-ai/internal/memory"
	"bodymind-ai/internal/prompt"
)

const (
	// DegradedReply is returned in place of model output when generation fails.
	DegradedReply = "I'm sorry, I can't process your request right now. Please try again later."
	emptyReply    = "The model returned an empty response."
)

type ChatConfig struct {
	TopK              int
	ScoreThreshold    knowledge.Distance
	GenerationTimeout time.Duration
}

type ChatService struct {
	retrieval *RetrievalService
	memory    memory.Store
	composer  *prompt.Composer
	generator ai.Generator
	cfg       ChatConfig
	logger    *slog.Logger
	now       func() time.Time
}

type SendInput struct {
	SessionID string
	Message   string
	Profile   *prompt.UserProfile
}

type Reply struct {
	SessionID     string                  `json:"session_id"`
	Response      string                  `json:"response"`
	Sources       []string                `json:"sources"`
	Topics        []string                `json:"topics"`
	RAGDocsFound  int                     `json:"rag_docs_found"`
	RetrievalPath knowledge.RetrievalPath `json:"retrieval_path,omitempty"`
	Degraded      bool                    `json:"degraded"`
	Timestamp     time.Time               `json:"timestamp"`
}

func NewChatService(
	retrieval *RetrievalService,
	store memory.Store,
	composer *prompt.Composer,
	generator ai.Generator,
	cfg ChatConfig,
	logger *slog.Logger,
) *ChatService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = DefaultScoreThreshold
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 60 * time.Second
	}
	if store == nil {
		store = memory.NewLocalStore(memory.DefaultMaxTurns)
	}
	if composer == nil {
		composer = prompt.NewComposer("", 0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		retrieval: retrieval,
		memory:    store,
		composer:  composer,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Send runs one conversational turn. Generation failures produce a degraded
// reply instead of an error; both turns are still recorded.
func (s *ChatService) Send(ctx context.Context, in SendInput) (*Reply, error) {
	return s.turn(ctx, in, nil)
}

// Stream is Send with generator deltas forwarded to onChunk as they arrive.
// An error returned by onChunk aborts the turn without recording it.
func (s *ChatService) Stream(ctx context.Context, in SendInput, onChunk func(string) error) (*Reply, error) {
	if onChunk == nil {
		onChunk = func(string) error { return nil }
	}
	return s.turn(ctx, in, onChunk)
}

func (s *ChatService) ClearSession(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrInvalidInput
	}
	return s.memory.Clear(ctx, sessionID)
}

// ClearAllSessions drops every conversation held by the memory store.
func (s *ChatService) ClearAllSessions(ctx context.Context) error {
	return s.memory.ClearAll(ctx)
}

func (s *ChatService) History(ctx context.Context, sessionID string) ([]memory.Turn, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	return s.memory.Get(ctx, sessionID)
}

func (s *ChatService) turn(ctx context.Context, in SendInput, onChunk func(string) error) (*Reply, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, ErrMessageEmpty
	}
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	history, err := s.memory.Get(ctx, sessionID)
	if err != nil {
		s.logger.Warn("load conversation memory failed", "session_id", sessionID, "error", err)
		history = nil
	}

	var retrieved *knowledge.RetrievalResult
	if s.retrieval != nil {
		retrieved, err = s.retrieval.Retrieve(ctx, message, s.cfg.TopK, s.cfg.ScoreThreshold)
		if err != nil {
			return nil, err
		}
	}

	req := s.composer.Compose(prompt.Input{
		Profile:     in.Profile,
		Retrieval:   retrieved,
		History:     history,
		UserMessage: message,
	})

	text, genErr := s.generate(ctx, req, onChunk)
	if genErr != nil && !errors.Is(genErr, ai.ErrGenerationUnavailable) {
		return nil, genErr
	}

	reply := &Reply{
		SessionID: sessionID,
		Timestamp: s.now(),
	}
	if genErr != nil {
		s.logger.Error("generation failed, returning degraded reply", "session_id", sessionID, "error", genErr)
		reply.Response = DegradedReply
		reply.Degraded = true
	} else {
		reply.Response = text
		if !retrieved.Empty() {
			reply.Sources = retrieved.Sources
			reply.Topics = retrieved.Topics
			reply.RAGDocsFound = len(retrieved.Hits)
			reply.RetrievalPath = retrieved.Path
		}
	}

	s.remember(ctx, sessionID, ai.RoleUser, message)
	s.remember(ctx, sessionID, ai.RoleAssistant, reply.Response)
	return reply, nil
}

func (s *ChatService) generate(ctx context.Context, req prompt.Request, onChunk func(string) error) (string, error) {
	if s.generator == nil {
		return "", errors.Join(ai.ErrGenerationUnavailable, errors.New("no generator configured"))
	}

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	defer cancel()

	var (
		text string
		err  error
	)
	if onChunk == nil {
		text, err = s.generator.Generate(genCtx, req.SystemPrompt, req.History, req.UserMessage)
	} else {
		text, err = s.generator.GenerateStream(genCtx, req.SystemPrompt, req.History, req.UserMessage, onChunk)
	}
	if err != nil {
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", errors.Join(ai.ErrGenerationUnavailable, err)
		}
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = emptyReply
	}
	return text, nil
}

func (s *ChatService) remember(ctx context.Context, sessionID, role, text string) {
	if err := s.memory.Append(ctx, sessionID, role, text); err != nil {
		s.logger.Warn("append conversation memory failed", "session_id", sessionID, "role", role, "error", err)
	}
}
