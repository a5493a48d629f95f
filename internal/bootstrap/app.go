package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"bodymind-ai/internal/ai"
	"bodymind-ai/internal/app"
	"bodymind-ai/internal/auth"
	"bodymind-ai/internal/config"
	"bodymind-ai/internal/fallback"
	"bodymind-ai/internal/index"
	"bodymind-ai/internal/knowledge"
	"bodymind-ai/internal/memory"
	"bodymind-ai/internal/model"
	mysqlClient "bodymind-ai/internal/platform/mysql"
	postgresClient "bodymind-ai/internal/platform/postgres"
	rabbitmqClient "bodymind-ai/internal/platform/rabbitmq"
	redisClient "bodymind-ai/internal/platform/redis"
	sqliteClient "bodymind-ai/internal/platform/sqlite"
	"bodymind-ai/internal/prompt"
	"bodymind-ai/internal/repository"
	"bodymind-ai/internal/worker"
)

// App owns every engine component. Optional infrastructure (redis,
// rabbitmq, postgres) is nil when not configured.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DB       *gorm.DB
	Redis    *redis.Client
	MQConn   *amqp.Connection
	Postgres *pgxpool.Pool

	Index     index.Index
	Embedder  *ai.EmbeddingClient
	Generator *ai.OpenAICompatibleClient
	Auth      auth.Provider

	Knowledge *app.KnowledgeService
	Retrieval *app.RetrievalService
	Chat      *app.ChatService

	IngestWorker *worker.IngestRetryWorker
	Watcher      *worker.KnowledgeWatcher

	StartedAt time.Time
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger, StartedAt: time.Now()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	embedBase, embedKey := cfg.LLM.EmbeddingEndpoint()
	a.Embedder = ai.NewEmbeddingClient(ai.EmbeddingConfig{
		BaseURL:   embedBase,
		APIKey:    embedKey,
		Model:     cfg.LLM.EmbeddingModel,
		Dimension: cfg.LLM.EmbeddingDimension,
		BatchSize: cfg.LLM.EmbeddingBatchSize,
	}, cfg.LLM.EmbeddingTimeout())
	if !a.Embedder.Enabled() {
		logger.Warn("embedding provider not configured, retrieval uses keyword fallback only")
	}

	a.Generator = ai.NewOpenAICompatibleClient(ai.ChatConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, cfg.LLM.GenerationTimeout())
	if !a.Generator.Enabled() {
		logger.Warn("generation provider not configured, chat replies will be degraded")
	}

	if err := a.openIndex(ctx); err != nil {
		logger.Warn("knowledge index unavailable, retrieval uses keyword fallback only",
			"backend", cfg.Index.Backend, "error", err)
	}
	if err := a.buildAuth(); err != nil {
		return nil, err
	}

	var deferrer app.IngestDeferrer
	if cfg.RabbitMQ.Enabled {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.IngestRetryQueue)
		if err != nil {
			return nil, err
		}
		deferrer = rabbitmqClient.NewIngestPublisher(a.MQConn, cfg.RabbitMQ.IngestRetryQueue)
	}

	chunker := knowledge.NewChunker(
		knowledge.WithChunkSize(cfg.RAG.ChunkSize),
		knowledge.WithOverlap(cfg.RAG.ChunkOverlap),
	)
	a.Knowledge = app.NewKnowledgeService(chunker, a.Index, deferrer, logger.With("component", "knowledge"))

	matcher, err := buildMatcher(cfg.RAG.FallbackTopicsFile)
	if err != nil {
		return nil, err
	}
	var queryEmbedder ai.Embedder
	if a.Embedder.Enabled() {
		queryEmbedder = a.Embedder
	}
	a.Retrieval = app.NewRetrievalService(a.Index, queryEmbedder, matcher, cfg.LLM.EmbeddingTimeout(), logger.With("component", "retrieval"))

	store, err := a.buildMemory(ctx)
	if err != nil {
		return nil, err
	}
	var generator ai.Generator
	if a.Generator.Enabled() {
		generator = a.Generator
	}
	retrieval := a.Retrieval
	if !cfg.RAG.Enabled {
		retrieval = nil
	}
	a.Chat = app.NewChatService(
		retrieval,
		store,
		prompt.NewComposer(cfg.RAG.Persona, cfg.Memory.HistoryTurns),
		generator,
		app.ChatConfig{
			TopK:              cfg.RAG.TopK,
			ScoreThreshold:    knowledge.Distance(cfg.RAG.ScoreThreshold),
			GenerationTimeout: cfg.LLM.GenerationTimeout(),
		},
		logger.With("component", "chat"),
	)

	if a.MQConn != nil {
		a.IngestWorker = worker.NewIngestRetryWorker(
			a.MQConn,
			a.Knowledge,
			rabbitmqClient.NewIngestPublisher(a.MQConn, cfg.RabbitMQ.IngestRetryQueue),
			cfg.RabbitMQ.IngestRetryQueue,
			time.Duration(cfg.RabbitMQ.RetryDelaySeconds)*time.Second,
			cfg.RabbitMQ.MaxAttempts,
			logger,
		)
	}
	if cfg.Watcher.Dir != "" {
		a.Watcher = worker.NewKnowledgeWatcher(
			cfg.Watcher.Dir,
			time.Duration(cfg.Watcher.SettleMillis)*time.Millisecond,
			cfg.Watcher.IngestOnStart,
			a.Knowledge,
			logger,
		)
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	var err error
	switch a.Config.Store.Driver {
	case "mysql":
		a.DB, err = mysqlClient.New(ctx, a.Config.MySQLDSN())
	default:
		a.DB, err = sqliteClient.New(ctx, a.Config.Store.SQLitePath)
	}
	if err != nil {
		return err
	}

	tables := []interface{}{&model.User{}}
	if a.Config.Index.Backend == "sql" {
		tables = append(tables, &model.KnowledgeChunk{})
	}
	if err := a.DB.AutoMigrate(tables...); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}

// openIndex leaves a.Index nil when the backing store cannot be reached.
func (a *App) openIndex(ctx context.Context) error {
	logger := a.Logger.With("component", "index")
	dim := a.Config.LLM.EmbeddingDimension

	if a.Config.Index.Backend == "pgvector" {
		pool, err := postgresClient.New(ctx, a.Config.Index.PostgresDSN)
		if err != nil {
			return fmt.Errorf("%w: %w", knowledge.ErrIndexUnavailable, err)
		}
		a.Postgres = pool
		idx, err := index.NewPgVectorIndex(ctx, pool, a.Embedder, dim, logger)
		if err != nil {
			return fmt.Errorf("%w: %w", knowledge.ErrIndexUnavailable, err)
		}
		a.Index = idx
		return nil
	}

	idx, err := index.NewSQLIndex(ctx, repository.NewKnowledgeChunkRepository(a.DB), a.Embedder, a.Config.Store.Driver, dim, logger)
	if err != nil {
		return fmt.Errorf("%w: %w", knowledge.ErrIndexUnavailable, err)
	}
	a.Index = idx
	return nil
}

func (a *App) buildAuth() error {
	cfg := a.Config.Auth
	local := auth.NewLocalProvider(
		repository.NewUserRepository(a.DB),
		cfg.JWTSecret,
		time.Duration(cfg.JWTExpireMinute)*time.Minute,
	)
	var managed *auth.ManagedProvider
	if cfg.ManagedJWTSecret != "" {
		managed = auth.NewManagedProvider(cfg.ManagedJWTSecret, cfg.ManagedAudience)
	}

	provider, err := auth.NewProvider(cfg.Provider, local, managed)
	if err != nil {
		return fmt.Errorf("build auth provider failed: %w", err)
	}
	a.Auth = provider
	return nil
}

func (a *App) buildMemory(ctx context.Context) (memory.Store, error) {
	cfg := a.Config.Memory
	if cfg.Backend != "redis" {
		return memory.NewLocalStore(cfg.MaxTurns), nil
	}

	client, err := redisClient.New(ctx, a.Config.Redis.Addr, a.Config.Redis.Password, a.Config.Redis.DB)
	if err != nil {
		return nil, err
	}
	a.Redis = client
	return memory.NewRedisStore(client, cfg.MaxTurns, time.Duration(cfg.TTLSeconds)*time.Second), nil
}

func buildMatcher(path string) (*fallback.Matcher, error) {
	if path == "" {
		return fallback.NewMatcher(fallback.DefaultTopics()), nil
	}
	topics, err := fallback.LoadTopics(path)
	if err != nil {
		return nil, err
	}
	return fallback.NewMatcher(topics), nil
}

// Start seeds the preset corpus when configured and launches the background
// workers.
func (a *App) Start(ctx context.Context) error {
	if a.Config.RAG.SeedOnEmpty {
		n, err := a.Knowledge.SeedIfEmpty(ctx)
		switch {
		case err != nil:
			a.Logger.Warn("seed preset knowledge failed", "error", err)
		case n > 0:
			a.Logger.Info("preset knowledge seeded", "documents", n)
		}
	}

	if a.IngestWorker != nil {
		if err := a.IngestWorker.Start(ctx); err != nil {
			return fmt.Errorf("start ingest retry worker failed: %w", err)
		}
	}
	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			return fmt.Errorf("start knowledge watcher failed: %w", err)
		}
	}
	return nil
}

func (a *App) Close() error {
	var errs []error
	if a.Watcher != nil {
		a.Watcher.Close()
	}
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if a.Postgres != nil {
		a.Postgres.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
