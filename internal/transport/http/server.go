package http

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"bodymind-ai/internal/bootstrap"
	"bodymind-ai/internal/knowledge"
	"bodymind-ai/internal/transport/http/handler"
	"bodymind-ai/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(
		app.Config.App.Name,
		app.Config.App.Env,
		app.StartedAt,
		app.Knowledge,
		dependencyChecks(app),
	)
	router.GET("/healthz", healthHandler.Check)

	authHandler := handler.NewAuthHandler(app.Auth)
	knowledgeHandler := handler.NewKnowledgeHandler(
		app.Knowledge,
		app.Retrieval,
		app.Config.RAG.TopK,
		knowledge.Distance(app.Config.RAG.ScoreThreshold),
	)
	chatHandler := handler.NewChatHandler(app.Chat)

	// Authenticate runs before the limiter so signed-in users get their own
	// bucket; anonymous routes are keyed by client IP.
	public := []gin.HandlerFunc{}
	protected := []gin.HandlerFunc{middleware.Authenticate(app.Auth)}
	if app.Config.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(app.Config.RateLimit.RequestsPerMinute, app.Config.RateLimit.Burst)
		public = append(public, limiter.Middleware())
		protected = append(protected, limiter.Middleware())
	}

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth", public...)
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	v1.Group("/auth", protected...).GET("/me", authHandler.Me)

	knowledgeGroup := v1.Group("/knowledge", protected...)
	knowledgeGroup.POST("/documents", knowledgeHandler.IngestDocument)
	knowledgeGroup.POST("/files", knowledgeHandler.UploadFile)
	knowledgeGroup.POST("/search", knowledgeHandler.Search)
	knowledgeGroup.GET("/stats", knowledgeHandler.Stats)
	knowledgeGroup.GET("/topics", knowledgeHandler.Topics)
	knowledgeGroup.DELETE("", knowledgeHandler.Clear)

	chatGroup := v1.Group("/chat", protected...)
	chatGroup.POST("/messages", chatHandler.SendMessage)
	chatGroup.POST("/stream", chatHandler.StreamMessage)
	chatGroup.GET("/sessions/:session_id/history", chatHandler.GetHistory)
	chatGroup.DELETE("/sessions/:session_id", chatHandler.ClearSession)
	chatGroup.DELETE("/sessions", chatHandler.ClearAllSessions)

	return router
}

func dependencyChecks(app *bootstrap.App) map[string]handler.DependencyCheck {
	checks := map[string]handler.DependencyCheck{
		"store": func(ctx context.Context) error {
			sqlDB, err := app.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"index": func(ctx context.Context) error {
			if app.Index == nil {
				return fmt.Errorf("%w: not initialised", knowledge.ErrIndexUnavailable)
			}
			return app.Index.Ping(ctx)
		},
	}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}
	}
	if app.MQConn != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if app.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	if app.Postgres != nil {
		checks["postgres"] = app.Postgres.Ping
	}
	return checks
}
