package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"bodymind-ai/internal/app"
	"bodymind-ai/internal/index"
)

// DependencyCheck reports whether one dependency is reachable.
type DependencyCheck func(ctx context.Context) error

type HealthHandler struct {
	name      string
	env       string
	startedAt time.Time
	knowledge *app.KnowledgeService
	checks    map[string]DependencyCheck
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(name, env string, startedAt time.Time, knowledge *app.KnowledgeService, checks map[string]DependencyCheck) *HealthHandler {
	return &HealthHandler{
		name:      name,
		env:       env,
		startedAt: startedAt,
		knowledge: knowledge,
		checks:    checks,
	}
}

// Check answers 503 when any dependency fails. An empty index is healthy;
// retrieval falls back to keyword matching.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	allOK := true
	deps := make(map[string]dependencyStatus, len(names))
	for _, name := range names {
		status := dependencyStatus{OK: true}
		if err := h.checks[name](ctx); err != nil {
			status = dependencyStatus{OK: false, Message: err.Error()}
			allOK = false
		}
		deps[name] = status
	}

	stats := h.knowledge.Stats(ctx)
	if stats.Status == index.StatusUnavailable {
		allOK = false
	}

	statusCode := http.StatusOK
	if !allOK {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"app":          h.name,
		"env":          h.env,
		"uptime_sec":   int(time.Since(h.startedAt).Seconds()),
		"dependencies": deps,
		"index":        stats,
	})
}
