package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bodymind-ai/internal/ai"
	"bodymind-ai/internal/app"
	"bodymind-ai/internal/knowledge"
	"bodymind-ai/internal/transport/http/response"
)

const maxUploadSize = 10 << 20 // 10 MB

type KnowledgeHandler struct {
	knowledge      *app.KnowledgeService
	retrieval      *app.RetrievalService
	defaultTopK    int
	scoreThreshold knowledge.Distance
}

type IngestDocumentRequest struct {
	Text     string `json:"text" binding:"required"`
	Title    string `json:"title" binding:"max=256"`
	Source   string `json:"source" binding:"max=512"`
	Category string `json:"category" binding:"max=64"`
}

type SearchRequest struct {
	Query          string   `json:"query" binding:"required,max=2000"`
	TopK           int      `json:"top_k" binding:"omitempty,min=1,max=50"`
	ScoreThreshold *float64 `json:"score_threshold" binding:"omitempty,gt=0,max=2"`
}

type SearchResponse struct {
	Found   bool                    `json:"found"`
	Path    knowledge.RetrievalPath `json:"path,omitempty"`
	Hits    []knowledge.Hit         `json:"hits"`
	Sources []string                `json:"sources"`
	Topics  []string                `json:"topics"`
}

type TopicSummary struct {
	Key       string   `json:"key"`
	Title     string   `json:"title"`
	Triggers  []string `json:"triggers"`
	Citations []string `json:"citations"`
}

func NewKnowledgeHandler(knowledgeService *app.KnowledgeService, retrieval *app.RetrievalService, topK int, threshold knowledge.Distance) *KnowledgeHandler {
	return &KnowledgeHandler{
		knowledge:      knowledgeService,
		retrieval:      retrieval,
		defaultTopK:    topK,
		scoreThreshold: threshold,
	}
}

func (h *KnowledgeHandler) IngestDocument(c *gin.Context) {
	var req IngestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.knowledge.IngestText(c.Request.Context(), knowledge.IngestRequest{
		Text:     req.Text,
		Title:    req.Title,
		Source:   req.Source,
		Category: req.Category,
	})
	if err != nil {
		writeIngestError(c, err)
		return
	}
	respondIngest(c, result)
}

// UploadFile accepts a multipart form with "file" (.txt, .md or .pdf) and
// optional "title", "source" and "category" fields.
func (h *KnowledgeHandler) UploadFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 10MB)")
		return
	}
	if !app.SupportedFile(file.Filename) {
		response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFormat, "only .txt, .md and .pdf files are allowed")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	result, err := h.knowledge.IngestFile(c.Request.Context(), file.Filename, f, knowledge.IngestRequest{
		Title:    strings.TrimSpace(c.PostForm("title")),
		Source:   strings.TrimSpace(c.PostForm("source")),
		Category: strings.TrimSpace(c.PostForm("category")),
	})
	if err != nil {
		writeIngestError(c, err)
		return
	}
	respondIngest(c, result)
}

func (h *KnowledgeHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	k := h.defaultTopK
	if req.TopK > 0 {
		k = req.TopK
	}
	threshold := h.scoreThreshold
	if req.ScoreThreshold != nil {
		threshold = knowledge.Distance(*req.ScoreThreshold)
	}

	result, err := h.retrieval.Retrieve(c.Request.Context(), req.Query, k, threshold)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "search failed")
		return
	}

	out := SearchResponse{Hits: []knowledge.Hit{}, Sources: []string{}, Topics: []string{}}
	if !result.Empty() {
		out = SearchResponse{
			Found:   true,
			Path:    result.Path,
			Hits:    result.Hits,
			Sources: result.Sources,
			Topics:  result.Topics,
		}
	}
	response.OK(c, out)
}

func (h *KnowledgeHandler) Stats(c *gin.Context) {
	response.OK(c, h.knowledge.Stats(c.Request.Context()))
}

// Topics lists the keyword fallback topics without their answer text.
func (h *KnowledgeHandler) Topics(c *gin.Context) {
	topics := h.retrieval.FallbackTopics()
	out := make([]TopicSummary, 0, len(topics))
	for _, t := range topics {
		out = append(out, TopicSummary{
			Key:       t.Key,
			Title:     t.Title,
			Triggers:  t.Triggers,
			Citations: t.Citations,
		})
	}
	response.OK(c, gin.H{"topics": out})
}

func (h *KnowledgeHandler) Clear(c *gin.Context) {
	if err := h.knowledge.Clear(c.Request.Context()); err != nil {
		response.Error(c, http.StatusServiceUnavailable, response.CodeIndexUnavailable, "clear knowledge base failed")
		return
	}
	response.OK(c, h.knowledge.Stats(c.Request.Context()))
}

func respondIngest(c *gin.Context, result *app.IngestResult) {
	if result.Deferred {
		response.Accepted(c, "embedding unavailable, ingestion deferred", result)
		return
	}
	response.OK(c, result)
}

func writeIngestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, knowledge.ErrEmptyContent):
		response.Error(c, http.StatusBadRequest, response.CodeEmptyContent, err.Error())
	case errors.Is(err, knowledge.ErrUnsupportedFormat):
		response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFormat, err.Error())
	case errors.Is(err, knowledge.ErrIngestion):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, ai.ErrEmbeddingUnavailable):
		response.Error(c, http.StatusServiceUnavailable, response.CodeEmbeddingUnavailable, "embedding provider unavailable")
	case errors.Is(err, knowledge.ErrIndexUnavailable), errors.Is(err, knowledge.ErrDimensionMismatch):
		response.Error(c, http.StatusServiceUnavailable, response.CodeIndexUnavailable, "knowledge index unavailable")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest failed")
	}
}
