package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bodymind-ai/internal/app"
	"bodymind-ai/internal/prompt"
	"bodymind-ai/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type SendMessageRequest struct {
	SessionID string              `json:"session_id" binding:"max=128"`
	Message   string              `json:"message" binding:"required,max=8000"`
	Profile   *prompt.UserProfile `json:"user_profile"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	reply, err := h.chatService.Send(c.Request.Context(), app.SendInput{
		SessionID: req.SessionID,
		Message:   req.Message,
		Profile:   req.Profile,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "send message failed")
		}
		return
	}

	response.OK(c, reply)
}

// StreamMessage writes generator deltas as SSE "data:" frames, then a final
// "done" event carrying the full reply as JSON.
func (h *ChatHandler) StreamMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	reply, err := h.chatService.Stream(c.Request.Context(), app.SendInput{
		SessionID: req.SessionID,
		Message:   req.Message,
		Profile:   req.Profile,
	}, func(chunk string) error {
		if _, writeErr := c.Writer.Write([]byte("data: " + sanitizeSSE(chunk) + "\n\n")); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		if _, writeErr := c.Writer.Write([]byte(fmt.Sprintf("event: error\ndata: %s\n\n", sanitizeSSE(err.Error())))); writeErr == nil {
			flusher.Flush()
		}
		return
	}

	payload, err := json.Marshal(reply)
	if err != nil {
		return
	}
	if _, writeErr := c.Writer.Write([]byte("event: done\ndata: " + string(payload) + "\n\n")); writeErr == nil {
		flusher.Flush()
	}
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	sessionID := c.Param("session_id")
	history, err := h.chatService.History(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get history failed")
		}
		return
	}

	response.OK(c, gin.H{
		"session_id": sessionID,
		"history":    history,
	})
}

func (h *ChatHandler) ClearSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if err := h.chatService.ClearSession(c.Request.Context(), sessionID); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "clear session failed")
		}
		return
	}

	response.OK(c, gin.H{"cleared_session_id": sessionID})
}

func (h *ChatHandler) ClearAllSessions(c *gin.Context) {
	if err := h.chatService.ClearAllSessions(c.Request.Context()); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "clear sessions failed")
		return
	}
	response.OK(c, gin.H{"cleared": true})
}

func sanitizeSSE(input string) string {
	replaced := strings.ReplaceAll(input, "\r\n", "\\n")
	replaced = strings.ReplaceAll(replaced, "\n", "\\n")
	return replaced
}
