// Package memory keeps the bounded, per-session turn history of a conversation.
package memory

import (
	"context"
	"time"

	"bodymind-ai/internal/ai"
)

// DefaultMaxTurns keeps ten user/assistant pairs.
const DefaultMaxTurns = 20

// Turn is one message in a session.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a session-scoped, FIFO-bounded turn log. Sessions are created
// implicitly; Get on an unknown id returns an empty history.
type Store interface {
	Get(ctx context.Context, sessionID string) ([]Turn, error)
	Append(ctx context.Context, sessionID, role, text string) error
	Clear(ctx context.Context, sessionID string) error
	ClearAll(ctx context.Context) error
}

// ToChatMessages converts turns into generator history, keeping at most the
// last limit turns (limit <= 0 keeps all).
func ToChatMessages(turns []Turn, limit int) []ai.ChatMessage {
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]ai.ChatMessage, 0, len(turns))
	for _, t := range turns {
		role := t.Role
		if role == "" {
			role = ai.RoleUser
		}
		out = append(out, ai.ChatMessage{Role: role, Content: t.Text})
	}
	return out
}
