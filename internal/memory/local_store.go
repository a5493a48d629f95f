package memory

import (
	"context"
	"sync"
	"time"
)

// LocalStore holds sessions in process memory; history is lost on restart.
type LocalStore struct {
	mu       sync.Mutex
	maxTurns int
	sessions map[string][]Turn
	now      func() time.Time
}

func NewLocalStore(maxTurns int) *LocalStore {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &LocalStore{
		maxTurns: maxTurns,
		sessions: make(map[string][]Turn),
		now:      time.Now,
	}
}

func (s *LocalStore) Get(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.sessions[sessionID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *LocalStore) Append(_ context.Context, sessionID, role, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[sessionID], Turn{Role: role, Text: text, CreatedAt: s.now()})
	if over := len(turns) - s.maxTurns; over > 0 {
		turns = append([]Turn(nil), turns[over:]...)
	}
	s.sessions[sessionID] = turns
	return nil
}

func (s *LocalStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *LocalStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string][]Turn)
	return nil
}
