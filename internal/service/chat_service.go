package service

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/polling-service/internal/config"
	"github.com/spec-kit/polling-service/internal/domain"
	apperrors "github.com/spec-kit/polling-service/pkg/util"
)

// ChatService keeps the lobby chat history in memory. Chat is scoped to
// the lifetime of a poll; Clear is invoked when a poll ends.
type ChatService struct {
	mu       sync.Mutex
	messages []domain.ChatMessage
	limiter  *FixedWindowLimiter
	maxLen   int
	now      func() time.Time
}

// NewChatService constructs the service. A nil now falls back to time.Now.
func NewChatService(cfg config.ChatConfig, now func() time.Time) *ChatService {
	if now == nil {
		now = time.Now
	}
	return &ChatService{
		limiter: NewFixedWindowLimiter(cfg.SenderMax, cfg.SenderWindow(), now),
		maxLen:  cfg.MaxMessageLength,
		now:     now,
	}
}

// AddMessage validates and appends a chat message.
func (s *ChatService) AddMessage(sender, text string) (domain.ChatMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.ChatMessage{}, apperrors.NewValidationError("message cannot be empty", nil)
	}
	if len(trimmed) > s.maxLen {
		return domain.ChatMessage{}, apperrors.NewValidationError("message too long", map[string]any{
			"max_length": s.maxLen,
		})
	}
	if !s.limiter.Allow(sender) {
		return domain.ChatMessage{}, apperrors.NewRateLimited("rate limit exceeded, please wait before chatting")
	}

	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      trimmed,
		Timestamp: s.now(),
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg, nil
}

// Messages returns a copy of the chat history.
func (s *ChatService) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Clear wipes the history and the per-sender rate limit windows.
func (s *ChatService) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
	s.limiter.Reset()
}
