package service

import (
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/polling-service/internal/config"
	apperrors "github.com/spec-kit/polling-service/pkg/util"
)

func chatConfig() config.ChatConfig {
	return config.ChatConfig{
		MaxMessageLength: 200,
		SenderMax:        5,
		SenderWindowSec:  10,
	}
}

func TestChatAddMessage(t *testing.T) {
	clock := newTestClock(testEpoch)
	s := NewChatService(chatConfig(), clock.Now)

	msg, err := s.AddMessage("alice", "  hello class  ")
	if err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if msg.Text != "hello class" {
		t.Errorf("text = %q, want trimmed", msg.Text)
	}
	if msg.ID == "" {
		t.Error("message should have an id")
	}
	if !msg.Timestamp.Equal(testEpoch) {
		t.Errorf("timestamp = %v, want %v", msg.Timestamp, testEpoch)
	}
	if got := len(s.Messages()); got != 1 {
		t.Errorf("history length = %d, want 1", got)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	s := NewChatService(chatConfig(), nil)

	_, err := s.AddMessage("alice", "   ")
	if !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("err = %v, want VALIDATION_FAILED", err)
	}
}

func TestChatRejectsLongMessage(t *testing.T) {
	s := NewChatService(chatConfig(), nil)

	_, err := s.AddMessage("alice", strings.Repeat("x", 201))
	if !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("err = %v, want VALIDATION_FAILED", err)
	}
}

func TestChatRateLimitsPerSender(t *testing.T) {
	clock := newTestClock(testEpoch)
	s := NewChatService(chatConfig(), clock.Now)

	for i := 0; i < 5; i++ {
		if _, err := s.AddMessage("alice", "hi"); err != nil {
			t.Fatalf("AddMessage %d: %v", i, err)
		}
	}
	_, err := s.AddMessage("alice", "one too many")
	if !apperrors.IsCode(err, "RATE_LIMITED") {
		t.Fatalf("err = %v, want RATE_LIMITED", err)
	}

	// Other senders are unaffected.
	if _, err := s.AddMessage("bob", "hi"); err != nil {
		t.Fatalf("AddMessage other sender: %v", err)
	}

	// The window resets with time.
	clock.Advance(11 * time.Second)
	if _, err := s.AddMessage("alice", "back again"); err != nil {
		t.Fatalf("AddMessage after window: %v", err)
	}
}

func TestChatClear(t *testing.T) {
	clock := newTestClock(testEpoch)
	s := NewChatService(chatConfig(), clock.Now)

	for i := 0; i < 5; i++ {
		if _, err := s.AddMessage("alice", "hi"); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}
	s.Clear()

	if got := len(s.Messages()); got != 0 {
		t.Errorf("history length = %d, want 0 after clear", got)
	}
	// Clearing also resets the sender windows.
	if _, err := s.AddMessage("alice", "fresh start"); err != nil {
		t.Fatalf("AddMessage after clear: %v", err)
	}
}

func TestChatMessagesReturnsCopy(t *testing.T) {
	s := NewChatService(chatConfig(), nil)

	if _, err := s.AddMessage("alice", "hello"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	msgs := s.Messages()
	msgs[0].Text = "mutated"

	if got := s.Messages()[0].Text; got != "hello" {
		t.Errorf("history text = %q, want untouched original", got)
	}
}
