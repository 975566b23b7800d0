package ws

import (
	"encoding/json"

	"github.com/spec-kit/polling-service/internal/api/dto"
	"github.com/spec-kit/polling-service/internal/domain"
)

// Inbound command types.
const (
	MsgStartPoll   = "teacher:startPoll"
	MsgEndPoll     = "teacher:endPoll"
	MsgKickStudent = "teacher:kickStudent"
	MsgUnkick      = "teacher:unkickStudent"
	MsgVote        = "student:vote"
	MsgChat        = "chat:message"
)

// Outbound broadcast types.
const (
	MsgPollStarted        = "pollStarted"
	MsgPollUpdated        = "pollUpdated"
	MsgPollEnded          = "pollEnded"
	MsgParticipantsUpdate = "participantCountUpdated"
	MsgChatHistory        = "chat:history"
	MsgChatNew            = "chat:newMessage"
	MsgKicked             = "kicked"
	MsgError              = "error"
)

// ClientMessage is the envelope for inbound commands. Payload stays raw
// until the command type selects a concrete shape.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage is the envelope for outbound frames.
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// PollIDPayload targets a poll by id (start/end commands).
type PollIDPayload struct {
	PollID string `json:"pollId"`
}

// StudentNamePayload targets a student by name (kick/unkick commands).
type StudentNamePayload struct {
	StudentName string `json:"studentName"`
}

// VotePayload is the student:vote command body.
type VotePayload struct {
	PollID         string `json:"pollId"`
	StudentName    string `json:"studentName"`
	SelectedOption string `json:"selectedOption"`
}

// ChatPayload is the chat:message command body.
type ChatPayload struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// ErrorPayload is sent only to the issuing connection.
type ErrorPayload struct {
	Message string `json:"message"`
}

// PollStartedPayload carries the full poll on pollStarted.
type PollStartedPayload struct {
	Poll dto.PollResponse `json:"poll"`
}

// PollEndedPayload carries the ended poll id.
type PollEndedPayload struct {
	PollID string `json:"pollId"`
}

// ParticipantsPayload is the participant/vote-progress summary.
type ParticipantsPayload struct {
	ConnectedStudents []dto.ParticipantResponse `json:"connectedStudents"`
	TotalParticipants int                       `json:"totalParticipants"`
	TotalVoted        int                       `json:"totalVoted"`
}

// KickedPayload notifies the evicted connection.
type KickedPayload struct {
	Message string `json:"message"`
}

// ChatHistoryPayload replays history to a newly joined connection.
type ChatHistoryPayload struct {
	Messages []domain.ChatMessage `json:"messages"`
}
