package events

import "github.com/spec-kit/polling-service/internal/domain"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPollStarted EventType = "poll_started"
	EventPollEnded   EventType = "poll_ended"
	EventVoteCast    EventType = "vote_cast"
)

// Event represents a domain event emitted by services. PollID is set on
// every event; Payload carries the type-specific body.
type Event struct {
	Type    EventType
	PollID  string
	Payload interface{}
}

// PollStartedPayload carries the full poll that just went ACTIVE.
type PollStartedPayload struct {
	Poll *domain.Poll
}

// VoteCastPayload is emitted both when a vote is recorded and when one is
// retracted; listeners re-derive tallies rather than trusting a delta.
type VoteCastPayload struct {
	PollID         string
	SelectedOption string
	StudentName    string
}
