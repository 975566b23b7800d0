package dto

import (
	"time"

	"github.com/spec-kit/polling-service/internal/domain"
)

// CreatePollRequest is the poll creation payload.
type CreatePollRequest struct {
	Question string              `json:"question"`
	Options  []PollOptionRequest `json:"options"`
	Duration int                 `json:"duration"`
}

// PollOptionRequest carries one option's text.
type PollOptionRequest struct {
	Text string `json:"text"`
}

// PollOptionResponse is the wire shape of a poll option.
type PollOptionResponse struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// PollResponse is the wire shape of a poll.
type PollResponse struct {
	ID        string               `json:"id"`
	Question  string               `json:"question"`
	Options   []PollOptionResponse `json:"options"`
	Duration  int                  `json:"duration"`
	StartTime *time.Time           `json:"startTime"`
	Status    domain.PollStatus    `json:"status"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// PollStateResponse pairs a poll with the server clock and the
// authoritative tally.
type PollStateResponse struct {
	Poll       *PollResponse  `json:"poll"`
	ServerTime time.Time      `json:"serverTime"`
	Votes      map[string]int `json:"votes"`
}

// NewPollResponse maps a domain poll, keeping the denormalized counters.
func NewPollResponse(poll *domain.Poll) PollResponse {
	options := make([]PollOptionResponse, 0, len(poll.Options))
	for _, opt := range poll.Options {
		options = append(options, PollOptionResponse{
			ID:    opt.ID,
			Text:  opt.Text,
			Votes: opt.Votes,
		})
	}
	return PollResponse{
		ID:        poll.ID,
		Question:  poll.Question,
		Options:   options,
		Duration:  poll.Duration,
		StartTime: poll.StartTime,
		Status:    poll.Status,
		CreatedAt: poll.CreatedAt,
		UpdatedAt: poll.UpdatedAt,
	}
}

// NewPollResponseWithVotes maps a domain poll but replaces each option's
// counter with the authoritative tally, which may be keyed by option text
// or option id depending on what voters submitted.
func NewPollResponseWithVotes(poll *domain.Poll, votes map[string]int) PollResponse {
	resp := NewPollResponse(poll)
	for i := range resp.Options {
		opt := &resp.Options[i]
		if count, ok := votes[opt.Text]; ok {
			opt.Votes = count
		} else if count, ok := votes[opt.ID]; ok {
			opt.Votes = count
		} else {
			opt.Votes = 0
		}
	}
	return resp
}
