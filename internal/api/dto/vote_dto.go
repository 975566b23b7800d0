package dto

import (
	"time"

	"github.com/spec-kit/polling-service/internal/domain"
)

// SubmitVoteRequest is the vote submission payload.
type SubmitVoteRequest struct {
	PollID         string `json:"pollId"`
	StudentName    string `json:"studentName"`
	SelectedOption string `json:"selectedOption"`
}

// VoteResponse is the wire shape of a recorded vote.
type VoteResponse struct {
	ID             string    `json:"id"`
	PollID         string    `json:"pollId"`
	StudentName    string    `json:"studentName"`
	SelectedOption string    `json:"selectedOption"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewVoteResponse maps a domain vote.
func NewVoteResponse(vote *domain.Vote) VoteResponse {
	return VoteResponse{
		ID:             vote.ID,
		PollID:         vote.PollID,
		StudentName:    vote.StudentName,
		SelectedOption: vote.SelectedOption,
		CreatedAt:      vote.CreatedAt,
	}
}

// ParticipantResponse is one roster entry.
type ParticipantResponse struct {
	Name   string                   `json:"name"`
	Status domain.ParticipantStatus `json:"status"`
}

// RosterResponse is the participant listing.
type RosterResponse struct {
	Students []ParticipantResponse `json:"students"`
	Count    int                   `json:"count"`
}

// NewRosterResponse maps a registry roster.
func NewRosterResponse(roster domain.Roster) RosterResponse {
	students := make([]ParticipantResponse, 0, len(roster.Students))
	for _, s := range roster.Students {
		students = append(students, ParticipantResponse{Name: s.Name, Status: s.Status})
	}
	return RosterResponse{Students: students, Count: roster.Count}
}
