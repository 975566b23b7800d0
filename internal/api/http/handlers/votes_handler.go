package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/polling-service/internal/api/dto"
	"github.com/spec-kit/polling-service/internal/service"
	apperrors "github.com/spec-kit/polling-service/pkg/util"
)

// VotesHandler manages vote submission endpoints.
type VotesHandler struct {
	votes *service.VoteService
}

// NewVotesHandler constructs handler.
func NewVotesHandler(voteSvc *service.VoteService) *VotesHandler {
	return &VotesHandler{votes: voteSvc}
}

// SubmitVote POST /vote.
func (h *VotesHandler) SubmitVote(c *fiber.Ctx) error {
	var req dto.SubmitVoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.PollID == "" || req.StudentName == "" || req.SelectedOption == "" {
		return apperrors.NewValidationError("pollId, studentName, selectedOption required", nil)
	}

	vote, err := h.votes.SubmitVote(c.UserContext(), req.PollID, req.StudentName, req.SelectedOption)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewVoteResponse(vote)})
}
