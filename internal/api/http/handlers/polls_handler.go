package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/polling-service/internal/api/dto"
	"github.com/spec-kit/polling-service/internal/service"
	apperrors "github.com/spec-kit/polling-service/pkg/util"
)

// PollsHandler manages poll lifecycle endpoints.
type PollsHandler struct {
	polls    *service.PollService
	votes    *service.VoteService
	registry *service.ParticipantRegistry
	lobbyID  string
}

// NewPollsHandler constructs handler.
func NewPollsHandler(pollSvc *service.PollService, voteSvc *service.VoteService, registry *service.ParticipantRegistry, lobbyID string) *PollsHandler {
	return &PollsHandler{polls: pollSvc, votes: voteSvc, registry: registry, lobbyID: lobbyID}
}

// CreatePoll POST /poll.
func (h *PollsHandler) CreatePoll(c *fiber.Ctx) error {
	var req dto.CreatePollRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Question == "" || len(req.Options) == 0 || req.Duration <= 0 {
		return apperrors.NewValidationError("question, options, duration required", nil)
	}

	optionTexts := make([]string, 0, len(req.Options))
	for _, opt := range req.Options {
		optionTexts = append(optionTexts, opt.Text)
	}

	poll, err := h.polls.CreatePoll(c.UserContext(), req.Question, optionTexts, req.Duration)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewPollResponse(poll)})
}

// StartPoll POST /poll/:id/start.
func (h *PollsHandler) StartPoll(c *fiber.Ctx) error {
	poll, err := h.polls.StartPoll(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPollResponse(poll)})
}

// EndPoll POST /poll/:id/end.
func (h *PollsHandler) EndPoll(c *fiber.Ctx) error {
	poll, err := h.polls.CompletePoll(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPollResponse(poll)})
}

// CancelPoll POST /poll/:id/cancel.
func (h *PollsHandler) CancelPoll(c *fiber.Ctx) error {
	poll, err := h.polls.CancelPoll(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPollResponse(poll)})
}

// GetPollState GET /poll/:id.
func (h *PollsHandler) GetPollState(c *fiber.Ctx) error {
	state, err := h.polls.GetPollState(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	votes, err := h.votes.GetVoteCounts(c.UserContext(), state.Poll.ID)
	if err != nil {
		return err
	}
	resp := dto.NewPollResponse(state.Poll)
	return c.JSON(fiber.Map{"data": dto.PollStateResponse{
		Poll:       &resp,
		ServerTime: state.ServerTime,
		Votes:      votes,
	}})
}

// GetActivePoll GET /poll/active.
func (h *PollsHandler) GetActivePoll(c *fiber.Ctx) error {
	poll, err := h.polls.GetActivePoll(c.UserContext())
	if err != nil {
		return err
	}
	if poll == nil {
		return c.JSON(fiber.Map{"data": dto.PollStateResponse{
			Poll:       nil,
			ServerTime: time.Now(),
			Votes:      map[string]int{},
		}})
	}
	votes, err := h.votes.GetVoteCounts(c.UserContext(), poll.ID)
	if err != nil {
		return err
	}
	resp := dto.NewPollResponse(poll)
	return c.JSON(fiber.Map{"data": dto.PollStateResponse{
		Poll:       &resp,
		ServerTime: time.Now(),
		Votes:      votes,
	}})
}

// GetPollHistory GET /poll/history.
func (h *PollsHandler) GetPollHistory(c *fiber.Ctx) error {
	history, err := h.polls.GetPollHistory(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.PollResponse, 0, len(history))
	for i := range history {
		items = append(items, dto.NewPollResponse(&history[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetParticipants GET /poll/participants.
func (h *PollsHandler) GetParticipants(c *fiber.Ctx) error {
	roster := h.registry.List(h.lobbyID)
	return c.JSON(fiber.Map{"data": dto.NewRosterResponse(roster)})
}
