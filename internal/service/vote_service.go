package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/polling-service/internal/domain"
	"github.com/spec-kit/polling-service/internal/events"
	"github.com/spec-kit/polling-service/internal/repository"
	apperrors "github.com/spec-kit/polling-service/pkg/util"
)

// VoteService enforces one-vote-per-student-per-poll, keeps the
// denormalized per-option counters in step with recorded votes and
// publishes vote_cast events for the fan-out layer.
type VoteService struct {
	votes      repository.VoteRepository
	polls      repository.PollRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// VoteDependencies bundles collaborators for the vote service.
type VoteDependencies struct {
	VoteRepo   repository.VoteRepository
	PollRepo   repository.PollRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewVoteService constructs the service.
func NewVoteService(deps VoteDependencies) *VoteService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &VoteService{
		votes:      deps.VoteRepo,
		polls:      deps.PollRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        now,
	}
}

// SubmitVote records a vote against an ACTIVE, non-expired poll. The expiry
// check against startTime+duration is authoritative and independent of the
// expiry timer, closing the window where a vote arrives after expiry but
// before the timer fires. The vote insert and the counter increment are two
// separate statements; the grouped-vote tally remains the source of truth.
func (s *VoteService) SubmitVote(ctx context.Context, pollID, studentName, selectedOption string) (*domain.Vote, error) {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.Status != domain.PollStatusActive {
		return nil, apperrors.NewPollInactive("poll is not active")
	}
	if poll.ExpiredAt(s.now()) {
		return nil, apperrors.NewPollExpired("poll has expired")
	}

	option, ok := poll.FindOption(selectedOption)
	if !ok {
		return nil, apperrors.NewInvalidOption("invalid option selected")
	}

	vote := &domain.Vote{
		PollID:         pollID,
		StudentName:    studentName,
		SelectedOption: selectedOption,
	}
	if err := s.votes.Create(ctx, vote); err != nil {
		return nil, err
	}

	if err := s.polls.IncrementOptionVotes(ctx, poll.ID, option.ID, 1); err != nil {
		// The vote is already durable; the denormalized counter is a cache
		// of the grouped tally and will disagree until corrected.
		s.logger.Error("failed to increment option counter",
			zap.String("poll_id", poll.ID),
			zap.String("option_id", option.ID),
			zap.Error(err))
	}

	s.dispatcher.Publish(ctx, events.Event{
		Type:   events.EventVoteCast,
		PollID: pollID,
		Payload: events.VoteCastPayload{
			PollID:         pollID,
			SelectedOption: selectedOption,
			StudentName:    studentName,
		},
	})
	return vote, nil
}

// GetVoteCounts returns the authoritative tally for a poll, keyed by
// whatever the students submitted (option text or option id).
func (s *VoteService) GetVoteCounts(ctx context.Context, pollID string) (map[string]int, error) {
	return s.votes.CountGroupedByOption(ctx, pollID)
}

// GetTotalVoteCount returns the number of votes recorded for a poll.
func (s *VoteService) GetTotalVoteCount(ctx context.Context, pollID string) (int, error) {
	return s.votes.CountByPoll(ctx, pollID)
}

// RemoveVote retracts a student's vote, decrements the matched option's
// counter and republishes vote_cast so observers rebroadcast tallies. It
// returns false when the student had no vote on the poll. Used by the kick
// flow only.
func (s *VoteService) RemoveVote(ctx context.Context, pollID, studentName string) (bool, error) {
	vote, err := s.votes.DeleteByPollAndStudent(ctx, pollID, studentName)
	if err != nil {
		return false, err
	}
	if vote == nil {
		return false, nil
	}

	poll, err := s.polls.GetByID(ctx, pollID)
	if err == nil {
		if option, ok := poll.FindOption(vote.SelectedOption); ok {
			if err := s.polls.IncrementOptionVotes(ctx, poll.ID, option.ID, -1); err != nil {
				s.logger.Error("failed to decrement option counter",
					zap.String("poll_id", poll.ID),
					zap.String("option_id", option.ID),
					zap.Error(err))
			}
		}
	} else {
		s.logger.Warn("poll lookup failed during vote retraction",
			zap.String("poll_id", pollID), zap.Error(err))
	}

	s.dispatcher.Publish(ctx, events.Event{
		Type:   events.EventVoteCast,
		PollID: pollID,
		Payload: events.VoteCastPayload{
			PollID:         pollID,
			SelectedOption: vote.SelectedOption,
			StudentName:    studentName,
		},
	})
	return true, nil
}
