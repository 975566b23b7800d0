package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/polling-service/internal/domain"
	"github.com/spec-kit/polling-service/internal/events"
	"github.com/spec-kit/polling-service/internal/repository"
	apperrors "github.com/spec-kit/polling-service/pkg/util"
)

// PollService owns the poll lifecycle state machine, the per-poll expiry
// timers and the startup recovery of timers after a restart.
type PollService struct {
	polls      repository.PollRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// PollDependencies bundles collaborators for the poll service.
type PollDependencies struct {
	PollRepo   repository.PollRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// PollState pairs a poll with the server clock, letting clients compute
// remaining time without trusting their own clock.
type PollState struct {
	Poll       *domain.Poll
	ServerTime time.Time
}

// NewPollService constructs the service.
func NewPollService(deps PollDependencies) *PollService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &PollService{
		polls:      deps.PollRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        now,
		timers:     make(map[string]*time.Timer),
	}
}

// CreatePoll creates a new poll in DRAFT.
func (s *PollService) CreatePoll(ctx context.Context, question string, optionTexts []string, durationSeconds int) (*domain.Poll, error) {
	if len(optionTexts) < 2 {
		return nil, apperrors.NewValidationError("a poll must have at least 2 options", nil)
	}

	options := make([]domain.PollOption, 0, len(optionTexts))
	for _, text := range optionTexts {
		options = append(options, domain.PollOption{Text: text, Votes: 0})
	}

	poll := &domain.Poll{
		Question: question,
		Options:  options,
		Duration: durationSeconds,
		Status:   domain.PollStatusDraft,
	}
	if err := s.polls.Create(ctx, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

// StartPoll transitions a DRAFT poll to ACTIVE, schedules its expiry timer
// and publishes poll_started. The single-active-poll check is a best-effort
// existence query, not a transactional guarantee: two near-simultaneous
// starts can both pass it.
func (s *PollService) StartPoll(ctx context.Context, pollID string) (*domain.Poll, error) {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.Status != domain.PollStatusDraft {
		return nil, apperrors.NewInvalidTransition(
			fmt.Sprintf("cannot start poll from status: %s", poll.Status), nil)
	}

	activeExists, err := s.polls.ExistsActive(ctx)
	if err != nil {
		return nil, err
	}
	if activeExists {
		return nil, apperrors.NewConflict("another poll is already active", nil)
	}

	startTime := s.now()
	poll.Status = domain.PollStatusActive
	poll.StartTime = &startTime
	if err := s.polls.Update(ctx, poll); err != nil {
		return nil, err
	}

	s.schedulePollEnd(poll.ID, time.Duration(poll.Duration)*time.Second)

	s.dispatcher.Publish(ctx, events.Event{
		Type:    events.EventPollStarted,
		PollID:  poll.ID,
		Payload: events.PollStartedPayload{Poll: poll},
	})
	return poll, nil
}

// CompletePoll transitions an ACTIVE poll to COMPLETED, cancels any pending
// expiry timer and publishes poll_ended. Timer cancellation is idempotent.
func (s *PollService) CompletePoll(ctx context.Context, pollID string) (*domain.Poll, error) {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.Status != domain.PollStatusActive {
		return nil, apperrors.NewInvalidTransition(
			fmt.Sprintf("cannot complete poll from status: %s", poll.Status), nil)
	}

	poll.Status = domain.PollStatusCompleted
	if err := s.polls.Update(ctx, poll); err != nil {
		return nil, err
	}

	s.cancelTimer(poll.ID)

	s.dispatcher.Publish(ctx, events.Event{
		Type:   events.EventPollEnded,
		PollID: poll.ID,
	})
	return poll, nil
}

// CancelPoll transitions a DRAFT poll to CANCELLED.
func (s *PollService) CancelPoll(ctx context.Context, pollID string) (*domain.Poll, error) {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.Status != domain.PollStatusDraft {
		return nil, apperrors.NewInvalidTransition(
			fmt.Sprintf("cannot cancel poll from status: %s", poll.Status), nil)
	}

	poll.Status = domain.PollStatusCancelled
	if err := s.polls.Update(ctx, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

// GetPollState returns the poll together with the current server time.
func (s *PollService) GetPollState(ctx context.Context, pollID string) (*PollState, error) {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return &PollState{Poll: poll, ServerTime: s.now()}, nil
}

// GetActivePoll returns the single ACTIVE poll, or nil when none exists.
func (s *PollService) GetActivePoll(ctx context.Context) (*domain.Poll, error) {
	polls, err := s.polls.ListByStatus(ctx, domain.PollStatusActive)
	if err != nil {
		return nil, err
	}
	if len(polls) == 0 {
		return nil, nil
	}
	return &polls[0], nil
}

// GetPollHistory returns all terminal polls, most recent first.
func (s *PollService) GetPollHistory(ctx context.Context) ([]domain.Poll, error) {
	return s.polls.ListHistory(ctx)
}

// RecoverActivePolls runs once at process start. Polls whose deadline passed
// while the process was down are completed immediately; the rest get their
// expiry timer re-registered for the remaining time. A failure on one poll
// does not block recovery of the others.
func (s *PollService) RecoverActivePolls(ctx context.Context) error {
	activePolls, err := s.polls.ListByStatus(ctx, domain.PollStatusActive)
	if err != nil {
		return err
	}

	now := s.now()
	for i := range activePolls {
		poll := &activePolls[i]
		deadline, ok := poll.ExpiresAt()
		if !ok {
			s.logger.Warn("active poll without start time, skipping recovery",
				zap.String("poll_id", poll.ID))
			continue
		}

		remaining := deadline.Sub(now)
		if remaining <= 0 {
			if _, err := s.CompletePoll(ctx, poll.ID); err != nil {
				s.logger.Error("failed to complete expired poll during recovery",
					zap.String("poll_id", poll.ID), zap.Error(err))
				continue
			}
			s.logger.Info("recovered and ended expired poll", zap.String("poll_id", poll.ID))
		} else {
			s.schedulePollEnd(poll.ID, remaining)
			s.logger.Info("rescheduled timer for active poll",
				zap.String("poll_id", poll.ID), zap.Duration("remaining", remaining))
		}
	}
	return nil
}

// Shutdown stops all pending expiry timers. Persisted state is untouched;
// recovery rebuilds the timers on the next start.
func (s *PollService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// TimerScheduled reports whether an expiry timer is pending for the poll.
func (s *PollService) TimerScheduled(pollID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[pollID]
	return ok
}

func (s *PollService) schedulePollEnd(pollID string, delay time.Duration) {
	timer := time.AfterFunc(delay, func() {
		if _, err := s.CompletePoll(context.Background(), pollID); err != nil {
			// Not retried: the poll stays ACTIVE until ended manually or
			// re-evaluated by recovery after a restart.
			s.logger.Error("error auto-ending poll",
				zap.String("poll_id", pollID), zap.Error(err))
			return
		}
		s.logger.Info("poll ended automatically", zap.String("poll_id", pollID))
	})

	s.mu.Lock()
	if old, ok := s.timers[pollID]; ok {
		old.Stop()
	}
	s.timers[pollID] = timer
	s.mu.Unlock()
}

func (s *PollService) cancelTimer(pollID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[pollID]; ok {
		timer.Stop()
		delete(s.timers, pollID)
	}
}
