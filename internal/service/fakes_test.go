package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/polling-service/internal/domain"
	"github.com/spec-kit/polling-service/internal/events"
	apperrors "github.com/spec-kit/polling-service/pkg/util"
)

// testClock is a controllable time source for tests.
type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{current: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

var testEpoch = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

// memPollRepo is an in-memory PollRepository honoring the same contract
// as the Postgres implementation.
type memPollRepo struct {
	mu    sync.Mutex
	polls map[string]*domain.Poll
	seq   int
}

func newMemPollRepo() *memPollRepo {
	return &memPollRepo{polls: make(map[string]*domain.Poll)}
}

func copyPoll(p *domain.Poll) *domain.Poll {
	cp := *p
	cp.Options = make([]domain.PollOption, len(p.Options))
	copy(cp.Options, p.Options)
	if p.StartTime != nil {
		t := *p.StartTime
		cp.StartTime = &t
	}
	return &cp
}

func (r *memPollRepo) Create(_ context.Context, poll *domain.Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	poll.ID = fmt.Sprintf("poll-%d", r.seq)
	for i := range poll.Options {
		poll.Options[i].ID = fmt.Sprintf("%s-opt-%d", poll.ID, i)
	}
	now := time.Now()
	poll.CreatedAt = now
	poll.UpdatedAt = now
	r.polls[poll.ID] = copyPoll(poll)
	return nil
}

func (r *memPollRepo) Update(_ context.Context, poll *domain.Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.polls[poll.ID]; !ok {
		return apperrors.NewNotFound("poll", nil)
	}
	poll.UpdatedAt = time.Now()
	r.polls[poll.ID] = copyPoll(poll)
	return nil
}

func (r *memPollRepo) GetByID(_ context.Context, id string) (*domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	poll, ok := r.polls[id]
	if !ok {
		return nil, apperrors.NewNotFound("poll", map[string]any{"poll_id": id})
	}
	return copyPoll(poll), nil
}

func (r *memPollRepo) ExistsActive(_ context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, poll := range r.polls {
		if poll.Status == domain.PollStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPollRepo) ListByStatus(_ context.Context, statuses ...domain.PollStatus) ([]domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Poll
	for _, poll := range r.polls {
		for _, status := range statuses {
			if poll.Status == status {
				out = append(out, *copyPoll(poll))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].CreatedAt, out[j].CreatedAt
		if out[i].StartTime != nil {
			ti = *out[i].StartTime
		}
		if out[j].StartTime != nil {
			tj = *out[j].StartTime
		}
		return ti.After(tj)
	})
	return out, nil
}

func (r *memPollRepo) ListHistory(ctx context.Context) ([]domain.Poll, error) {
	return r.ListByStatus(ctx, domain.PollStatusCompleted, domain.PollStatusCancelled)
}

func (r *memPollRepo) IncrementOptionVotes(_ context.Context, pollID, optionID string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	poll, ok := r.polls[pollID]
	if !ok {
		return apperrors.NewNotFound("poll", nil)
	}
	for i := range poll.Options {
		if poll.Options[i].ID == optionID {
			poll.Options[i].Votes += delta
			return nil
		}
	}
	return apperrors.NewNotFound("poll option", nil)
}

// memVoteRepo is an in-memory VoteRepository enforcing the
// (poll_id, student_name) uniqueness constraint.
type memVoteRepo struct {
	mu    sync.Mutex
	votes map[string]*domain.Vote
	seq   int
}

func newMemVoteRepo() *memVoteRepo {
	return &memVoteRepo{votes: make(map[string]*domain.Vote)}
}

func voteKey(pollID, studentName string) string {
	return pollID + "|" + studentName
}

func (r *memVoteRepo) Create(_ context.Context, vote *domain.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := voteKey(vote.PollID, vote.StudentName)
	if _, exists := r.votes[key]; exists {
		return apperrors.NewDuplicateVote("student has already voted on this poll")
	}
	r.seq++
	vote.ID = fmt.Sprintf("vote-%d", r.seq)
	vote.CreatedAt = time.Now()
	cp := *vote
	r.votes[key] = &cp
	return nil
}

func (r *memVoteRepo) CountByPoll(_ context.Context, pollID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, vote := range r.votes {
		if vote.PollID == pollID {
			count++
		}
	}
	return count, nil
}

func (r *memVoteRepo) CountGroupedByOption(_ context.Context, pollID string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	for _, vote := range r.votes {
		if vote.PollID == pollID {
			counts[vote.SelectedOption]++
		}
	}
	return counts, nil
}

func (r *memVoteRepo) DeleteByPollAndStudent(_ context.Context, pollID, studentName string) (*domain.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := voteKey(pollID, studentName)
	vote, ok := r.votes[key]
	if !ok {
		return nil, nil
	}
	delete(r.votes, key)
	cp := *vote
	return &cp, nil
}

// eventRecorder captures published events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(_ context.Context, event events.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *eventRecorder) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
