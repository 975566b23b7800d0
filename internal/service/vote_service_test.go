package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/polling-service/internal/domain"
	"github.com/spec-kit/polling-service/internal/events"
	apperrors "github.com/spec-kit/polling-service/pkg/util"
)

type voteFixture struct {
	votes    *VoteService
	polls    *PollService
	pollRepo *memPollRepo
	voteRepo *memVoteRepo
	clock    *testClock
	recorder *eventRecorder
}

func newVoteFixture(t *testing.T) *voteFixture {
	t.Helper()
	pollRepo := newMemPollRepo()
	voteRepo := newMemVoteRepo()
	clock := newTestClock(testEpoch)
	recorder := &eventRecorder{}

	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	dispatcher.Subscribe(events.EventVoteCast, recorder.record)

	pollSvc := NewPollService(PollDependencies{
		PollRepo:   pollRepo,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Now:        clock.Now,
	})
	t.Cleanup(pollSvc.Shutdown)

	voteSvc := NewVoteService(VoteDependencies{
		VoteRepo:   voteRepo,
		PollRepo:   pollRepo,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Now:        clock.Now,
	})

	return &voteFixture{
		votes:    voteSvc,
		polls:    pollSvc,
		pollRepo: pollRepo,
		voteRepo: voteRepo,
		clock:    clock,
		recorder: recorder,
	}
}

func (f *voteFixture) activePoll(t *testing.T, duration int) *domain.Poll {
	t.Helper()
	poll, err := f.polls.CreatePoll(context.Background(), "Q1", []string{"A", "B"}, duration)
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}
	started, err := f.polls.StartPoll(context.Background(), poll.ID)
	if err != nil {
		t.Fatalf("StartPoll: %v", err)
	}
	return started
}

// assertTallyConsistent checks that the grouped tally, the total count and
// the denormalized per-option counters all agree.
func (f *voteFixture) assertTallyConsistent(t *testing.T, pollID string) {
	t.Helper()
	ctx := context.Background()

	counts, err := f.votes.GetVoteCounts(ctx, pollID)
	if err != nil {
		t.Fatalf("GetVoteCounts: %v", err)
	}
	total, err := f.votes.GetTotalVoteCount(ctx, pollID)
	if err != nil {
		t.Fatalf("GetTotalVoteCount: %v", err)
	}

	sum := 0
	for _, c := range counts {
		sum += c
	}
	if sum != total {
		t.Errorf("sum of grouped counts = %d, total = %d", sum, total)
	}

	poll, err := f.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	for _, opt := range poll.Options {
		tally := counts[opt.Text] + counts[opt.ID]
		if opt.Votes != tally {
			t.Errorf("option %q counter = %d, tally = %d", opt.Text, opt.Votes, tally)
		}
	}
}

func TestSubmitVote(t *testing.T) {
	f := newVoteFixture(t)
	poll := f.activePoll(t, 30)

	vote, err := f.votes.SubmitVote(context.Background(), poll.ID, "alice", "A")
	if err != nil {
		t.Fatalf("SubmitVote: %v", err)
	}
	if vote.ID == "" {
		t.Error("vote should have an id")
	}

	got, err := f.pollRepo.GetByID(context.Background(), poll.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Options[0].Votes != 1 {
		t.Errorf("option A counter = %d, want 1", got.Options[0].Votes)
	}
	if got := len(f.recorder.ofType(events.EventVoteCast)); got != 1 {
		t.Errorf("vote_cast events = %d, want 1", got)
	}
	f.assertTallyConsistent(t, poll.ID)
}

func TestSubmitVoteDuplicate(t *testing.T) {
	f := newVoteFixture(t)
	poll := f.activePoll(t, 30)

	if _, err := f.votes.SubmitVote(context.Background(), poll.ID, "alice", "A"); err != nil {
		t.Fatalf("SubmitVote: %v", err)
	}

	_, err := f.votes.SubmitVote(context.Background(), poll.ID, "alice", "A")
	if !apperrors.IsCode(err, "DUPLICATE_VOTE") {
		t.Fatalf("err = %v, want DUPLICATE_VOTE", err)
	}

	// Counts unchanged by the rejected vote.
	got, err := f.pollRepo.GetByID(context.Background(), poll.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Options[0].Votes != 1 {
		t.Errorf("option A counter = %d, want 1", got.Options[0].Votes)
	}
	f.assertTallyConsistent(t, poll.ID)
}

func TestSubmitVotePollNotFound(t *testing.T) {
	f := newVoteFixture(t)

	_, err := f.votes.SubmitVote(context.Background(), "missing", "alice", "A")
	if !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestSubmitVotePollNotActive(t *testing.T) {
	f := newVoteFixture(t)
	poll, err := f.polls.CreatePoll(context.Background(), "Q1", []string{"A", "B"}, 30)
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}

	_, err = f.votes.SubmitVote(context.Background(), poll.ID, "alice", "A")
	if !apperrors.IsCode(err, "POLL_INACTIVE") {
		t.Fatalf("err = %v, want POLL_INACTIVE", err)
	}
}

func TestSubmitVoteExpiredAtExactDeadline(t *testing.T) {
	f := newVoteFixture(t)
	poll := f.activePoll(t, 30)

	// Exactly startTime+duration counts as expired.
	f.clock.Advance(30 * time.Second)

	_, err := f.votes.SubmitVote(context.Background(), poll.ID, "alice", "A")
	if !apperrors.IsCode(err, "POLL_EXPIRED") {
		t.Fatalf("err = %v, want POLL_EXPIRED", err)
	}
}

func TestSubmitVoteJustBeforeDeadline(t *testing.T) {
	f := newVoteFixture(t)
	poll := f.activePoll(t, 30)

	f.clock.Advance(29 * time.Second)

	if _, err := f.votes.SubmitVote(context.Background(), poll.ID, "alice", "A"); err != nil {
		t.Fatalf("SubmitVote: %v", err)
	}
}

func TestSubmitVoteInvalidOption(t *testing.T) {
	f := newVoteFixture(t)
	poll := f.activePoll(t, 30)

	_, err := f.votes.SubmitVote(context.Background(), poll.ID, "alice", "Z")
	if !apperrors.IsCode(err, "INVALID_OPTION") {
		t.Fatalf("err = %v, want INVALID_OPTION", err)
	}

	total, err := f.votes.GetTotalVoteCount(context.Background(), poll.ID)
	if err != nil {
		t.Fatalf("GetTotalVoteCount: %v", err)
	}
	if total != 0 {
		t.Errorf("total votes = %d, want 0", total)
	}
}

func TestSubmitVoteByOptionID(t *testing.T) {
	f := newVoteFixture(t)
	poll := f.activePoll(t, 30)

	optionID := poll.Options[1].ID
	if _, err := f.votes.SubmitVote(context.Background(), poll.ID, "alice", optionID); err != nil {
		t.Fatalf("SubmitVote by option id: %v", err)
	}

	got, err := f.pollRepo.GetByID(context.Background(), poll.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Options[1].Votes != 1 {
		t.Errorf("option B counter = %d, want 1", got.Options[1].Votes)
	}
	f.assertTallyConsistent(t, poll.ID)
}

func TestRemoveVote(t *testing.T) {
	f := newVoteFixture(t)
	poll := f.activePoll(t, 30)

	if _, err := f.votes.SubmitVote(context.Background(), poll.ID, "bob", "B"); err != nil {
		t.Fatalf("SubmitVote: %v", err)
	}

	removed, err := f.votes.RemoveVote(context.Background(), poll.ID, "bob")
	if err != nil {
		t.Fatalf("RemoveVote: %v", err)
	}
	if !removed {
		t.Fatal("RemoveVote should report true for an existing vote")
	}

	got, err := f.pollRepo.GetByID(context.Background(), poll.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Options[1].Votes != 0 {
		t.Errorf("option B counter = %d, want 0 after retraction", got.Options[1].Votes)
	}
	// One vote_cast for the submit, one republished for the retraction.
	if got := len(f.recorder.ofType(events.EventVoteCast)); got != 2 {
		t.Errorf("vote_cast events = %d, want 2", got)
	}
	f.assertTallyConsistent(t, poll.ID)

	// The student can vote again after retraction.
	if _, err := f.votes.SubmitVote(context.Background(), poll.ID, "bob", "A"); err != nil {
		t.Fatalf("SubmitVote after retraction: %v", err)
	}
	f.assertTallyConsistent(t, poll.ID)
}

func TestRemoveVoteAbsent(t *testing.T) {
	f := newVoteFixture(t)
	poll := f.activePoll(t, 30)

	removed, err := f.votes.RemoveVote(context.Background(), poll.ID, "nobody")
	if err != nil {
		t.Fatalf("RemoveVote: %v", err)
	}
	if removed {
		t.Error("RemoveVote should report false when no vote exists")
	}
	if got := len(f.recorder.ofType(events.EventVoteCast)); got != 0 {
		t.Errorf("vote_cast events = %d, want 0", got)
	}
}

func TestTallyConsistencyOverSequence(t *testing.T) {
	f := newVoteFixture(t)
	poll := f.activePoll(t, 300)

	students := []struct {
		name   string
		option string
	}{
		{"alice", "A"},
		{"bob", "B"},
		{"carol", "A"},
		{"dave", poll.Options[1].ID},
	}
	for _, s := range students {
		if _, err := f.votes.SubmitVote(context.Background(), poll.ID, s.name, s.option); err != nil {
			t.Fatalf("SubmitVote(%s): %v", s.name, err)
		}
	}

	if _, err := f.votes.RemoveVote(context.Background(), poll.ID, "carol"); err != nil {
		t.Fatalf("RemoveVote: %v", err)
	}

	total, err := f.votes.GetTotalVoteCount(context.Background(), poll.ID)
	if err != nil {
		t.Fatalf("GetTotalVoteCount: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	f.assertTallyConsistent(t, poll.ID)
}
