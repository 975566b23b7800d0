package domain

import (
	"testing"
	"time"
)

func TestFindOption(t *testing.T) {
	poll := &Poll{
		Options: []PollOption{
			{ID: "opt-a", Text: "A"},
			{ID: "opt-b", Text: "B"},
		},
	}

	if opt, ok := poll.FindOption("A"); !ok || opt.ID != "opt-a" {
		t.Errorf("FindOption by text = %+v/%v, want opt-a", opt, ok)
	}
	if opt, ok := poll.FindOption("opt-b"); !ok || opt.Text != "B" {
		t.Errorf("FindOption by id = %+v/%v, want B", opt, ok)
	}
	if _, ok := poll.FindOption("Z"); ok {
		t.Error("FindOption should miss unknown selections")
	}
}

func TestExpiredAt(t *testing.T) {
	start := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	poll := &Poll{Duration: 30, StartTime: &start}

	if poll.ExpiredAt(start.Add(29 * time.Second)) {
		t.Error("poll should not be expired before the deadline")
	}
	if !poll.ExpiredAt(start.Add(30 * time.Second)) {
		t.Error("poll should be expired exactly at the deadline")
	}
	if !poll.ExpiredAt(start.Add(31 * time.Second)) {
		t.Error("poll should be expired past the deadline")
	}

	unstarted := &Poll{Duration: 30}
	if unstarted.ExpiredAt(start) {
		t.Error("an unstarted poll never expires")
	}
}
