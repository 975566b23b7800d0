package events

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestDispatcherInvokesHandlersInOrder(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var order []int
	d.Subscribe(EventVoteCast, func(context.Context, Event) error {
		order = append(order, 1)
		return nil
	})
	d.Subscribe(EventVoteCast, func(context.Context, Event) error {
		order = append(order, 2)
		return nil
	})

	d.Publish(context.Background(), Event{Type: EventVoteCast, PollID: "p1"})

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("handler order = %v, want [1 2]", order)
	}
}

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	called := false
	d.Subscribe(EventPollEnded, func(context.Context, Event) error {
		return errors.New("boom")
	})
	d.Subscribe(EventPollEnded, func(context.Context, Event) error {
		called = true
		return nil
	})

	d.Publish(context.Background(), Event{Type: EventPollEnded, PollID: "p1"})

	if !called {
		t.Error("later handler should run despite earlier failure")
	}
}

func TestDispatcherIgnoresOtherEventTypes(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	called := false
	d.Subscribe(EventPollStarted, func(context.Context, Event) error {
		called = true
		return nil
	})

	d.Publish(context.Background(), Event{Type: EventVoteCast, PollID: "p1"})

	if called {
		t.Error("handler for a different event type should not run")
	}
}
