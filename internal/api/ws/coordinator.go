package ws

import (
	"context"
	"encoding/json"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/polling-service/internal/api/dto"
	"github.com/spec-kit/polling-service/internal/config"
	"github.com/spec-kit/polling-service/internal/events"
	"github.com/spec-kit/polling-service/internal/service"
)

// Coordinator bridges domain events and per-connection commands to
// broadcasts. It holds no persisted state of its own: every broadcast is
// recomputed from the lifecycle manager, vote ledger and registry.
type Coordinator struct {
	hub      *Hub
	polls    *service.PollService
	votes    *service.VoteService
	chat     *service.ChatService
	registry *service.ParticipantRegistry
	limiter  *service.FixedWindowLimiter
	lobbyID  string
	logger   *zap.Logger
}

// CoordinatorDependencies bundles collaborators for the coordinator.
type CoordinatorDependencies struct {
	Hub        *Hub
	PollSvc    *service.PollService
	VoteSvc    *service.VoteService
	ChatSvc    *service.ChatService
	Registry   *service.ParticipantRegistry
	Dispatcher events.Dispatcher
	RateLimit  config.RateLimitConfig
	LobbyID    string
	Logger     *zap.Logger
}

// NewCoordinator constructs the coordinator and subscribes it to the
// event bus.
func NewCoordinator(deps CoordinatorDependencies) *Coordinator {
	c := &Coordinator{
		hub:      deps.Hub,
		polls:    deps.PollSvc,
		votes:    deps.VoteSvc,
		chat:     deps.ChatSvc,
		registry: deps.Registry,
		limiter:  service.NewFixedWindowLimiter(deps.RateLimit.SocketMax, deps.RateLimit.SocketWindow(), nil),
		lobbyID:  deps.LobbyID,
		logger:   deps.Logger,
	}

	deps.Dispatcher.Subscribe(events.EventVoteCast, c.onVoteCast)
	deps.Dispatcher.Subscribe(events.EventPollEnded, c.onPollEnded)
	deps.Dispatcher.Subscribe(events.EventPollStarted, c.onPollStarted)
	return c
}

// HandleConnection runs for the lifetime of one websocket connection. A
// studentName query parameter, when present, registers the connection as a
// lobby participant; registry rejections close the connection after an
// error frame.
func (c *Coordinator) HandleConnection(conn *websocket.Conn) {
	client := newClient(uuid.NewString(), conn, c.logger)
	studentName := conn.Query("studentName")

	c.hub.register(client)
	go client.writeLoop()

	client.Send(ServerMessage{
		Type:    MsgChatHistory,
		Payload: ChatHistoryPayload{Messages: c.chat.Messages()},
	})

	if studentName != "" {
		if err := c.registry.Add(c.lobbyID, studentName, client.ID); err != nil {
			client.Send(ServerMessage{Type: MsgError, Payload: ErrorPayload{Message: err.Error()}})
			client.Close()
			c.hub.unregister(client.ID)
			// Returning hands the conn back to the upgrade wrapper, which
			// closes it; wait for the error frame to flush first.
			client.Wait()
			return
		}
		c.broadcastParticipantUpdate(context.Background())
	}

	client.readLoop(func(data []byte) {
		c.handleMessage(client, data)
	})

	// Disconnect path: drop rate-limit state and the roster entry, then
	// let everyone know the roster changed.
	client.Close()
	c.hub.unregister(client.ID)
	c.limiter.Forget(client.ID)
	if studentName != "" {
		c.registry.RemoveByConnection(client.ID)
		c.broadcastParticipantUpdate(context.Background())
	}
	client.Wait()
}

func (c *Coordinator) handleMessage(client *Client, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		client.Send(ServerMessage{Type: MsgError, Payload: ErrorPayload{Message: "invalid message format"}})
		return
	}

	if !c.limiter.Allow(client.ID) {
		client.Send(ServerMessage{Type: MsgError, Payload: ErrorPayload{Message: "rate limit exceeded, please wait"}})
		return
	}

	ctx := context.Background()
	switch msg.Type {
	case MsgStartPoll:
		c.handleStartPoll(ctx, client, msg.Payload)
	case MsgEndPoll:
		c.handleEndPoll(ctx, client, msg.Payload)
	case MsgKickStudent:
		c.handleKick(ctx, client, msg.Payload)
	case MsgUnkick:
		c.handleUnkick(ctx, client, msg.Payload)
	case MsgVote:
		c.handleVote(ctx, client, msg.Payload)
	case MsgChat:
		c.handleChat(client, msg.Payload)
	default:
		client.Send(ServerMessage{Type: MsgError, Payload: ErrorPayload{Message: "unknown message type"}})
	}
}

func (c *Coordinator) handleStartPoll(ctx context.Context, client *Client, payload json.RawMessage) {
	var req PollIDPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.PollID == "" {
		client.Send(ServerMessage{Type: MsgError, Payload: ErrorPayload{Message: "pollId is required"}})
		return
	}
	if _, err := c.polls.StartPoll(ctx, req.PollID); err != nil {
		client.Send(ServerMessage{Type: MsgError, Payload: ErrorPayload{Message: err.Error()}})
	}
	// Broadcast happens via the poll_started event reaction.
}

func (c *Coordinator) handleEndPoll(ctx context.Context, client *Client, payload json.RawMessage) {
	var req PollIDPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.PollID == "" {
		client.Send(ServerMessage{Type: MsgError, Payload: ErrorPayload{Message: "pollId is required"}})
		return
	}
	if _, err := c.polls.CompletePoll(ctx, req.PollID); err != nil {
		client.Send(ServerMessage{Type: MsgError, Payload: ErrorPayload{Message: err.Error()}})
	}
	// Broadcast happens via the poll_ended event reaction.
}

func (c *Coordinator) handleKick(ctx context.Context, client *Client, payload json.RawMessage) {
	var req StudentNamePayload
	if err := json.Unmarshal(payload, &req); err != nil || req.StudentName == "" {
		client.Send(ServerMessage{Type: MsgError, Payload: ErrorPayload{Message: "studentName is required"}})
		return
	}

	targetID, err := c.registry.Kick(c.lobbyID, req.StudentName)
	if err != nil {
		client.Send(ServerMessage{Type: MsgError, Payload: ErrorPayload{Message: err.Error()}})
		return
	}

	// Disconnect seals the target's queue after the kicked frame is on it;
	// the write loop flushes the frame before the socket drops.
	c.hub.SendTo(targetID, ServerMessage{
		Type:    MsgKicked,
		Payload: KickedPayload{Message: "you have been removed by the teacher"},
	})
	c.hub.Disconnect(targetID)

	// Retract the student's vote on the currently active poll, if any. The
	// retraction republishes vote_cast, which rebroadcasts tallies.
	activePoll, err := c.polls.GetActivePoll(ctx)
	if err != nil {
		c.logger.Error("active poll lookup during kick", zap.Error(err))
	} else if activePoll != nil {
		if _, err := c.votes.RemoveVote(ctx, activePoll.ID, req.StudentName); err != nil {
			c.logger.Error("vote retraction during kick",
				zap.String("poll_id", activePoll.ID),
				zap.String("student_name", req.StudentName),
				zap.Error(err))
		}
	}

	c.broadcastParticipantUpdate(ctx)
}

func (c *Coordinator) handleUnkick(ctx context.Context, client *Client, payload json.RawMessage) {
	var req StudentNamePayload
	if err := json.Unmarshal(payload, &req); err != nil || req.StudentName == "" {
		client.Send(ServerMessage{Type: MsgError, Payload: ErrorPayload{Message: "studentName is required"}})
		return
	}
	if err := c.registry.Unkick(c.lobbyID, req.StudentName); err != nil {
		client.Send(ServerMessage{Type: MsgError, Payload: ErrorPayload{Message: err.Error()}})
		return
	}
	c.broadcastParticipantUpdate(ctx)
}

func (c *Coordinator) handleVote(ctx context.Context, client *Client, payload json.RawMessage) {
	var req VotePayload
	if err := json.Unmarshal(payload, &req); err != nil || req.PollID == "" || req.StudentName == "" || req.SelectedOption == "" {
		client.Send(ServerMessage{Type: MsgError, Payload: ErrorPayload{Message: "pollId, studentName, selectedOption are required"}})
		return
	}
	if _, err := c.votes.SubmitVote(ctx, req.PollID, req.StudentName, req.SelectedOption); err != nil {
		client.Send(ServerMessage{Type: MsgError, Payload: ErrorPayload{Message: err.Error()}})
	}
	// Broadcast happens via the vote_cast event reaction, never here,
	// which keeps a single broadcast per recorded vote.
}

func (c *Coordinator) handleChat(client *Client, payload json.RawMessage) {
	var req ChatPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.Sender == "" {
		client.Send(ServerMessage{Type: MsgError, Payload: ErrorPayload{Message: "sender and text are required"}})
		return
	}
	msg, err := c.chat.AddMessage(req.Sender, req.Text)
	if err != nil {
		client.Send(ServerMessage{Type: MsgError, Payload: ErrorPayload{Message: err.Error()}})
		return
	}
	c.hub.Broadcast(ServerMessage{Type: MsgChatNew, Payload: msg})
}

func (c *Coordinator) onVoteCast(ctx context.Context, event events.Event) error {
	state, err := c.polls.GetPollState(ctx, event.PollID)
	if err != nil {
		return err
	}
	counts, err := c.votes.GetVoteCounts(ctx, event.PollID)
	if err != nil {
		return err
	}

	c.hub.Broadcast(ServerMessage{
		Type:    MsgPollUpdated,
		Payload: dto.NewPollResponseWithVotes(state.Poll, counts),
	})
	c.broadcastParticipantUpdate(ctx)
	return nil
}

func (c *Coordinator) onPollEnded(ctx context.Context, event events.Event) error {
	// Chat is scoped to poll lifetime.
	c.chat.Clear()
	c.hub.Broadcast(ServerMessage{
		Type:    MsgPollEnded,
		Payload: PollEndedPayload{PollID: event.PollID},
	})
	return nil
}

func (c *Coordinator) onPollStarted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PollStartedPayload)
	if !ok || payload.Poll == nil {
		c.logger.Error("poll_started event with unexpected payload",
			zap.String("poll_id", event.PollID))
		return nil
	}
	c.hub.Broadcast(ServerMessage{
		Type:    MsgPollStarted,
		Payload: PollStartedPayload{Poll: dto.NewPollResponse(payload.Poll)},
	})
	return nil
}

func (c *Coordinator) broadcastParticipantUpdate(ctx context.Context) {
	roster := c.registry.List(c.lobbyID)

	totalVoted := 0
	activePoll, err := c.polls.GetActivePoll(ctx)
	if err != nil {
		c.logger.Error("active poll lookup for participant summary", zap.Error(err))
	} else if activePoll != nil {
		if total, err := c.votes.GetTotalVoteCount(ctx, activePoll.ID); err == nil {
			totalVoted = total
		} else {
			c.logger.Error("total vote count for participant summary", zap.Error(err))
		}
	}

	rosterResp := dto.NewRosterResponse(roster)
	c.hub.Broadcast(ServerMessage{
		Type: MsgParticipantsUpdate,
		Payload: ParticipantsPayload{
			ConnectedStudents: rosterResp.Students,
			TotalParticipants: roster.ActiveCount(),
			TotalVoted:        totalVoted,
		},
	})
}
