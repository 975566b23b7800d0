package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/spec-kit/polling-service/internal/api/http/handlers"
	"github.com/spec-kit/polling-service/internal/api/ws"
	"github.com/spec-kit/polling-service/internal/config"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Polls       *handlers.PollsHandler
	Votes       *handlers.VotesHandler
	Coordinator *ws.Coordinator
	RateLimiter *RateLimiter
	RateLimits  config.RateLimitConfig
}

// RegisterRoutes wires HTTP routes and the websocket endpoint.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	pollCreateLimiter := cfg.RateLimiter.Limit("poll_create", cfg.RateLimits.PollCreateMax, cfg.RateLimits.PollCreateWindow())
	voteLimiter := cfg.RateLimiter.Limit("vote", cfg.RateLimits.VoteMax, cfg.RateLimits.VoteWindow())

	pollGroup := app.Group("/poll")
	pollGroup.Post("/", pollCreateLimiter, cfg.Polls.CreatePoll)
	pollGroup.Get("/active", cfg.Polls.GetActivePoll)
	pollGroup.Get("/history", cfg.Polls.GetPollHistory)
	pollGroup.Get("/participants", cfg.Polls.GetParticipants)
	pollGroup.Get("/:id", cfg.Polls.GetPollState)
	pollGroup.Post("/:id/start", cfg.Polls.StartPoll)
	pollGroup.Post("/:id/end", cfg.Polls.EndPoll)
	pollGroup.Post("/:id/cancel", cfg.Polls.CancelPoll)

	app.Post("/vote", voteLimiter, cfg.Votes.SubmitVote)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(cfg.Coordinator.HandleConnection))
}
