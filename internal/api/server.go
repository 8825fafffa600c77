package api

import (
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/zaederex/prattle/internal/auth"
	"github.com/zaederex/prattle/internal/chat"
	"github.com/zaederex/prattle/internal/config"
	"github.com/zaederex/prattle/internal/history"
	"github.com/zaederex/prattle/internal/store"
)

type Server struct {
	app       *fiber.App
	history   *history.Service
	directory store.Directory
	filters   store.FilterStore
	log       *zap.SugaredLogger
}

// NewServer wires the fiber app: the websocket chat endpoint behind the
// upgrade guard and the authenticated, rate-limited REST surface.
func NewServer(cfg *config.Config, endpoint *chat.Endpoint, hist *history.Service,
	directory store.Directory, filters store.FilterStore,
	verifier *auth.Verifier, log *zap.SugaredLogger) *fiber.App {

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(fiberlogger.New())

	s := &Server{app: app, history: hist, directory: directory, filters: filters, log: log}

	v1 := app.Group("/v1")
	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1.Get("/ws/chat/:username", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	v1.Get("/ws/chat/:username", websocket.New(endpoint.Handle()))

	rl := newIPRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	rest := v1.Group("", rl.middleware(), verifier.Middleware())

	rest.Get("/messages/thread/:id", s.getThread)
	rest.Get("/messages/conversation/:a/:b", s.getConversation)
	rest.Get("/messages/unread-count/:a/:b", s.getUnreadCount)
	rest.Get("/hashtags/top", s.getTopHashtags)
	rest.Get("/hashtags/:tag/messages", s.searchHashtag)
	rest.Get("/users/:username/filters", s.listFilters)
	rest.Post("/users/:username/filters", s.addFilter)
	rest.Delete("/users/:username/filters/:keyword", s.removeFilter)

	return app
}
