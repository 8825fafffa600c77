package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/zaederex/prattle/internal/models"
	"github.com/zaederex/prattle/internal/store"
)

// Presence mirrors session lifecycle into an external presence store.
type Presence interface {
	Connected(ctx context.Context, username, connID string) error
	Disconnected(ctx context.Context, username, connID string) error
}

// EndpointConfig carries the socket tuning knobs.
type EndpointConfig struct {
	PingInterval   time.Duration
	WriteDeadline  time.Duration
	MaxMessageSize int64
}

// Endpoint is the websocket entry point at /v1/ws/chat/:username. The
// username on the path is already authenticated by the upstream
// boundary; an unknown username gets a single error frame and no
// session.
type Endpoint struct {
	directory store.Directory
	fanout    Fanout
	router    *Router
	stash     *StashDeliverer
	presence  Presence
	cfg       EndpointConfig
	log       *zap.SugaredLogger
}

func NewEndpoint(d store.Directory, f Fanout, r *Router, sd *StashDeliverer,
	p Presence, cfg EndpointConfig, log *zap.SugaredLogger) *Endpoint {
	if cfg.PingInterval == 0 {
		cfg.PingInterval = 25 * time.Second
	}
	if cfg.WriteDeadline == 0 {
		cfg.WriteDeadline = 10 * time.Second
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = 64 * 1024
	}
	return &Endpoint{directory: d, fanout: f, router: r, stash: sd, presence: p, cfg: cfg, log: log}
}

// Handle returns the handler to mount behind the websocket upgrade
// middleware.
func (e *Endpoint) Handle() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		e.serve(conn)
	}
}

func (e *Endpoint) serve(conn Conn) {
	ctx := context.Background()
	username := conn.Params("username")

	user, err := e.directory.FindUserByName(ctx, username)
	if err != nil {
		// rejected terminally: error frame, no registration, no stash
		e.log.Errorw("cannot open session for unknown user", "username", username)
		_ = conn.WriteJSON(&models.Message{
			Body:      fmt.Sprintf("User %s could not be found", username),
			CreatedAt: time.Now().UTC(),
		})
		_ = conn.Close()
		return
	}

	client := NewClient(conn)
	go client.WritePump(e.cfg.PingInterval, e.cfg.WriteDeadline)

	e.fanout.Register(client.ID(), username, client)
	if e.presence != nil {
		if err := e.presence.Connected(ctx, username, client.ID()); err != nil {
			e.log.Warnw("presence update failed", "username", username, "err", err)
		}
	}
	e.log.Infow("session opened", "username", username, "conn_id", client.ID())

	if err := e.stash.DeliverStashed(ctx, user, client.ID()); err != nil {
		e.log.Warnw("stash replay failed", "username", username, "err", err)
	}
	e.announce(&models.Message{
		SenderID:  user.ID,
		Body:      fmt.Sprintf("%s connected", username),
		CreatedAt: time.Now().UTC(),
	})

	e.readLoop(ctx, conn, client, user)

	// the registry entry goes away before the close announcement so a
	// closing connection never becomes a target of its own goodbye
	e.fanout.Unregister(client.ID())
	client.Close()
	if e.presence != nil {
		if err := e.presence.Disconnected(ctx, username, client.ID()); err != nil {
			e.log.Warnw("presence update failed", "username", username, "err", err)
		}
	}
	if err := e.directory.SetLastLogout(ctx, user.ID, time.Now().UTC()); err != nil {
		e.log.Warnw("last logout stamp failed", "username", username, "err", err)
	}
	e.announce(&models.Message{
		SenderID:  user.ID,
		Body:      fmt.Sprintf("%s disconnected", username),
		CreatedAt: time.Now().UTC(),
	})
	e.log.Infow("session closed", "username", username, "conn_id", client.ID())
}

func (e *Endpoint) readLoop(ctx context.Context, conn Conn, client *Client, user *models.User) {
	conn.SetReadLimit(e.cfg.MaxMessageSize)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg models.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			// malformed payload closes this connection only
			e.log.Errorw("malformed inbound payload", "username", user.Username, "err", err)
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInvalidFramePayloadData, "malformed message"))
			return
		}
		if msg.SenderID == 0 {
			msg.SenderID = user.ID
		}
		if _, err := e.router.Route(ctx, &msg); err != nil {
			if errors.Is(err, store.ErrDuplicateMessage) {
				_ = client.Send(&models.Message{
					Body:      fmt.Sprintf("Message %d already exists and was not delivered", msg.ID),
					CreatedAt: time.Now().UTC(),
				})
				continue
			}
			e.log.Errorw("routing failed", "username", user.Username, "err", err)
		}
	}
}

// announce pushes a lifecycle notice to every live connection. These
// frames are transient: never persisted, never filtered.
func (e *Endpoint) announce(m *models.Message) {
	for _, connID := range e.fanout.Connections() {
		if err := e.fanout.Push(connID, m); err != nil {
			e.log.Debugw("announce push failed", "conn_id", connID, "err", err)
		}
	}
}
