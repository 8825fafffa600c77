// Package transport provides fan-out backends beyond the in-process
// session registry. The Redis bridge lets a deployment with several
// instances forward messages for users whose sessions live elsewhere;
// the router keeps talking to the same Fanout interface either way.
package transport

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zaederex/prattle/internal/chat"
	"github.com/zaederex/prattle/internal/models"
)

const channelPrefix = "prattle:fanout:"

// RedisBridge wraps a local Fanout and carries cross-instance traffic
// over Redis pub/sub: the router hands it every target with no local
// session via Forward, and Start feeds frames published by sibling
// instances into the local registry. Single-instance deployments simply
// never see remote traffic.
type RedisBridge struct {
	local  chat.Fanout
	client *redis.Client
	log    *zap.SugaredLogger

	cancel context.CancelFunc
}

type frame struct {
	Username string          `json:"username"`
	Message  *models.Message `json:"message"`
}

func NewRedisBridge(local chat.Fanout, client *redis.Client, log *zap.SugaredLogger) *RedisBridge {
	return &RedisBridge{local: local, client: client, log: log}
}

func (b *RedisBridge) Register(connID, username string, s chat.Sender) {
	b.local.Register(connID, username, s)
}

func (b *RedisBridge) Unregister(connID string) {
	b.local.Unregister(connID)
}

func (b *RedisBridge) Push(connID string, m *models.Message) error {
	return b.local.Push(connID, m)
}

func (b *RedisBridge) ConnectionsFor(username string) []string {
	return b.local.ConnectionsFor(username)
}

func (b *RedisBridge) Connections() []string     { return b.local.Connections() }
func (b *RedisBridge) ActiveUsernames() []string { return b.local.ActiveUsernames() }

// Forward publishes a message for a username to sibling instances.
func (b *RedisBridge) Forward(ctx context.Context, username string, m *models.Message) error {
	payload, err := json.Marshal(frame{Username: username, Message: m})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channelPrefix+username, payload).Err()
}

// Start subscribes to the fan-out channel pattern and delivers remote
// frames to sessions this instance owns. It returns immediately; Stop
// tears the subscription down.
func (b *RedisBridge) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	sub := b.client.PSubscribe(ctx, channelPrefix+"*")
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var f frame
				if err := json.Unmarshal([]byte(msg.Payload), &f); err != nil {
					b.log.Warnw("bad fanout frame", "err", err)
					continue
				}
				if f.Message == nil {
					continue
				}
				for _, connID := range b.local.ConnectionsFor(f.Username) {
					if err := b.local.Push(connID, f.Message); err != nil {
						b.log.Debugw("remote push failed", "conn_id", connID, "err", err)
					}
				}
			}
		}
	}()
}

func (b *RedisBridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}
