// Package presence mirrors live session state into Redis so operational
// tooling (and, later, sibling instances) can see who is online.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type status struct {
	Status   string `json:"status"`
	LastSeen int64  `json:"last_seen"`
}

func NewStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "prattle"
	}
	return &Store{client: client, prefix: prefix, ttl: 24 * time.Hour}
}

func (s *Store) connKey(username string) string {
	return fmt.Sprintf("%s:conn:%s", s.prefix, username)
}

func (s *Store) presenceKey(username string) string {
	return fmt.Sprintf("%s:presence:%s", s.prefix, username)
}

// Connected records a newly opened connection and marks the user online.
func (s *Store) Connected(ctx context.Context, username, connID string) error {
	if err := s.client.SAdd(ctx, s.connKey(username), connID).Err(); err != nil {
		return err
	}
	_ = s.client.Expire(ctx, s.connKey(username), s.ttl).Err()
	return s.setStatus(ctx, username, "online")
}

// Disconnected drops the connection; the last session going marks the
// user offline.
func (s *Store) Disconnected(ctx context.Context, username, connID string) error {
	if err := s.client.SRem(ctx, s.connKey(username), connID).Err(); err != nil {
		return err
	}
	remaining, err := s.client.SCard(ctx, s.connKey(username)).Result()
	if err != nil {
		return err
	}
	if remaining == 0 {
		return s.setStatus(ctx, username, "offline")
	}
	return nil
}

// Status returns the raw presence record for a user, or nil when none
// was ever written.
func (s *Store) Status(ctx context.Context, username string) (map[string]any, error) {
	b, err := s.client.Get(ctx, s.presenceKey(username)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) setStatus(ctx context.Context, username, st string) error {
	b, _ := json.Marshal(status{Status: st, LastSeen: time.Now().Unix()})
	return s.client.Set(ctx, s.presenceKey(username), b, s.ttl).Err()
}
