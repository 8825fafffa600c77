// Package history answers the read-side message queries: threads,
// conversations, unread counts and hashtag search.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/zaederex/prattle/internal/models"
	"github.com/zaederex/prattle/internal/store"
)

// ErrConversationNotFound marks a two-user conversation with no
// messages in either direction.
var ErrConversationNotFound = errors.New("conversation not found")

type Service struct {
	directory store.Directory
	messages  store.MessageStore
	tags      store.TagStore
}

func NewService(d store.Directory, ms store.MessageStore, ts store.TagStore) *Service {
	return &Service{directory: d, messages: ms, tags: ts}
}

// Thread returns every message under a thread root, oldest first.
func (s *Service) Thread(ctx context.Context, rootID int) ([]*models.Message, error) {
	return s.messages.FindThread(ctx, rootID)
}

// Conversation returns the two-way history between two usernames in
// ascending message-id order, with expired self-destruct messages
// dropped. An empty history is ErrConversationNotFound.
func (s *Service) Conversation(ctx context.Context, usernameA, usernameB string) ([]*models.Message, error) {
	a, err := s.directory.FindUserByName(ctx, usernameA)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", usernameA, err)
	}
	b, err := s.directory.FindUserByName(ctx, usernameB)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", usernameB, err)
	}
	all, err := s.messages.FindBetween(ctx, a.ID, b.ID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	kept := all[:0]
	for _, m := range all {
		if m.Expired(now) {
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) == 0 {
		return nil, ErrConversationNotFound
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].ID < kept[j].ID })
	return kept, nil
}

// UnreadCount counts messages from sender that recipient has not read.
func (s *Service) UnreadCount(ctx context.Context, recipient, sender string) (int, error) {
	r, err := s.directory.FindUserByName(ctx, recipient)
	if err != nil {
		return 0, fmt.Errorf("lookup %s: %w", recipient, err)
	}
	f, err := s.directory.FindUserByName(ctx, sender)
	if err != nil {
		return 0, fmt.Errorf("lookup %s: %w", sender, err)
	}
	return s.messages.CountUnread(ctx, r.ID, f.ID)
}

// SearchByHashtag returns the tagged messages the named user may see:
// private messages to or from them, messages of groups they belong to,
// and broadcasts. Results come newest first, expired self-destruct
// messages excluded, and the tag's search-hit counter is incremented.
func (s *Service) SearchByHashtag(ctx context.Context, tag, username string) ([]*models.Message, error) {
	user, err := s.directory.FindUserByName(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", username, err)
	}
	tagged, err := s.tags.MessagesForTag(ctx, tag)
	if err != nil {
		return nil, err
	}
	if err := s.tags.IncrementHits(ctx, tag); err != nil && !errors.Is(err, store.ErrTagNotFound) {
		return nil, err
	}

	groups, err := s.directory.GroupsForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	groupIDs := make(map[int]struct{}, len(groups))
	for _, g := range groups {
		groupIDs[g.ID] = struct{}{}
	}

	now := time.Now().UTC()
	var visible []*models.Message
	for _, m := range tagged {
		if m.Expired(now) {
			continue
		}
		switch {
		case m.Broadcast:
			visible = append(visible, m)
		case m.Group:
			if _, member := groupIDs[m.TargetID]; member {
				visible = append(visible, m)
			}
		default:
			if m.TargetID == user.ID || m.SenderID == user.ID {
				visible = append(visible, m)
			}
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		return visible[i].CreatedAt.After(visible[j].CreatedAt)
	})
	return visible, nil
}

// TopTags returns the five most searched hashtags.
func (s *Service) TopTags(ctx context.Context) ([]*models.Hashtag, error) {
	return s.tags.TopTags(ctx, 5)
}
