// Package memory is an in-process implementation of the store contracts.
// It backs the test suite and the "memory" store driver for local runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zaederex/prattle/internal/models"
	"github.com/zaederex/prattle/internal/store"
)

type Store struct {
	mu          sync.RWMutex
	users       map[int]*models.User
	groups      map[int]*models.Group
	memberships map[int][]models.Membership // groupID -> rows
	messages    map[int]*models.Message
	tags        map[string]*models.Hashtag
	tagMsgs     map[string][]int // tag -> message ids
	filters     map[int][]string // userID -> keywords
	nextMsgID   int
	nextTagID   int
}

func New() *Store {
	return &Store{
		users:       make(map[int]*models.User),
		groups:      make(map[int]*models.Group),
		memberships: make(map[int][]models.Membership),
		messages:    make(map[int]*models.Message),
		tags:        make(map[string]*models.Hashtag),
		tagMsgs:     make(map[string][]int),
		filters:     make(map[int][]string),
		nextMsgID:   1,
		nextTagID:   1,
	}
}

// Seed helpers used by main (memory driver) and by tests.

func (s *Store) AddUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := u
	s.users[u.ID] = &cp
}

func (s *Store) AddGroup(g models.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := g
	s.groups[g.ID] = &cp
}

func (s *Store) AddMembership(m models.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[m.GroupID] = append(s.memberships[m.GroupID], m)
}

// Directory

func (s *Store) FindUserByName(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *Store) FindUserByID(ctx context.Context, id int) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) FindGroupByName(ctx context.Context, name string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.groups {
		if g.Name == name {
			cp := *g
			return &cp, nil
		}
	}
	return nil, store.ErrGroupNotFound
}

func (s *Store) FindGroupByID(ctx context.Context, id int) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, store.ErrGroupNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *Store) GroupMemberships(ctx context.Context, groupID int) ([]models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.memberships[groupID]
	out := make([]models.Membership, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *Store) GroupsForUser(ctx context.Context, userID int) ([]models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Group
	for gid, rows := range s.memberships {
		for _, m := range rows {
			if m.UserID == userID {
				if g, ok := s.groups[gid]; ok {
					out = append(out, *g)
				}
				break
			}
		}
	}
	return out, nil
}

func (s *Store) SetLastLogout(ctx context.Context, userID int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return store.ErrUserNotFound
	}
	u.LastLogout = at
	return nil
}

// MessageStore

func (s *Store) Save(ctx context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID != 0 {
		if _, exists := s.messages[m.ID]; exists {
			return store.ErrDuplicateMessage
		}
		if m.ID >= s.nextMsgID {
			s.nextMsgID = m.ID + 1
		}
	} else {
		m.ID = s.nextMsgID
		s.nextMsgID++
	}
	cp := *m
	s.messages[m.ID] = &cp
	return nil
}

func (s *Store) FindByID(ctx context.Context, id int) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, store.ErrMessageNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *Store) FindUndeliveredFor(ctx context.Context, userID int, since time.Time) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Message
	for _, m := range s.messages {
		if m.TargetID == userID && !m.Broadcast && !m.Group && m.CreatedAt.After(since) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) FindBetween(ctx context.Context, userA, userB int) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Message
	for _, m := range s.messages {
		if m.Broadcast || m.Group {
			continue
		}
		if (m.SenderID == userA && m.TargetID == userB) || (m.SenderID == userB && m.TargetID == userA) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) FindThread(ctx context.Context, rootID int) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Message
	for _, m := range s.messages {
		if m.ThreadRootID == rootID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountUnread(ctx context.Context, recipientID, senderID int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.messages {
		if m.SenderID == senderID && m.TargetID == recipientID && m.Status != "read" && !m.Broadcast && !m.Group {
			n++
		}
	}
	return n, nil
}

// TagStore

func (s *Store) GetOrCreate(ctx context.Context, tag string, messageID int) (*models.Hashtag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tags[tag]
	if !ok {
		t = &models.Hashtag{ID: s.nextTagID, Tag: tag}
		s.nextTagID++
		s.tags[tag] = t
	}
	linked := false
	for _, id := range s.tagMsgs[tag] {
		if id == messageID {
			linked = true
			break
		}
	}
	if !linked {
		s.tagMsgs[tag] = append(s.tagMsgs[tag], messageID)
	}
	cp := *t
	return &cp, nil
}

func (s *Store) IncrementHits(ctx context.Context, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tags[tag]
	if !ok {
		return store.ErrTagNotFound
	}
	t.SearchHits++
	return nil
}

func (s *Store) MessagesForTag(ctx context.Context, tag string) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Message
	for _, id := range s.tagMsgs[tag] {
		if m, ok := s.messages[id]; ok {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) TopTags(ctx context.Context, n int) ([]*models.Hashtag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Hashtag, 0, len(s.tags))
	for _, t := range s.tags {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SearchHits > out[j].SearchHits })
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// FilterStore

func (s *Store) FiltersFor(ctx context.Context, userID int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kws := s.filters[userID]
	out := make([]string, len(kws))
	copy(out, kws)
	return out, nil
}

func (s *Store) AddFilter(ctx context.Context, userID int, keyword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kw := range s.filters[userID] {
		if strings.EqualFold(kw, keyword) {
			return nil
		}
	}
	s.filters[userID] = append(s.filters[userID], keyword)
	return nil
}

func (s *Store) RemoveFilter(ctx context.Context, userID int, keyword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kws := s.filters[userID]
	for i, kw := range kws {
		if strings.EqualFold(kw, keyword) {
			s.filters[userID] = append(kws[:i], kws[i+1:]...)
			return nil
		}
	}
	return nil
}
