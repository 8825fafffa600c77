// Package store defines the persistence contracts consumed by the chat
// core. Implementations live in the mongo, postgres and memory
// subpackages; the core never depends on a concrete driver.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/zaederex/prattle/internal/models"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrGroupNotFound    = errors.New("group not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrDuplicateMessage = errors.New("message already exists")
	ErrTagNotFound      = errors.New("hashtag not found")
)

// Directory exposes the user/group accounts written by the CRUD layer.
// Reads may lag writes; the chat core treats it as eventually consistent.
type Directory interface {
	FindUserByName(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id int) (*models.User, error)
	FindGroupByName(ctx context.Context, name string) (*models.Group, error)
	FindGroupByID(ctx context.Context, id int) (*models.Group, error)
	GroupMemberships(ctx context.Context, groupID int) ([]models.Membership, error)
	GroupsForUser(ctx context.Context, userID int) ([]models.Group, error)
	SetLastLogout(ctx context.Context, userID int, at time.Time) error
}

// MessageStore persists chat messages. Save assigns a fresh id when the
// message carries none and fails with ErrDuplicateMessage when the
// carried id is already taken.
type MessageStore interface {
	Save(ctx context.Context, m *models.Message) error
	FindByID(ctx context.Context, id int) (*models.Message, error)
	// FindUndeliveredFor returns all messages addressed to the user
	// created after since, in no particular order.
	FindUndeliveredFor(ctx context.Context, userID int, since time.Time) ([]*models.Message, error)
	// FindBetween returns the two-way conversation between a and b.
	FindBetween(ctx context.Context, userA, userB int) ([]*models.Message, error)
	// FindThread returns all replies under a thread root, oldest first.
	FindThread(ctx context.Context, rootID int) ([]*models.Message, error)
	// CountUnread counts messages from sender to recipient that the
	// recipient has not seen yet.
	CountUnread(ctx context.Context, recipientID, senderID int) (int, error)
}

// TagStore manages hashtag records and their message links.
type TagStore interface {
	// GetOrCreate resolves tag to its record, creating it on first use,
	// and links messageID to it.
	GetOrCreate(ctx context.Context, tag string, messageID int) (*models.Hashtag, error)
	IncrementHits(ctx context.Context, tag string) error
	MessagesForTag(ctx context.Context, tag string) ([]*models.Message, error)
	TopTags(ctx context.Context, n int) ([]*models.Hashtag, error)
}

// FilterStore holds each user's personal block-list keywords.
type FilterStore interface {
	FiltersFor(ctx context.Context, userID int) ([]string, error)
	AddFilter(ctx context.Context, userID int, keyword string) error
	RemoveFilter(ctx context.Context, userID int, keyword string) error
}

// Backend bundles the four contracts; every store driver implements all
// of them.
type Backend interface {
	Directory
	MessageStore
	TagStore
	FilterStore
}
