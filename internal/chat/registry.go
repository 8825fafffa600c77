package chat

import (
	"errors"
	"sync"

	"github.com/zaederex/prattle/internal/models"
)

// ErrConnGone is returned by a push whose connection has already been
// unregistered or whose peer stopped reading.
var ErrConnGone = errors.New("connection gone")

// Sender is one live connection's outbound half. Implementations must
// serialize their own writes; Send is called concurrently for different
// messages routed to the same connection.
type Sender interface {
	Send(m *models.Message) error
}

// Fanout is the pluggable delivery surface the router pushes through.
// The in-process Registry is the default implementation; a distributed
// deployment can substitute a pub/sub backed one without touching the
// router.
type Fanout interface {
	Register(connID, username string, s Sender)
	Unregister(connID string)
	Push(connID string, m *models.Message) error
	// ConnectionsFor returns the connection ids of every live session
	// a user has open (multi-device).
	ConnectionsFor(username string) []string
	// Connections returns a snapshot of all live connection ids.
	Connections() []string
	// ActiveUsernames returns each username with at least one live
	// session, once.
	ActiveUsernames() []string
}

type session struct {
	username string
	sender   Sender
}

// Registry maps live connections to usernames. All methods are safe for
// concurrent use; the snapshot accessors copy under a read lock so
// iteration never observes a mid-flight mutation.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]session)}
}

// Register adds a connection. Re-registering the same connection id
// overwrites the previous mapping.
func (r *Registry) Register(connID, username string, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[connID] = session{username: username, sender: s}
}

// Unregister removes a connection. Unknown ids are a no-op.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, connID)
}

func (r *Registry) Push(connID string, m *models.Message) error {
	r.mu.RLock()
	sess, ok := r.sessions[connID]
	r.mu.RUnlock()
	if !ok {
		return ErrConnGone
	}
	return sess.sender.Send(m)
}

func (r *Registry) ConnectionsFor(username string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for id, sess := range r.sessions {
		if sess.username == username {
			out = append(out, id)
		}
	}
	return out
}

func (r *Registry) Connections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}

func (r *Registry) ActiveUsernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{}, len(r.sessions))
	out := make([]string, 0, len(r.sessions))
	for _, sess := range r.sessions {
		if _, dup := seen[sess.username]; dup {
			continue
		}
		seen[sess.username] = struct{}{}
		out = append(out, sess.username)
	}
	return out
}
