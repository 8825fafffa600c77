package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zaederex/prattle/internal/models"
	"github.com/zaederex/prattle/internal/store/memory"
)

// fakeConn feeds inbound payloads from a channel and records everything
// written to the socket.
type fakeConn struct {
	params  map[string]string
	inbound chan []byte

	mu     sync.Mutex
	frames []*models.Message
	closed bool
}

func newFakeConn(username string) *fakeConn {
	return &fakeConn{
		params:  map[string]string{"username": username},
		inbound: make(chan []byte, 8),
	}
}

func (c *fakeConn) Params(key string, defaultValue ...string) string {
	if v, ok := c.params[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	p, ok := <-c.inbound
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	return websocket.TextMessage, p, nil
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := v.(*models.Message); ok {
		c.frames = append(c.frames, m)
	}
	return nil
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error { return nil }
func (c *fakeConn) SetWriteDeadline(t time.Time) error              { return nil }
func (c *fakeConn) SetReadLimit(limit int64)                        {}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) bodies() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, m := range c.frames {
		out = append(out, m.Body)
	}
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newEndpointFixture(t *testing.T) (*memory.Store, *Registry, *Endpoint) {
	t.Helper()
	st := memory.New()
	reg := NewRegistry()
	log := zap.NewNop().Sugar()
	rf := NewRecipientFilter(st)
	router := NewRouter(reg, st, st, rf, NewHashtagExtractor(st), NewGroupResolver(st), nil, nil, log)
	stash := NewStashDeliverer(st, rf, reg, log)
	return st, reg, NewEndpoint(st, reg, router, stash, nil, EndpointConfig{}, log)
}

func TestServeRejectsUnknownUser(t *testing.T) {
	_, reg, e := newEndpointFixture(t)
	conn := newFakeConn("ghost")

	e.serve(conn)

	require.Len(t, conn.bodies(), 1, "exactly one error frame")
	assert.Equal(t, "User ghost could not be found", conn.bodies()[0])
	assert.True(t, conn.isClosed())
	assert.Empty(t, reg.Connections(), "a rejected session is never registered")
}

func TestServeAnnouncesLifecycleInOrder(t *testing.T) {
	st, reg, e := newEndpointFixture(t)
	st.AddUser(models.User{ID: 1, Username: "alice"})
	st.AddUser(models.User{ID: 2, Username: "bob"})
	bob := &fakeSender{}
	reg.Register("b1", "bob", bob)

	conn := newFakeConn("alice")
	close(conn.inbound) // the peer hangs up immediately
	e.serve(conn)

	assert.Equal(t, []string{"alice connected", "alice disconnected"}, bob.bodies())
	assert.NotContains(t, conn.bodies(), "alice disconnected",
		"the closing connection is unregistered before the goodbye goes out")
	assert.Equal(t, []string{"b1"}, reg.Connections())

	alice, err := st.FindUserByName(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, alice.LastLogout.IsZero(), "logout time stamped on close")
}

func TestServeDuplicateMessageErrorFrame(t *testing.T) {
	st, _, e := newEndpointFixture(t)
	st.AddUser(models.User{ID: 1, Username: "alice"})
	st.AddUser(models.User{ID: 2, Username: "bob"})
	require.NoError(t, st.Save(context.Background(), &models.Message{
		ID: 7, SenderID: 2, TargetID: 1, Body: "first", CreatedAt: time.Now().UTC(),
	}))

	conn := newFakeConn("alice")
	done := make(chan struct{})
	go func() {
		e.serve(conn)
		close(done)
	}()

	conn.inbound <- []byte(`{"id":7,"sender_id":1,"target_id":2,"body":"again"}`)
	assert.Eventually(t, func() bool {
		for _, body := range conn.bodies() {
			if body == "Message 7 already exists and was not delivered" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "sender told about the duplicate")

	close(conn.inbound)
	<-done
}
