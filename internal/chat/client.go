package chat

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/zaederex/prattle/internal/models"
)

// Conn is the slice of the websocket connection the chat layer touches.
// *websocket.Conn satisfies it.
type Conn interface {
	Params(key string, defaultValue ...string) string
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	Close() error
}

// Client owns one open websocket. All writes to the socket go through
// the send channel and the single writer goroutine, so two concurrently
// routed messages to the same connection never interleave.
type Client struct {
	id   string
	conn Conn
	send chan *models.Message
	done chan struct{}
	once sync.Once
}

func NewClient(conn Conn) *Client {
	return &Client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan *models.Message, 64),
		done: make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Send queues a message for the writer goroutine. A closed or saturated
// connection reports ErrConnGone so the router records a per-target
// delivery failure instead of blocking.
func (c *Client) Send(m *models.Message) error {
	select {
	case <-c.done:
		return ErrConnGone
	default:
	}
	select {
	case c.send <- m:
		return nil
	case <-c.done:
		return ErrConnGone
	default:
		return ErrConnGone
	}
}

// Close stops the writer goroutine. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

// WritePump drains the send channel onto the socket and keeps the peer
// alive with pings. It returns when the connection breaks or Close is
// called.
func (c *Client) WritePump(pingInterval, writeDeadline time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case m := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteJSON(m); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
