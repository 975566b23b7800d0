package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait).
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Size of the send channel buffer.
	sendBufferSize = 64
)

// Client wraps one websocket connection with a buffered outbound queue so
// a slow peer never blocks a broadcast.
type Client struct {
	ID string

	conn    *websocket.Conn
	send    chan []byte
	flushed chan struct{}
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
}

func newClient(id string, conn *websocket.Conn, logger *zap.Logger) *Client {
	return &Client{
		ID:      id,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		flushed: make(chan struct{}),
		logger:  logger,
	}
}

// Send queues a frame for delivery. Frames are dropped when the buffer is
// full rather than blocking the caller.
func (c *Client) Send(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("marshal outbound frame", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, frame dropped",
			zap.String("connection_id", c.ID),
			zap.String("type", msg.Type))
	}
}

// Close seals the send queue; safe to call repeatedly. Frames queued before
// Close are still flushed by the write loop, which tears the socket down
// only after the queue drains. Queue a notification first, then Close, and
// the peer still receives it.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Wait blocks until the write loop has flushed the queue and released the
// socket.
func (c *Client) Wait() {
	<-c.flushed
}

// readLoop pumps inbound frames to the handler until the peer goes away.
// It runs on the connection's own goroutine.
func (c *Client) readLoop(handle func(data []byte)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Debug("websocket read closed",
				zap.String("connection_id", c.ID), zap.Error(err))
			return
		}
		handle(message)
	}
}

// writeLoop drains the send queue and keeps the connection alive with
// periodic pings. Once Close seals the queue it flushes the remaining
// frames, writes the close frame and drops the socket, which also unblocks
// the read loop.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.flushed)
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
