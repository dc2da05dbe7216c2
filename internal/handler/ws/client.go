package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"linguachat-backend/pkg/logger"
	"linguachat-backend/pkg/metrics"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Outbound buffer per connection. A client that cannot drain this
	// many frames is considered too slow and gets disconnected.
	sendBufferSize = 256
)

// Client is a single WebSocket connection owned by one user. A user may
// hold several clients at once (multiple tabs, multiple devices).
type Client struct {
	userID uuid.UUID
	connID uuid.UUID
	conn   *websocket.Conn
	hub    *Hub

	// Buffered channel of outbound frames, drained by writePump
	send chan []byte

	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		userID: userID,
		connID: uuid.New(),
		conn:   conn,
		hub:    hub,
		send:   make(chan []byte, sendBufferSize),
	}
}

// UserID returns the owning user
func (c *Client) UserID() uuid.UUID {
	return c.userID
}

// enqueue hands a frame to the write pump without blocking. Returns false
// when the buffer is full, meaning the peer is not keeping up.
func (c *Client) enqueue(payload []byte) (ok bool) {
	if payload == nil {
		return true
	}
	defer func() {
		// send on a closed channel means the client is already gone
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// close shuts the send channel exactly once, which terminates writePump
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// readPump pumps frames from the WebSocket connection to the hub.
//
// The application runs readPump in a per-connection goroutine. All reads
// from this connection happen here, ensuring at most one reader.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error",
					zap.String("user_id", c.userID.String()),
					zap.Error(err),
				)
			}
			return
		}
		c.hub.handleFrame(c, raw)
	}
}

// writePump pumps frames from the send channel to the WebSocket connection.
//
// A goroutine running writePump is started for each connection. All writes
// to this connection happen here, ensuring at most one writer.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
			metrics.MessagesDeliveredTotal.Inc()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
