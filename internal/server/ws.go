package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client wraps one live websocket connection with a bounded outbound buffer.
// The hub delivers into the buffer without blocking; the write pump drains it
// onto the socket. A full buffer means the transport is not keeping up and
// the event is dropped for this client.
type Client struct {
	socket *websocket.Conn
	send   chan []byte
	logger *zap.Logger

	stopOnce sync.Once
	done     chan struct{}
}

func newClient(socket *websocket.Conn, logger *zap.Logger) *Client {
	return &Client{
		socket: socket,
		send:   make(chan []byte, clientBufferSize),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// deliver offers the payload to the client's buffer. Reports false when the
// buffer is full or the client has stopped.
func (c *Client) deliver(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

// writePump drains the send buffer onto the socket and keeps the connection
// alive with periodic pings.
func (c *Client) writePump(hub *Hub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		hub.Unregister(c)
		_ = c.socket.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case payload := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; clients only listen on this channel. Its
// job is to notice closes and errors so the connection gets pruned.
func (c *Client) readPump(hub *Hub) {
	defer func() {
		hub.Unregister(c)
		_ = c.socket.Close()
	}()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin enforcement is the CORS layer's concern; the socket accepts any
	// origin the browser was willing to send.
	CheckOrigin: func(*http.Request) bool { return true },
}

func (h *httpHandler) handleSocket(c *gin.Context) {
	socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(socket, h.logger)
	h.hub.Register(client)
	go client.writePump(h.hub)
	go client.readPump(h.hub)
}
