// Package transport adapts websocket connections to the persistent
// transports used by the control plane.
package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed for the peer to acknowledge a close frame
	closeGrace = time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the control plane is only served to local clients holding the auth token
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Conn is a server side websocket connection. Incoming messages are
// discarded; Done is closed once the peer goes away.
type Conn struct {
	conn *websocket.Conn

	writeLock sync.Mutex

	readDone  chan struct{}
	closeOnce sync.Once
	closeErr  error

	log *zap.Logger
}

// Upgrade upgrades the HTTP request to a websocket connection. On failure,
// an HTTP error has already been written to w.
func Upgrade(w http.ResponseWriter, r *http.Request, log *zap.Logger) (*Conn, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	return NewConn(conn, log), nil
}

func NewConn(conn *websocket.Conn, log *zap.Logger) *Conn {
	c := &Conn{
		conn:     conn,
		readDone: make(chan struct{}),
		log:      log,
	}

	go c.readPump()

	return c
}

// Done is closed when the peer closes the connection or it breaks.
func (c *Conn) Done() <-chan struct{} {
	return c.readDone
}

// WriteMessage writes data as a single text frame. It returns once the
// frame has been handed to the network.
func (c *Conn) WriteMessage(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame with code and reason, waits briefly for the
// peer to acknowledge it and releases the connection. Only the first call
// has any effect.
func (c *Conn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.closeErr = c.close(code, reason)
	})

	return c.closeErr
}

func (c *Conn) close(code int, reason string) error {
	c.writeLock.Lock()
	err := c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait),
	)
	c.writeLock.Unlock()

	// the peer closed first and the close frame was already answered
	if errors.Is(err, websocket.ErrCloseSent) {
		err = nil
	}

	if err == nil {
		select {
		case <-c.readDone:
		case <-time.After(closeGrace):
			c.log.Debug("peer did not acknowledge close frame", zap.Int("code", code))
		}
	}

	if closeErr := c.conn.Close(); err == nil {
		err = closeErr
	}

	return err
}

func (c *Conn) readPump() {
	defer close(c.readDone)

	c.conn.SetReadLimit(maxMessageSize)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				c.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}
