// Package conn owns the duplex channel lifecycle: opening and
// authenticating the WebSocket, latching remote readiness, queueing and
// draining outbound frames, and cleaning up on close. One logical
// connection exists per session; a new Connection value is created per
// attempt and closed handles are never resurrected.
package conn

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/halyard-dev/halyard/internal/protocol"
)

// writeWait is the deadline applied to every outbound write.
const writeWait = 10 * time.Second

// Connection wraps one WebSocket handle together with its readiness latch.
// isReady implies isOpen; readiness is latched at most once per Connection.
type Connection struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu       sync.Mutex
	open     bool
	ready    bool
	detached bool
}

func newConnection(ws *websocket.Conn) *Connection {
	return &Connection{ws: ws, open: true}
}

// latchReady marks the remote as ready. Only the first call per connection
// reports true; duplicate handshake signals are ignored for readiness.
func (c *Connection) latchReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open || c.ready {
		return false
	}
	c.ready = true
	return true
}

func (c *Connection) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *Connection) isReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// detach marks the handle as abandoned so late events from a dying
// connection are suppressed. Called before closing.
func (c *Connection) detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detached = true
	c.open = false
	c.ready = false
}

func (c *Connection) isDetached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detached
}

// markClosed resets the open/ready flags after a transport close.
func (c *Connection) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.ready = false
}

// write serializes the frame and transmits it. Writes are serialized; the
// read loop runs concurrently on its own goroutine.
func (c *Connection) write(f protocol.Frame) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// read blocks for the next inbound message.
func (c *Connection) read() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

// close sends a best-effort close frame and closes the handle.
func (c *Connection) close() error {
	c.writeMu.Lock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.ws.Close()
}
