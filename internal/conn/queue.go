package conn

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halyard-dev/halyard/internal/protocol"
)

// QueuedMessage is an outbound frame awaiting delivery. It is owned
// exclusively by the Queue until handed to the connection for transmission,
// after which it is discarded (fire and forget).
type QueuedMessage struct {
	// ID is the unique identifier for this queued message (auto-assigned).
	ID string
	// Frame is the outbound frame to transmit.
	Frame protocol.Frame
	// QueuedAt is when the message was added to the queue.
	QueuedAt time.Time
}

// Queue is the ordered buffer of not-yet-delivered outbound frames. It is
// drained only when the channel is open and the remote has signaled ready.
// There is no retry cap: messages persist until a drain succeeds or the
// session is torn down. Safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	messages []QueuedMessage
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a frame to the tail of the queue.
func (q *Queue) Enqueue(f protocol.Frame) QueuedMessage {
	msg := QueuedMessage{
		ID:       uuid.NewString(),
		Frame:    f,
		QueuedAt: time.Now(),
	}
	q.mu.Lock()
	q.messages = append(q.messages, msg)
	q.mu.Unlock()
	return msg
}

// TakeAll removes and returns every queued message in enqueue order.
// A drain pass transmits these; failures are re-enqueued at the tail so a
// future drain can retry them.
func (q *Queue) TakeAll() []QueuedMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	msgs := q.messages
	q.messages = nil
	return msgs
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// Clear drops all queued messages. Called on teardown and transport close.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.messages = nil
	q.mu.Unlock()
}
