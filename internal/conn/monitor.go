package conn

import (
	"sync"
	"time"
)

// State is the explicit connection lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateOpen         State = "open"  // transport open, awaiting handshake
	StateReady        State = "ready" // remote signaled readiness
)

// Status is a point-in-time snapshot of channel health.
type Status struct {
	State         State
	Attempts      int // attempts since the last successful handshake
	TotalAttempts int
	ConnectedAt   time.Time
	ClosedAt      time.Time
	LastCloseCode int
	LastCloseText string
	LastError     string
}

// Monitor tracks raw channel health for diagnostics. It carries no business
// logic; everything here is observational.
type Monitor struct {
	mu            sync.Mutex
	state         State
	attempts      int
	totalAttempts int
	connectedAt   time.Time
	closedAt      time.Time
	lastCloseCode int
	lastCloseText string
	lastError     string
}

// NewMonitor returns a monitor in the disconnected state.
func NewMonitor() *Monitor {
	return &Monitor{state: StateDisconnected}
}

// RecordAttempt notes the start of a connection attempt.
func (m *Monitor) RecordAttempt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	m.totalAttempts++
	m.state = StateConnecting
}

// RecordOpen notes a successful transport open.
func (m *Monitor) RecordOpen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateOpen
	m.connectedAt = time.Now()
}

// RecordReady notes the handshake latch and resets the retry counter.
func (m *Monitor) RecordReady() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateReady
	m.attempts = 0
}

// RecordError notes a transport-level error.
func (m *Monitor) RecordError(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = err.Error()
}

// RecordClose notes a transport close and resets retry bookkeeping.
func (m *Monitor) RecordClose(code int, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateDisconnected
	m.closedAt = time.Now()
	m.lastCloseCode = code
	m.lastCloseText = text
	m.attempts = 0
}

// Snapshot returns the current status.
func (m *Monitor) Snapshot() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:         m.state,
		Attempts:      m.attempts,
		TotalAttempts: m.totalAttempts,
		ConnectedAt:   m.connectedAt,
		ClosedAt:      m.closedAt,
		LastCloseCode: m.lastCloseCode,
		LastCloseText: m.lastCloseText,
		LastError:     m.lastError,
	}
}
