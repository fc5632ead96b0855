package conn

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/halyard-dev/halyard/internal/identity"
	"github.com/halyard-dev/halyard/internal/protocol"
)

// Settings are the parameters embedded in the channel URL. Changing them
// while connected does not reconnect; the caller must explicitly
// disconnect/reconnect to apply new values.
type Settings struct {
	// ChannelURL is the duplex channel endpoint (ws:// or wss://).
	ChannelURL string
	// Model is the opaque model identifier.
	Model string
	// Provider selects the query encoding for Model.
	Provider string
	// NativeTools enables the native tool-calling flag.
	NativeTools bool
	// Token is the opaque access token, passed through untouched.
	Token string
}

// Sink receives every inbound frame, handshake or not, in arrival order.
type Sink func(protocol.Frame)

// NoticeFunc surfaces a user-visible connection notice.
type NoticeFunc func(message string)

// Manager owns the single logical connection of a session. It serializes
// connection attempts, latches readiness, drains the outbound queue exactly
// once per readiness transition and tears everything down on close.
// Safe for concurrent use.
type Manager struct {
	identity *identity.Identity
	queue    *Queue
	monitor  *Monitor
	logger   *slog.Logger
	dialer   *websocket.Dialer

	mu         sync.Mutex
	settings   Settings
	conn       *Connection
	connecting bool
	// gen is bumped by Disconnect so an in-flight dial can tell it was
	// aborted and must not publish its handle.
	gen      uint64
	sink     Sink
	onNotice NoticeFunc
}

// NewManager creates a manager. The sink and notice callback may be set
// later but must be in place before Connect.
func NewManager(settings Settings, id *identity.Identity, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		identity: id,
		queue:    NewQueue(),
		monitor:  NewMonitor(),
		logger:   logger,
		dialer:   websocket.DefaultDialer,
		settings: settings,
	}
}

// SetSink installs the inbound frame sink (the event dispatcher).
func (m *Manager) SetSink(sink Sink) {
	m.mu.Lock()
	m.sink = sink
	m.mu.Unlock()
}

// SetNotice installs the user-visible notice callback.
func (m *Manager) SetNotice(fn NoticeFunc) {
	m.mu.Lock()
	m.onNotice = fn
	m.mu.Unlock()
}

// SetSettings replaces the connection settings. An established connection
// keeps its original parameters; the new ones apply on the next connect.
func (m *Manager) SetSettings(s Settings) {
	m.mu.Lock()
	m.settings = s
	m.mu.Unlock()
}

// Settings returns the current connection settings.
func (m *Manager) Settings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// Monitor returns the channel health monitor.
func (m *Manager) Monitor() *Monitor {
	return m.monitor
}

// Queue returns the outbound message queue.
func (m *Manager) Queue() *Queue {
	return m.queue
}

// State returns the explicit connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	c, connecting := m.conn, m.connecting
	m.mu.Unlock()
	switch {
	case c != nil && c.isReady():
		return StateReady
	case c != nil && c.isOpen():
		return StateOpen
	case connecting:
		return StateConnecting
	default:
		return StateDisconnected
	}
}

// Ready reports whether the remote has signaled readiness.
func (m *Manager) Ready() bool { return m.State() == StateReady }

// Connect opens the duplex channel. It is a guaranteed no-op when a
// connection (or attempt) already exists, when no device identifier is
// available, or when the session is in replay mode. On transport open it
// immediately requests the session handshake; readiness waits for the
// remote's first handshake signal.
func (m *Manager) Connect() error {
	m.mu.Lock()
	if m.conn != nil || m.connecting {
		m.mu.Unlock()
		return nil
	}
	if m.identity.DeviceID() == "" || m.identity.Replay() {
		m.mu.Unlock()
		return nil
	}
	m.connecting = true
	gen := m.gen
	settings := m.settings
	m.mu.Unlock()

	m.monitor.RecordAttempt()
	channelURL, err := buildChannelURL(settings, m.identity.DeviceID())
	if err != nil {
		m.finishConnect(gen, nil)
		m.monitor.RecordError(err)
		return err
	}

	m.logger.Info("opening channel", "url", settings.ChannelURL, "model", settings.Model)
	ws, _, err := m.dialer.Dial(channelURL, nil)
	if err != nil {
		m.finishConnect(gen, nil)
		m.monitor.RecordError(err)
		m.notice("could not reach the agent; will retry")
		return fmt.Errorf("failed to open channel: %w", err)
	}

	c := newConnection(ws)
	if !m.finishConnect(gen, c) {
		// A disconnect (or a replay/device change through Reevaluate)
		// landed while the dial was in flight; the session must end up
		// without a channel, so close the fresh handle instead of
		// publishing it.
		c.detach()
		_ = c.close()
		m.monitor.RecordClose(websocket.CloseNormalClosure, "dial aborted")
		m.logger.Info("channel attempt aborted by disconnect")
		return nil
	}
	m.monitor.RecordOpen()

	// Ask for the session handshake right away. The session is not ready
	// yet; readiness latches on the remote's first handshake signal.
	if err := c.write(protocol.SessionInfoRequest()); err != nil {
		m.monitor.RecordError(err)
		m.logger.Warn("session info request failed", "error", err)
	}

	go m.readLoop(c)
	return nil
}

// finishConnect publishes the attempt result under the lock. It reports
// false when the attempt was aborted mid-dial, in which case the handle is
// not published and the caller must close it.
func (m *Manager) finishConnect(gen uint64, c *Connection) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connecting = false
	if c == nil {
		return false
	}
	if m.gen != gen {
		return false
	}
	m.conn = c
	return true
}

// Disconnect detaches handlers, closes the channel if open, clears the
// queue and resets all state. An attempt still dialing is aborted: its
// handle is closed on arrival instead of published. Idempotent; safe with
// no active connection.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	c := m.conn
	m.conn = nil
	m.mu.Unlock()

	m.queue.Clear()
	if c == nil {
		return
	}
	// Detach before closing so late events from the dying handle are
	// suppressed rather than treated as a transport close.
	c.detach()
	_ = c.close()
	m.monitor.RecordClose(websocket.CloseNormalClosure, "client disconnect")
	m.logger.Info("channel closed by client")
}

// Reevaluate applies the reconnection policy. It is invoked on every change
// to (device id, replay flag): connect when eligible and disconnected,
// disconnect when ineligible and connected. Model and tool-flag changes do
// not pass through here and never auto-reconnect.
func (m *Manager) Reevaluate() {
	eligible := m.identity.DeviceID() != "" && !m.identity.Replay()

	m.mu.Lock()
	connected := m.conn != nil || m.connecting
	m.mu.Unlock()

	switch {
	case eligible && !connected:
		if err := m.Connect(); err != nil {
			m.logger.Warn("reconnect attempt failed", "error", err)
		}
	case !eligible && connected:
		m.Disconnect()
	}
}

// Send delivers a frame if the channel is open and ready; otherwise the
// frame is queued for the next drain. Reports whether the frame was
// actually transmitted.
func (m *Manager) Send(f protocol.Frame) bool {
	m.mu.Lock()
	c := m.conn
	m.mu.Unlock()

	if c == nil || !c.isOpen() || !c.isReady() {
		m.queue.Enqueue(f)
		m.logger.Debug("channel not ready; message queued", "type", f.Type, "queued", m.queue.Len())
		return false
	}
	if err := c.write(f); err != nil {
		m.monitor.RecordError(err)
		m.queue.Enqueue(f)
		m.logger.Warn("transmit failed; message queued", "type", f.Type, "error", err)
		return false
	}
	return true
}

// readLoop forwards every inbound frame to the sink in arrival order and
// performs the readiness latch. It exits on transport close.
func (m *Manager) readLoop(c *Connection) {
	for {
		data, err := c.read()
		if err != nil {
			m.handleClose(c, err)
			return
		}

		frame, perr := protocol.ParseFrame(data)
		if perr != nil {
			m.monitor.RecordError(perr)
			m.logger.Warn("discarding unparseable frame", "error", perr)
			continue
		}
		if frame.ID == "" {
			frame.ID = uuid.NewString()
		}

		if frame.Type == protocol.TypeConnectionEstablished || frame.Type == protocol.TypeWorkspaceInfo {
			// Latch readiness exactly once per connection. Duplicate
			// handshake signals still forward their payload below.
			if c.latchReady() {
				m.monitor.RecordReady()
				m.logger.Info("channel ready", "signal", frame.Type)
				if err := c.write(protocol.InitAgent(m.Settings().NativeTools)); err != nil {
					m.logger.Warn("init_agent failed", "error", err)
				}
				m.drain(c)
			}
		}

		m.mu.Lock()
		sink := m.sink
		m.mu.Unlock()
		if sink != nil {
			sink(frame)
		}
	}
}

// drain transmits every currently queued message in enqueue order. Exactly
// one pass runs per readiness transition; messages that fail to transmit go
// back to the tail for a future drain. Nothing is silently dropped.
func (m *Manager) drain(c *Connection) {
	pending := m.queue.TakeAll()
	if len(pending) == 0 {
		return
	}
	m.logger.Info("draining queued messages", "count", len(pending))
	for _, qm := range pending {
		if err := c.write(qm.Frame); err != nil {
			m.monitor.RecordError(err)
			m.queue.Enqueue(qm.Frame)
			m.logger.Warn("drain transmit failed; message requeued",
				"type", qm.Frame.Type, "error", err)
		}
	}
}

// handleClose performs cleanup after the read loop sees a transport close.
func (m *Manager) handleClose(c *Connection, err error) {
	if c.isDetached() {
		// Disconnect already cleaned up this handle.
		return
	}

	m.mu.Lock()
	if m.conn == c {
		m.conn = nil
	}
	m.mu.Unlock()

	c.markClosed()
	m.queue.Clear()

	code, text := closeInfo(err)
	m.monitor.RecordClose(code, text)

	if isExpectedClose(err) {
		m.logger.Info("channel closed", "code", code)
		return
	}
	m.monitor.RecordError(err)
	m.logger.Warn("channel lost", "code", code, "reason", text, "error", err)
	m.notice("connection to the agent was lost; reconnecting shortly")
}

func (m *Manager) notice(message string) {
	m.mu.Lock()
	fn := m.onNotice
	m.mu.Unlock()
	if fn != nil {
		fn(message)
	}
}

// isExpectedClose reports whether the close needs no user-visible warning.
func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

// closeInfo extracts the close code and reason from a read error.
func closeInfo(err error) (int, string) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text
	}
	if err != nil {
		return websocket.CloseAbnormalClosure, err.Error()
	}
	return websocket.CloseNormalClosure, ""
}

// buildChannelURL embeds the identity and settings as query parameters.
func buildChannelURL(s Settings, deviceID string) (string, error) {
	u, err := url.Parse(s.ChannelURL)
	if err != nil {
		return "", fmt.Errorf("invalid channel URL: %w", err)
	}
	q := u.Query()
	q.Set("device_id", deviceID)
	encodeModel(q, s.Model, s.Provider)
	if s.NativeTools {
		q.Set("native_tools", "true")
	}
	if s.Token != "" {
		q.Set("token", s.Token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// encodeModel applies the provider-specific query encoding: OpenAI-style
// providers carry the model and provider as separate parameters; everything
// else uses a provider-qualified composite identifier.
func encodeModel(q url.Values, model, provider string) {
	switch provider {
	case "", "openai", "azure", "openrouter":
		q.Set("model", model)
		if provider != "" {
			q.Set("provider", provider)
		}
	default:
		q.Set("model", provider+"/"+model)
	}
}
