// Package dispatch converts inbound protocol frames into ordered
// chat/session state transitions. The dispatcher is a synchronous reducer:
// frames are applied strictly in arrival order and the reducer never
// reenters itself concurrently. It also owns the stall watch, the system's
// automatic recovery for an unresponsive remote agent.
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halyard-dev/halyard/internal/chat"
	"github.com/halyard-dev/halyard/internal/conn"
	"github.com/halyard-dev/halyard/internal/identity"
	"github.com/halyard-dev/halyard/internal/protocol"
)

// restartSignature identifies the known transient "agent process was
// restarted" error reported by the remote mid-task.
const restartSignature = "agent process was restarted"

// restartApology is shown instead of the raw error when the agent restarted
// under an in-flight conversation.
const restartApology = "Sorry - the agent was restarted while working on your request. Please send your last message again."

// AgentLink is the dispatcher's handle on the connection manager. The
// indirection keeps the reducer testable against a fake link.
type AgentLink interface {
	Send(protocol.Frame) bool
	Connect() error
	Disconnect()
	Ready() bool
	Settings() conn.Settings
}

// Options tune the dispatcher timers. Zero values take the defaults.
type Options struct {
	// StallWindow is how long a task may run without a terminal event
	// before recovery kicks in. Default 60s.
	StallWindow time.Duration
	// ReconnectDelay separates the forced disconnect from the reconnect.
	// Default 500ms.
	ReconnectDelay time.Duration
	// ReadyGrace is how long after the reconnect readiness is checked
	// before giving up on automatic recovery. Default 3s.
	ReadyGrace time.Duration
	// RouteWindow is the action-router debounce window. Default 150ms.
	RouteWindow time.Duration
}

func (o Options) withDefaults() Options {
	if o.StallWindow == 0 {
		o.StallWindow = 60 * time.Second
	}
	if o.ReconnectDelay == 0 {
		o.ReconnectDelay = 500 * time.Millisecond
	}
	if o.ReadyGrace == 0 {
		o.ReadyGrace = 3 * time.Second
	}
	if o.RouteWindow == 0 {
		o.RouteWindow = 150 * time.Millisecond
	}
	return o
}

// Dispatcher reduces protocol frames into chat state.
type Dispatcher struct {
	state    *chat.State
	identity *identity.Identity
	link     AgentLink
	collab   Collaborators
	opts     Options
	logger   *slog.Logger

	stall  *stallWatch
	router *actionDebouncer

	// mu serializes Apply, Submit and Cancel.
	mu               sync.Mutex
	pendingSessionID string
	firstPrompt      string
	summarized       bool
}

// New creates a dispatcher bound to the given state, identity and link.
func New(state *chat.State, id *identity.Identity, link AgentLink, collab Collaborators, opts Options, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		state:    state,
		identity: id,
		link:     link,
		collab:   collab,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
	d.stall = newStallWatch(d.opts.StallWindow, d.recoverStall)
	d.router = newActionDebouncer(collab.Actions, d.opts.RouteWindow)
	return d
}

// Apply reduces one inbound frame into state. Unknown frame types are
// logged and ignored for forward compatibility; per-frame failures never
// propagate beyond the frame that caused them.
func (d *Dispatcher) Apply(f protocol.Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch f.Type {
	case protocol.TypeConnectionEstablished, protocol.TypeWorkspaceInfo:
		return d.applyHandshake(f)
	case protocol.TypeUserMessage:
		return d.applyText(f, chat.RoleUser)
	case protocol.TypeProcessing:
		return d.applyProcessing(f)
	case protocol.TypeAgentThinking:
		return d.applyText(f, chat.RoleAssistant)
	case protocol.TypeToolCall:
		return d.applyToolCall(f)
	case protocol.TypeFileEdit:
		return d.applyFileEdit(f)
	case protocol.TypeToolResult:
		return d.applyToolResult(f)
	case protocol.TypeTerminalOutput:
		return d.applyTerminalOutput(f)
	case protocol.TypeAgentResponse:
		return d.applyAgentResponse(f)
	case protocol.TypeUploadSuccess:
		return d.applyUploadSuccess(f)
	case protocol.TypeHeartbeat:
		// Keep-alive only.
		return nil
	case protocol.TypeError:
		return d.applyError(f)
	default:
		d.logger.Info("ignoring unrecognized event", "type", f.Type)
		return nil
	}
}

// applyHandshake latches the workspace path and captures the pending
// session id. The session id is not surfaced yet: assignment is deferred to
// the first processing event so a session never appears before real work
// begins.
func (d *Dispatcher) applyHandshake(f protocol.Frame) error {
	var c protocol.HandshakeContent
	if err := f.Decode(&c); err != nil {
		return err
	}
	if c.WorkspacePath != "" {
		d.state.SetWorkspacePath(c.WorkspacePath)
	}
	if c.SessionID != "" {
		d.pendingSessionID = c.SessionID
	}
	return nil
}

func (d *Dispatcher) applyText(f protocol.Frame, role chat.Role) error {
	var c protocol.TextContent
	if err := f.Decode(&c); err != nil {
		return err
	}
	d.state.Append(&chat.Message{ID: f.ID, Role: role, Content: c.Text})
	return nil
}

func (d *Dispatcher) applyProcessing(f protocol.Frame) error {
	var c protocol.ProcessingContent
	if err := f.Decode(&c); err != nil {
		return err
	}

	sessionID := c.SessionID
	if sessionID == "" {
		sessionID = d.pendingSessionID
	}
	if d.identity.AssignSessionID(sessionID) {
		d.logger.Info("session id assigned", "session_id", sessionID)
	}

	d.state.SetTask(chat.TaskProcessing)
	d.stall.arm()
	return nil
}

func (d *Dispatcher) applyToolCall(f protocol.Frame) error {
	var c protocol.ToolCallContent
	if err := f.Decode(&c); err != nil {
		return err
	}

	if c.Tool == protocol.ToolReasoning {
		// Collapse the tool wrapper; reasoning reads as plain assistant text.
		d.state.Append(&chat.Message{
			ID:      f.ID,
			Role:    chat.RoleAssistant,
			Content: reasoningText(c.Data),
		})
		return nil
	}

	d.state.Append(&chat.Message{
		ID:   f.ID,
		Role: chat.RoleAssistant,
		Action: &chat.Action{
			ToolType: c.Tool,
			Payload:  c.Data,
		},
	})
	d.router.Route(c.Tool, c.Data)
	return nil
}

// applyFileEdit merges edit data into the last message's action, but only
// when that action belongs to the editor tool. Out-of-order edits for
// earlier messages are dropped with a diagnostic; correlation is positional.
func (d *Dispatcher) applyFileEdit(f protocol.Frame) error {
	var c protocol.ToolCallContent
	if err := f.Decode(&c); err != nil {
		return err
	}

	mutated := d.state.MutateLastAction(protocol.ToolEditor, func(a *chat.Action) {
		if a.Payload == nil {
			a.Payload = make(map[string]any, len(c.Data))
		}
		for k, v := range c.Data {
			a.Payload[k] = v
		}
	})
	if !mutated {
		d.logger.Warn("dropping file edit with no matching editor action", "tool", c.Tool)
	}
	return nil
}

func (d *Dispatcher) applyToolResult(f protocol.Frame) error {
	var c protocol.ToolResultContent
	if err := f.Decode(&c); err != nil {
		return err
	}

	mutated := d.state.MutateLastAction(c.Tool, func(a *chat.Action) {
		switch c.Tool {
		case protocol.ToolBrowser, protocol.ToolInteraction:
			// Browser/interaction results embed the screenshot in a tagged
			// content list; prefer it over the raw result.
			if items, err := c.Items(); err == nil {
				for _, item := range items {
					if item.Type == "image" && item.Data != "" {
						a.ImageData = item.Data
						break
					}
				}
			} else {
				a.Result = decodeResult(c.Result)
			}
		default:
			a.Result = decodeResult(c.Result)
		}
		a.Resolved = true
	})
	if !mutated {
		d.logger.Warn("dropping tool result with no matching action", "tool", c.Tool)
		return nil
	}

	if c.Tool == protocol.ToolDeploy {
		if link := c.Text(); looksLikeURL(link) && d.collab.Preview != nil {
			d.collab.Preview.ShowPreview(link)
		}
	}
	return nil
}

func (d *Dispatcher) applyTerminalOutput(f protocol.Frame) error {
	var c protocol.TerminalOutputContent
	if err := f.Decode(&c); err != nil {
		return err
	}
	if d.collab.Terminal == nil {
		d.logger.Warn("dropping terminal output: no terminal attached")
		return nil
	}
	d.collab.Terminal.WriteOutput(c.Output)
	return nil
}

func (d *Dispatcher) applyAgentResponse(f protocol.Frame) error {
	var c protocol.TextContent
	if err := f.Decode(&c); err != nil {
		return err
	}

	d.stall.cancel()
	d.state.Append(&chat.Message{ID: f.ID, Role: chat.RoleAssistant, Content: c.Text})
	d.state.SetTask(chat.TaskCompleted)
	d.state.SetUpgradePrompt(chat.UpgradeSuccess)
	d.maybeSummarize()
	return nil
}

func (d *Dispatcher) applyUploadSuccess(f protocol.Frame) error {
	var c protocol.UploadSuccessContent
	if err := f.Decode(&c); err != nil {
		return err
	}
	for _, file := range c.Files {
		if file.Path != "" {
			d.state.AddUploadedFiles(file.Path)
		}
	}
	return nil
}

func (d *Dispatcher) applyError(f protocol.Frame) error {
	var c protocol.ErrorContent
	if err := f.Decode(&c); err != nil {
		return err
	}

	d.stall.cancel()

	midFlight := d.state.Loading() && d.state.Len() > 0
	if strings.Contains(c.Message, restartSignature) && midFlight {
		d.notify(SeverityWarning, restartApology)
	} else {
		d.notify(SeverityError, c.Message)
	}

	d.state.SetTask(chat.TaskErrored)
	d.state.SetUpgradePrompt(chat.UpgradeError)
	return nil
}

// Submit is the explicit user-submission path: it appends the user message,
// clears the upgrade prompt and transmits a query frame. Reports whether
// the frame was delivered immediately (queued frames report false).
func (d *Dispatcher) Submit(text string, files []string) bool {
	d.mu.Lock()
	if d.firstPrompt == "" {
		d.firstPrompt = text
	}
	d.state.SetUpgradePrompt(chat.UpgradeNone)
	d.state.Append(&chat.Message{
		ID:      uuid.NewString(),
		Role:    chat.RoleUser,
		Content: text,
		Files:   files,
	})
	d.mu.Unlock()

	return d.link.Send(protocol.Query(text, files))
}

// Cancel asks the remote to stop the in-flight task.
func (d *Dispatcher) Cancel() bool {
	d.mu.Lock()
	d.stall.cancel()
	d.state.SetTask(chat.TaskIdle)
	d.mu.Unlock()

	return d.link.Send(protocol.Cancel())
}

// Teardown cancels all timers, flushes the action debouncer and disconnects
// the link, in that order.
func (d *Dispatcher) Teardown() {
	d.stall.cancel()
	d.router.Flush()
	d.link.Disconnect()
}

// recoverStall runs the single automated recovery cycle: force a
// disconnect, reconnect after a short delay, then after a grace period
// transmit a synthetic continuation if the channel re-readied, or surface a
// recovery-failed notice if it did not. It never loops; another cycle
// requires a new processing event to re-arm the watch.
func (d *Dispatcher) recoverStall() {
	d.logger.Warn("no terminal event within the stall window; forcing reconnect")
	d.state.SetUpgradePrompt(chat.UpgradeTimeout)
	d.notify(SeverityWarning, "the agent seems stuck; reconnecting to resume")

	d.link.Disconnect()
	time.AfterFunc(d.opts.ReconnectDelay, func() {
		if err := d.link.Connect(); err != nil {
			d.logger.Warn("stall recovery reconnect failed", "error", err)
		}
		time.AfterFunc(d.opts.ReadyGrace, func() {
			if !d.link.Ready() {
				d.notify(SeverityError, "could not recover the session; please refresh")
				return
			}
			s := d.link.Settings()
			d.link.Send(protocol.ContinueQuery(s.Model, s.NativeTools))
			d.logger.Info("stall recovery: continuation sent")
		})
	})
}

// maybeSummarize invokes the summarization collaborator exactly once per
// session, on the first completed response to the first user prompt.
// Caller holds d.mu.
func (d *Dispatcher) maybeSummarize() {
	if d.summarized || d.firstPrompt == "" || d.collab.Summarizer == nil {
		return
	}
	d.summarized = true
	prompt := d.firstPrompt

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		title, err := d.collab.Summarizer.Summarize(ctx, prompt)
		if err != nil {
			d.logger.Warn("summarization failed", "error", err)
			return
		}
		d.state.SetTitle(title)
		d.logger.Info("session title generated", "title", title)
	}()
}

func (d *Dispatcher) notify(severity Severity, message string) {
	if d.collab.Notifier == nil {
		d.logger.Warn("dropping notice: no notifier attached", "message", message)
		return
	}
	d.collab.Notifier.Notify(severity, message)
}

// reasoningText extracts the display text from a reasoning tool payload.
func reasoningText(data map[string]any) string {
	for _, key := range []string{"thought", "text", "content"} {
		if v, ok := data[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// decodeResult decodes a raw tool result for storage on the action.
func decodeResult(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

// looksLikeURL reports whether a deploy result is a web address.
func looksLikeURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
