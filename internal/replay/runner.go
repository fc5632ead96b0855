package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/halyard-dev/halyard/internal/api"
	"github.com/halyard-dev/halyard/internal/chat"
	"github.com/halyard-dev/halyard/internal/dispatch"
	"github.com/halyard-dev/halyard/internal/protocol"
)

// DefaultPace is the inter-event delay during playback. It lets incremental
// UI updates render; it is a pacing device, not a correctness requirement,
// and the final state is identical at any pace.
const DefaultPace = 40 * time.Millisecond

// EventSource fetches a persisted session event log.
type EventSource interface {
	SessionEvents(ctx context.Context, sessionID string) ([]protocol.StoredEvent, error)
}

// Applier reduces one frame into session state. Satisfied by
// dispatch.Dispatcher.
type Applier interface {
	Apply(protocol.Frame) error
}

// Runner replays a historical session through the live dispatcher.
type Runner struct {
	source     EventSource
	dispatcher Applier
	state      *chat.State
	notifier   dispatch.Notifier
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewRunner creates a replay runner. A pace of 0 selects DefaultPace; tests
// pass a negative pace for unthrottled playback.
func NewRunner(source EventSource, dispatcher Applier, state *chat.State, notifier dispatch.Notifier, pace time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if pace == 0 {
		pace = DefaultPace
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if pace > 0 {
		limiter = rate.NewLimiter(rate.Every(pace), 1)
	}
	return &Runner{
		source:     source,
		dispatcher: dispatcher,
		state:      state,
		notifier:   notifier,
		limiter:    limiter,
		logger:     logger,
	}
}

// Run fetches the event log for sessionID and applies it event by event,
// strictly sequentially, at the configured pace. Fetch failures are
// classified and surfaced distinctly, and leave the state untouched; a
// failure inside one event's processing is isolated and the remaining
// events still apply.
func (r *Runner) Run(ctx context.Context, sessionID string) error {
	events, err := r.source.SessionEvents(ctx, sessionID)
	if err != nil {
		r.surfaceFetchError(sessionID, err)
		return err
	}

	r.logger.Info("replaying session", "session_id", sessionID, "events", len(events))

	if path := workspacePath(events); path != "" {
		r.state.SetWorkspacePath(path)
	}

	player := NewPlayer(events)
	for {
		event, ok := player.Next()
		if !ok {
			break
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("replay interrupted: %w", err)
		}
		r.applyOne(event)
	}

	r.logger.Info("replay complete", "session_id", sessionID, "events", player.Position())
	return nil
}

// applyOne isolates a single event's processing so one bad event cannot
// abort the rest of the log.
func (r *Runner) applyOne(event protocol.StoredEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while replaying event", "type", event.Type, "panic", rec)
		}
	}()
	if err := r.dispatcher.Apply(event.Frame()); err != nil {
		r.logger.Warn("skipping replay event", "type", event.Type, "error", err)
	}
}

// surfaceFetchError maps a fetch failure to a distinct user-facing message.
func (r *Runner) surfaceFetchError(sessionID string, err error) {
	var message string
	switch {
	case errors.Is(err, api.ErrSessionNotFound):
		message = "this shared session does not exist or has expired"
	case errors.Is(err, api.ErrServer):
		message = "the session store is unavailable; try again later"
	default:
		message = "could not load the shared session"
	}
	r.logger.Warn("replay fetch failed", "session_id", sessionID, "error", err)
	if r.notifier != nil {
		r.notifier.Notify(dispatch.SeverityError, message)
	}
}

// workspacePath extracts the workspace path from the first event when it
// carries one, falling back to the first workspace_info event anywhere in
// the log. First match wins.
func workspacePath(events []protocol.StoredEvent) string {
	if len(events) == 0 {
		return ""
	}
	if path := pathFromPayload(events[0].Payload); path != "" {
		return path
	}
	for _, event := range events {
		if event.Type != protocol.TypeWorkspaceInfo {
			continue
		}
		if path := pathFromPayload(event.Payload); path != "" {
			return path
		}
	}
	return ""
}

func pathFromPayload(payload json.RawMessage) string {
	var c protocol.HandshakeContent
	if err := json.Unmarshal(payload, &c); err != nil {
		return ""
	}
	return c.WorkspacePath
}
