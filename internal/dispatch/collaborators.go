package dispatch

import "context"

// Severity grades user-visible notices.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier surfaces user-visible notices. Implementations must be safe for
// concurrent use; notices can originate from timer callbacks.
type Notifier interface {
	Notify(severity Severity, message string)
}

// ActionRouter is the external collaborator keeping tool-specific views in
// sync with tool invocations. Calls arrive through a delay-coalescing
// debouncer, so redundant consecutive triggers for the same tool collapse.
type ActionRouter interface {
	RouteAction(toolType string, payload map[string]any)
}

// TerminalSink receives raw terminal output from the remote agent.
type TerminalSink interface {
	WriteOutput(text string)
}

// PreviewSink receives deployed-website URLs and switches the active view
// to the preview.
type PreviewSink interface {
	ShowPreview(url string)
}

// Summarizer produces a short session title from the first user prompt.
// The dispatcher invokes it at most once per session.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Collaborators bundles the external collaborators of the dispatcher.
// Every field is optional; missing collaborators cause affected events to
// be dropped with a diagnostic.
type Collaborators struct {
	Notifier   Notifier
	Actions    ActionRouter
	Terminal   TerminalSink
	Preview    PreviewSink
	Summarizer Summarizer
}
