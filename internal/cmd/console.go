package cmd

import (
	"fmt"
	"strings"
	"sync"

	"github.com/halyard-dev/halyard/internal/chat"
	"github.com/halyard-dev/halyard/internal/dispatch"
)

// console renders session state on the terminal. It is the CLI's
// implementation of the dispatcher collaborators: notices, tool-view
// routing, terminal output and deploy previews all land here.
type console struct {
	mu      sync.Mutex
	printed int // messages already rendered
}

func newConsole() *console {
	return &console{}
}

// Notify implements dispatch.Notifier.
func (c *console) Notify(severity dispatch.Severity, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch severity {
	case dispatch.SeverityError:
		fmt.Printf("\n❌ %s\n", message)
	case dispatch.SeverityWarning:
		fmt.Printf("\n⚠️  %s\n", message)
	default:
		fmt.Printf("\nℹ️  %s\n", message)
	}
}

// RouteAction implements dispatch.ActionRouter. The CLI has no tool panes,
// so routing prints a one-line activity marker.
func (c *console) RouteAction(toolType string, payload map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Printf("🔧 [%s]\n", toolType)
}

// WriteOutput implements dispatch.TerminalSink.
func (c *console) WriteOutput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Print(text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Println()
	}
}

// ShowPreview implements dispatch.PreviewSink.
func (c *console) ShowPreview(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Printf("\n🌐 Deployed: %s\n", url)
}

// PrintNew renders the messages appended to state since the last call.
func (c *console) PrintNew(state *chat.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	messages := state.Messages()
	for ; c.printed < len(messages); c.printed++ {
		c.printMessage(messages[c.printed])
	}
}

func (c *console) printMessage(m *chat.Message) {
	switch {
	case m.Role == chat.RoleUser:
		// The user already saw their own input at the prompt.
	case m.Action != nil:
		c.printAction(m.Action)
	case m.Content != "":
		fmt.Printf("\n%s\n", m.Content)
	}
}

func (c *console) printAction(a *chat.Action) {
	status := "…"
	if a.Resolved {
		status = "done"
	}
	fmt.Printf("🔨 %s (%s)\n", a.ToolType, status)
}
