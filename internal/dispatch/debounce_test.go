package dispatch

import (
	"sync"
	"testing"
	"time"
)

type routeCapture struct {
	mu       sync.Mutex
	tools    []string
	payloads []map[string]any
}

func (r *routeCapture) RouteAction(toolType string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = append(r.tools, toolType)
	r.payloads = append(r.payloads, payload)
}

func (r *routeCapture) snapshot() ([]string, []map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tools := make([]string, len(r.tools))
	copy(tools, r.tools)
	payloads := make([]map[string]any, len(r.payloads))
	copy(payloads, r.payloads)
	return tools, payloads
}

func TestDebouncer_CoalescesSameTool(t *testing.T) {
	capture := &routeCapture{}
	d := newActionDebouncer(capture, 30*time.Millisecond)

	d.Route("terminal", map[string]any{"command": "ls"})
	d.Route("terminal", map[string]any{"command": "pwd"})
	time.Sleep(80 * time.Millisecond)

	tools, payloads := capture.snapshot()
	if len(tools) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(tools))
	}
	if payloads[0]["command"] != "pwd" {
		t.Errorf("payload command = %v, want pwd (latest wins)", payloads[0]["command"])
	}
}

func TestDebouncer_DifferentToolFlushesPending(t *testing.T) {
	capture := &routeCapture{}
	d := newActionDebouncer(capture, 50*time.Millisecond)

	d.Route("terminal", nil)
	d.Route("browser", nil)

	tools, _ := capture.snapshot()
	if len(tools) != 1 || tools[0] != "terminal" {
		t.Fatalf("immediate deliveries = %v, want [terminal]", tools)
	}

	time.Sleep(120 * time.Millisecond)
	tools, _ = capture.snapshot()
	if len(tools) != 2 || tools[1] != "browser" {
		t.Errorf("deliveries = %v, want [terminal browser]", tools)
	}
}

func TestDebouncer_FlushDeliversPending(t *testing.T) {
	capture := &routeCapture{}
	d := newActionDebouncer(capture, time.Hour)

	d.Route("terminal", nil)
	d.Flush()

	tools, _ := capture.snapshot()
	if len(tools) != 1 || tools[0] != "terminal" {
		t.Errorf("deliveries = %v, want [terminal]", tools)
	}

	// Flush with nothing pending is a no-op.
	d.Flush()
	tools, _ = capture.snapshot()
	if len(tools) != 1 {
		t.Errorf("deliveries after second flush = %d, want 1", len(tools))
	}
}

func TestDebouncer_ZeroWindowIsDirect(t *testing.T) {
	capture := &routeCapture{}
	d := newActionDebouncer(capture, 0)

	d.Route("terminal", nil)
	d.Route("terminal", nil)

	tools, _ := capture.snapshot()
	if len(tools) != 2 {
		t.Errorf("deliveries = %d, want 2 (no coalescing)", len(tools))
	}
}

func TestDebouncer_NilRouterIsNoop(t *testing.T) {
	d := newActionDebouncer(nil, 10*time.Millisecond)
	d.Route("terminal", nil)
	d.Flush()
}
