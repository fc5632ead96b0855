package dispatch

import (
	"sync"
	"time"
)

// actionDebouncer is a delay-coalescing wrapper around the action router.
// Consecutive triggers for the same tool type within the window collapse
// into one delivery carrying the latest payload; a trigger for a different
// tool flushes the pending one immediately so ordering is preserved.
type actionDebouncer struct {
	router ActionRouter
	window time.Duration

	mu             sync.Mutex
	timer          *time.Timer
	pendingTool    string
	pendingPayload map[string]any
}

func newActionDebouncer(router ActionRouter, window time.Duration) *actionDebouncer {
	return &actionDebouncer{router: router, window: window}
}

// Route schedules (or coalesces) a routing trigger.
func (d *actionDebouncer) Route(toolType string, payload map[string]any) {
	if d.router == nil {
		return
	}
	if d.window <= 0 {
		d.router.RouteAction(toolType, payload)
		return
	}

	d.mu.Lock()
	if d.timer != nil && d.pendingTool == toolType {
		// Redundant consecutive trigger: keep the timer, take the newer payload.
		d.pendingPayload = payload
		d.mu.Unlock()
		return
	}
	prevTool, prevPayload := d.takeLocked()
	d.pendingTool = toolType
	d.pendingPayload = payload
	d.timer = time.AfterFunc(d.window, d.fire)
	d.mu.Unlock()

	if prevTool != "" {
		d.router.RouteAction(prevTool, prevPayload)
	}
}

func (d *actionDebouncer) fire() {
	d.mu.Lock()
	d.timer = nil
	tool, payload := d.takeLocked()
	d.mu.Unlock()
	if tool != "" {
		d.router.RouteAction(tool, payload)
	}
}

// takeLocked stops the timer and removes the pending trigger. Caller holds d.mu.
func (d *actionDebouncer) takeLocked() (string, map[string]any) {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	tool, payload := d.pendingTool, d.pendingPayload
	d.pendingTool, d.pendingPayload = "", nil
	return tool, payload
}

// Flush delivers any pending trigger and stops the timer. Called on teardown.
func (d *actionDebouncer) Flush() {
	if d.router == nil {
		return
	}
	d.mu.Lock()
	tool, payload := d.takeLocked()
	d.mu.Unlock()
	if tool != "" {
		d.router.RouteAction(tool, payload)
	}
}
