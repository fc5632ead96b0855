package dispatch

import (
	"sync"
	"time"
)

// stallWatch is the timer armed while a task is processing. If no terminal
// event cancels it within the window it fires onStall exactly once; a new
// processing event re-arms it (clearing the prior timer first).
type stallWatch struct {
	window  time.Duration
	onStall func()

	mu    sync.Mutex
	timer *time.Timer
}

func newStallWatch(window time.Duration, onStall func()) *stallWatch {
	return &stallWatch{window: window, onStall: onStall}
}

// arm starts (or restarts) the watch.
func (w *stallWatch) arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.window, w.fire)
}

// cancel clears the watch. Called on normal completion, on error and on
// teardown. Safe to call when not armed.
func (w *stallWatch) cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *stallWatch) fire() {
	w.mu.Lock()
	w.timer = nil
	w.mu.Unlock()
	w.onStall()
}
