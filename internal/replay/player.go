// Package replay reconstructs a historical session by feeding its persisted
// event log through the same dispatcher used for live traffic.
package replay

import (
	"fmt"

	"github.com/halyard-dev/halyard/internal/protocol"
)

// Player provides positional access over a fetched event log.
type Player struct {
	events   []protocol.StoredEvent
	position int
}

// NewPlayer wraps an event log.
func NewPlayer(events []protocol.StoredEvent) *Player {
	return &Player{events: events}
}

// EventCount returns the total number of events.
func (p *Player) EventCount() int {
	return len(p.events)
}

// Position returns the current playback position.
func (p *Player) Position() int {
	return p.position
}

// HasNext returns true if there are more events to play.
func (p *Player) HasNext() bool {
	return p.position < len(p.events)
}

// Next returns the next event and advances the position.
func (p *Player) Next() (protocol.StoredEvent, bool) {
	if !p.HasNext() {
		return protocol.StoredEvent{}, false
	}
	event := p.events[p.position]
	p.position++
	return event, true
}

// Peek returns the next event without advancing the position.
func (p *Player) Peek() (protocol.StoredEvent, bool) {
	if !p.HasNext() {
		return protocol.StoredEvent{}, false
	}
	return p.events[p.position], true
}

// Reset rewinds playback to the beginning.
func (p *Player) Reset() {
	p.position = 0
}

// Seek sets the playback position to a specific index.
func (p *Player) Seek(position int) error {
	if position < 0 || position > len(p.events) {
		return fmt.Errorf("position out of range: %d (max: %d)", position, len(p.events))
	}
	p.position = position
	return nil
}

// EventsOfType returns all events of a specific type.
func (p *Player) EventsOfType(eventType protocol.Type) []protocol.StoredEvent {
	var result []protocol.StoredEvent
	for _, event := range p.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}
