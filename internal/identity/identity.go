// Package identity manages the session identity: a durable device
// identifier surviving across sessions, an ephemeral session identifier
// assigned by the remote once real work begins, and the replay flag for
// sessions opened from a shareable link.
package identity

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halyard-dev/halyard/internal/fileutil"
)

// deviceFile is the persisted device identity.
type deviceFile struct {
	DeviceID  string    `json:"device_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the session identity for one runtime instance.
// It is safe for concurrent use.
type Identity struct {
	mu        sync.RWMutex
	deviceID  string
	sessionID string
	replay    bool

	// onChange is invoked after every change to (device id, replay flag).
	// The connection manager hangs its reconnection policy off this.
	onChange []func()
}

// New returns an identity with no device id. Most callers want Load.
func New() *Identity {
	return &Identity{}
}

// Load reads the durable device id from path, generating and persisting a
// new one on first run.
func Load(path string) (*Identity, error) {
	var df deviceFile
	err := fileutil.ReadJSON(path, &df)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read device identity: %w", err)
	}

	if df.DeviceID == "" {
		df = deviceFile{DeviceID: uuid.NewString(), CreatedAt: time.Now()}
		if err := fileutil.WriteJSONAtomic(path, df, 0600); err != nil {
			return nil, fmt.Errorf("failed to persist device identity: %w", err)
		}
	}

	return &Identity{deviceID: df.DeviceID}, nil
}

// Subscribe registers a callback fired after each device-id or replay-flag
// change. Session id assignment does not fire it; the session id never
// affects connection eligibility.
func (i *Identity) Subscribe(fn func()) {
	i.mu.Lock()
	i.onChange = append(i.onChange, fn)
	i.mu.Unlock()
}

func (i *Identity) notify() {
	i.mu.RLock()
	subs := make([]func(), len(i.onChange))
	copy(subs, i.onChange)
	i.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}

// DeviceID returns the durable device identifier.
func (i *Identity) DeviceID() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.deviceID
}

// SetDeviceID replaces the device identifier. Used by tests and by the
// first-run path; normal operation loads it once and never changes it.
func (i *Identity) SetDeviceID(id string) {
	i.mu.Lock()
	i.deviceID = id
	i.mu.Unlock()
	i.notify()
}

// AssignSessionID latches the session identifier exactly once. Later calls
// are ignored and report false, whatever the value.
func (i *Identity) AssignSessionID(id string) bool {
	if id == "" {
		return false
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.sessionID != "" {
		return false
	}
	i.sessionID = id
	return true
}

// SessionID returns the assigned session identifier, or "" before the first
// processing event.
func (i *Identity) SessionID() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.sessionID
}

// ShareLink renders the shareable replay link for the assigned session, or
// "" when no session id has been assigned yet.
func (i *Identity) ShareLink(baseURL string) string {
	id := i.SessionID()
	if id == "" {
		return ""
	}
	return baseURL + "/share/" + id
}

// SetReplay marks the session as replaying a shared link. Replay sessions
// never open a live channel.
func (i *Identity) SetReplay(replay bool) {
	i.mu.Lock()
	changed := i.replay != replay
	i.replay = replay
	i.mu.Unlock()
	if changed {
		i.notify()
	}
}

// Replay reports whether the session is in replay mode.
func (i *Identity) Replay() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.replay
}
