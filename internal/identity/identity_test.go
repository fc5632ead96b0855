package identity

import (
	"path/filepath"
	"testing"
)

func TestLoad_GeneratesDeviceIDOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.json")

	id, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if id.DeviceID() == "" {
		t.Fatal("no device id generated on first run")
	}

	// A second load returns the same durable id.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if again.DeviceID() != id.DeviceID() {
		t.Errorf("device id = %q, want %q (durable across loads)", again.DeviceID(), id.DeviceID())
	}
}

func TestAssignSessionID_LatchesOnce(t *testing.T) {
	id := New()

	if !id.AssignSessionID("first") {
		t.Error("first assignment reported false")
	}
	if id.AssignSessionID("second") {
		t.Error("second assignment reported true")
	}
	if got := id.SessionID(); got != "first" {
		t.Errorf("SessionID = %q, want %q", got, "first")
	}
}

func TestAssignSessionID_EmptyIgnored(t *testing.T) {
	id := New()

	if id.AssignSessionID("") {
		t.Error("empty assignment reported true")
	}
	if got := id.SessionID(); got != "" {
		t.Errorf("SessionID = %q, want empty", got)
	}
}

func TestShareLink(t *testing.T) {
	id := New()

	if got := id.ShareLink("https://agent.example.com"); got != "" {
		t.Errorf("ShareLink before assignment = %q, want empty", got)
	}

	id.AssignSessionID("abc123")
	want := "https://agent.example.com/share/abc123"
	if got := id.ShareLink("https://agent.example.com"); got != want {
		t.Errorf("ShareLink = %q, want %q", got, want)
	}
}

func TestSubscribe_FiresOnReplayAndDeviceChanges(t *testing.T) {
	id := New()
	fired := 0
	id.Subscribe(func() { fired++ })

	id.SetDeviceID("dev-1")
	if fired != 1 {
		t.Errorf("fired = %d after device id change, want 1", fired)
	}

	id.SetReplay(true)
	if fired != 2 {
		t.Errorf("fired = %d after replay change, want 2", fired)
	}

	// Unchanged replay flag does not fire.
	id.SetReplay(true)
	if fired != 2 {
		t.Errorf("fired = %d after redundant replay set, want 2", fired)
	}

	// Session id assignment never fires.
	id.AssignSessionID("s1")
	if fired != 2 {
		t.Errorf("fired = %d after session assignment, want 2", fired)
	}
}
