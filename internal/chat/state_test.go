package chat

import (
	"bytes"
	"testing"
)

func TestState_AppendAndLast(t *testing.T) {
	s := NewState()

	if s.Last() != nil {
		t.Error("Last on empty state != nil")
	}

	s.Append(&Message{ID: "1", Role: RoleUser, Content: "hello"})
	s.Append(&Message{ID: "2", Role: RoleAssistant, Content: "hi"})

	if got := s.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
	if got := s.Last(); got.ID != "2" {
		t.Errorf("Last id = %q, want 2", got.ID)
	}
}

func TestMutateLastAction_OnlyMatchingTool(t *testing.T) {
	s := NewState()
	s.Append(&Message{ID: "1", Role: RoleAssistant, Action: &Action{ToolType: "terminal"}})

	if s.MutateLastAction("browser", func(a *Action) { a.Resolved = true }) {
		t.Error("mutated action of a different tool type")
	}
	if s.Last().Action.Resolved {
		t.Error("action resolved despite tool mismatch")
	}

	if !s.MutateLastAction("terminal", func(a *Action) { a.Resolved = true }) {
		t.Error("failed to mutate matching action")
	}
	if !s.Last().Action.Resolved {
		t.Error("action not resolved after matching mutation")
	}
}

func TestMutateLastAction_IgnoresEarlierMessages(t *testing.T) {
	s := NewState()
	s.Append(&Message{ID: "1", Role: RoleAssistant, Action: &Action{ToolType: "terminal"}})
	s.Append(&Message{ID: "2", Role: RoleAssistant, Content: "text in between"})

	if s.MutateLastAction("terminal", func(a *Action) { a.Resolved = true }) {
		t.Error("mutated an action that is not on the last message")
	}
	if s.Messages()[0].Action.Resolved {
		t.Error("earlier action mutated; correlation is positional")
	}
}

func TestState_TaskTransitions(t *testing.T) {
	s := NewState()

	if got := s.Task(); got != TaskIdle {
		t.Errorf("initial Task = %q, want %q", got, TaskIdle)
	}

	s.SetTask(TaskProcessing)
	if !s.Loading() {
		t.Error("Loading = false while processing")
	}

	s.SetTask(TaskCompleted)
	if !s.Completed() || s.Loading() {
		t.Error("terminal state not reflected")
	}
}

func TestSnapshot_IgnoresMessageIDs(t *testing.T) {
	build := func(id string) *State {
		s := NewState()
		s.Append(&Message{ID: id, Role: RoleUser, Content: "hello"})
		s.SetTask(TaskCompleted)
		s.SetWorkspacePath("/w")
		return s
	}

	a := build("live-id").Snapshot()
	b := build("replay-id").Snapshot()
	if !bytes.Equal(a, b) {
		t.Errorf("snapshots differ on ids only:\n%s\n%s", a, b)
	}
}

func TestSnapshot_ReflectsContentDifferences(t *testing.T) {
	a := NewState()
	a.Append(&Message{Role: RoleUser, Content: "hello"})
	b := NewState()
	b.Append(&Message{Role: RoleUser, Content: "goodbye"})

	if bytes.Equal(a.Snapshot(), b.Snapshot()) {
		t.Error("snapshots equal despite different content")
	}
}

func TestState_UploadedFilesAccumulate(t *testing.T) {
	s := NewState()
	s.AddUploadedFiles("/a")
	s.AddUploadedFiles("/b", "/c")

	files := s.UploadedFiles()
	if len(files) != 3 || files[0] != "/a" || files[2] != "/c" {
		t.Errorf("uploaded files = %v, want [/a /b /c]", files)
	}
}
