// Package chat holds the ordered message log and derived session flags
// produced by the event dispatcher. It is the state consumed by whatever
// presentation layer sits on top of the runtime.
package chat

import (
	"encoding/json"
	"sync"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TaskState is the explicit lifecycle of the current agent task.
type TaskState string

const (
	TaskIdle       TaskState = "idle"
	TaskProcessing TaskState = "processing"
	TaskCompleted  TaskState = "completed"
	TaskErrored    TaskState = "errored"
)

// UpgradePrompt describes why a monetization prompt should show.
// It is set exclusively by the dispatcher and cleared on submission.
type UpgradePrompt string

const (
	UpgradeNone    UpgradePrompt = ""
	UpgradeSuccess UpgradePrompt = "success"
	UpgradeError   UpgradePrompt = "error"
	UpgradeTimeout UpgradePrompt = "timeout"
)

// Action is the mutable sub-record of a message representing an in-flight
// or completed tool invocation. It is created when a tool_call arrives and
// mutated in place when the matching file_edit/tool_result arrives; it is
// never deleted.
type Action struct {
	ToolType  string         `json:"tool_type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Result    any            `json:"result,omitempty"`
	ImageData string         `json:"image_data,omitempty"`
	Resolved  bool           `json:"resolved"`
}

// Message is one chat-visible unit.
type Message struct {
	ID      string   `json:"id"`
	Role    Role     `json:"role"`
	Content string   `json:"content,omitempty"`
	Files   []string `json:"files,omitempty"`
	Action  *Action  `json:"action,omitempty"`
}

// State is the chat/session state for one session. It is mutated only by
// the event dispatcher and the explicit submission path.
type State struct {
	mu            sync.RWMutex
	messages      []*Message
	task          TaskState
	workspacePath string
	title         string
	uploadedFiles []string
	upgrade       UpgradePrompt
}

// NewState returns an empty session state.
func NewState() *State {
	return &State{task: TaskIdle}
}

// Append adds a message to the end of the log.
func (s *State) Append(m *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

// Len returns the number of messages in the log.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Messages returns a copy of the message log. The messages themselves are
// shared; callers must not mutate them.
func (s *State) Messages() []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Last returns the most recently appended message, or nil.
func (s *State) Last() *Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return nil
	}
	return s.messages[len(s.messages)-1]
}

// MutateLastAction applies fn to the last message's action if, and only if,
// that action's tool type equals toolType. Only the last message is eligible
// for the mutation path. Reports whether a mutation happened.
func (s *State) MutateLastAction(toolType string, fn func(*Action)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return false
	}
	last := s.messages[len(s.messages)-1]
	if last.Action == nil || last.Action.ToolType != toolType {
		return false
	}
	fn(last.Action)
	return true
}

// SetTask records the task state.
func (s *State) SetTask(t TaskState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.task = t
}

// Task returns the current task state.
func (s *State) Task() TaskState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.task
}

// Loading reports whether a task is in flight.
func (s *State) Loading() bool { return s.Task() == TaskProcessing }

// Completed reports whether the last task finished normally.
func (s *State) Completed() bool { return s.Task() == TaskCompleted }

// SetWorkspacePath records the remote workspace path.
func (s *State) SetWorkspacePath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspacePath = path
}

// WorkspacePath returns the remote workspace path, if known.
func (s *State) WorkspacePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workspacePath
}

// SetTitle records the session title produced by the summarizer.
func (s *State) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
}

// Title returns the session title, if one was generated.
func (s *State) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.title
}

// AddUploadedFiles records server-assigned storage paths.
func (s *State) AddUploadedFiles(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadedFiles = append(s.uploadedFiles, paths...)
}

// UploadedFiles returns the recorded storage paths.
func (s *State) UploadedFiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.uploadedFiles))
	copy(out, s.uploadedFiles)
	return out
}

// SetUpgradePrompt records why the upgrade prompt should show.
func (s *State) SetUpgradePrompt(p UpgradePrompt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upgrade = p
}

// UpgradePromptState returns the current upgrade prompt reason.
func (s *State) UpgradePromptState() UpgradePrompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upgrade
}

// snapshot is the timestamp-free projection of the state used for
// deterministic comparison (live vs replayed logs must match byte for byte).
type snapshot struct {
	Messages      []*Message    `json:"messages"`
	Task          TaskState     `json:"task"`
	WorkspacePath string        `json:"workspace_path,omitempty"`
	UploadedFiles []string      `json:"uploaded_files,omitempty"`
	Upgrade       UpgradePrompt `json:"upgrade,omitempty"`
}

// Snapshot serializes the state, ignoring message ids (they are generated
// per delivery, not part of the logical state).
func (s *State) Snapshot() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]*Message, 0, len(s.messages))
	for _, m := range s.messages {
		c := *m
		c.ID = ""
		if m.Action != nil {
			a := *m.Action
			c.Action = &a
		}
		msgs = append(msgs, &c)
	}
	data, _ := json.Marshal(snapshot{
		Messages:      msgs,
		Task:          s.task,
		WorkspacePath: s.workspacePath,
		UploadedFiles: s.uploadedFiles,
		Upgrade:       s.upgrade,
	})
	return data
}
