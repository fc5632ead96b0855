// Package protocol defines the JSON frame format spoken over the agent
// channel. Every frame is `{type, content}`; inbound frames additionally
// carry an id, generated client-side when the transport did not supply one.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Type identifies a protocol frame.
type Type string

// Inbound frame types.
const (
	TypeConnectionEstablished Type = "connection_established"
	TypeWorkspaceInfo         Type = "workspace_info"
	TypeProcessing            Type = "processing"
	TypeUserMessage           Type = "user_message"
	TypeAgentThinking         Type = "agent_thinking"
	TypeToolCall              Type = "tool_call"
	TypeFileEdit              Type = "file_edit"
	TypeToolResult            Type = "tool_result"
	TypeAgentResponse         Type = "agent_response"
	TypeUploadSuccess         Type = "upload_success"
	TypeTerminalOutput        Type = "terminal_output"
	TypeError                 Type = "error"
	TypeHeartbeat             Type = "heartbeat"
)

// Outbound frame types.
const (
	TypeSessionInfo Type = "session_info"
	TypeInitAgent   Type = "init_agent"
	TypeQuery       Type = "query"
	TypeCancel      Type = "cancel"
)

// Tool types with dedicated dispatch behavior. All other tool types are
// carried opaquely on the message action.
const (
	ToolReasoning   = "sequentialthinking"
	ToolEditor      = "str_replace_editor"
	ToolBrowser     = "browser"
	ToolInteraction = "interaction"
	ToolDeploy      = "deploy"
)

// Frame is a single protocol frame.
type Frame struct {
	Type    Type            `json:"type"`
	ID      string          `json:"id,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// ParseFrame decodes a raw wire message into a Frame.
func ParseFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("failed to parse frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("frame has no type")
	}
	return f, nil
}

// Decode unmarshals the frame content into the provided value.
// A frame without content leaves the value untouched.
func (f Frame) Decode(v any) error {
	if len(f.Content) == 0 {
		return nil
	}
	if err := json.Unmarshal(f.Content, v); err != nil {
		return fmt.Errorf("failed to decode %s content: %w", f.Type, err)
	}
	return nil
}

// Marshal serializes the frame to its wire form.
func (f Frame) Marshal() ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s frame: %w", f.Type, err)
	}
	return data, nil
}

// HandshakeContent is carried by connection_established and workspace_info.
// The session id is pending until the first processing frame; the workspace
// path is applied as soon as it is seen.
type HandshakeContent struct {
	SessionID     string `json:"session_id,omitempty"`
	WorkspacePath string `json:"workspace_path,omitempty"`
}

// ProcessingContent is carried by processing frames.
type ProcessingContent struct {
	SessionID string `json:"session_id,omitempty"`
}

// TextContent is carried by user_message, agent_thinking and agent_response.
type TextContent struct {
	Text string `json:"text"`
}

// ToolCallContent is carried by tool_call and file_edit frames.
type ToolCallContent struct {
	Tool string         `json:"tool"`
	Data map[string]any `json:"data,omitempty"`
}

// ToolResultContent is carried by tool_result frames. Result is either a
// plain value or, for browser/interaction tools, a tagged content list
// containing an embedded image item.
type ToolResultContent struct {
	Tool   string          `json:"tool"`
	Result json.RawMessage `json:"result,omitempty"`
}

// ResultItem is one entry of a tagged tool-result content list.
type ResultItem struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
	Text string `json:"text,omitempty"`
}

// Items decodes the result as a tagged content list. Results that are not
// a list return an error; callers fall back to the raw result.
func (c ToolResultContent) Items() ([]ResultItem, error) {
	var items []ResultItem
	if err := json.Unmarshal(c.Result, &items); err != nil {
		return nil, fmt.Errorf("tool result is not a content list: %w", err)
	}
	return items, nil
}

// Text decodes the result as a plain string. Non-string results return "".
func (c ToolResultContent) Text() string {
	var s string
	if err := json.Unmarshal(c.Result, &s); err != nil {
		return ""
	}
	return s
}

// UploadedFile is one entry of an upload_success frame.
type UploadedFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// UploadSuccessContent is carried by upload_success frames.
type UploadSuccessContent struct {
	Files []UploadedFile `json:"files"`
}

// TerminalOutputContent is carried by terminal_output frames.
type TerminalOutputContent struct {
	Output string `json:"output"`
}

// ErrorContent is carried by error frames.
type ErrorContent struct {
	Message string `json:"message"`
}

// StoredEvent is one entry of a persisted session event log, as returned by
// the session store. Replay feeds these through the same dispatcher used
// for live frames.
type StoredEvent struct {
	ID      string          `json:"id"`
	Type    Type            `json:"event_type"`
	Payload json.RawMessage `json:"event_payload,omitempty"`
}

// Frame converts a stored event into a live-equivalent frame.
func (e StoredEvent) Frame() Frame {
	return Frame{Type: e.Type, ID: e.ID, Content: e.Payload}
}
