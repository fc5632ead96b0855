package protocol

import (
	"encoding/json"

	"github.com/google/uuid"
)

// QueryContent is the payload of an outbound query frame. Resume marks a
// continuation of an interrupted task rather than a fresh prompt; Model and
// NativeTools are only carried on continuation queries so the remote can
// restart the agent with the settings that were in effect.
type QueryContent struct {
	Text        string   `json:"text"`
	Resume      bool     `json:"resume,omitempty"`
	Files       []string `json:"files,omitempty"`
	Model       string   `json:"model,omitempty"`
	NativeTools bool     `json:"native_tools,omitempty"`
}

// InitAgentContent announces the client's tool capabilities.
type InitAgentContent struct {
	NativeToolCalling bool `json:"native_tool_calling"`
}

func newFrame(t Type, content any) Frame {
	f := Frame{Type: t, ID: uuid.NewString()}
	if content != nil {
		// Content structs marshal by construction.
		f.Content, _ = json.Marshal(content)
	}
	return f
}

// SessionInfoRequest asks the remote for the session handshake payload.
// It is sent immediately on transport open, before readiness is latched.
func SessionInfoRequest() Frame {
	return newFrame(TypeSessionInfo, nil)
}

// InitAgent builds the capability announcement sent once per connection
// after the handshake latch.
func InitAgent(nativeTools bool) Frame {
	return newFrame(TypeInitAgent, InitAgentContent{NativeToolCalling: nativeTools})
}

// Query builds a user prompt frame.
func Query(text string, files []string) Frame {
	return newFrame(TypeQuery, QueryContent{Text: text, Files: files})
}

// ContinueQuery builds the synthetic continuation sent after an automated
// stall recovery. It carries the connection settings that were in effect.
func ContinueQuery(model string, nativeTools bool) Frame {
	return newFrame(TypeQuery, QueryContent{
		Text:        "continue",
		Resume:      true,
		Model:       model,
		NativeTools: nativeTools,
	})
}

// Cancel builds a cancellation request for the in-flight task.
func Cancel() Frame {
	return newFrame(TypeCancel, nil)
}
