package protocol

import (
	"testing"
)

func TestParseFrame_Valid(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":"agent_response","id":"e1","content":{"text":"done"}}`))
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	if f.Type != TypeAgentResponse || f.ID != "e1" {
		t.Errorf("frame = %+v, want agent_response e1", f)
	}

	var c TextContent
	if err := f.Decode(&c); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if c.Text != "done" {
		t.Errorf("text = %q, want done", c.Text)
	}
}

func TestParseFrame_Invalid(t *testing.T) {
	if _, err := ParseFrame([]byte(`{{not json`)); err == nil {
		t.Error("expected error for invalid JSON, got nil")
	}
	if _, err := ParseFrame([]byte(`{"content":{}}`)); err == nil {
		t.Error("expected error for missing type, got nil")
	}
}

func TestDecode_EmptyContentIsNoop(t *testing.T) {
	f := Frame{Type: TypeHeartbeat}
	c := TextContent{Text: "untouched"}
	if err := f.Decode(&c); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if c.Text != "untouched" {
		t.Errorf("text = %q, want untouched", c.Text)
	}
}

func TestToolResultContent_Items(t *testing.T) {
	c := ToolResultContent{
		Tool:   ToolBrowser,
		Result: []byte(`[{"type":"text","text":"ok"},{"type":"image","data":"abc"}]`),
	}
	items, err := c.Items()
	if err != nil {
		t.Fatalf("Items failed: %v", err)
	}
	if len(items) != 2 || items[1].Type != "image" || items[1].Data != "abc" {
		t.Errorf("items = %+v, want text+image", items)
	}

	plain := ToolResultContent{Tool: "terminal", Result: []byte(`"exit 0"`)}
	if _, err := plain.Items(); err == nil {
		t.Error("Items on a plain result succeeded, want error")
	}
	if got := plain.Text(); got != "exit 0" {
		t.Errorf("Text = %q, want exit 0", got)
	}
}

func TestOutboundFrames(t *testing.T) {
	q := Query("hello", []string{"/f"})
	if q.Type != TypeQuery || q.ID == "" {
		t.Errorf("query frame = %+v, want typed with id", q)
	}
	var qc QueryContent
	if err := q.Decode(&qc); err != nil {
		t.Fatalf("decode query: %v", err)
	}
	if qc.Text != "hello" || qc.Resume || len(qc.Files) != 1 {
		t.Errorf("query content = %+v", qc)
	}

	cont := ContinueQuery("m1", true)
	var cc QueryContent
	if err := cont.Decode(&cc); err != nil {
		t.Fatalf("decode continuation: %v", err)
	}
	if cc.Text != "continue" || !cc.Resume || cc.Model != "m1" || !cc.NativeTools {
		t.Errorf("continuation content = %+v", cc)
	}

	ia := InitAgent(true)
	var ic InitAgentContent
	if err := ia.Decode(&ic); err != nil {
		t.Fatalf("decode init_agent: %v", err)
	}
	if !ic.NativeToolCalling {
		t.Error("init_agent native_tool_calling = false, want true")
	}

	if Cancel().Type != TypeCancel {
		t.Error("cancel frame has wrong type")
	}
	if SessionInfoRequest().Type != TypeSessionInfo {
		t.Error("session info frame has wrong type")
	}
}

func TestStoredEvent_Frame(t *testing.T) {
	e := StoredEvent{ID: "ev1", Type: TypeUserMessage, Payload: []byte(`{"text":"hi"}`)}
	f := e.Frame()
	if f.Type != TypeUserMessage || f.ID != "ev1" {
		t.Errorf("frame = %+v, want user_message ev1", f)
	}
	var c TextContent
	if err := f.Decode(&c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Text != "hi" {
		t.Errorf("text = %q, want hi", c.Text)
	}
}
