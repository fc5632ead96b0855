package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSessionEvents_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions/s1/events" {
			t.Errorf("path = %q, want /api/sessions/s1/events", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"e1","event_type":"user_message","event_payload":{"text":"hi"}},
			{"id":"e2","event_type":"agent_response","event_payload":{"text":"hello"}}
		]`))
	}))
	defer server.Close()

	events, err := New(server.URL).SessionEvents(context.Background(), "s1")
	if err != nil {
		t.Fatalf("SessionEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].ID != "e1" || string(events[0].Type) != "user_message" {
		t.Errorf("event 0 = %+v", events[0])
	}
}

func TestSessionEvents_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ErrSessionNotFound},
		{"server error", http.StatusInternalServerError, ErrServer},
		{"bad gateway", http.StatusBadGateway, ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := New(server.URL).SessionEvents(context.Background(), "s1")
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSessionEvents_OtherStatusIsGenericError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := New(server.URL).SessionEvents(context.Background(), "s1")
	if err == nil {
		t.Fatal("expected error for 403, got nil")
	}
	if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrServer) {
		t.Errorf("403 classified as sentinel: %v", err)
	}
}

func TestSummarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/summaries" || r.Method != http.MethodPost {
			t.Errorf("request = %s %s, want POST /api/summaries", r.Method, r.URL.Path)
		}
		var body struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Prompt != "build me a site" {
			t.Errorf("prompt = %q", body.Prompt)
		}
		json.NewEncoder(w).Encode(map[string]string{"title": "Site Build"})
	}))
	defer server.Close()

	title, err := New(server.URL).Summarize(context.Background(), "build me a site")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if title != "Site Build" {
		t.Errorf("title = %q, want Site Build", title)
	}
}

func TestUpload_PartialFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		files := r.MultipartForm.File["files"]
		if len(files) != 2 {
			t.Errorf("files = %d, want 2", len(files))
		}
		json.NewEncoder(w).Encode([]UploadResult{
			{Name: "a.txt", Path: "/uploads/a.txt"},
			{Name: "b.txt", Error: "too large"},
		})
	}))
	defer server.Close()

	results, err := New(server.URL).Upload(context.Background(), "s1", []UploadFile{
		{Name: "a.txt", Content: []byte("aaa")},
		{Name: "b.txt", Content: []byte("bbb")},
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Path != "/uploads/a.txt" || results[0].Error != "" {
		t.Errorf("result 0 = %+v", results[0])
	}
	if results[1].Error != "too large" {
		t.Errorf("result 1 = %+v", results[1])
	}
}
