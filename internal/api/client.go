// Package api provides the HTTP client for Halyard's external
// collaborators: the session store (replay event logs), the summarization
// service and the file-upload service. It is safe for concurrent use.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/halyard-dev/halyard/internal/protocol"
)

var (
	// ErrSessionNotFound is returned when the session store has no event
	// log for the requested session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrServer is returned for 5xx responses from a collaborator.
	ErrServer = errors.New("server error")
)

// Client provides HTTP methods for the collaborator APIs.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// New creates a collaborator client.
// baseURL is the API address (e.g. "https://agent.example.com").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionEvents fetches the persisted event log for a session. Failures
// classify as ErrSessionNotFound (404), ErrServer (5xx) or a generic error.
func (c *Client) SessionEvents(ctx context.Context, sessionID string) ([]protocol.StoredEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/sessions/"+url.PathEscape(sessionID)+"/events", nil)
	if err != nil {
		return nil, fmt.Errorf("session events: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session events: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("session events: %w: %s", ErrSessionNotFound, sessionID)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("session events: %w: status %d", ErrServer, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("session events: status %d: %s", resp.StatusCode, string(body))
	}

	var events []protocol.StoredEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("session events: decode: %w", err)
	}
	return events, nil
}

// summaryRequest is the summarizer request body.
type summaryRequest struct {
	Prompt string `json:"prompt"`
}

// summaryResponse is the summarizer response body.
type summaryResponse struct {
	Title string `json:"title"`
}

// Summarize produces a short session title from the first user prompt.
func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(summaryRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("summarize: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/summaries", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("summarize: status %d: %s", resp.StatusCode, string(respBody))
	}

	var result summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("summarize: decode: %w", err)
	}
	return result.Title, nil
}

// UploadFile is one file handed to the upload collaborator.
type UploadFile struct {
	Name    string
	Content []byte
}

// UploadResult is the per-file outcome of an upload. Failures are partial:
// one file's error does not fail the batch.
type UploadResult struct {
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

// Upload stores files for a session and returns the server-assigned storage
// path per file.
func (c *Client) Upload(ctx context.Context, sessionID string, files []UploadFile) ([]UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := writer.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("upload: %w", err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, fmt.Errorf("upload: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/sessions/"+url.PathEscape(sessionID)+"/files", &buf)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upload: status %d: %s", resp.StatusCode, string(respBody))
	}

	var results []UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("upload: decode: %w", err)
	}
	return results, nil
}
