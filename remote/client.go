// Package remote implements the chat, analysis and sandbox collaborators
// as JSON clients of a mentorspace backend.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/richinex/mentorspace/model"
)

// Backend routes.
const (
	AnalyzePath = "/api/v1/projects/analyze"
	RunPath     = "/api/v1/sandbox/run"
	ChatPath    = "/api/v1/agent/chat"
)

const maxErrorBody = 512

// Client talks to one backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout sets the default HTTP client's timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http = &http.Client{Timeout: d} }
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type analyzeRequest struct {
	Files model.FileMap `json:"files"`
}

// Analyze posts files to the analysis backend.
func (c *Client) Analyze(ctx context.Context, files model.FileMap) (model.AnalysisReport, error) {
	var report model.AnalysisReport
	if err := c.post(ctx, AnalyzePath, analyzeRequest{Files: files}, &report); err != nil {
		return model.AnalysisReport{}, model.Unavailable("analysis", err)
	}
	return report, nil
}

// Run posts a run request to the sandbox backend.
func (c *Client) Run(ctx context.Context, req model.RunRequest) (model.RunResult, error) {
	var result model.RunResult
	if err := c.post(ctx, RunPath, req, &result); err != nil {
		return model.RunResult{}, model.Unavailable("sandbox", err)
	}
	return result, nil
}

// Chat posts a chat request to the agent backend.
func (c *Client) Chat(ctx context.Context, req model.ChatRequest) (model.ChatResponse, error) {
	var resp model.ChatResponse
	if err := c.post(ctx, ChatPath, req, &resp); err != nil {
		return model.ChatResponse{}, model.Unavailable("chat", err)
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
