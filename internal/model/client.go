// Package model wraps the external text-generation collaborator. The
// scheduler only sees the Generator interface; the HTTP client here talks
// to an Ollama-compatible /api/generate endpoint.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// #region types

// Request carries one generation call.
type Request struct {
	Model  string
	System string
	Prompt string
}

// Response holds the collaborator's reply.
type Response struct {
	Text string
	Done bool
}

// Generator abstracts the generation RPC so the scheduler can be tested
// with a scripted implementation.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// #endregion types

// #region http-client

// HTTPClient calls an Ollama-compatible generation endpoint.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate sends a non-streaming generation request.
func (c *HTTPClient) Generate(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(generateRequest{
		Model:  req.Model,
		System: req.System,
		Prompt: req.Prompt,
		Stream: false,
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Response{}, &UpstreamError{Err: fmt.Errorf("generate call: %w", err), Transient: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Response{}, &UpstreamError{
			Err:       fmt.Errorf("generate status %d: %s", resp.StatusCode, data),
			Transient: resp.StatusCode >= 500,
		}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, &UpstreamError{Err: fmt.Errorf("decode response: %w", err), Transient: false}
	}
	return Response{Text: out.Response, Done: out.Done}, nil
}

// #endregion http-client

// #region upstream-error

// UpstreamError marks a collaborator failure and whether a retry is worth it.
type UpstreamError struct {
	Err       error
	Transient bool
}

func (e *UpstreamError) Error() string { return e.Err.Error() }
func (e *UpstreamError) Unwrap() error { return e.Err }

// #endregion upstream-error
