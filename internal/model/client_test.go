package model

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.1", req.Model)
		assert.Equal(t, "hello", req.Prompt)
		assert.False(t, req.Stream)

		json.NewEncoder(w).Encode(generateResponse{Response: "world", Done: true})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	resp, err := c.Generate(context.Background(), Request{Model: "llama3.1", Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "world", resp.Text)
	assert.True(t, resp.Done)
}

func TestHTTPClientServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.Generate(context.Background(), Request{Model: "m", Prompt: "p"})
	require.Error(t, err)

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.True(t, ue.Transient, "5xx failures are retryable")
}

func TestHTTPClientClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such model", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.Generate(context.Background(), Request{Model: "m", Prompt: "p"})

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.False(t, ue.Transient, "4xx failures are not retryable")
}

func TestHTTPClientNetworkErrorIsTransient(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1") // nothing listens here
	_, err := c.Generate(context.Background(), Request{Model: "m", Prompt: "p"})

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.True(t, ue.Transient)
}

// scriptedGenerator returns canned results in sequence.
type scriptedGenerator struct {
	calls   int
	results []error
}

func (g *scriptedGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	i := g.calls
	g.calls++
	if i >= len(g.results) {
		i = len(g.results) - 1
	}
	if err := g.results[i]; err != nil {
		return Response{}, err
	}
	return Response{Text: "ok", Done: true}, nil
}

func transientErr() error {
	return &UpstreamError{Err: errors.New("busy"), Transient: true}
}

func permanentErr() error {
	return &UpstreamError{Err: errors.New("bad request"), Transient: false}
}

func TestRetrierRecoversFromTransient(t *testing.T) {
	gen := &scriptedGenerator{results: []error{transientErr(), transientErr(), nil}}
	r := NewRetrier(gen, 0)

	resp, err := r.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 3, gen.calls)
}

func TestRetrierGivesUpAfterBound(t *testing.T) {
	gen := &scriptedGenerator{results: []error{transientErr()}}
	r := NewRetrier(gen, 0)

	_, err := r.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, maxRetries+1, gen.calls, "transient failures retry up to the bound")
}

func TestRetrierDoesNotRetryPermanent(t *testing.T) {
	gen := &scriptedGenerator{results: []error{permanentErr()}}
	r := NewRetrier(gen, 0)

	_, err := r.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, gen.calls, "permanent failures surface immediately")
}

func TestRetrierHonorsContext(t *testing.T) {
	gen := &scriptedGenerator{results: []error{transientErr()}}
	r := NewRetrier(gen, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Generate(ctx, Request{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, gen.calls, "cancelled context stops the retry loop")
}

func TestRetrierPassThroughSuccess(t *testing.T) {
	gen := &scriptedGenerator{results: []error{nil}}
	r := NewRetrier(gen, 0)

	resp, err := r.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 1, gen.calls)
}
