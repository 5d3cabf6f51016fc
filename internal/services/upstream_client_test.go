package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examprep/internal/config"
	"examprep/internal/models"
	"examprep/internal/observability"
	contextutils "examprep/internal/utils"
)

func newTestUpstreamClient(t *testing.T, handler http.HandlerFunc) (*UpstreamClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewUpstreamClient(&config.UpstreamConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "deepseek-chat",
	}, observability.NewLogger(nil))
	return client, server
}

func chatCompletion(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := ChatResponse{
			Choices: []ChatChoice{{Message: ChatMessage{Role: "assistant", Content: content}}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestUpstreamClient_Generate_Success(t *testing.T) {
	var gotReq ChatRequest
	client, _ := newTestUpstreamClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		chatCompletion("generated text")(w, r)
	})

	content, err := client.Generate(context.Background(), models.TaskDoubt, "solve this")
	require.NoError(t, err)
	assert.Equal(t, "generated text", content)

	assert.Equal(t, "deepseek-chat", gotReq.Model)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "solve this", gotReq.Messages[0].Content)
	assert.InDelta(t, 0.5, gotReq.Temperature, 0.001)
	assert.Equal(t, 800, gotReq.MaxTokens)
}

func TestUpstreamClient_DecodingForTask(t *testing.T) {
	tests := []struct {
		kind        models.TaskKind
		temperature float64
		maxTokens   int
	}{
		{models.TaskQuestion, 0.7, 500},
		{models.TaskDoubt, 0.5, 800},
		{models.TaskTest, 0.3, 2000},
		{models.TaskConcept, 0.6, 1000},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			params := DecodingForTask(tt.kind)
			assert.InDelta(t, tt.temperature, params.Temperature, 0.001)
			assert.Equal(t, tt.maxTokens, params.MaxTokens)
		})
	}
}

func TestUpstreamClient_MissingAPIKey(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewUpstreamClient(&config.UpstreamConfig{
		BaseURL: server.URL,
		APIKey:  "",
		Model:   "deepseek-chat",
	}, observability.NewLogger(nil))

	_, err := client.Generate(context.Background(), models.TaskQuestion, "prompt")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrUpstreamAuth))
	assert.False(t, called, "no HTTP call should happen without an API key")
}

func TestUpstreamClient_AuthFailure(t *testing.T) {
	client, _ := newTestUpstreamClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Generate(context.Background(), models.TaskQuestion, "prompt")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrUpstreamAuth))
}

func TestUpstreamClient_RateLimited(t *testing.T) {
	client, _ := newTestUpstreamClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Generate(context.Background(), models.TaskQuestion, "prompt")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrUpstreamRateLimited))
}

func TestUpstreamClient_UnexpectedStatus(t *testing.T) {
	client, _ := newTestUpstreamClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Generate(context.Background(), models.TaskQuestion, "prompt")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrUpstreamStatus))
	assert.Contains(t, err.Error(), "status 502")
}

func TestUpstreamClient_Timeout(t *testing.T) {
	client, _ := newTestUpstreamClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		chatCompletion("too late")(w, r)
	})
	client.requestTimeout = 50 * time.Millisecond

	_, err := client.Generate(context.Background(), models.TaskQuestion, "prompt")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrUpstreamTimeout))
}

func TestUpstreamClient_TransportFailure(t *testing.T) {
	client := NewUpstreamClient(&config.UpstreamConfig{
		BaseURL: "http://127.0.0.1:1",
		APIKey:  "test-key",
		Model:   "deepseek-chat",
	}, observability.NewLogger(nil))

	_, err := client.Generate(context.Background(), models.TaskQuestion, "prompt")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrUpstreamTransport))
}

func TestUpstreamClient_APIErrorBody(t *testing.T) {
	client, _ := newTestUpstreamClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Error: &APIError{Message: "model overloaded", Type: "server_error"},
		})
	})

	_, err := client.Generate(context.Background(), models.TaskQuestion, "prompt")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrUpstreamStatus))
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestUpstreamClient_Probe(t *testing.T) {
	var gotReq ChatRequest
	client, _ := newTestUpstreamClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		chatCompletion("ok")(w, r)
	})

	require.NoError(t, client.Probe(context.Background()))
	assert.Equal(t, 10, gotReq.MaxTokens)
}
