package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"examprep/internal/config"
	"examprep/internal/models"
	"examprep/internal/observability"
	contextutils "examprep/internal/utils"
)

// UpstreamClientInterface is the generation backend the pipelines depend on.
// Tests substitute a mock to observe or suppress upstream calls.
type UpstreamClientInterface interface {
	Generate(ctx context.Context, kind models.TaskKind, prompt string) (string, error)
	Probe(ctx context.Context) error
}

// DecodingParams are the sampling settings sent with a generation request.
type DecodingParams struct {
	Temperature float64
	MaxTokens   int
}

// DecodingForTask returns the decoding parameters for a task kind.
func DecodingForTask(kind models.TaskKind) DecodingParams {
	switch kind {
	case models.TaskQuestion:
		return DecodingParams{Temperature: 0.7, MaxTokens: 500}
	case models.TaskDoubt:
		return DecodingParams{Temperature: 0.5, MaxTokens: 800}
	case models.TaskTest:
		return DecodingParams{Temperature: 0.3, MaxTokens: 2000}
	case models.TaskConcept:
		return DecodingParams{Temperature: 0.6, MaxTokens: 1000}
	default:
		return DecodingParams{Temperature: 0.7, MaxTokens: 500}
	}
}

// ChatRequest is the request body for the OpenAI-compatible chat endpoint.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// ChatMessage represents a chat message in the API request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse represents a response from the OpenAI-compatible API
type ChatResponse struct {
	Choices []ChatChoice `json:"choices"`
	Error   *APIError    `json:"error,omitempty"`
}

// ChatChoice represents a choice in the API response
type ChatChoice struct {
	Message ChatMessage `json:"message"`
}

// APIError represents an error response from the API
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// UpstreamClient talks to an OpenAI-compatible chat completion endpoint.
type UpstreamClient struct {
	baseURL string
	apiKey  string
	model   string

	requestTimeout time.Duration
	probeTimeout   time.Duration

	httpClient *http.Client
	logger     *observability.Logger
}

// NewUpstreamClient creates a client for the configured upstream endpoint.
func NewUpstreamClient(cfg *config.UpstreamConfig, logger *observability.Logger) *UpstreamClient {
	return &UpstreamClient{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		requestTimeout: config.UpstreamRequestTimeout,
		probeTimeout:   config.UpstreamProbeTimeout,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
			),
		},
		logger: logger,
	}
}

// Generate sends the prompt upstream with task-specific decoding parameters
// and returns the raw completion text.
func (c *UpstreamClient) Generate(ctx context.Context, kind models.TaskKind, prompt string) (result0 string, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	params := DecodingForTask(kind)
	return c.chat(ctx, prompt, params)
}

// Probe checks upstream reachability with a minimal completion request.
func (c *UpstreamClient) Probe(ctx context.Context) (err error) {
	ctx, span := observability.TraceUpstreamFunction(ctx, "Probe")
	defer observability.FinishSpan(span, &err)

	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	_, err = c.chat(ctx, "Hello", DecodingParams{Temperature: 0.0, MaxTokens: 10})
	return err
}

// chat makes a request to the OpenAI-compatible chat completion API.
func (c *UpstreamClient) chat(ctx context.Context, prompt string, params DecodingParams) (result0 string, err error) {
	ctx, span := observability.TraceUpstreamFunction(ctx, "chat",
		attribute.String("upstream.model", c.model),
		attribute.Int("prompt.length", len(prompt)),
		attribute.Float64("upstream.temperature", params.Temperature),
		attribute.Int("upstream.max_tokens", params.MaxTokens),
	)
	defer observability.FinishSpan(span, &err)

	if prompt == "" {
		span.SetAttributes(attribute.String("call.result", "empty_prompt"))
		return "", contextutils.WrapError(contextutils.ErrInvalidInput, "prompt cannot be empty")
	}
	if c.apiKey == "" {
		span.SetAttributes(attribute.String("call.result", "no_api_key"))
		return "", contextutils.WrapError(contextutils.ErrUpstreamAuth, "no API key configured")
	}

	reqBody := ChatRequest{
		Model:       c.model,
		Messages:    []ChatMessage{{Role: "user", Content: prompt}},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		span.SetAttributes(attribute.String("call.result", "marshal_failed"))
		return "", contextutils.WrapErrorf(err, "failed to marshal request body")
	}

	apiURL := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		span.SetAttributes(attribute.String("call.result", "request_creation_failed"))
		return "", contextutils.WrapErrorf(err, "failed to create HTTP request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "examprep/1.0")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			span.SetAttributes(attribute.String("call.result", "timeout"), attribute.String("duration", duration.String()))
			return "", contextutils.WrapErrorf(contextutils.ErrUpstreamTimeout, "upstream call abandoned after %v", duration)
		}
		span.SetAttributes(attribute.String("call.result", "transport_failure"), attribute.String("duration", duration.String()))
		c.logger.Error(ctx, "Upstream HTTP request failed", err, map[string]interface{}{
			"url":      apiURL,
			"duration": duration.String(),
		})
		return "", contextutils.WrapErrorf(contextutils.ErrUpstreamTransport, "HTTP request failed: %v", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn(ctx, "Failed to close response body", map[string]interface{}{
				"error": cerr.Error(),
			})
		}
	}()

	c.logger.Debug(ctx, "Upstream HTTP request completed", map[string]interface{}{
		"duration":    duration.String(),
		"status_code": resp.StatusCode,
	})

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.SetAttributes(attribute.String("call.result", "body_read_failed"))
		return "", contextutils.WrapErrorf(contextutils.ErrUpstreamTransport, "failed to read response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		span.SetAttributes(attribute.String("call.result", "http_error"), attribute.Int("status_code", resp.StatusCode))
		return "", c.statusError(resp.StatusCode, body, apiURL)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		span.SetAttributes(attribute.String("call.result", "json_unmarshal_failed"))
		return "", contextutils.WrapErrorf(contextutils.ErrUpstreamStatus, "failed to parse upstream response as JSON: %v", err)
	}

	if chatResp.Error != nil {
		span.SetAttributes(attribute.String("call.result", "api_error"), attribute.String("error_type", chatResp.Error.Type))
		return "", contextutils.WrapErrorf(contextutils.ErrUpstreamStatus, "upstream API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		span.SetAttributes(attribute.String("call.result", "no_choices"))
		return "", contextutils.WrapError(contextutils.ErrUpstreamStatus, "no choices in upstream response")
	}

	content := chatResp.Choices[0].Message.Content
	if content == "" {
		span.SetAttributes(attribute.String("call.result", "empty_content"))
		return "", contextutils.WrapError(contextutils.ErrUpstreamStatus, "upstream returned empty content")
	}

	span.SetAttributes(attribute.String("call.result", "success"), attribute.Int("content_length", len(content)))
	return content, nil
}

// statusError maps a non-200 upstream status to the error taxonomy.
func (c *UpstreamClient) statusError(statusCode int, body []byte, apiURL string) error {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return contextutils.WrapErrorf(contextutils.ErrUpstreamAuth, "upstream rejected credentials with status %d", statusCode)
	case http.StatusTooManyRequests:
		return contextutils.WrapErrorf(contextutils.ErrUpstreamRateLimited, "upstream throttled the request with status %d", statusCode)
	default:
		return contextutils.WrapErrorf(contextutils.ErrUpstreamStatus, "upstream request failed with status %d to %s: %s", statusCode, apiURL, truncate(string(body), 512))
	}
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes truncated)", s[:n], len(s)-n)
}
