// Package extractor wraps the external semantic extraction agent. Given raw
// feedback text, the agent returns candidate entities with self-reported
// confidence; the pipeline escalates to it when hybrid retrieval is not
// confident enough.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/scrypster/tagloop/internal/llm"
	"github.com/scrypster/tagloop/pkg/types"
)

// ErrMalformedResponse indicates the agent answered but its payload could not
// be parsed into an entity list. Callers treat this as an empty extraction
// result rather than a transport failure.
var ErrMalformedResponse = errors.New("extractor returned malformed response")

// Extractor is the interface the orchestrator depends on.
type Extractor interface {
	// Extract returns candidate entities for the given feedback text.
	// Transport failures and non-success agent codes are returned as errors;
	// parse failures wrap ErrMalformedResponse.
	Extract(ctx context.Context, text string) ([]types.ExtractedEntity, error)
}

// Client calls the agent's invoke endpoint over HTTP with a bounded timeout,
// circuit breaker protection, and client-side rate limiting.
type Client struct {
	invokeURL string
	apiKey    string
	client    *http.Client
	breaker   *llm.CircuitBreaker
	limiter   *rate.Limiter
	timeout   time.Duration
}

// Config holds extractor client configuration.
type Config struct {
	// BaseURL is the agent API root (e.g. https://api.example.com).
	BaseURL string

	// AgentID identifies the extraction agent to invoke.
	AgentID string

	// APIKey is the bearer token for the agent API.
	APIKey string

	// Timeout bounds each extraction call (default: 30s).
	Timeout time.Duration

	// RequestsPerSecond paces outbound calls; zero disables pacing.
	RequestsPerSecond float64
}

// invokeRequest is the request body for the agent invoke endpoint.
type invokeRequest struct {
	Parameters struct {
		FeedbackText string `json:"feedback_text"`
	} `json:"parameters"`
	Stream bool `json:"stream"`
}

// invokeResponse is the envelope the agent wraps its answers in. A non-zero
// Code is an agent-side failure even when HTTP status is 200. Content holds
// the entity list as a JSON-encoded string.
type invokeResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Content string `json:"content"`
	} `json:"data"`
}

// NewClient creates a new extraction agent client.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &Client{
		invokeURL: fmt.Sprintf("%s/v1/agent/invoke?agent_id=%s", config.BaseURL, config.AgentID),
		apiKey:    config.APIKey,
		client:    &http.Client{Timeout: config.Timeout},
		breaker:   llm.NewCircuitBreaker("extractor-agent"),
		limiter:   limiter,
		timeout:   config.Timeout,
	}
}

// Extract invokes the agent for the given feedback text and normalizes its
// output into candidate entities. Candidates with an omitted confidence get
// DefaultConfidence; items missing a type or value are dropped.
func (c *Client) Extract(ctx context.Context, text string) ([]types.ExtractedEntity, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("extractor rate limiter: %w", err)
	}

	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.invoke(ctx, text)
	})
	if err != nil {
		if errors.Is(err, llm.ErrCircuitOpen) {
			return nil, fmt.Errorf("extractor circuit breaker open: %w", err)
		}
		return nil, err
	}

	return ParseEntityList(result.(string))
}

// invoke performs the HTTP call and returns the raw content string.
func (c *Client) invoke(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody invokeRequest
	reqBody.Parameters.FeedbackText = text
	reqBody.Stream = false

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.invokeURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("extractor returned status %d: %s", resp.StatusCode, string(body))
	}

	var respData invokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("%w: decode envelope: %v", ErrMalformedResponse, err)
	}

	if respData.Code != 0 {
		return "", fmt.Errorf("extractor returned code %d: %s", respData.Code, respData.Message)
	}

	return respData.Data.Content, nil
}

var _ Extractor = (*Client)(nil)
