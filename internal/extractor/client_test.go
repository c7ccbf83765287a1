package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/tagloop/internal/llm"
)

// agentHandler returns an HTTP handler serving the agent envelope with the
// given content string.
func agentHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/agent/invoke", r.URL.Path)
		assert.Equal(t, "test-agent", r.URL.Query().Get("agent_id"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Parameters struct {
				FeedbackText string `json:"feedback_text"`
			} `json:"parameters"`
			Stream bool `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Parameters.FeedbackText)
		assert.False(t, req.Stream)

		resp := map[string]interface{}{
			"code":    0,
			"message": "success",
			"data":    map[string]string{"content": content},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL: baseURL,
		AgentID: "test-agent",
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
}

func TestClientExtract(t *testing.T) {
	content := `[{"type_name": "complaint_category", "entity_value": "delivery_delay", "confidence": 0.93}]`
	server := httptest.NewServer(agentHandler(t, content))
	defer server.Close()

	entities, err := newTestClient(server.URL).Extract(context.Background(), "slow delivery again")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "complaint_category", entities[0].TypeName)
	assert.Equal(t, "delivery_delay", entities[0].Value)
	assert.Equal(t, 0.93, entities[0].Confidence)
}

func TestClientExtractEmptyContent(t *testing.T) {
	server := httptest.NewServer(agentHandler(t, ""))
	defer server.Close()

	entities, err := newTestClient(server.URL).Extract(context.Background(), "some feedback")
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestClientExtractProseContentIsMalformed(t *testing.T) {
	server := httptest.NewServer(agentHandler(t, "I could not find any entities, sorry!"))
	defer server.Close()

	_, err := newTestClient(server.URL).Extract(context.Background(), "some feedback")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClientExtractHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Extract(context.Background(), "some feedback")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedResponse, "transport failures are not malformed responses")
	assert.Contains(t, err.Error(), "500")
}

func TestClientExtractAgentErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code":    4013,
			"message": "agent quota exceeded",
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Extract(context.Background(), "some feedback")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4013")
	assert.NotErrorIs(t, err, ErrMalformedResponse, "a clean error envelope is an agent failure, not a parse failure")
}

func TestClientExtractUndecodableEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Extract(context.Background(), "some feedback")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClientExtractCircuitOpensAfterRepeatedFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()

	// Default breaker trips after 3 consecutive failures.
	for i := 0; i < 3; i++ {
		_, err := client.Extract(ctx, "some feedback")
		require.Error(t, err)
	}

	_, err := client.Extract(ctx, "some feedback")
	assert.ErrorIs(t, err, llm.ErrCircuitOpen)
}

func TestClientExtractCancelledContext(t *testing.T) {
	server := httptest.NewServer(agentHandler(t, "[]"))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).Extract(ctx, "some feedback")
	assert.ErrorIs(t, err, context.Canceled)
}
