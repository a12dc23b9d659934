package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestOpenAIComplete(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}]}`))
	})

	client := NewOpenAIClient("sk-test", server.URL+"/v1", "gpt-test", "embed-test")
	reply, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
	})

	require.NoError(t, err)
	assert.Equal(t, "hi there", reply)
	assert.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[1].Content)
}

func TestOpenAICompleteNoChoices(t *testing.T) {
	server := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","choices":[]}`))
	})

	_, err := NewOpenAIClient("k", server.URL+"/v1", "m", "e").Complete(context.Background(), []Message{{Role: "user", Content: "x"}})

	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestOpenAICompleteAPIError(t *testing.T) {
	server := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	})

	_, err := NewOpenAIClient("k", server.URL+"/v1", "m", "e").Complete(context.Background(), []Message{{Role: "user", Content: "x"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestOpenAIEmbed(t *testing.T) {
	var got struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}
	server := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,-0.25,1]}],"model":"embed-test"}`))
	})

	vec, err := NewOpenAIClient("k", server.URL+"/v1", "m", "embed-test").Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.25, 1}, vec)
	assert.Equal(t, "embed-test", got.Model)
	assert.Equal(t, []string{"hello"}, got.Input)
}

func TestAzureUsesDeploymentPath(t *testing.T) {
	server := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-4.1-chat/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-08-01-preview", r.URL.Query().Get("api-version"))
		assert.Equal(t, "azure-key", r.Header.Get("api-key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"from azure"}}]}`))
	})

	client := NewAzureClient("azure-key", server.URL, "2024-08-01-preview", "gpt-4.1-chat", "embed")
	reply, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "x"}})

	require.NoError(t, err)
	assert.Equal(t, "from azure", reply)
}
