// Package relayclient sends chat turns to the relay over HTTP or WebSocket.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/xiaot623/embedchat/internal/protocol"
)

// DetailError is a non-2xx relay reply. Error returns the detail text only.
type DetailError struct {
	Status int
	Detail string
}

func (e *DetailError) Error() string {
	return e.Detail
}

const detailFallback = "Failed to fetch response"

// Client is an HTTP client for the relay.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a relay client. No timeout is set; the transport default applies.
func NewClient(url string) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{},
	}
}

// Send posts one chat request to the relay.
func (c *Client) Send(ctx context.Context, req protocol.ChatRequest) (*protocol.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return decodeReply(resp.StatusCode, respBody)
}

// decodeReply turns a relay status and body into a response or an error.
func decodeReply(status int, body []byte) (*protocol.ChatResponse, error) {
	if status < 200 || status > 299 {
		var errResp protocol.ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return nil, &DetailError{Status: status, Detail: fmt.Sprintf("Status %d (Could not parse JSON)", status)}
		}
		if errResp.Detail == "" {
			return nil, &DetailError{Status: status, Detail: detailFallback}
		}
		return nil, &DetailError{Status: status, Detail: errResp.Detail}
	}

	var chatResp *protocol.ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if chatResp == nil {
		return nil, fmt.Errorf("failed to decode response: null body")
	}
	return chatResp, nil
}
