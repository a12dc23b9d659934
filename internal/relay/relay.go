// Package relay forwards chat requests to the configured backend and normalizes
// every outcome into a JSON body plus an HTTP status.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xiaot623/embedchat/internal/protocol"
	"github.com/xiaot623/embedchat/pkg/logger"
)

// Kind classifies a failed relay call.
type Kind string

const (
	KindNone          Kind = ""
	KindConfiguration Kind = "configuration_error"
	KindUpstream      Kind = "upstream_error"
	KindTransport     Kind = "transport_error"
)

const (
	// DetailBackendMissing is returned when no destination is configured.
	DetailBackendMissing = "Configuration Error: Backend URL missing"
	// DetailInternal is returned when a failure carries no message.
	DetailInternal = "Internal Server Error"

	snippetLen = 100
)

// Resolver returns the destination URL, or "" when none is configured.
type Resolver func() string

// Result is the normalized outcome of one relay call. Body is always JSON.
type Result struct {
	Status int
	Body   []byte
	Kind   Kind
}

// Relay is a stateless forwarder. It is safe for concurrent use.
type Relay struct {
	resolve    Resolver
	httpClient *http.Client
}

// New creates a relay. A zero timeout leaves the transport default in place.
func New(resolve Resolver, timeout time.Duration) *Relay {
	return NewWithClient(resolve, &http.Client{Timeout: timeout})
}

// NewWithClient creates a relay that sends requests with the given HTTP client.
func NewWithClient(resolve Resolver, httpClient *http.Client) *Relay {
	return &Relay{
		resolve:    resolve,
		httpClient: httpClient,
	}
}

// Forward relays one request body to the destination and normalizes the reply.
func (r *Relay) Forward(ctx context.Context, body []byte) Result {
	requestID := "rly_" + uuid.New().String()[:8]
	log := logger.WithFields(logrus.Fields{"request_id": requestID})

	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Errorf("invalid request body: %v", err)
		return failure(http.StatusInternalServerError, errorMessage(err), KindTransport)
	}

	backendURL := r.resolve()
	if backendURL == "" {
		log.Error("BACKEND_URL or NEXT_PUBLIC_API_URL is not set")
		return failure(http.StatusInternalServerError, DetailBackendMissing, KindConfiguration)
	}

	log = log.WithField("destination", backendURL)
	log.Infof("forwarding request, body snippet: %s", truncate(string(body), snippetLen))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, backendURL, bytes.NewReader(body))
	if err != nil {
		log.Errorf("failed to create request: %v", err)
		return failure(http.StatusInternalServerError, errorMessage(err), KindTransport)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		log.Errorf("failed to send request: %v", err)
		return failure(http.StatusInternalServerError, errorMessage(err), KindTransport)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Errorf("failed to read response: %v", err)
		return failure(http.StatusInternalServerError, errorMessage(err), KindTransport)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := upstreamDetail(resp.StatusCode, respBody)
		log.Errorf("backend error [%d]: %s", resp.StatusCode, detail)
		return failure(resp.StatusCode, detail, KindUpstream)
	}

	if err := json.Unmarshal(respBody, &payload); err != nil {
		log.Errorf("failed to parse backend response: %v", err)
		return failure(http.StatusInternalServerError, errorMessage(err), KindTransport)
	}

	return Result{Status: http.StatusOK, Body: respBody}
}

// upstreamDetail extracts a human-readable detail from a non-2xx backend body.
func upstreamDetail(status int, body []byte) string {
	unparsable := fmt.Sprintf("Status %d (Could not parse JSON)", status)

	var parsed interface{}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed == nil {
		return unparsable
	}

	if obj, ok := parsed.(map[string]interface{}); ok && truthy(obj["detail"]) {
		if s, ok := obj["detail"].(string); ok {
			return s
		}
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			return unparsable
		}
		return compact(raw["detail"])
	}

	return compact(body)
}

// truthy mirrors the falsy set of JSON values: null, false, 0 and "".
func truthy(v interface{}) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	default:
		return true
	}
}

func compact(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func failure(status int, detail string, kind Kind) Result {
	body, err := json.Marshal(protocol.ErrorResponse{Detail: detail})
	if err != nil {
		body = []byte(`{"detail":"` + DetailInternal + `"}`)
	}
	return Result{Status: status, Body: body, Kind: kind}
}

func errorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return DetailInternal
	}
	return err.Error()
}

// truncate truncates a string to the given number of runes.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}
