package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTransport struct {
	calls atomic.Int32
	err   error
}

func (t *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	t.calls.Add(1)
	return nil, t.err
}

func static(url string) Resolver {
	return func() string { return url }
}

func newBackend(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestForwardMissingBackendFailsClosed(t *testing.T) {
	transport := &countingTransport{}
	r := NewWithClient(static(""), &http.Client{Transport: transport})

	res := r.Forward(context.Background(), []byte(`{"message":"hi","session_id":"abc"}`))

	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Equal(t, KindConfiguration, res.Kind)
	assert.JSONEq(t, `{"detail":"Configuration Error: Backend URL missing"}`, string(res.Body))
	assert.Equal(t, int32(0), transport.calls.Load())
}

func TestForwardPassesSuccessBodyThrough(t *testing.T) {
	body := `{"response":"ok","embedding":[0.1,0.2]}`
	backend := newBackend(t, http.StatusOK, body)

	res := New(static(backend.URL), 0).Forward(context.Background(), []byte(`{"message":"hi","session_id":"abc"}`))

	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, KindNone, res.Kind)
	assert.Equal(t, body, string(res.Body))
}

func TestForwardNormalizesNon200SuccessTo200(t *testing.T) {
	backend := newBackend(t, http.StatusCreated, `{"response":"made"}`)

	res := New(static(backend.URL), 0).Forward(context.Background(), []byte(`{}`))

	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, `{"response":"made"}`, string(res.Body))
}

func TestForwardSendsBodyUnchanged(t *testing.T) {
	var gotBody []byte
	var gotContentType, gotMethod string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"response":"ok"}`))
	}))
	defer backend.Close()

	in := `{"session_id":"abc",  "message":"hello"}`
	res := New(static(backend.URL), 0).Forward(context.Background(), []byte(in))

	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, in, string(gotBody))
}

func TestForwardUpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail field", http.StatusServiceUnavailable, `{"detail":"overloaded"}`, `{"detail":"overloaded"}`},
		{"no detail field", http.StatusBadRequest, `{"error": "bad", "code": 7}`, `{"detail":"{\"error\":\"bad\",\"code\":7}"}`},
		{"empty detail", http.StatusBadRequest, `{"detail":""}`, `{"detail":"{\"detail\":\"\"}"}`},
		{"object detail", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, `{"detail":"[{\"msg\":\"field required\"}]"}`},
		{"not json", http.StatusBadGateway, `boom`, `{"detail":"Status 502 (Could not parse JSON)"}`},
		{"json null", http.StatusInternalServerError, `null`, `{"detail":"Status 500 (Could not parse JSON)"}`},
		{"empty body", http.StatusNotFound, ``, `{"detail":"Status 404 (Could not parse JSON)"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newBackend(t, tt.status, tt.body)

			res := New(static(backend.URL), 0).Forward(context.Background(), []byte(`{"message":"hi","session_id":"abc"}`))

			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, KindUpstream, res.Kind)
			assert.JSONEq(t, tt.want, string(res.Body))
		})
	}
}

func TestForwardTransportFailure(t *testing.T) {
	transport := &countingTransport{err: errors.New("connection refused")}
	r := NewWithClient(static("http://backend.invalid/chat"), &http.Client{Transport: transport})

	res := r.Forward(context.Background(), []byte(`{"message":"hi","session_id":"abc"}`))

	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Equal(t, KindTransport, res.Kind)
	assert.Contains(t, string(res.Body), "connection refused")
	assert.Equal(t, int32(1), transport.calls.Load())
}

func TestForwardMalformedDestinationURL(t *testing.T) {
	res := New(static("://not a url"), 0).Forward(context.Background(), []byte(`{"message":"hi"}`))

	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Equal(t, KindTransport, res.Kind)
	assert.NotContains(t, string(res.Body), DetailInternal)
}

func TestForwardInvalidInboundBody(t *testing.T) {
	transport := &countingTransport{}
	r := NewWithClient(static("http://backend/chat"), &http.Client{Transport: transport})

	res := r.Forward(context.Background(), []byte(`{"message":`))

	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Contains(t, string(res.Body), "unexpected end of JSON input")
	assert.Equal(t, int32(0), transport.calls.Load())
}

func TestForwardNonJSONSuccessBody(t *testing.T) {
	backend := newBackend(t, http.StatusOK, `<html>ok</html>`)

	res := New(static(backend.URL), 0).Forward(context.Background(), []byte(`{}`))

	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Equal(t, KindTransport, res.Kind)
	assert.Contains(t, string(res.Body), "invalid character")
}

func TestForwardIsSafeForConcurrentUse(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))
	defer backend.Close()

	r := New(static(backend.URL), 0)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := r.Forward(context.Background(), []byte(`{"response":"echo"}`))
			assert.Equal(t, http.StatusOK, res.Status)
			assert.Equal(t, `{"response":"echo"}`, string(res.Body))
		}()
	}
	wg.Wait()
}

func TestErrorMessageFallsBackToGeneric(t *testing.T) {
	assert.Equal(t, DetailInternal, errorMessage(errors.New("")))
	assert.Equal(t, "boom", errorMessage(errors.New("boom")))
}
