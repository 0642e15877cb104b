package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Response is a recorded HTTP response.
type Response struct {
	Code   int
	Header http.Header
	Body   []byte
}

// Do sends a request to handler and records the response.
// A non-empty body is sent as JSON.
func Do(t *testing.T, handler http.Handler, method, path, body string, headers ...string) Response {
	t.Helper()
	require.Zero(t, len(headers)%2, "headers must be key/value pairs")

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return Response{Code: w.Code, Header: w.Header(), Body: w.Body.Bytes()}
}

// DecodeAs parses the response body into T.
func DecodeAs[T any](t *testing.T, resp Response) T {
	t.Helper()

	var result T
	require.NoError(t, json.Unmarshal(resp.Body, &result), "Failed to parse JSON response: %s", resp.Body)
	return result
}

// ErrorBody is the uniform error response of the API.
type ErrorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
	Details   []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"details"`
}

// AssertErrorResponse asserts status and error code of a failed request.
func AssertErrorResponse(t *testing.T, resp Response, status int, code string) ErrorBody {
	t.Helper()

	assert.Equal(t, status, resp.Code, "Unexpected status code: %s", resp.Body)
	body := DecodeAs[ErrorBody](t, resp)
	assert.Equal(t, code, body.Code, "Unexpected error code")
	assert.NotEmpty(t, body.Error, "Expected an error message")
	return body
}

// ToJSON marshals v into a string body.
func ToJSON(t *testing.T, v any) string {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err, "Failed to marshal to JSON")
	return string(data)
}

// FakeUpstream is an httptest server standing in for the valuation provider.
// Routes are matched on the exact escaped request path.
type FakeUpstream struct {
	Server *httptest.Server

	mu     sync.Mutex
	routes map[string]fakeRoute
	calls  map[string]int
	apiKey string
}

type fakeRoute struct {
	status int
	body   string
}

// NewFakeUpstream starts a fake provider that requires apiKey on every call.
// It is closed when the test ends.
func NewFakeUpstream(t *testing.T, apiKey string) *FakeUpstream {
	t.Helper()

	u := &FakeUpstream{
		routes: make(map[string]fakeRoute),
		calls:  make(map[string]int),
		apiKey: apiKey,
	}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.Server.Close)
	return u
}

// Handle answers path with status and a JSON body.
func (u *FakeUpstream) Handle(path string, status int, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes[path] = fakeRoute{status: status, body: body}
}

// Calls returns how many requests reached path.
func (u *FakeUpstream) Calls(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[path]
}

// URL returns the base URL of the fake provider.
func (u *FakeUpstream) URL() string {
	return u.Server.URL
}

func (u *FakeUpstream) serve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.EscapedPath()

	u.mu.Lock()
	u.calls[path]++
	route, ok := u.routes[path]
	u.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.URL.Query().Get("apiKey") != u.apiKey {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"invalid api key"}`)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"not found"}`)
		return
	}
	w.WriteHeader(route.status)
	_, _ = io.Copy(w, bytes.NewBufferString(route.body))
}
