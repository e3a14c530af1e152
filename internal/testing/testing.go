// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
)

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// ActionServer is an httptest server speaking the executor's JSON protocol.
//
// Each request body is decoded into a map and recorded; the reply for the
// request's "action" is looked up in Replies and written with status 200.
type ActionServer struct {
	*httptest.Server

	mu       sync.Mutex
	Replies  map[string]any
	Requests []map[string]any
}

// NewActionServer starts an [ActionServer]. The server is closed by t.Cleanup.
func NewActionServer(t *testing.T, replies map[string]any) *ActionServer {
	t.Helper()
	s := &ActionServer{Replies: replies}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}

		action, _ := payload["action"].(string)

		s.mu.Lock()
		s.Requests = append(s.Requests, payload)
		reply, ok := s.Replies[action]
		s.mu.Unlock()

		if !ok {
			reply = map[string]any{"ok": false, "error": "unsupported action", "status": 400, "code": "invalid_input"}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(s.Close)
	return s
}

// Actions returns the "action" field of every recorded request in order.
func (s *ActionServer) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.Requests))
	for _, r := range s.Requests {
		a, _ := r["action"].(string)
		out = append(out, a)
	}
	return out
}
