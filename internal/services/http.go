package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const defaultProxyURL string = "http://localhost:8080"

// HTTPTransport posts executor requests to a proxy that wraps the executor.
//
// Any reply body is handed back to the [Client]. A non-2xx reply shaped like
// {"detail": "..."} (the proxy's own errors) becomes an [*ExecutorError].
type HTTPTransport struct {
	baseURL    string
	path       string
	authFile   string
	httpClient *http.Client
}

// NewHTTPTransport creates a transport posting to baseURL + "/api/executor".
func NewHTTPTransport(baseURL, authFile string, client *http.Client) *HTTPTransport {
	if baseURL == "" {
		baseURL = defaultProxyURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		path:       "/api/executor",
		authFile:   authFile,
		httpClient: client,
	}
}

// Do implements [Transport].
func (h *HTTPTransport) Do(ctx context.Context, action Action, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+h.path, bytes.NewReader(payload))
	if err != nil {
		return nil, transportError(action, "failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.authFile != "" {
		req.Header.Set("X-Auth-File", h.authFile)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, transportError(action, "request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(action, "failed to read response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var detail struct {
			OK     *bool  `json:"ok"`
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(body, &detail); err == nil && detail.OK == nil && detail.Detail != "" {
			return nil, &ExecutorError{Action: action, Status: resp.StatusCode, Code: "proxy_error", Message: detail.Detail}
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return nil, transportError(action, "proxy returned status %d with no body", resp.StatusCode)
		}
	}

	return body, nil
}
