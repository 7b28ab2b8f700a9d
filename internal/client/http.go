package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/groblegark/audittrail/internal/model"
)

// HTTPClient implements AuditClient using the trail HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Events ---

func (c *HTTPClient) ListEvents(ctx context.Context, req *ListEventsRequest) (*model.EventPage, error) {
	q := url.Values{}
	if req.FromTS != nil {
		q.Set("from_ts", fmt.Sprintf("%d", *req.FromTS))
	}
	if req.ToTS != nil {
		q.Set("to_ts", fmt.Sprintf("%d", *req.ToTS))
	}
	if req.ActorID != nil {
		q.Set("actor_id", fmt.Sprintf("%d", *req.ActorID))
	}
	if req.Action != "" {
		q.Set("action", req.Action)
	}
	if req.Page > 0 {
		q.Set("page", fmt.Sprintf("%d", req.Page))
	}
	if req.PageSize > 0 {
		q.Set("page_size", fmt.Sprintf("%d", req.PageSize))
	}

	path := "/v1/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page model.EventPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *HTTPClient) GetEvent(ctx context.Context, id int64) (*model.AuditEvent, error) {
	var event model.AuditEvent
	if err := c.doJSON(ctx, http.MethodGet, "/v1/events/"+strconv.FormatInt(id, 10), nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// --- Introspection ---

func (c *HTTPClient) Stats(ctx context.Context) (*model.Stats, error) {
	var stats model.Stats
	if err := c.doJSON(ctx, http.MethodGet, "/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Health reports the server's health status. Unlike the other calls it decodes
// the body even on a 503, because a degraded server still answers with a
// status document rather than an error envelope.
func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(respBody, &status); err != nil || status.Status == "" {
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	return status.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content — success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
