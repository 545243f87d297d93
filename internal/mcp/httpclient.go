package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/trailog/internal/session"
	"github.com/claude/trailog/internal/workout"
)

// HTTPClient implements DataSource by calling the Trailog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the session lives on the server (reached over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, want int) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("httpclient: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	switch {
	case resp.StatusCode == want:
		return respBody, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("httpclient: %s: %w: %s", path, session.ErrInvalidInput, apiError(respBody))
	case resp.StatusCode == http.StatusConflict:
		return nil, fmt.Errorf("httpclient: %s: %w", path, session.ErrNoPosition)
	default:
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, respBody)
	}
}

// apiError extracts the detail of a {"error", "detail"} body.
func apiError(body []byte) string {
	var e struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &e) != nil {
		return string(body)
	}
	if e.Detail != "" {
		return e.Detail
	}
	return e.Error
}

func (c *HTTPClient) ListWorkouts(ctx context.Context) ([]workout.Record, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/workouts", nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var records []workout.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("httpclient: decode workouts: %w", err)
	}
	return records, nil
}

func (c *HTTPClient) GetWorkout(ctx context.Context, id string) (*workout.Record, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/workouts/"+url.PathEscape(id), nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var rec workout.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("httpclient: decode workout: %w", err)
	}
	return &rec, nil
}

func (c *HTTPClient) LogWorkout(ctx context.Context, in session.Input) (*workout.Record, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/v1/workouts", in, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	var rec workout.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("httpclient: decode workout: %w", err)
	}
	return &rec, nil
}
