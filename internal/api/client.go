// Package api is the REST client for the zaoya build server. Every call
// returns the server's authoritative response; callers apply results
// wholesale and never patch local state on error.
package api

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

	"github.com/TheSmartAz/zaoya-sub000/internal/debug"
)

// Client talks to one zaoya server.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// New returns a client for the given base URL. timeout bounds individual
// REST calls; it does not apply to the push stream, which uses its own
// transport.
func New(baseURL, token string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the configured API token ("" when unauthenticated).
func (c *Client) Token() string {
	return c.token
}

// StreamURL returns the push-stream endpoint for a build.
func (c *Client) StreamURL(buildID string) string {
	return c.baseURL + "/api/v1/builds/" + url.PathEscape(buildID) + "/stream"
}

// RetryStreamURL returns the derived push-stream endpoint that retries a
// single page task within a build.
func (c *Client) RetryStreamURL(buildID, taskID string) string {
	return c.baseURL + "/api/v1/builds/" + url.PathEscape(buildID) +
		"/pages/" + url.PathEscape(taskID) + "/retry/stream"
}

func (c *Client) doJSON(ctx context.Context, method, path string, query map[string]string, body, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	parsed, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		values := parsed.Query()
		for key, value := range query {
			values.Set(key, value)
		}
		parsed.RawQuery = values.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	request, err := http.NewRequestWithContext(ctx, method, parsed.String(), reader)
	if err != nil {
		return err
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	debug.LogKV("api", "request", "method", method, "path", path)
	response, err := c.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		return decodeAPIError(response.StatusCode, payload)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(out)
}

func decodeAPIError(status int, payload []byte) error {
	var wrapper struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &wrapper); err == nil && strings.TrimSpace(wrapper.Error.Code) != "" {
		return fmt.Errorf("%s (http %d): %s", wrapper.Error.Code, status, strings.TrimSpace(wrapper.Error.Message))
	}
	return fmt.Errorf("http %d: %s", status, strings.TrimSpace(string(payload)))
}
