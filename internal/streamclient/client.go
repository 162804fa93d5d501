// Package streamclient owns the push-stream connection to a running build.
//
// The server pushes named events (task, card, preview_update, plan_update)
// over a single long-lived HTTP connection using SSE framing. This client
// holds at most one connection, for one build id, at a time; it never retries
// on its own — reopening after a failure is the caller's decision.
package streamclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/TheSmartAz/zaoya-sub000/internal/debug"
)

// Health is the observable state of the stream connection.
type Health string

const (
	HealthIdle         Health = "idle"
	HealthConnecting   Health = "connecting"
	HealthReconnecting Health = "reconnecting"
	HealthConnected    Health = "connected"
	HealthError        Health = "error"
)

// ErrStreamOpen is returned when Open is called while a connection for a
// different build id is still open.
var ErrStreamOpen = errors.New("stream already open for another build")

const (
	scannerInitialBuffer = 64 * 1024
	scannerMaxBuffer     = 1024 * 1024
)

// Client holds at most one push-stream connection.
type Client struct {
	mu        sync.Mutex
	handler   Handler
	httpc     *http.Client
	token     string
	health    Health
	healthMsg string
	onHealth  func(Health, string)
	conn      *conn
}

// conn is one connection attempt. Once closed is set no event read on this
// connection may reach the handler, which guards against use-after-close
// races when completion signals race a Close.
type conn struct {
	buildID string
	cancel  context.CancelFunc
	closed  bool
	live    bool // first event seen
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent when opening streams.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient substitutes the HTTP client used for stream requests.
// The client must not carry a global timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithHealthFunc registers an observer called on every health change. The
// callback must not call back into the Client.
func WithHealthFunc(fn func(Health, string)) Option {
	return func(c *Client) { c.onHealth = fn }
}

// New returns a closed client dispatching to handler.
func New(handler Handler, opts ...Option) *Client {
	c := &Client{
		handler: handler,
		httpc:   &http.Client{},
		health:  HealthIdle,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// OpenRequest describes a stream to open.
type OpenRequest struct {
	BuildID string
	URL     string
	// Resume marks a reconnect after restart: health reports reconnecting
	// instead of connecting until the first event arrives.
	Resume bool
}

// Open starts consuming the stream. It is idempotent when a connection for
// the same build id is already open, and fails fast with ErrStreamOpen when
// a different build's connection is open (it must be closed first).
func (c *Client) Open(ctx context.Context, req OpenRequest) error {
	c.mu.Lock()
	if c.conn != nil && !c.conn.closed {
		same := c.conn.buildID == req.BuildID
		c.mu.Unlock()
		if same {
			return nil
		}
		return ErrStreamOpen
	}

	streamCtx, cancel := context.WithCancel(ctx)
	cn := &conn{buildID: req.BuildID, cancel: cancel}
	c.conn = cn
	health := HealthConnecting
	if req.Resume {
		health = HealthReconnecting
	}
	c.setHealthLocked(health, "")
	c.mu.Unlock()

	debug.LogKV("stream", "opening", "build_id", req.BuildID, "url", req.URL, "resume", req.Resume)
	go c.run(streamCtx, cn, req.URL)
	return nil
}

// Close tears down the connection. Idempotent; after Close returns no
// further events from the old connection reach the handler. Closing only
// stops local updates — it does not cancel server-side work.
func (c *Client) Close() {
	c.mu.Lock()
	cn := c.conn
	if cn != nil {
		cn.closed = true
		cn.cancel()
		c.conn = nil
	}
	c.setHealthLocked(HealthIdle, "")
	c.mu.Unlock()
	if cn != nil {
		debug.LogKV("stream", "closed", "build_id", cn.buildID)
	}
}

// Health returns the connection health and, for HealthError, the recorded
// human-readable message.
func (c *Client) Health() (Health, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.health, c.healthMsg
}

// BuildID returns the build id of the open connection, or "".
func (c *Client) BuildID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.conn.closed {
		return ""
	}
	return c.conn.buildID
}

func (c *Client) setHealthLocked(h Health, msg string) {
	if c.health == h && c.healthMsg == msg {
		return
	}
	c.health = h
	c.healthMsg = msg
	if c.onHealth != nil {
		c.onHealth(h, msg)
	}
}

// fail records a connection-level failure and closes the connection. No
// automatic retry is attempted.
func (c *Client) fail(cn *conn, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cn.closed {
		return
	}
	cn.closed = true
	cn.cancel()
	if c.conn == cn {
		c.conn = nil
		c.setHealthLocked(HealthError, msg)
	}
	debug.LogKV("stream", "failed", "build_id", cn.buildID, "err", msg)
}

func (c *Client) run(ctx context.Context, cn *conn, streamURL string) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		c.fail(cn, fmt.Sprintf("building stream request: %v", err))
		return
	}
	request.Header.Set("Accept", "text/event-stream")
	request.Header.Set("Cache-Control", "no-cache")
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpc.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return // locally closed
		}
		c.fail(cn, fmt.Sprintf("connecting to stream: %v", err))
		return
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 2048))
		c.fail(cn, fmt.Sprintf("stream http %d: %s", response.StatusCode, strings.TrimSpace(string(body))))
		return
	}

	scanner := bufio.NewScanner(response.Body)
	scanner.Buffer(make([]byte, scannerInitialBuffer), scannerMaxBuffer)

	var eventName string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if eventName != "" || data.Len() > 0 {
				c.dispatch(cn, eventName, data.String())
			}
			eventName = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	if ctx.Err() != nil {
		return // locally closed
	}
	if err := scanner.Err(); err != nil {
		c.fail(cn, fmt.Sprintf("reading stream: %v", err))
		return
	}
	c.fail(cn, "stream connection closed by server")
}

// dispatch parses one framed event and hands it to the handler. Unknown
// event names are skipped for forward compatibility. The handler runs under
// the client mutex so a concurrent Close strictly orders before or after a
// whole event, never in the middle.
func (c *Client) dispatch(cn *conn, name, payload string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cn.closed {
		return
	}
	if !cn.live {
		cn.live = true
		c.setHealthLocked(HealthConnected, "")
	}

	switch name {
	case EventTask:
		var evt TaskEvent
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			debug.LogKV("stream", "bad task payload", "err", err)
			return
		}
		c.handler.HandleTaskEvent(evt)
	case EventCard:
		var evt CardEvent
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			debug.LogKV("stream", "bad card payload", "err", err)
			return
		}
		c.handler.HandleCardEvent(evt)
	case EventPreviewUpdate:
		var evt PreviewUpdateEvent
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			return
		}
		c.handler.HandlePreviewUpdate(evt)
	case EventPlanUpdate:
		var evt PlanUpdateEvent
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			return
		}
		c.handler.HandlePlanUpdate(evt)
	default:
		debug.LogKV("stream", "ignoring unknown event", "event", name)
	}
}
