// Package ws streams lifecycle events from the remote queue over a WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"queuepanel/internal/model"
	"queuepanel/pkg/config"
	"queuepanel/pkg/interfaces"
	"queuepanel/pkg/logger"

	"github.com/gorilla/websocket"
)

// Reconnect backoff
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second

	eventBuffer = 64
)

// Client subscribes to the remote event stream and reconnects when it drops
type Client struct {
	url            string
	header         http.Header
	dialer         *websocket.Dialer
	initialBackoff time.Duration
}

var _ interfaces.EventSource = (*Client)(nil)

// NewClient creates an event stream client. The stream URL defaults to the REST
// base URL with a ws scheme and the /ws path.
func NewClient(cfg config.RemoteConfig) *Client {
	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	return &Client{
		url:            EventsURL(cfg),
		header:         header,
		dialer:         websocket.DefaultDialer,
		initialBackoff: initialBackoff,
	}
}

// EventsURL resolves the event stream URL of cfg
func EventsURL(cfg config.RemoteConfig) string {
	if cfg.EventsURL != "" {
		return cfg.EventsURL
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws"
}

// Subscribe dials the stream once so a bad address fails fast, then delivers
// events on the returned channel until ctx is cancelled. The channel is closed
// when the subscription ends.
func (c *Client) Subscribe(ctx context.Context) (<-chan model.LifecycleEvent, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial event stream: %w", err)
	}

	ch := make(chan model.LifecycleEvent, eventBuffer)
	go c.listenLoop(ctx, conn, ch)
	return ch, nil
}

func (c *Client) listenLoop(ctx context.Context, conn *websocket.Conn, ch chan<- model.LifecycleEvent) {
	defer close(ch)

	backoff := c.initialBackoff
	for {
		c.readLoop(ctx, conn, ch)
		conn.Close()

		for {
			if ctx.Err() != nil {
				return
			}
			logger.InfoCtx(ctx, "event stream lost, reconnecting in %v", backoff)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)

			var err error
			conn, _, err = c.dialer.DialContext(ctx, c.url, c.header)
			if err == nil {
				break
			}
			logger.WarnCtx(ctx, "event stream dial failed: %v", err)
		}
		backoff = c.initialBackoff
		logger.InfoCtx(ctx, "event stream reconnected")
	}
}

// readLoop blocks until the connection drops or ctx is cancelled
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, ch chan<- model.LifecycleEvent) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.WarnCtx(ctx, "event stream read failed: %v", err)
			}
			return
		}

		ev, ok := decodeEvent(data)
		if !ok {
			logger.DebugCtx(ctx, "ignoring malformed event: %s", string(data))
			continue
		}
		select {
		case ch <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// decodeEvent accepts both {"kind","payload"} and {"type","data"} envelopes
func decodeEvent(data []byte) (model.LifecycleEvent, bool) {
	var msg struct {
		Kind    model.EventKind `json:"kind"`
		Type    model.EventKind `json:"type"`
		Payload json.RawMessage `json:"payload"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return model.LifecycleEvent{}, false
	}
	ev := model.LifecycleEvent{Kind: msg.Kind, Payload: msg.Payload}
	if ev.Kind == "" {
		ev.Kind = msg.Type
	}
	if len(ev.Payload) == 0 {
		ev.Payload = msg.Data
	}
	if ev.Kind == "" {
		return model.LifecycleEvent{}, false
	}
	return ev, true
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
