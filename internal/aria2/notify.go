package aria2

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nhooyr.io/websocket"
)

// Notification represents an async event pushed by aria2.
type Notification struct {
	Method string              `json:"method"`
	Params []NotificationEvent `json:"params"`
}

// NotificationEvent contains details for an aria2 notification.
type NotificationEvent struct {
	GID string `json:"gid"`
}

// EventType maps the notification method onto a short label such as
// "start", "pause", "stop", "complete" or "error".
func (n Notification) EventType() string {
	m := strings.TrimPrefix(n.Method, "aria2.")
	switch m {
	case "onDownloadStart":
		return "start"
	case "onDownloadPause":
		return "pause"
	case "onDownloadStop":
		return "stop"
	case "onDownloadComplete", "onBtDownloadComplete":
		return "complete"
	case "onDownloadError":
		return "error"
	default:
		return "unknown"
	}
}

// WebsocketURL derives the notification endpoint from the RPC URL.
func (c *Client) WebsocketURL() (string, error) {
	wsURL := *c.baseURL
	switch wsURL.Scheme {
	case "http":
		wsURL.Scheme = "ws"
	case "https":
		wsURL.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme: %s", wsURL.Scheme)
	}
	wsURL.Fragment = ""
	return wsURL.String(), nil
}

// Notifications connects to the aria2 WebSocket endpoint and streams
// async notifications. The returned channel is closed when the connection
// terminates or the context is cancelled.
func (c *Client) Notifications(ctx context.Context) (<-chan Notification, error) {
	u, err := c.WebsocketURL()
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	ch := make(chan Notification, 8)
	go func() {
		defer close(ch)
		defer func() { _ = conn.Close(websocket.StatusNormalClosure, "done") }()
		for {
			_, msg, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var n Notification
			if err := json.Unmarshal(bytes.TrimSpace(msg), &n); err != nil || n.Method == "" {
				continue
			}
			select {
			case ch <- n:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
