package realtime

import "sync"

// EventType labels a realtime message kind.
type EventType string

const (
	EventDictChange  EventType = "dict_change"
	EventOnlineCount EventType = "online_count"
	EventNotice      EventType = "notice"
)

// Event is the envelope fanned out to connected consoles.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Client represents one connected websocket session.
//
// Send is intentionally never closed by the broker so concurrent broadcasters
// cannot panic on a closed channel; done signals goroutines to stop instead.
type Client struct {
	SessionID string
	UserID    string
	Send      chan Event

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a Client with a bounded send queue.
func NewClient(sessionID, userID string, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 64
	}
	return &Client{
		SessionID: sessionID,
		UserID:    userID,
		Send:      make(chan Event, sendQueueSize),
		done:      make(chan struct{}),
	}
}

// Done returns a channel that is closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	if c == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// Close signals the client goroutines to stop (idempotent). It does NOT
// close Send, keeping broadcast safe under concurrency.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
