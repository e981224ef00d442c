package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// BrokerMetrics receives connection and event counts. Satisfied by the
// metrics service; nil-safe through the interface check in the broker.
type BrokerMetrics interface {
	SetWSConnections(n int)
	RecordWSEvent(eventType string)
}

// Broker is the process-wide fan-out hub for live console connections. The
// registry is process-local, never persisted, and rebuilt from scratch on
// restart: every client reconnects.
//
// Concurrency guarantees:
//   - Register/Unregister are safe under concurrent broadcasts.
//   - Broadcasts never block on a slow client (drop under backpressure), so
//     one stalled subscriber cannot stall delivery to the rest.
//   - The online count is always recomputed from the registry size at
//     broadcast time, never tracked independently.
type Broker struct {
	logger  *zap.Logger
	metrics BrokerMetrics

	mu       sync.RWMutex
	sessions map[string]*Client
	byUser   map[string]map[string]*Client
}

// NewBroker constructs an empty broker.
func NewBroker(logger *zap.Logger, metrics BrokerMetrics) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		logger:   logger,
		metrics:  metrics,
		sessions: make(map[string]*Client),
		byUser:   make(map[string]map[string]*Client),
	}
}

// Register adds a client to the registry and broadcasts the new online count.
func (b *Broker) Register(client *Client) {
	if client == nil || client.SessionID == "" {
		return
	}

	b.mu.Lock()
	b.sessions[client.SessionID] = client
	userSessions, ok := b.byUser[client.UserID]
	if !ok {
		userSessions = make(map[string]*Client)
		b.byUser[client.UserID] = userSessions
	}
	userSessions[client.SessionID] = client
	count := len(b.sessions)
	b.mu.Unlock()

	b.logger.Info("realtime client registered",
		zap.String("session_id", client.SessionID),
		zap.String("user_id", client.UserID),
		zap.Int("online", count))

	b.PublishOnlineCount()
}

// Unregister removes a client and broadcasts the updated online count. The
// client is closed after removal so no broadcaster holds a pointer to a
// session mid-teardown.
func (b *Broker) Unregister(sessionID string) {
	if sessionID == "" {
		return
	}

	b.mu.Lock()
	client, ok := b.sessions[sessionID]
	if ok {
		delete(b.sessions, sessionID)
		if userSessions, exists := b.byUser[client.UserID]; exists {
			delete(userSessions, sessionID)
			if len(userSessions) == 0 {
				delete(b.byUser, client.UserID)
			}
		}
	}
	count := len(b.sessions)
	b.mu.Unlock()

	if !ok {
		return
	}
	client.Close()

	b.logger.Info("realtime client unregistered",
		zap.String("session_id", sessionID),
		zap.Int("online", count))

	b.PublishOnlineCount()
}

// OnlineCount returns the current number of live connections.
func (b *Broker) OnlineCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions)
}

// PublishDictChange notifies every connected console that a dictionary type
// changed. At-most-once per connection per publish; reconnecting clients
// re-fetch current state instead of replaying a backlog.
func (b *Broker) PublishDictChange(typeCode string) {
	b.broadcast(Event{Type: EventDictChange, Data: typeCode})
}

// PublishOnlineCount broadcasts the authoritative live connection count.
func (b *Broker) PublishOnlineCount() {
	b.mu.RLock()
	count := len(b.sessions)
	targets := b.snapshot()
	b.mu.RUnlock()

	if b.metrics != nil {
		b.metrics.SetWSConnections(count)
		b.metrics.RecordWSEvent(string(EventOnlineCount))
	}
	b.deliver(targets, Event{Type: EventOnlineCount, Data: count})
}

// SendToUser delivers a payload to every live connection of the given user.
// Zero live connections is not an error; the message is dropped.
func (b *Broker) SendToUser(userID string, payload interface{}) {
	b.mu.RLock()
	var targets []*Client
	for _, client := range b.byUser[userID] {
		targets = append(targets, client)
	}
	b.mu.RUnlock()

	if b.metrics != nil {
		b.metrics.RecordWSEvent(string(EventNotice))
	}
	b.deliver(targets, Event{Type: EventNotice, Data: payload})
}

func (b *Broker) broadcast(event Event) {
	b.mu.RLock()
	targets := b.snapshot()
	b.mu.RUnlock()

	if b.metrics != nil {
		b.metrics.RecordWSEvent(string(event.Type))
	}
	b.deliver(targets, event)
}

// snapshot copies the registry under the caller's read lock. Everyone
// registered at broadcast start receives the event; clients added mid-flight
// catch the next one.
func (b *Broker) snapshot() []*Client {
	targets := make([]*Client, 0, len(b.sessions))
	for _, client := range b.sessions {
		targets = append(targets, client)
	}
	return targets
}

func (b *Broker) deliver(targets []*Client, event Event) {
	for _, client := range targets {
		if client == nil {
			continue
		}

		select {
		case <-client.Done():
			continue
		default:
		}

		select {
		case client.Send <- event:
		default:
			// Drop rather than block the whole broadcast.
			b.logger.Debug("realtime send queue full, dropping event",
				zap.String("session_id", client.SessionID),
				zap.String("type", string(event.Type)))
		}
	}
}
