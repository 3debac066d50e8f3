// Package websocket pushes live tracking-board updates to connected
// dashboards. Clients subscribe to topics and receive the events broadcast
// to those topics; the flow services never talk to a socket directly.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Topics the tracking board consumes.
const (
	TopicPatients = "patients"
	TopicOrders   = "orders"
	TopicTasks    = "tasks"
	TopicRooms    = "rooms"
)

// Event is a real-time notification sent to dashboard clients.
type Event struct {
	Kind      string          `json:"kind"`
	Topic     string          `json:"topic"`
	PatientID string          `json:"patient_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an event with the payload marshalled in. A payload that
// fails to marshal is dropped rather than blocking the notification.
func NewEvent(topic, kind, patientID string, payload interface{}) Event {
	e := Event{
		Kind:      kind,
		Topic:     topic,
		PatientID: patientID,
		Timestamp: time.Now(),
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			e.Data = data
		}
	}
	return e
}

// ClientMessage is an inbound message from a dashboard client.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// Client is one connected dashboard. Send is buffered; a reader that falls
// behind misses events instead of stalling the board.
type Client struct {
	ID     string
	Topics []string
	Send   chan []byte
}

// Hub fans events out to subscribed clients. Safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	byTopic map[string]map[*Client]struct{}
	conns   map[*Client]struct{}
	log     zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		byTopic: make(map[string]map[*Client]struct{}),
		conns:   make(map[*Client]struct{}),
		log:     log,
	}
}

func (h *Hub) addSubscription(c *Client, topic string) {
	set, ok := h.byTopic[topic]
	if !ok {
		set = make(map[*Client]struct{})
		h.byTopic[topic] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) dropSubscription(c *Client, topic string) {
	set, ok := h.byTopic[topic]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.byTopic, topic)
	}
}

// Register adds a client and subscribes it to its initial topics.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c] = struct{}{}
	for _, topic := range c.Topics {
		h.addSubscription(c, topic)
	}
}

// Unregister drops the client from every topic and closes its Send channel.
// Calling it twice for the same client is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, connected := h.conns[c]; !connected {
		return
	}

	for _, topic := range c.Topics {
		h.dropSubscription(c, topic)
	}
	delete(h.conns, c)
	close(c.Send)
}

// Subscribe adds topics to an already-registered client.
func (h *Hub) Subscribe(c *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range topics {
		h.addSubscription(c, topic)
	}
	c.Topics = append(c.Topics, topics...)
}

// Unsubscribe removes topics from an already-registered client.
func (h *Hub) Unsubscribe(c *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := make(map[string]struct{}, len(topics))
	for _, topic := range topics {
		h.dropSubscription(c, topic)
		dropped[topic] = struct{}{}
	}

	kept := c.Topics[:0]
	for _, topic := range c.Topics {
		if _, gone := dropped[topic]; !gone {
			kept = append(kept, topic)
		}
	}
	c.Topics = kept
}

// ProcessMessage dispatches an inbound client message. Unknown actions are
// ignored.
func (h *Hub) ProcessMessage(c *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		h.Subscribe(c, msg.Topics)
	case "unsubscribe":
		h.Unsubscribe(c, msg.Topics)
	}
}

func (h *Hub) fanOut(targets map[*Client]struct{}, data []byte) {
	for c := range targets {
		select {
		case c.Send <- data:
		default:
			// Slow reader; dropping beats blocking the board.
		}
	}
}

// Broadcast sends the event to every client subscribed to topic.
func (h *Hub) Broadcast(topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("topic", topic).Msg("websocket: marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	h.fanOut(h.byTopic[topic], data)
}

// BroadcastAll sends the event to every connected client regardless of
// subscriptions.
func (h *Hub) BroadcastAll(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket: marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	h.fanOut(h.conns, data)
}

// Publish broadcasts the event to its own topic's subscribers.
func (h *Hub) Publish(_ context.Context, event Event) error {
	h.Broadcast(event.Topic, event)
	return nil
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// TopicCount reports the number of clients subscribed to topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byTopic[topic])
}
