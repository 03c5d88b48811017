package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"trawell-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel carries frames between API instances.
const ClusterChannel = "cluster_events"

// Topic helpers. Every connection subscribes to exactly one topic.
func RoomTopic(code string) string { return "room:" + code }

func UserTopic(ownerKey string) string { return "user:" + ownerKey }

func ProfilingTopic(sessionID string) string { return "profiling:" + sessionID }

func BrainstormTopic(sessionID string) string { return "brainstorm:" + sessionID }

type clusterFrame struct {
	Origin  string          `json:"origin"`
	Topic   string          `json:"topic"`
	Message json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients: topic -> set of clients (multi-device, multi-user)
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance communication, nil for single instance
	rdb    *redis.Client
	origin string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string]map[*Client]struct{}),
		rdb:        rdb,
		origin:     uuid.NewString(),
		logger:     log,
	}
}

// Run serves register/unregister requests until ctx is done, then closes
// every remaining client.
func (h *Hub) Run(ctx context.Context) {
	var relay sync.WaitGroup
	if h.rdb != nil {
		relay.Add(1)
		go func() {
			defer relay.Done()
			h.subscribeToRedis(ctx)
		}()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.Topic]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.Topic] = set
			}
			set[client] = struct{}{}
			h.mu.Unlock()
			if client.registered != nil {
				close(client.registered)
			}
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"topic": client.Topic})

		case client := <-h.unregister:
			h.remove(client)

		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for topic, set := range h.clients {
				for c := range set {
					close(c.Send)
				}
				delete(h.clients, topic)
			}
			h.mu.Unlock()
			relay.Wait()
			return
		}
	}
}

// Register adds c to its topic and returns once frames published afterwards
// reach it. Once the hub stopped, c is closed instead.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.Send)
		return
	}
	if c.registered == nil {
		return
	}
	select {
	case <-c.registered:
	case <-h.done:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// remove closes Send exactly once; a client that is no longer registered is
// ignored.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[client.Topic]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.Topic)
		h.logger.Info("Hub", "Topic has no more clients", map[string]interface{}{"topic": client.Topic})
	}
}

// Publish delivers data to local subscribers of topic and relays it to the
// other instances.
func (h *Hub) Publish(topic string, data []byte) {
	h.deliverLocal(topic, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterFrame{Origin: h.origin, Topic: topic, Message: data})
		if err := h.rdb.Publish(context.Background(), ClusterChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Redis relay publish failed", map[string]interface{}{"topic": topic, "error": err.Error()})
		}
	}
}

// PublishJSON marshals v and publishes it.
func (h *Hub) PublishJSON(topic string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode frame", map[string]interface{}{"topic": topic, "error": err.Error()})
		return
	}
	h.Publish(topic, data)
}

func (h *Hub) deliverLocal(topic string, data []byte) {
	var slow []*Client

	h.mu.RLock()
	for client := range h.clients[topic] {
		select {
		case client.Send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Hub", "Client Send buffer full, dropping client", map[string]interface{}{"topic": topic})
		h.remove(client)
	}
}

// reply queues data for c alone. It reports false when c is gone or its
// buffer is full.
func (h *Hub) reply(c *Client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.Topic][c]; !ok {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Subscribers counts local clients on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var frame clusterFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if frame.Origin == h.origin || strings.TrimSpace(frame.Topic) == "" {
				continue
			}
			h.deliverLocal(frame.Topic, frame.Message)
		}
	}
}
