// Package sse fans server-sent events out to clients grouped by topic
// (a project id for board streams).
package sse

import (
	"io"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const clientBuffer = 32

// Message is one event written to a stream.
type Message struct {
	Event string
	Data  []byte
}

// Client is a single open stream.
type Client struct {
	ID    string
	Topic string
	Send  chan Message
}

type envelope struct {
	topic string
	msg   Message
}

// Manager owns the client registry. All registry mutations happen on the
// Run goroutine.
type Manager struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope
	done       chan struct{}
	stopOnce   sync.Once

	countMu sync.RWMutex
	counts  map[string]int

	heartbeat time.Duration
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, 256),
		done:       make(chan struct{}),
		counts:     make(map[string]int),
		heartbeat:  25 * time.Second,
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (m *Manager) Run() {
	for {
		select {
		case c := <-m.register:
			if m.clients[c.Topic] == nil {
				m.clients[c.Topic] = make(map[*Client]struct{})
			}
			m.clients[c.Topic][c] = struct{}{}
			m.setCount(c.Topic, len(m.clients[c.Topic]))
		case c := <-m.unregister:
			if set, ok := m.clients[c.Topic]; ok {
				if _, ok := set[c]; ok {
					delete(set, c)
					close(c.Send)
				}
				if len(set) == 0 {
					delete(m.clients, c.Topic)
				}
				m.setCount(c.Topic, len(set))
			}
		case env := <-m.broadcast:
			for c := range m.clients[env.topic] {
				select {
				case c.Send <- env.msg:
				default:
					log.Printf("[SSE] Dropping %s event for slow client %s", env.msg.Event, c.ID)
				}
			}
		case <-m.done:
			for topic, set := range m.clients {
				for c := range set {
					close(c.Send)
				}
				delete(m.clients, topic)
			}
			m.countMu.Lock()
			m.counts = make(map[string]int)
			m.countMu.Unlock()
			return
		}
	}
}

// Stop ends Run and closes every open client channel.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

func (m *Manager) setCount(topic string, n int) {
	m.countMu.Lock()
	defer m.countMu.Unlock()
	if n == 0 {
		delete(m.counts, topic)
		return
	}
	m.counts[topic] = n
}

// ClientCount reports how many streams are open for topic.
func (m *Manager) ClientCount(topic string) int {
	m.countMu.RLock()
	defer m.countMu.RUnlock()
	return m.counts[topic]
}

// Subscribe registers a new client for topic. The returned func unregisters it.
func (m *Manager) Subscribe(topic string) (*Client, func()) {
	c := &Client{ID: uuid.New().String(), Topic: topic, Send: make(chan Message, clientBuffer)}
	select {
	case m.register <- c:
	case <-m.done:
		close(c.Send)
		return c, func() {}
	}
	return c, func() {
		select {
		case m.unregister <- c:
		case <-m.done:
		}
	}
}

// SendToProject queues an event for every client subscribed to projectID.
func (m *Manager) SendToProject(projectID string, eventType string, payload interface{}) {
	data, err := sonic.Marshal(payload)
	if err != nil {
		log.Printf("[SSE] Failed to marshal %s payload: %v", eventType, err)
		return
	}
	select {
	case m.broadcast <- envelope{topic: projectID, msg: Message{Event: eventType, Data: data}}:
	case <-m.done:
	}
}

// ServeHTTP streams events for topic until the client disconnects.
func (m *Manager) ServeHTTP(c *gin.Context, topic string) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	client, unsubscribe := m.Subscribe(topic)
	defer unsubscribe()

	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()

	c.SSEvent("connected", gin.H{"client_id": client.ID, "topic": topic})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-client.Send:
			if !ok {
				return false
			}
			c.SSEvent(msg.Event, string(msg.Data))
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}
