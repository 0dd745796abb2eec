package sse

import (
	"io"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	clientBuffer      = 16
	heartbeatInterval = 25 * time.Second
)

// Event is one server-sent event addressed to a user
type Event struct {
	UserID string
	Type   string
	Data   interface{}
}

type client struct {
	userID string
	ch     chan Event
}

// Manager fans events out to every open stream of a user. Slow clients drop
// events instead of blocking the sender.
type Manager struct {
	mu         sync.RWMutex
	clients    map[string]map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan Event
	stop       chan struct{}
}

// NewManager creates a new SSE manager
func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event, 256),
		stop:       make(chan struct{}),
	}
}

// Run dispatches events until Stop is called
func (m *Manager) Run() {
	for {
		select {
		case c := <-m.register:
			m.mu.Lock()
			if m.clients[c.userID] == nil {
				m.clients[c.userID] = make(map[*client]struct{})
			}
			m.clients[c.userID][c] = struct{}{}
			m.mu.Unlock()
		case c := <-m.unregister:
			m.mu.Lock()
			if set, ok := m.clients[c.userID]; ok {
				if _, ok := set[c]; ok {
					delete(set, c)
					close(c.ch)
				}
				if len(set) == 0 {
					delete(m.clients, c.userID)
				}
			}
			m.mu.Unlock()
		case ev := <-m.broadcast:
			m.mu.RLock()
			for c := range m.clients[ev.UserID] {
				select {
				case c.ch <- ev:
				default:
					log.Printf("[SSE] Dropping %s event for slow client of user %s", ev.Type, ev.UserID)
				}
			}
			m.mu.RUnlock()
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) Stop() {
	close(m.stop)
}

// SendToUser queues an event; it never blocks the caller
func (m *Manager) SendToUser(userID, eventType string, data interface{}) {
	select {
	case m.broadcast <- Event{UserID: userID, Type: eventType, Data: data}:
	default:
		log.Printf("[SSE] Broadcast queue full, dropping %s for user %s", eventType, userID)
	}
}

// ClientCount returns the number of open streams for a user
func (m *Manager) ClientCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[userID])
}

// ServeHTTP streams events to the caller until the request is cancelled
func (m *Manager) ServeHTTP(c *gin.Context, userID string) {
	cl := &client{userID: userID, ch: make(chan Event, clientBuffer)}
	m.register <- cl
	defer func() { m.unregister <- cl }()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.SSEvent("connected", gin.H{"user_id": userID})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-cl.ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev.Data)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
