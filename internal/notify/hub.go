// Package notify pushes booking and payment events to connected dashboards over websockets.
package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rental-backend/internal/auth"
	"rental-backend/internal/logger"
)

// Event types
const (
	BookingCreated   = "booking.created"
	BookingConfirmed = "booking.confirmed"
	BookingCancelled = "booking.cancelled"
	BookingCompleted = "booking.completed"
	PaymentSubmitted = "payment.submitted"
	PaymentReviewed  = "payment.reviewed"
	PaymentRefunded  = "payment.refunded"
	ListingReviewed  = "listing.reviewed"
)

type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
	// Audience lists user ids that may see the event; admins see everything
	Audience []int `json:"-"`
}

// Publisher is what services depend on
type Publisher interface {
	Publish(ev Event)
}

// Discard drops events (tests, or when the hub is disabled)
type Discard struct{}

func (Discard) Publish(Event) {}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn      *websocket.Conn
	principal auth.Principal
	send      chan Event
}

// Hub fans events out to subscribed websocket clients
type Hub struct {
	mu        sync.Mutex
	clients   map[*client]bool
	broadcast chan Event
	done      chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*client]bool),
		broadcast: make(chan Event, 256),
		done:      make(chan struct{}),
	}
}

// Run delivers broadcasts until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case ev := <-h.broadcast:
			h.deliver(ev)
		case <-h.done:
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.done)
}

// Publish never blocks the caller; events are dropped when the buffer is full
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- ev:
	default:
		logger.WithComponent("notify").Warnf("event buffer full, dropping %s", ev.Type)
	}
}

func (h *Hub) deliver(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !visibleTo(ev, c.principal) {
			continue
		}
		select {
		case c.send <- ev:
		default:
			// slow consumer
			close(c.send)
			delete(h.clients, c)
		}
	}
}

func visibleTo(ev Event, p auth.Principal) bool {
	if p.IsAdmin() {
		return true
	}
	for _, id := range ev.Audience {
		if id == p.UserID {
			return true
		}
	}
	return false
}

// Serve upgrades the request and streams events for principal until the socket closes
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, principal auth.Principal) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("notify").WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, principal: principal, send: make(chan Event, 32)}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go h.writeLoop(c)

	// Read until the peer goes away; clients do not send anything meaningful
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for ev := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// ClientCount is exposed for health output
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
