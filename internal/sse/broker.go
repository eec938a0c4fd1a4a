// Package sse implements a Server-Sent Events broker that tells admin
// clients when city pages are provisioned, renamed or removed.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/starford/citypages/internal/category"
)

// Event is one SSE frame. An empty Category reaches every subscriber.
type Event struct {
	Type     string `json:"type"`
	Category string `json:"category,omitempty"`
	Data     any    `json:"data"`
}

// Kinds of city events.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// CityEvent is the payload of city.* events.
type CityEvent struct {
	Category string `json:"category"`
	ID       string `json:"id"`
	Slug     string `json:"slug"`
}

const (
	clientBuffer     = 64
	defaultHeartbeat = 15 * time.Second
)

type client struct {
	ch   chan []byte
	only map[string]bool // nil: all categories
}

func (c *client) wants(cat string) bool {
	return c.only == nil || cat == "" || c.only[cat]
}

// hub is the state owned by the broker loop.
type hub struct {
	clients    map[chan []byte]*client
	lastRoutes map[string]time.Time
	pending    map[string]bool // trailing routes.updated scheduled
	seq        uint64
}

// Broker fans events out to subscribed clients.
//
// The client set, sequence counter and routes.updated throttle live in a hub
// that only the loop goroutine touches; callers submit closures over ops.
type Broker struct {
	routesMin time.Duration
	heartbeat time.Duration

	ops     chan func(*hub)
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// Option tunes a Broker.
type Option func(*Broker)

// WithHeartbeat sets how often idle streams get a keep-alive comment.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.heartbeat = d
		}
	}
}

// NewBroker creates a broker that emits routes.updated for a category at
// most once per routesThrottle, plus one trailing emit for changes that
// landed inside the window.
func NewBroker(routesThrottle time.Duration, opts ...Option) *Broker {
	if routesThrottle <= 0 {
		routesThrottle = 2 * time.Second
	}
	b := &Broker{
		routesMin: routesThrottle,
		heartbeat: defaultHeartbeat,
		ops:       make(chan func(*hub), 256),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	h := &hub{
		clients:    make(map[chan []byte]*client),
		lastRoutes: make(map[string]time.Time),
		pending:    make(map[string]bool),
	}
	for {
		select {
		case <-b.stopCh:
			for ch := range h.clients {
				close(ch)
			}
			return
		case op := <-b.ops:
			op(h)
		}
	}
}

// do hands op to the loop. It reports false once the broker is stopped.
func (b *Broker) do(op func(*hub)) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.ops <- op:
		return true
	case <-b.stopped:
		return false
	}
}

func (h *hub) broadcast(ev Event) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	h.seq++
	frame := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", h.seq, ev.Type, payload))

	for _, c := range h.clients {
		if !c.wants(ev.Category) {
			continue
		}
		select {
		case c.ch <- frame:
		default:
			// Slow client; it misses this frame rather than stalling the loop.
		}
	}
}

// Close stops the loop and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. With no categories it receives every event;
// otherwise only events of the listed category keys plus uncategorized ones.
func (b *Broker) Subscribe(categories ...string) chan []byte {
	c := &client{ch: make(chan []byte, clientBuffer)}
	if len(categories) > 0 {
		c.only = make(map[string]bool, len(categories))
		for _, k := range categories {
			c.only[k] = true
		}
	}
	if !b.do(func(h *hub) { h.clients[c.ch] = c }) {
		close(c.ch)
	}
	return c.ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(h *hub) {
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !b.do(func(h *hub) { resp <- len(h.clients) }) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends ev to every interested client.
func (b *Broker) Publish(ev Event) {
	b.do(func(h *hub) { h.broadcast(ev) })
}

// PublishCityEvent publishes city.<kind> and routes.updated. routes.updated
// goes out at most once per throttle window per category: the first change
// emits immediately and later changes in the window collapse into one emit
// when the window closes. Unknown kinds are dropped.
func (b *Broker) PublishCityEvent(kind string, ev CityEvent) {
	switch kind {
	case KindCreated, KindUpdated, KindDeleted:
	default:
		return
	}
	now := time.Now()
	b.do(func(h *hub) {
		h.broadcast(Event{Type: "city." + kind, Category: ev.Category, Data: ev})

		since := now.Sub(h.lastRoutes[ev.Category])
		if since >= b.routesMin {
			h.lastRoutes[ev.Category] = now
			delete(h.pending, ev.Category)
			h.routesUpdated(ev.Category)
			return
		}
		if h.pending[ev.Category] {
			return
		}
		h.pending[ev.Category] = true
		time.AfterFunc(b.routesMin-since, func() { b.flushRoutes(ev.Category) })
	})
}

// flushRoutes emits the trailing routes.updated of cat.
func (b *Broker) flushRoutes(cat string) {
	b.do(func(h *hub) {
		if !h.pending[cat] {
			return
		}
		delete(h.pending, cat)
		h.lastRoutes[cat] = time.Now()
		h.routesUpdated(cat)
	})
}

func (h *hub) routesUpdated(cat string) {
	h.broadcast(Event{
		Type:     "routes.updated",
		Category: cat,
		Data:     map[string]string{"category": cat},
	})
}

// ServeHTTP is the SSE endpoint. ?category=taxi,bike narrows the stream;
// keys and collection names are both accepted.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var only []string
	if raw := r.URL.Query().Get("category"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			cat, err := category.Parse(strings.TrimSpace(part))
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			only = append(only, cat.Key)
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(only...)
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
