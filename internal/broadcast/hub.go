package broadcast

import (
	"sync"

	"github.com/labstack/gommon/log"
)

// Subscriber abstracts a connected client. Send must not wait on the peer.
type Subscriber interface {
	ID() string
	Send([]byte) error
	Close()
}

// Hub fans every broadcast out to all registered subscribers. A single
// goroutine owns the subscriber set, so broadcasts leave in the order they
// were submitted.
type Hub struct {
	clients   map[string]Subscriber
	register  chan Subscriber
	unreg     chan Subscriber
	broadcast chan []byte
	count     chan chan int
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	log       *log.Logger
}

// NewHub creates an initialised Hub and starts its loop.
func NewHub(logger *log.Logger) *Hub {
	h := &Hub{
		clients:   make(map[string]Subscriber),
		register:  make(chan Subscriber),
		unreg:     make(chan Subscriber),
		broadcast: make(chan []byte),
		count:     make(chan chan int),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		log:       logger,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.stopped)
	for {
		select {
		case <-h.done:
			for id, c := range h.clients {
				c.Close()
				delete(h.clients, id)
			}
			return
		case c := <-h.register:
			h.clients[c.ID()] = c
		case c := <-h.unreg:
			delete(h.clients, c.ID())
		case reply := <-h.count:
			reply <- len(h.clients)
		case payload := <-h.broadcast:
			for id, c := range h.clients {
				if err := c.Send(payload); err != nil {
					h.log.Warnf("dropping subscriber %s: %+v", id, err)
					c.Close()
					delete(h.clients, id)
				}
			}
		}
	}
}

// Register adds a subscriber.
func (h *Hub) Register(c Subscriber) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a subscriber.
func (h *Hub) Unregister(c Subscriber) {
	select {
	case h.unreg <- c:
	case <-h.done:
	}
}

// Broadcast sends payload to every subscriber.
func (h *Hub) Broadcast(payload []byte) {
	select {
	case h.broadcast <- payload:
	case <-h.done:
	}
}

// Publish encodes an event and broadcasts it.
func (h *Hub) Publish(event string, data interface{}) {
	payload, err := Encode(event, data)
	if err != nil {
		h.log.Errorf("publish: %+v", err)
		return
	}
	h.Broadcast(payload)
}

// Emit encodes an event and sends it to a single subscriber only.
func (h *Hub) Emit(c Subscriber, event string, data interface{}) error {
	payload, err := Encode(event, data)
	if err != nil {
		return err
	}
	return c.Send(payload)
}

// Count reports the number of registered subscribers.
func (h *Hub) Count() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Close disconnects every subscriber and waits for the loop to stop.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
	<-h.stopped
}
