package broadcast

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/gommon/log"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

var ErrorClientClosed = errors.New("client closed")
var ErrorSlowClient = errors.New("client send buffer full")

// conn is the part of *websocket.Conn the writer needs.
type conn interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a websocket client connection. Frames are queued and
// written by a dedicated goroutine, so Send never waits on the peer.
type Client struct {
	id        string
	conn      conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	log       *log.Logger
}

// NewClient constructs a client wrapper and starts its writer. id is the
// connection identifier presence entries are tagged with.
func NewClient(id string, ws *websocket.Conn, logger *log.Logger) *Client {
	return newClient(id, ws, logger)
}

func newClient(id string, ws conn, logger *log.Logger) *Client {
	c := &Client{
		id:   id,
		conn: ws,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		log:  logger,
	}
	go c.writePump()
	return c
}

func (c *Client) ID() string {
	return c.id
}

// Send queues a message for the writer. A client whose queue is full is too
// slow to keep up and gets ErrorSlowClient.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrorClientClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return ErrorSlowClient
	}
}

func (c *Client) writePump() {
	defer c.Close()
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Warnf("websocket send to %s failed: %+v", c.id, err)
				return
			}
		}
	}
}

// Close stops the writer and terminates the connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
