package connections

import (
	"log"
	"sync"
)

// sendBuffer is the outbound queue depth per connection. Delivery is
// at-most-once, so a full queue drops the event instead of blocking the
// sender.
const sendBuffer = 256

// Client is the registry's handle to one live connection: the username it
// serves and the outbound queue its writer loop drains.
type Client struct {
	Username string

	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(username string) *Client {
	return &Client{
		Username: username,
		out:      make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

// Send queues a message for the writer loop without ever blocking. It reports
// whether the message was accepted.
func (c *Client) Send(message []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- message:
		return true
	default:
		log.Printf("connections: outbound queue full for %s, dropping event", c.Username)
		return false
	}
}

// Outbound is the queue the connection's writer loop drains.
func (c *Client) Outbound() <-chan []byte {
	return c.out
}

// Done is closed when the client is shut down; the writer loop uses it to
// terminate.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close shuts the client down. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
