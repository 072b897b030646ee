package connections

import (
	"log"
	"sync"
)

// Registry maps usernames to their live connection within this process.
// Dispatch lookups vastly outnumber connect/disconnect churn, hence the
// read/write lock.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Register installs the client as the delivery target for its username. A
// reconnect supersedes the previous entry; the stale connection is closed so
// it cannot linger as a dangling socket. The superseded client, if any, is
// returned.
func (r *Registry) Register(c *Client) *Client {
	r.mu.Lock()
	prev := r.clients[c.Username]
	r.clients[c.Username] = c
	r.mu.Unlock()

	if prev != nil {
		log.Printf("connections: superseding existing connection for %s", c.Username)
		prev.Close()
	}
	return prev
}

// Remove drops the client's entry, but only if it is still the current one;
// a connection superseded by a reconnect must not evict its replacement.
// It reports whether an entry was removed.
func (r *Registry) Remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.clients[c.Username]
	if !ok || current != c {
		return false
	}
	delete(r.clients, c.Username)
	return true
}

// Get returns the live connection for a username, if any.
func (r *Registry) Get(username string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[username]
	return c, ok
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
