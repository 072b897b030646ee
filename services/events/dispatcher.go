package events

import (
	"context"
	"encoding/json"
	"log"

	"brawlhub/services/connections"

	"github.com/redis/go-redis/v9"
)

// Dispatcher drains the fanout bus for the lifetime of the process and
// forwards each envelope to the local connection registry. Envelopes whose
// target has no connection here are dropped silently; some other process owns
// that user's socket.
type Dispatcher struct {
	registry *connections.Registry
}

func NewDispatcher(registry *connections.Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Run subscribes to the bus and blocks until the context is canceled.
// Intended to run as one long-lived goroutine per process.
func (d *Dispatcher) Run(ctx context.Context, client *redis.Client) {
	pubsub := client.Subscribe(ctx, Channel)
	defer pubsub.Close()

	log.Printf("events: dispatcher subscribed to %q", Channel)
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			d.dispatch([]byte(msg.Payload))
		}
	}
}

func (d *Dispatcher) dispatch(payload []byte) {
	var envelope Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		log.Printf("events: discarding malformed envelope: %v", err)
		return
	}
	client, ok := d.registry.Get(envelope.Username)
	if !ok {
		return
	}
	data, err := json.Marshal(envelope.Data)
	if err != nil {
		log.Printf("events: error marshaling event for %s: %v", envelope.Username, err)
		return
	}
	client.Send(data)
}
