package events

import (
	"encoding/json"
	"testing"

	"brawlhub/services/connections"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchForwardsToLocalClient(t *testing.T) {
	registry := connections.NewRegistry()
	client := connections.NewClient("alice")
	registry.Register(client)
	dispatcher := NewDispatcher(registry)

	payload, err := json.Marshal(Envelope{
		Username: "alice",
		Data: Event{
			Resource: ResourceLobbyInvitation,
			Action:   ActionReceive,
			Payload:  map[string]string{"sender": "bob", "receiver": "alice"},
		},
	})
	require.NoError(t, err)

	dispatcher.dispatch(payload)

	select {
	case message := <-client.Outbound():
		// Clients receive the bare event; the addressing envelope is stripped.
		var got Event
		require.NoError(t, json.Unmarshal(message, &got))
		assert.Equal(t, ResourceLobbyInvitation, got.Resource)
		assert.Equal(t, ActionReceive, got.Action)
	default:
		t.Fatal("no message delivered")
	}
}

func TestDispatchDropsUnknownTarget(t *testing.T) {
	registry := connections.NewRegistry()
	client := connections.NewClient("alice")
	registry.Register(client)
	dispatcher := NewDispatcher(registry)

	payload, err := json.Marshal(Envelope{Username: "bob", Data: Event{Resource: ResourceLobby}})
	require.NoError(t, err)
	dispatcher.dispatch(payload)

	select {
	case <-client.Outbound():
		t.Fatal("event for bob delivered to alice")
	default:
	}
}

func TestDispatchIgnoresMalformedPayload(t *testing.T) {
	registry := connections.NewRegistry()
	dispatcher := NewDispatcher(registry)
	dispatcher.dispatch([]byte("not json"))
}
