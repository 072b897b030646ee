package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Channel is the pub/sub channel every process publishes state-change events
// to and every dispatcher subscribes to.
const Channel = "web_socket_events"

// Event resources and actions observed on the wire.
const (
	ResourceLobbyInvitation = "lobby_invitation"
	ResourceLobby           = "lobby"
	ResourceGameServer      = "game_server"
	ResourceFriendRequest   = "friend_request"
	ResourceFriend          = "friend"

	ActionReceive    = "receive"
	ActionAccept     = "accept"
	ActionDecline    = "decline"
	ActionLeave      = "leave"
	ActionMakeLeader = "make_leader"
	ActionKickMember = "kick_member"
	ActionIsKick     = "is_kick"
	ActionCreate     = "create"
	ActionRemoved    = "removed"
)

// Event is the resource/action/payload triple delivered to clients. The same
// shape is used for inbound client commands.
type Event struct {
	Resource string      `json:"resource"`
	Action   string      `json:"action"`
	Payload  interface{} `json:"payload"`
}

// Envelope wraps an event with the username it is addressed to. Dispatchers
// on every process see every envelope and forward only those whose target is
// locally connected.
type Envelope struct {
	Username string `json:"username"`
	Data     Event  `json:"data"`
}

// Publisher pushes per-user events onto the fanout bus. Publishing is
// fire-and-forget and at-most-once: no durability, no retry.
type Publisher interface {
	Publish(ctx context.Context, username string, event Event) error
}

// RedisBus is the Redis pub/sub implementation of the fanout bus.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, username string, event Event) error {
	payload, err := json.Marshal(Envelope{Username: username, Data: event})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, Channel, payload).Err()
}
