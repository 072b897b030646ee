package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	redismodels "brawlhub/models/redis"
	"brawlhub/services/directory"
	"brawlhub/services/events"
)

// Sentinel errors surfaced by session provisioning.
var (
	ErrNoLobby       = errors.New("gameserver: user has no current lobby")
	ErrNotLeader     = errors.New("gameserver: caller is not the lobby leader")
	ErrSessionExists = errors.New("gameserver: lobby already has a game session")
	ErrNoPort        = errors.New("gameserver: no port available")
)

// Service provisions and tears down one authoritative game session per lobby.
// A session record exists exactly while the lobby status is In_Match.
type Service struct {
	store       directory.Store
	bus         events.Publisher
	provisioner Provisioner
}

func NewService(store directory.Store, bus events.Publisher, provisioner Provisioner) *Service {
	return &Service{store: store, bus: bus, provisioner: provisioner}
}

// Create provisions a game session for the caller's lobby. The caller must
// be the leader and the lobby must not already have a session; the existence
// check and the record write are one compare-and-swap, so two racing calls
// resolve to exactly one session.
func (s *Service) Create(ctx context.Context, username string) (redismodels.GameServer, error) {
	lobbyID, err := s.store.Get(ctx, directory.UserLobbyKey(username))
	if errors.Is(err, directory.ErrNotFound) {
		return redismodels.GameServer{}, ErrNoLobby
	}
	if err != nil {
		return redismodels.GameServer{}, err
	}
	leader, err := s.store.HashGet(ctx, directory.LobbyKey(lobbyID), "leader")
	if errors.Is(err, directory.ErrNotFound) {
		return redismodels.GameServer{}, ErrNoLobby
	}
	if err != nil {
		return redismodels.GameServer{}, err
	}
	if leader != username {
		return redismodels.GameServer{}, ErrNotLeader
	}

	port, err := s.provisioner.ReservePort(ctx)
	if err != nil {
		return redismodels.GameServer{}, err
	}
	server := redismodels.GameServer{
		Address: s.provisioner.Address(port),
		Host:    username,
	}
	record, err := json.Marshal(server)
	if err != nil {
		return redismodels.GameServer{}, err
	}

	created, err := s.store.SetNX(ctx, directory.GameServerKey(lobbyID), string(record))
	if err != nil {
		return redismodels.GameServer{}, err
	}
	if !created {
		return redismodels.GameServer{}, ErrSessionExists
	}

	// Any failure past the reservation must release it, otherwise the lobby
	// stays Ready while the record blocks every retry with ErrSessionExists.
	rollback := func(err error) (redismodels.GameServer, error) {
		if delErr := s.store.Delete(ctx, directory.GameServerKey(lobbyID)); delErr != nil {
			log.Printf("gameserver: error rolling back session record for %s: %v", lobbyID, delErr)
		}
		return redismodels.GameServer{}, err
	}

	if err := s.provisioner.Start(ctx, lobbyID, port); err != nil {
		return rollback(err)
	}

	members, err := s.store.SetMembers(ctx, directory.LobbyMembersKey(lobbyID))
	if err != nil {
		return rollback(err)
	}
	batch := directory.NewBatch().HashSet(directory.LobbyKey(lobbyID), map[string]string{
		"status": redismodels.LobbyStatusInMatch,
	})
	for _, member := range members {
		// Wipe stale checkpoints from a previous match.
		batch.Delete(directory.CharacterInfoKey(member))
	}
	if err := s.store.Apply(ctx, batch); err != nil {
		return rollback(err)
	}

	for _, member := range members {
		if member == username {
			continue
		}
		s.publish(ctx, member, events.Event{
			Resource: events.ResourceGameServer,
			Action:   events.ActionCreate,
			Payload:  map[string]interface{}{"game_server": server},
		})
	}
	return server, nil
}

// Drop tears the session down: the record is removed, the lobby returns to
// Ready and every member's transient in-match state is cleared, all in one
// atomic batch.
func (s *Service) Drop(ctx context.Context, lobbyID string) error {
	if _, err := s.store.Get(ctx, directory.GameServerKey(lobbyID)); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return ErrNoLobby
		}
		return err
	}
	members, err := s.store.SetMembers(ctx, directory.LobbyMembersKey(lobbyID))
	if err != nil {
		return err
	}
	batch := directory.NewBatch().
		Delete(directory.GameServerKey(lobbyID)).
		HashSet(directory.LobbyKey(lobbyID), map[string]string{
			"status": redismodels.LobbyStatusReady,
		})
	for _, member := range members {
		batch.Delete(directory.CharacterInfoKey(member))
	}
	return s.store.Apply(ctx, batch)
}

func (s *Service) publish(ctx context.Context, username string, event events.Event) {
	if err := s.bus.Publish(ctx, username, event); err != nil {
		log.Printf("gameserver: error publishing %s/%s to %s: %v",
			event.Resource, event.Action, username, err)
	}
}
