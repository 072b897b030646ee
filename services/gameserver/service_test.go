package gameserver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	redismodels "brawlhub/models/redis"
	"brawlhub/services/directory"
	"brawlhub/services/events"
	"brawlhub/services/lobby"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type busRecorder struct {
	envelopes []events.Envelope
}

func (b *busRecorder) Publish(ctx context.Context, username string, event events.Event) error {
	b.envelopes = append(b.envelopes, events.Envelope{Username: username, Data: event})
	return nil
}

// fakeProvisioner hands out a fixed port and records starts; Start fails while
// failStart is set.
type fakeProvisioner struct {
	port      int
	failStart bool
	started   []string
}

func (p *fakeProvisioner) ReservePort(ctx context.Context) (int, error) {
	return p.port, nil
}

func (p *fakeProvisioner) Address(port int) string {
	return fmt.Sprintf("127.0.0.1:%d", port)
}

func (p *fakeProvisioner) Start(ctx context.Context, lobbyID string, port int) error {
	if p.failStart {
		return errors.New("spawn failed")
	}
	p.started = append(p.started, lobbyID)
	return nil
}

func setupLobby(t *testing.T, store directory.Store, bus events.Publisher, members ...string) {
	t.Helper()
	lobbies := lobby.NewService(store, bus)
	ctx := context.Background()
	leader := members[0]
	_, err := lobbies.CreateSelfLobby(ctx, leader)
	require.NoError(t, err)
	for _, member := range members[1:] {
		_, err := lobbies.CreateSelfLobby(ctx, member)
		require.NoError(t, err)
		_, err = lobbies.AcceptInvite(ctx, member, leader)
		require.NoError(t, err)
	}
}

func TestCreateGameSession(t *testing.T) {
	store := directory.NewMemoryStore()
	bus := &busRecorder{}
	setupLobby(t, store, bus, "alice", "bob")
	bus.envelopes = nil

	// A stale checkpoint from an earlier match must be wiped on start.
	require.NoError(t, store.Set(context.Background(), directory.CharacterInfoKey("bob"), "{}"))

	provisioner := &fakeProvisioner{port: 7777}
	svc := NewService(store, bus, provisioner)

	server, err := svc.Create(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7777", server.Address)
	assert.Equal(t, "alice", server.Host)
	assert.Equal(t, []string{"lobby_alice"}, provisioner.started)

	status, err := store.HashGet(context.Background(), directory.LobbyKey("lobby_alice"), "status")
	require.NoError(t, err)
	assert.Equal(t, redismodels.LobbyStatusInMatch, status)
	_, err = store.Get(context.Background(), directory.GameServerKey("lobby_alice"))
	assert.NoError(t, err)
	_, err = store.Get(context.Background(), directory.CharacterInfoKey("bob"))
	assert.ErrorIs(t, err, directory.ErrNotFound)

	// Everyone but the caller hears about the new session.
	require.Len(t, bus.envelopes, 1)
	assert.Equal(t, "bob", bus.envelopes[0].Username)
	assert.Equal(t, events.ResourceGameServer, bus.envelopes[0].Data.Resource)
	assert.Equal(t, events.ActionCreate, bus.envelopes[0].Data.Action)
}

func TestCreateRequiresLeader(t *testing.T) {
	store := directory.NewMemoryStore()
	bus := &busRecorder{}
	setupLobby(t, store, bus, "alice", "bob")

	svc := NewService(store, bus, &fakeProvisioner{port: 7777})
	_, err := svc.Create(context.Background(), "bob")
	assert.ErrorIs(t, err, ErrNotLeader)
}

func TestCreateRequiresLobby(t *testing.T) {
	store := directory.NewMemoryStore()
	svc := NewService(store, &busRecorder{}, &fakeProvisioner{port: 7777})
	_, err := svc.Create(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNoLobby)
}

func TestCreateRejectsSecondSession(t *testing.T) {
	store := directory.NewMemoryStore()
	bus := &busRecorder{}
	setupLobby(t, store, bus, "alice")

	svc := NewService(store, bus, &fakeProvisioner{port: 7777})
	_, err := svc.Create(context.Background(), "alice")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrSessionExists)
}

// flakyStore fails the first SetMembers call after being armed, standing in
// for a directory hiccup mid-provisioning.
type flakyStore struct {
	*directory.MemoryStore
	failSetMembers bool
}

func (s *flakyStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	if s.failSetMembers {
		s.failSetMembers = false
		return nil, errors.New("connection reset")
	}
	return s.MemoryStore.SetMembers(ctx, key)
}

func TestCreateRollsBackOnDirectoryFailure(t *testing.T) {
	store := &flakyStore{MemoryStore: directory.NewMemoryStore()}
	bus := &busRecorder{}
	setupLobby(t, store, bus, "alice")

	svc := NewService(store, bus, &fakeProvisioner{port: 7777})
	store.failSetMembers = true
	_, err := svc.Create(context.Background(), "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionExists)

	// The reservation must not outlive the failed attempt: the lobby is still
	// Ready, so a lingering record would block every retry.
	_, err = store.Get(context.Background(), directory.GameServerKey("lobby_alice"))
	assert.ErrorIs(t, err, directory.ErrNotFound)
	status, err := store.HashGet(context.Background(), directory.LobbyKey("lobby_alice"), "status")
	require.NoError(t, err)
	assert.Equal(t, redismodels.LobbyStatusReady, status)

	_, err = svc.Create(context.Background(), "alice")
	assert.NoError(t, err)
}

func TestCreateRollsBackOnStartFailure(t *testing.T) {
	store := directory.NewMemoryStore()
	bus := &busRecorder{}
	setupLobby(t, store, bus, "alice")

	provisioner := &fakeProvisioner{port: 7777, failStart: true}
	svc := NewService(store, bus, provisioner)
	_, err := svc.Create(context.Background(), "alice")
	require.Error(t, err)

	// The reservation is released so a later attempt is not locked out.
	_, err = store.Get(context.Background(), directory.GameServerKey("lobby_alice"))
	assert.ErrorIs(t, err, directory.ErrNotFound)

	provisioner.failStart = false
	_, err = svc.Create(context.Background(), "alice")
	assert.NoError(t, err)
}

func TestDropResetsLobby(t *testing.T) {
	store := directory.NewMemoryStore()
	bus := &busRecorder{}
	setupLobby(t, store, bus, "alice", "bob")

	svc := NewService(store, bus, &fakeProvisioner{port: 7777})
	_, err := svc.Create(context.Background(), "alice")
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), directory.CharacterInfoKey("alice"), "{}"))

	require.NoError(t, svc.Drop(context.Background(), "lobby_alice"))

	status, err := store.HashGet(context.Background(), directory.LobbyKey("lobby_alice"), "status")
	require.NoError(t, err)
	assert.Equal(t, redismodels.LobbyStatusReady, status)
	_, err = store.Get(context.Background(), directory.GameServerKey("lobby_alice"))
	assert.ErrorIs(t, err, directory.ErrNotFound)
	_, err = store.Get(context.Background(), directory.CharacterInfoKey("alice"))
	assert.ErrorIs(t, err, directory.ErrNotFound)
}

func TestDropWithoutSession(t *testing.T) {
	store := directory.NewMemoryStore()
	svc := NewService(store, &busRecorder{}, &fakeProvisioner{port: 7777})
	err := svc.Drop(context.Background(), "lobby_alice")
	assert.ErrorIs(t, err, ErrNoLobby)
}
