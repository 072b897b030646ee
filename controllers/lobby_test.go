package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"brawlhub/middleware"
	"brawlhub/services/directory"
	"brawlhub/services/events"
	"brawlhub/services/lobby"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopBus struct{}

func (nopBus) Publish(ctx context.Context, username string, event events.Event) error {
	return nil
}

// asUser stands in for AuthRequired so handlers see an authenticated caller.
func asUser(username string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UsernameKey, username)
		c.Next()
	}
}

func newLobbyRouter(username string) (*gin.Engine, *lobby.Service, *directory.MemoryStore) {
	gin.SetMode(gin.TestMode)
	store := directory.NewMemoryStore()
	lobbies := lobby.NewService(store, nopBus{})

	router := gin.New()
	authed := router.Group("/", asUser(username))
	authed.POST("/lobby/create", CreateLobby(lobbies))
	authed.GET("/lobby/get", GetLobby(lobbies))
	authed.POST("/lobby/invite", InviteToLobby(lobbies))
	authed.POST("/lobby/accept", AcceptLobbyInvitation(lobbies))
	authed.POST("/lobby/leave", LeaveLobby(lobbies))
	authed.POST("/lobby/kick", KickMember(lobbies))
	authed.POST("/lobby/make_leader", MakeLeader(lobbies))
	return router, lobbies, store
}

func TestCreateLobbyEndpoint(t *testing.T) {
	router, _, _ := newLobbyRouter("alice")

	req, _ := http.NewRequest("POST", "/lobby/create", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var snap lobby.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "lobby_alice", snap.LobbyID)
	assert.Equal(t, "alice", snap.Leader)
	assert.Equal(t, []string{"alice"}, snap.Members)
}

func TestGetLobbyEndpointNotFound(t *testing.T) {
	router, _, _ := newLobbyRouter("alice")

	req, _ := http.NewRequest("GET", "/lobby/get", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInviteEndpointValidatesReceiver(t *testing.T) {
	router, lobbies, _ := newLobbyRouter("alice")
	_, err := lobbies.CreateSelfLobby(context.Background(), "alice")
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", "/lobby/invite", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req, _ = http.NewRequest("POST", "/lobby/invite?receiver=bad%20name", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req, _ = http.NewRequest("POST", "/lobby/invite?receiver=bob", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestAcceptEndpointJoinsSenderLobby(t *testing.T) {
	router, lobbies, _ := newLobbyRouter("bob")
	_, err := lobbies.CreateSelfLobby(context.Background(), "alice")
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", "/lobby/accept?sender=alice", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Sender string         `json:"sender"`
		Lobby  lobby.Snapshot `json:"lobby"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "alice", response.Sender)
	assert.Equal(t, "lobby_alice", response.Lobby.LobbyID)
	assert.Equal(t, []string{"alice", "bob"}, response.Lobby.Members)
}

func TestKickEndpointRequiresLeader(t *testing.T) {
	router, lobbies, _ := newLobbyRouter("bob")
	ctx := context.Background()
	_, err := lobbies.CreateSelfLobby(ctx, "alice")
	require.NoError(t, err)
	_, err = lobbies.CreateSelfLobby(ctx, "bob")
	require.NoError(t, err)
	_, err = lobbies.AcceptInvite(ctx, "bob", "alice")
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", "/lobby/kick?receiver=alice", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLeaveEndpointReturnsFreshLobby(t *testing.T) {
	router, lobbies, _ := newLobbyRouter("bob")
	ctx := context.Background()
	_, err := lobbies.CreateSelfLobby(ctx, "alice")
	require.NoError(t, err)
	_, err = lobbies.CreateSelfLobby(ctx, "bob")
	require.NoError(t, err)
	_, err = lobbies.AcceptInvite(ctx, "bob", "alice")
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", "/lobby/leave", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var snap lobby.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "lobby_bob", snap.LobbyID)
	assert.Equal(t, []string{"bob"}, snap.Members)
}

func TestMakeLeaderEndpointRejectsSelf(t *testing.T) {
	router, lobbies, _ := newLobbyRouter("alice")
	_, err := lobbies.CreateSelfLobby(context.Background(), "alice")
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", "/lobby/make_leader?receiver=alice", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
