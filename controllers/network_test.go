package controllers

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"brawlhub/middleware"
	"brawlhub/services/connections"
	"brawlhub/services/directory"
	"brawlhub/services/lobby"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// pointerCountingStore counts reads of one key so the test can observe how
// many times the departure subroutine actually ran.
type pointerCountingStore struct {
	directory.Store
	mu   sync.Mutex
	key  string
	gets int
}

func (s *pointerCountingStore) Get(ctx context.Context, key string) (string, error) {
	if key == s.key {
		s.mu.Lock()
		s.gets++
		s.mu.Unlock()
	}
	return s.Store.Get(ctx, key)
}

func (s *pointerCountingStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets = 0
}

func (s *pointerCountingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

func TestWebSocketDisconnectCleanup(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	mock.ExpectExec(`UPDATE "users" SET "online"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	gormDB, err := gorm.Open(pgdriver.New(pgdriver.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	store := &pointerCountingStore{
		Store: directory.NewMemoryStore(),
		key:   directory.UserLobbyKey("bob"),
	}
	lobbies := lobby.NewService(store, nopBus{})
	_, err = lobbies.CreateSelfLobby(context.Background(), "bob")
	require.NoError(t, err)

	registry := connections.NewRegistry()
	router := gin.New()
	router.GET("/ws", HandleWebSocket(gormDB, lobbies, registry))
	server := httptest.NewServer(router)
	defer server.Close()

	token, err := middleware.GenerateToken("bob")
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}

	require.Eventually(t, func() bool { return registry.Count() == 1 },
		time.Second, 10*time.Millisecond)
	store.reset()

	// Drop the socket without a logout; the server side must clean up as if
	// one had happened.
	conn.Close()

	require.Eventually(t, func() bool { return registry.Count() == 0 },
		2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, err := store.HashGetAll(context.Background(), directory.LobbyKey("lobby_bob"))
		return errors.Is(err, directory.ErrNotFound)
	}, 2*time.Second, 10*time.Millisecond)

	// Reader and writer loops both exit through the shared hook; give the
	// second one time to fire, then verify the departure ran exactly once.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, store.count())
	assert.NoError(t, mock.ExpectationsWereMet())
}
