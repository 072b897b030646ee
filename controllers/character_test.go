package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	redismodels "brawlhub/models/redis"
	"brawlhub/services/directory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCharacterRouter(username string) (*gin.Engine, *directory.MemoryStore) {
	gin.SetMode(gin.TestMode)
	store := directory.NewMemoryStore()

	router := gin.New()
	authed := router.Group("/", asUser(username))
	authed.GET("/in_game/character_stats/get", GetCharacterStats(store))
	authed.POST("/in_game/character_stats/save", SaveCharacterStats(store))
	authed.POST("/in_game/character_stats/remove", RemoveCharacterStats(store))
	return router, store
}

// putInMatch writes the minimum lobby state for a member of an In_Match lobby.
func putInMatch(t *testing.T, store *directory.MemoryStore, username string) {
	t.Helper()
	ctx := context.Background()
	id := directory.SelfLobbyID(username)
	require.NoError(t, store.Set(ctx, directory.UserLobbyKey(username), id))
	info := redismodels.NewLobbyInfo(username)
	info.Status = redismodels.LobbyStatusInMatch
	batch := directory.NewBatch().HashSet(directory.LobbyKey(id), info.HashFields())
	require.NoError(t, store.Apply(ctx, batch))
}

func TestSaveCharacterStatsRoundTrip(t *testing.T) {
	router, store := newCharacterRouter("alice")
	putInMatch(t, store, "alice")

	info := redismodels.CharacterInfo{
		MaxHP:             100,
		HP:                62.5,
		MaxStamina:        80,
		HealthPotionQuant: 2,
		State:             "poisoned",
	}
	body, _ := json.Marshal(info)

	req, _ := http.NewRequest("POST", "/in_game/character_stats/save", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	req, _ = http.NewRequest("GET", "/in_game/character_stats/get", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var got redismodels.CharacterInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, info, got)
}

func TestSaveCharacterStatsOutsideMatch(t *testing.T) {
	router, store := newCharacterRouter("alice")
	// Ready lobby: checkpoints are only writable mid-match.
	ctx := context.Background()
	id := directory.SelfLobbyID("alice")
	require.NoError(t, store.Set(ctx, directory.UserLobbyKey("alice"), id))
	batch := directory.NewBatch().HashSet(directory.LobbyKey(id), redismodels.NewLobbyInfo("alice").HashFields())
	require.NoError(t, store.Apply(ctx, batch))

	body, _ := json.Marshal(redismodels.CharacterInfo{MaxHP: 100, HP: 100})
	req, _ := http.NewRequest("POST", "/in_game/character_stats/save", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetCharacterStatsNotFound(t *testing.T) {
	router, _ := newCharacterRouter("alice")

	req, _ := http.NewRequest("GET", "/in_game/character_stats/get", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoveCharacterStats(t *testing.T) {
	router, store := newCharacterRouter("alice")
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, directory.CharacterInfoKey("alice"), `{"hp":10}`))

	req, _ := http.NewRequest("POST", "/in_game/character_stats/remove", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	_, err := store.Get(ctx, directory.CharacterInfoKey("alice"))
	assert.ErrorIs(t, err, directory.ErrNotFound)
}
