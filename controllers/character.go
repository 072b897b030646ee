package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"brawlhub/middleware"
	redismodels "brawlhub/models/redis"
	"brawlhub/services/directory"

	"github.com/gin-gonic/gin"
)

// @Summary Saves the caller's in-match character state
// @Description Only writable while the caller's lobby is In_Match
// @Tags in_game
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Success 201 {object} redis.CharacterInfo
// @Failure 409 {object} object{error=string}
// @Router /in_game/character_stats/save [post]
// @Security ApiKeyAuth
func SaveCharacterStats(store directory.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString(middleware.UsernameKey)

		var info redismodels.CharacterInfo
		if err := c.ShouldBindJSON(&info); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Character info empty"})
			return
		}

		ctx := c.Request.Context()
		lobbyID, err := store.Get(ctx, directory.UserLobbyKey(username))
		if errors.Is(err, directory.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Lobby not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error finishing the request, please try again"})
			return
		}
		status, err := store.HashGet(ctx, directory.LobbyKey(lobbyID), "status")
		if err != nil || status != redismodels.LobbyStatusInMatch {
			c.JSON(http.StatusConflict, gin.H{"error": "Lobby is not in a match"})
			return
		}

		payload, err := json.Marshal(info)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error finishing the request, please try again"})
			return
		}
		if err := store.Set(ctx, directory.CharacterInfoKey(username), string(payload)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error finishing the request, please try again"})
			return
		}
		c.JSON(http.StatusCreated, info)
	}
}

// @Summary Returns the caller's in-match character state
// @Tags in_game
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Success 200 {object} redis.CharacterInfo
// @Failure 404 {object} object{error=string}
// @Router /in_game/character_stats/get [get]
// @Security ApiKeyAuth
func GetCharacterStats(store directory.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString(middleware.UsernameKey)

		raw, err := store.Get(c.Request.Context(), directory.CharacterInfoKey(username))
		if errors.Is(err, directory.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Character info not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error finishing the request, please try again"})
			return
		}

		var info redismodels.CharacterInfo
		if err := json.Unmarshal([]byte(raw), &info); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error finishing the request, please try again"})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

// @Summary Removes the caller's in-match character state
// @Tags in_game
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Success 201 {object} object{message=string}
// @Router /in_game/character_stats/remove [post]
// @Security ApiKeyAuth
func RemoveCharacterStats(store directory.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString(middleware.UsernameKey)
		if err := store.Delete(c.Request.Context(), directory.CharacterInfoKey(username)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error finishing the request, please try again"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Character info removed"})
	}
}
