package controllers

import (
	"errors"
	"net/http"

	"brawlhub/middleware"
	"brawlhub/services/gameserver"

	"github.com/gin-gonic/gin"
)

func gameServerErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gameserver.ErrNoLobby):
		c.JSON(http.StatusNotFound, gin.H{"error": "Lobby not found"})
	case errors.Is(err, gameserver.ErrNotLeader):
		c.JSON(http.StatusForbidden, gin.H{"error": "Non lobby leader can't start the request"})
	case errors.Is(err, gameserver.ErrSessionExists):
		c.JSON(http.StatusConflict, gin.H{"error": "The lobby already has a running game server"})
	case errors.Is(err, gameserver.ErrNoPort):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No port available"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error processing the request"})
	}
}

// @Summary Provisions a game server for the caller's lobby
// @Description Leader only; spawns the authoritative simulation process and flips the lobby to In_Match
// @Tags game_server
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Success 201 {object} redis.GameServer
// @Failure 409 {object} object{error=string}
// @Failure 503 {object} object{error=string}
// @Router /game_server/create [post]
// @Security ApiKeyAuth
func CreateGameServer(sessions *gameserver.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString(middleware.UsernameKey)
		server, err := sessions.Create(c.Request.Context(), username)
		if err != nil {
			gameServerErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusCreated, server)
	}
}

// @Summary Drops a lobby's game server
// @Description Removes the session record and returns the lobby to Ready
// @Tags game_server
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param server_id query string true "Lobby id the session is bound to"
// @Success 201 {object} object{message=string}
// @Router /game_server/drop [post]
// @Security ApiKeyAuth
func DropGameServer(sessions *gameserver.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		lobbyID := c.Query("server_id")
		if lobbyID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing server_id"})
			return
		}
		if err := sessions.Drop(c.Request.Context(), lobbyID); err != nil {
			gameServerErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Dropped server"})
	}
}
