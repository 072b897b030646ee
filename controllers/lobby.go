package controllers

import (
	"errors"
	"net/http"

	"brawlhub/middleware"
	"brawlhub/services/lobby"
	"brawlhub/utils"

	"github.com/gin-gonic/gin"
)

func lobbyErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lobby.ErrNoLobby):
		c.JSON(http.StatusNotFound, gin.H{"error": "Lobby not found"})
	case errors.Is(err, lobby.ErrAlreadyMember):
		c.JSON(http.StatusConflict, gin.H{"error": "Already in lobby"})
	case errors.Is(err, lobby.ErrLobbyBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "Lobby busy"})
	case errors.Is(err, lobby.ErrLobbyFull):
		c.JSON(http.StatusConflict, gin.H{"error": "Lobby full"})
	case errors.Is(err, lobby.ErrNotLeader):
		c.JSON(http.StatusForbidden, gin.H{"error": "No permission to perform the request"})
	case errors.Is(err, lobby.ErrNotMember):
		c.JSON(http.StatusNotFound, gin.H{"error": "Target doesn't exist in lobby"})
	case errors.Is(err, lobby.ErrSelfTarget):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot target yourself"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error finishing the request, please try again"})
	}
}

// receiverParam validates the ?receiver= query parameter shared by several
// lobby operations.
func receiverParam(c *gin.Context) (string, bool) {
	receiver := c.Query("receiver")
	if receiver == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing receiver"})
		return "", false
	}
	if !utils.ValidUsername(receiver) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid receiver username format"})
		return "", false
	}
	return receiver, true
}

// @Summary Ensures the caller has a lobby
// @Description Idempotent bootstrap of the caller's own singleton lobby
// @Tags lobby
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Success 201 {object} lobby.Snapshot
// @Failure 500 {object} object{error=string}
// @Router /lobby/create [post]
// @Security ApiKeyAuth
func CreateLobby(lobbies *lobby.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString(middleware.UsernameKey)
		snap, err := lobbies.CreateSelfLobby(c.Request.Context(), username)
		if err != nil {
			lobbyErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusCreated, snap)
	}
}

// @Summary Returns the caller's current lobby
// @Tags lobby
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Success 200 {object} lobby.Snapshot
// @Failure 404 {object} object{error=string}
// @Router /lobby/get [get]
// @Security ApiKeyAuth
func GetLobby(lobbies *lobby.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString(middleware.UsernameKey)
		snap, err := lobbies.Current(c.Request.Context(), username)
		if err != nil {
			lobbyErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

// @Summary Invites a user to the caller's lobby
// @Tags lobby
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param receiver query string true "Username to invite"
// @Success 201 {object} object{message=string}
// @Failure 409 {object} object{error=string}
// @Router /lobby/invite [post]
// @Security ApiKeyAuth
func InviteToLobby(lobbies *lobby.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		sender := c.GetString(middleware.UsernameKey)
		receiver, ok := receiverParam(c)
		if !ok {
			return
		}
		if err := lobbies.Invite(c.Request.Context(), sender, receiver); err != nil {
			lobbyErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Invitation sent successfully"})
	}
}

// @Summary Accepts a lobby invitation
// @Description Joins the sender's lobby, auto-leaving any previous one
// @Tags lobby
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param sender query string true "Inviter's username"
// @Success 201 {object} object{sender=string,lobby=lobby.Snapshot}
// @Failure 409 {object} object{error=string}
// @Router /lobby/accept [post]
// @Security ApiKeyAuth
func AcceptLobbyInvitation(lobbies *lobby.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		receiver := c.GetString(middleware.UsernameKey)
		sender := c.Query("sender")
		if sender == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing sender"})
			return
		}
		if !utils.ValidUsername(sender) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sender username format"})
			return
		}
		snap, err := lobbies.AcceptInvite(c.Request.Context(), receiver, sender)
		if err != nil {
			lobbyErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"sender": sender, "lobby": snap})
	}
}

// @Summary Declines a lobby invitation
// @Tags lobby
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param sender query string true "Inviter's username"
// @Success 201 {object} object{sender=string}
// @Router /lobby/decline [post]
// @Security ApiKeyAuth
func DeclineLobbyInvitation(lobbies *lobby.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		receiver := c.GetString(middleware.UsernameKey)
		sender := c.Query("sender")
		if sender == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing sender"})
			return
		}
		if !utils.ValidUsername(sender) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sender username format"})
			return
		}
		if err := lobbies.DeclineInvite(c.Request.Context(), receiver, sender); err != nil {
			lobbyErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"sender": sender})
	}
}

// @Summary Leaves the current lobby
// @Description Leaves and re-bootstraps the caller's own singleton lobby
// @Tags lobby
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Success 201 {object} lobby.Snapshot
// @Router /lobby/leave [post]
// @Security ApiKeyAuth
func LeaveLobby(lobbies *lobby.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString(middleware.UsernameKey)
		snap, err := lobbies.Leave(c.Request.Context(), username)
		if err != nil {
			lobbyErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusCreated, snap)
	}
}

// @Summary Kicks a member out of the lobby
// @Description Leader only; the target is relocated into a fresh lobby of their own
// @Tags lobby
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param receiver query string true "Username to kick"
// @Success 201 {object} object{kicked=string}
// @Failure 403 {object} object{error=string}
// @Router /lobby/kick [post]
// @Security ApiKeyAuth
func KickMember(lobbies *lobby.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		leader := c.GetString(middleware.UsernameKey)
		receiver, ok := receiverParam(c)
		if !ok {
			return
		}
		if err := lobbies.Kick(c.Request.Context(), leader, receiver); err != nil {
			lobbyErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"kicked": receiver})
	}
}

// @Summary Promotes a member to lobby leader
// @Description Leader only; the lobby id stays stable across the transfer
// @Tags lobby
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param receiver query string true "Username to promote"
// @Success 201 {object} lobby.Snapshot
// @Failure 403 {object} object{error=string}
// @Router /lobby/make_leader [post]
// @Security ApiKeyAuth
func MakeLeader(lobbies *lobby.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		leader := c.GetString(middleware.UsernameKey)
		receiver, ok := receiverParam(c)
		if !ok {
			return
		}
		snap, err := lobbies.MakeLeader(c.Request.Context(), leader, receiver)
		if err != nil {
			lobbyErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusCreated, snap)
	}
}
