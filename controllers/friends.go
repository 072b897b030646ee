package controllers

import (
	"errors"
	"log"
	"net/http"

	"brawlhub/middleware"
	models "brawlhub/models/postgres"
	"brawlhub/services/events"
	"brawlhub/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func publishFriendEvent(c *gin.Context, bus events.Publisher, username string, event events.Event) {
	if err := bus.Publish(c.Request.Context(), username, event); err != nil {
		log.Printf("controllers: error publishing %s/%s to %s: %v",
			event.Resource, event.Action, username, err)
	}
}

// @Summary Lists the caller's friends
// @Tags friends
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Success 200 {array} string
// @Router /friendlist/get [get]
// @Security ApiKeyAuth
func GetFriendList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString(middleware.UsernameKey)

		var friendships []models.Friendship
		if err := db.Where("username1 = ? OR username2 = ?", username, username).
			Find(&friendships).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error finishing the request, please try again"})
			return
		}

		friends := make([]string, 0, len(friendships))
		for _, f := range friendships {
			if f.Username1 == username {
				friends = append(friends, f.Username2)
			} else {
				friends = append(friends, f.Username1)
			}
		}
		c.JSON(http.StatusOK, friends)
	}
}

// @Summary Lists pending friend requests addressed to the caller
// @Tags friends
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Success 200 {array} postgres.FriendshipRequest
// @Router /friend_request/get [get]
// @Security ApiKeyAuth
func GetFriendRequests(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString(middleware.UsernameKey)

		var requests []models.FriendshipRequest
		if err := db.Where("receiver = ?", username).Find(&requests).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error finishing the request, please try again"})
			return
		}
		c.JSON(http.StatusOK, requests)
	}
}

// @Summary Sends a friend request
// @Tags friends
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param receiver query string true "Username to befriend"
// @Success 201 {object} object{message=string}
// @Failure 409 {object} object{error=string}
// @Router /friend_request/send [post]
// @Security ApiKeyAuth
func SendFriendRequest(db *gorm.DB, bus events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		sender := c.GetString(middleware.UsernameKey)
		receiver, ok := receiverParam(c)
		if !ok {
			return
		}
		if receiver == sender {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot befriend yourself"})
			return
		}

		var existing models.FriendshipRequest
		err := db.Where("sender = ? AND receiver = ?", sender, receiver).First(&existing).Error
		if err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Request has already been sent"})
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error finishing the request, please try again"})
			return
		}

		request := models.FriendshipRequest{Sender: sender, Receiver: receiver}
		if err := db.Create(&request).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error finishing the request, please try again"})
			return
		}

		publishFriendEvent(c, bus, receiver, events.Event{
			Resource: events.ResourceFriendRequest,
			Action:   events.ActionReceive,
			Payload:  gin.H{"sender": sender, "receiver": receiver},
		})
		c.JSON(http.StatusCreated, gin.H{"message": "Request sent successfully"})
	}
}

// @Summary Accepts a friend request
// @Tags friends
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param sender query string true "Request sender's username"
// @Success 201 {object} object{message=string}
// @Failure 404 {object} object{error=string}
// @Router /friend_request/accept [post]
// @Security ApiKeyAuth
func AcceptFriendRequest(db *gorm.DB, bus events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		receiver := c.GetString(middleware.UsernameKey)
		sender := c.Query("sender")
		if sender == "" || !utils.ValidUsername(sender) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sender username format"})
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			result := tx.Where("sender = ? AND receiver = ?", sender, receiver).
				Delete(&models.FriendshipRequest{})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			return tx.Create(&models.Friendship{Username1: sender, Username2: receiver}).Error
		})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error finishing the request, please try again"})
			return
		}

		publishFriendEvent(c, bus, sender, events.Event{
			Resource: events.ResourceFriendRequest,
			Action:   events.ActionAccept,
			Payload:  gin.H{"sender": sender, "receiver": receiver},
		})
		c.JSON(http.StatusCreated, gin.H{"message": "Friend request accepted"})
	}
}

// @Summary Declines a friend request
// @Tags friends
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param sender query string true "Request sender's username"
// @Success 201 {object} object{message=string}
// @Router /friend_request/decline [post]
// @Security ApiKeyAuth
func DeclineFriendRequest(db *gorm.DB, bus events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		receiver := c.GetString(middleware.UsernameKey)
		sender := c.Query("sender")
		if sender == "" || !utils.ValidUsername(sender) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sender username format"})
			return
		}

		result := db.Where("sender = ? AND receiver = ?", sender, receiver).
			Delete(&models.FriendshipRequest{})
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error finishing the request, please try again"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
			return
		}

		publishFriendEvent(c, bus, sender, events.Event{
			Resource: events.ResourceFriendRequest,
			Action:   events.ActionDecline,
			Payload:  gin.H{"sender": sender, "receiver": receiver},
		})
		c.JSON(http.StatusCreated, gin.H{"message": "Friend request declined"})
	}
}

// @Summary Removes a friend
// @Tags friends
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param receiver query string true "Friend's username"
// @Success 201 {object} object{message=string}
// @Failure 404 {object} object{error=string}
// @Router /friend/remove [post]
// @Security ApiKeyAuth
func RemoveFriend(db *gorm.DB, bus events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString(middleware.UsernameKey)
		receiver, ok := receiverParam(c)
		if !ok {
			return
		}

		// Pairs are stored in sorted order; match both orientations anyway.
		result := db.Where(
			"(username1 = ? AND username2 = ?) OR (username1 = ? AND username2 = ?)",
			username, receiver, receiver, username).
			Delete(&models.Friendship{})
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error finishing the request, please try again"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Friendship not found"})
			return
		}

		publishFriendEvent(c, bus, receiver, events.Event{
			Resource: events.ResourceFriend,
			Action:   events.ActionRemoved,
			Payload:  gin.H{"username": username},
		})
		c.JSON(http.StatusCreated, gin.H{"message": "Friend removed"})
	}
}
