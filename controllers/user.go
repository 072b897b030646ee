package controllers

import (
	"log"
	"net/http"

	"brawlhub/middleware"
	models "brawlhub/models/postgres"
	"brawlhub/services/connections"
	"brawlhub/services/lobby"
	"brawlhub/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// @Summary Creates a new account
// @Description Registers a username/password pair
// @Tags user
// @Accept json
// @Produce json
// @Success 201 {object} object{message=string}
// @Failure 400 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Router /user/create [post]
func SignUp(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload credentials
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if !utils.ValidUsername(payload.Username) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username format"})
			return
		}
		if !utils.ValidPassword(payload.Password) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid password format"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating user"})
			return
		}
		user := models.User{Username: payload.Username, PasswordHash: string(hash)}
		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "User has been created successfully"})
	}
}

// @Summary Logs a user in
// @Description Verifies credentials, flips the online flag and returns a bearer token
// @Tags user
// @Accept json
// @Produce json
// @Success 200 {object} object{token=string,username=string,status=bool}
// @Failure 401 {object} object{error=string}
// @Router /user/login [post]
func Login(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload credentials
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if !utils.ValidUsername(payload.Username) || !utils.ValidPassword(payload.Password) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials format"})
			return
		}

		var user models.User
		if err := db.Where("username = ?", payload.Username).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong password"})
			return
		}
		if user.Online {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User has already logged in on another device"})
			return
		}
		if err := db.Model(&user).Update("online", true).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error logging in"})
			return
		}

		token, err := middleware.GenerateToken(user.Username)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to issue token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"token":    token,
			"username": user.Username,
			"status":   true,
		})
	}
}

// @Summary Logs a user out
// @Description Clears the online flag, closes the live connection and leaves the current lobby
// @Tags user
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Success 200 {object} object{message=string}
// @Failure 401 {object} object{error=string}
// @Router /user/logout [post]
// @Security ApiKeyAuth
func Logout(db *gorm.DB, lobbies *lobby.Service, registry *connections.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString(middleware.UsernameKey)

		if err := db.Model(&models.User{}).Where("username = ?", username).
			Update("online", false).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error logging out"})
			return
		}

		if client, ok := registry.Get(username); ok {
			registry.Remove(client)
			client.Close()
		}
		if err := lobbies.LeaveProcess(c.Request.Context(), username); err != nil {
			log.Printf("controllers: error leaving lobby on logout for %s: %v", username, err)
		}

		c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
	}
}
