package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary Health check
// @Tags meta
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /ping [get]
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
