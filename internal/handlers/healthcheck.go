package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GET /api/ping
func Ping(c *gin.Context) {
	RespondOK(c, gin.H{
		"message":   "pong",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
