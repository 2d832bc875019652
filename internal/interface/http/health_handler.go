package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health GET /health and /api/health. Liveness only; it touches no dependency.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "auth"})
}
