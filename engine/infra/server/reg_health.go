package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/k2brd/k2brd/pkg/version"
)

// CreateHealthHandler reports liveness. It never probes the provider, so it
// stays fast when the provider is down.
func CreateHealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  http.StatusOK,
			"message": "Success",
			"data": gin.H{
				"status":  "ok",
				"version": version.Get(),
			},
		})
	}
}
