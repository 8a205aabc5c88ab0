package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/confpass/internal/logging"
	"github.com/farellandr/confpass/internal/middleware"
)

func HealthCheck(c *gin.Context) {
	svc := middleware.GetAttendeeService(c)
	if svc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}

	if err := svc.Ping(c.Request.Context()); err != nil {
		logging.FromContext(c.Request.Context()).Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
