package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/farellandr/confpass/internal/helpers"
	"github.com/farellandr/confpass/internal/service"
)

const (
	attendeeServiceKey = "attendee_service"
	badgeSignerKey     = "badge_signer"
	adminConfigKey     = "admin_config"
)

// AdminConfig holds what the admin login handler needs to issue tokens.
type AdminConfig struct {
	JWTSecret    string
	PasswordHash string
}

func ServiceMiddleware(svc *service.AttendeeService, signer *helpers.BadgeSigner) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(attendeeServiceKey, svc)
		c.Set(badgeSignerKey, signer)
		c.Next()
	}
}

func AdminMiddleware(cfg AdminConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(adminConfigKey, cfg)
		c.Next()
	}
}

func GetAttendeeService(c *gin.Context) *service.AttendeeService {
	svc, exists := c.Get(attendeeServiceKey)
	if !exists {
		return nil
	}
	return svc.(*service.AttendeeService)
}

func GetBadgeSigner(c *gin.Context) *helpers.BadgeSigner {
	signer, exists := c.Get(badgeSignerKey)
	if !exists {
		return nil
	}
	return signer.(*helpers.BadgeSigner)
}

func GetAdminConfig(c *gin.Context) (AdminConfig, bool) {
	cfg, exists := c.Get(adminConfigKey)
	if !exists {
		return AdminConfig{}, false
	}
	return cfg.(AdminConfig), true
}
