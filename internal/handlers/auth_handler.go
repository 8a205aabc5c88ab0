package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/farellandr/confpass/internal/helpers"
	"github.com/farellandr/confpass/internal/logging"
	"github.com/farellandr/confpass/internal/middleware"
)

const adminTokenTTL = 24 * time.Hour

type AdminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

func AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, helpers.MsgInvalidInput)
		return
	}

	cfg, ok := middleware.GetAdminConfig(c)
	if !ok || cfg.JWTSecret == "" || cfg.PasswordHash == "" {
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.MsgInternal)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cfg.PasswordHash), []byte(req.Password)); err != nil {
		logging.FromContext(c.Request.Context()).Warn("admin login rejected", "client_ip", c.ClientIP())
		helpers.RespondWithError(c, http.StatusUnauthorized, helpers.MsgInvalidCredentials)
		return
	}

	now := time.Now()
	expiresAt := now.Add(adminTokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": middleware.AdminRole,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	})

	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		logging.FromContext(c.Request.Context()).Error("sign admin token", "error", err)
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.MsgInternal)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      tokenString,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}
