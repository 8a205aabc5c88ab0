package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/farellandr/confpass/internal/helpers"
)

const AdminRole = "admin"

// JWTAuthMiddleware admits requests carrying a valid HS256 bearer token with
// the admin role.
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			helpers.RespondWithError(c, http.StatusUnauthorized, helpers.MsgUnauthorized)
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil {
			helpers.RespondWithError(c, http.StatusUnauthorized, helpers.MsgUnauthorized)
			return
		}

		if role, _ := claims["role"].(string); role != AdminRole {
			helpers.RespondWithError(c, http.StatusForbidden, helpers.MsgForbidden)
			return
		}

		c.Set("role", AdminRole)
		c.Next()
	}
}
