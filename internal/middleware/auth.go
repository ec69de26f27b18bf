package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	jwtsvc "fieldwork/internal/pkg/jwt"
	"fieldwork/internal/pkg/response"
)

// JWTAuth validates the bearer token and stores user_id and role in the
// gin context.
func JWTAuth(jwt *jwtsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing Authorization header")
			return
		}

		if !strings.HasPrefix(h, "Bearer ") {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid Authorization header")
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		if tokenStr == "" {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Empty token")
			return
		}

		claims, err := jwt.ValidateToken(tokenStr)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token")
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// QueryTokenAuth is JWTAuth for websocket upgrades, where browsers cannot
// send headers: the token travels in the "token" query parameter.
func QueryTokenAuth(jwt *jwtsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			if token := c.Query("token"); token != "" {
				c.Request.Header.Set("Authorization", "Bearer "+token)
			}
		}
		JWTAuth(jwt)(c)
	}
}
