package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenKey is the gin context key holding the caller's raw bearer token.
const TokenKey = "consumer_jwt"

// ExtractToken stores the bearer token of the request under TokenKey. It
// never rejects a request: verifying the token is left to the handlers, which
// decide whether a write needs one.
func ExtractToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = strings.TrimSpace(parts[1])
			}
		}

		// Fallback to query parameter "token"
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		c.Set(TokenKey, tokenString)
		c.Next()
	}
}

// Token returns the token stored by ExtractToken, or "".
func Token(c *gin.Context) string {
	return c.GetString(TokenKey)
}
