package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zimablue/zima-blue/api/common"
	"github.com/zimablue/zima-blue/internal/auth"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
	ContextRoleKey     = "role"
)

// JWTAuth 校验 Bearer 令牌并把用户信息写入上下文
func JWTAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "No Authorization request header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Authorization field format error")
			return
		}

		claims, err := jwtService.ExtractClaims(parts[1])
		if err != nil {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if claims.Type != "access" {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "token is not an access token")
			return
		}

		role := claims.Role
		if role == "" {
			role = "user"
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Set(ContextRoleKey, role)

		c.Next()
	}
}

// OptionalJWTAuth 尽力解析 Bearer 令牌，无令牌或令牌无效时放行
func OptionalJWTAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			if claims, err := jwtService.ExtractClaims(parts[1]); err == nil && claims.Type == "access" {
				role := claims.Role
				if role == "" {
					role = "user"
				}
				c.Set(ContextUserIDKey, claims.UserID)
				c.Set(ContextUsernameKey, claims.Username)
				c.Set(ContextRoleKey, role)
			}
		}
		c.Next()
	}
}

// CurrentUserID 从上下文中取出已认证的用户 ID
func CurrentUserID(c *gin.Context) uint {
	if v, exists := c.Get(ContextUserIDKey); exists {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
