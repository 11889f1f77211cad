package middleware

import (
	"OurSpace/internal/pkg/consts"
	"OurSpace/internal/pkg/redis"
	"OurSpace/internal/pkg/response"
	"OurSpace/internal/pkg/security"
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
)

var errTokenMissing = errors.New("token missing")

// AuthMiddleware 负责验证 JWT 并将用户身份信息注入 Context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := extractToken(c)
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		userID, code, message := authenticate(c.Request.Context(), tokenString)
		if code != 0 {
			response.Fail(c, code, message)
			c.Abort()
			return
		}

		setUser(c, userID)
		c.Next()
	}
}

// extractToken 优先读取 Authorization: Bearer，其次为 query token（浏览器长连接无法设置请求头）
func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return "", errTokenMissing
		}
		return strings.TrimPrefix(authHeader, "Bearer "), nil
	}
	if token := c.Query("token"); token != "" {
		return token, nil
	}
	return "", errTokenMissing
}

// authenticate 校验黑名单与签名，失败时返回非零业务码
func authenticate(ctx context.Context, tokenString string) (uint64, int, string) {
	signature, err := security.ExtractSignature(tokenString)
	if err != nil {
		return 0, response.Unauthorized, "Token 缺失或格式错误"
	}

	value, err := redis.GetValue(ctx, consts.TokenBlacklistKey+signature)
	if err != nil {
		return 0, response.InternalServerError, "未知错误"
	}
	if value != "" {
		return 0, response.Unauthorized, "Token 无效或已过期"
	}

	claims, err := security.ValidateToken(tokenString)
	if err != nil {
		return 0, response.Unauthorized, "Token 无效或已过期"
	}
	return claims.UserID, 0, ""
}

func setUser(c *gin.Context, userID uint64) {
	c.Set(consts.UserIDKey, userID)
	newCtx := context.WithValue(c.Request.Context(), consts.UserIDKey, userID)
	c.Request = c.Request.WithContext(newCtx)
}
