package middleware

import (
	"OurSpace/internal/pkg/consts"
	"OurSpace/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthOptionalMiddleware 可选鉴权：未携带 token 时 UID 为 0；携带了但无效则拒绝
func AuthOptionalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := extractToken(c)
		if err != nil {
			c.Set(consts.UserIDKey, uint64(0))
			c.Next()
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
