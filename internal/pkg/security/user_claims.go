package security

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserClaims 账号服务签发的 Token 载荷，消息服务只校验不签发业务 Token
type UserClaims struct {
	UserID uint64 `json:"user_id"`
	jwt.RegisteredClaims
}
