package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/library/internal/domain/user"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/response"
)

const (
	identityKey = "identity"
	tokenKey    = "access_token"
)

// TokenBlacklist Token黑名单（redis.SessionStore）
type TokenBlacklist interface {
	IsInBlacklist(ctx context.Context, token string) (bool, error)
}

// AuthMiddleware JWT认证中间件
// 1. 从Header提取Bearer Token
// 2. 检查黑名单（已登出的Token）
// 3. 验证签名与过期时间，解析角色
// 4. 把调用者身份注入Context，Handler通过GetIdentity读取
type AuthMiddleware struct {
	jwtManager *jwt.Manager
	blacklist  TokenBlacklist
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(jwtManager *jwt.Manager, blacklist TokenBlacklist) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		blacklist:  blacklist,
	}
}

// RequireAuth 要求登录
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 提取Token
		token, ok := bearerToken(c)
		if !ok {
			abort(c, apperrors.ErrUnauthorized)
			return
		}

		// 2. 黑名单检查
		blacklisted, err := m.blacklist.IsInBlacklist(c.Request.Context(), token)
		if err != nil {
			abort(c, err)
			return
		}
		if blacklisted {
			abort(c, apperrors.New(apperrors.ErrCodeTokenExpired, "Token已失效，请重新登录"))
			return
		}

		// 3. 解析身份
		identity, err := m.identity(token)
		if err != nil {
			abort(c, err)
			return
		}

		// 4. 注入Context
		c.Set(identityKey, identity)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// OptionalAuth 可选登录：有合法Token时注入身份，否则作为匿名用户继续
// 已登出的Token同样按匿名处理，黑名单查询失败时也不注入身份
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			blacklisted, err := m.blacklist.IsInBlacklist(c.Request.Context(), token)
			if err == nil && !blacklisted {
				if identity, err := m.identity(token); err == nil {
					c.Set(identityKey, identity)
				}
			}
		}
		c.Next()
	}
}

// RequireRole 路由级角色限制，必须放在RequireAuth之后
func RequireRole(roles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := user.RequireRole(GetIdentity(c), roles...); err != nil {
			abort(c, err)
			return
		}
		c.Next()
	}
}

// identity Access Token → 调用者身份
func (m *AuthMiddleware) identity(token string) (user.Identity, error) {
	claims, err := m.jwtManager.ParseAccessToken(token)
	if err != nil {
		return user.Identity{}, err
	}

	role, err := user.ParseRole(claims.Role)
	if err != nil || claims.Username == "" {
		return user.Identity{}, apperrors.ErrInvalidToken
	}

	return user.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     role,
	}, nil
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func abort(c *gin.Context, err error) {
	response.Error(c, err)
	c.Abort()
}

// GetIdentity 当前调用者身份，未登录返回匿名身份
func GetIdentity(c *gin.Context) user.Identity {
	if v, exists := c.Get(identityKey); exists {
		if identity, ok := v.(user.Identity); ok {
			return identity
		}
	}
	return user.Anonymous()
}

// GetToken 当前请求的Access Token（登出时加入黑名单）
func GetToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
