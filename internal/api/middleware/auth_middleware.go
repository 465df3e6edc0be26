package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"slidestudio/internal/auth"
)

const (
	sessionKey            = "authSession"
	userIDKey             = "userID"
	mustChangePasswordKey = "mustChangePassword"
)

// TokenValidator 校验访问令牌。
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.TokenClaims, error)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// BearerToken 从 Authorization 头中取出令牌。
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// AuthMiddleware 校验访问令牌并将会话注入上下文。
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c)
			return
		}

		claims, err := validator.ValidateAccessToken(rawToken)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		SetSession(c, claims.Session())
		c.Next()
	}
}

// SetSession 写入当前用户，并给请求日志加上 user_id。
func SetSession(c *gin.Context, s auth.Session) {
	c.Set(sessionKey, s)
	c.Set(userIDKey, s.UserID)
	c.Set(mustChangePasswordKey, s.MustChangePassword)
	c.Set(slogLoggerKey, LoggerFromContext(c).With(slog.Uint64("user_id", uint64(s.UserID))))
}

// SessionFromContext 返回认证中间件写入的会话。
func SessionFromContext(c *gin.Context) (auth.Session, bool) {
	value, ok := c.Get(sessionKey)
	if !ok {
		return auth.Session{}, false
	}
	s, ok := value.(auth.Session)
	if !ok || s.Anonymous() {
		return auth.Session{}, false
	}
	return s, true
}

// RequireAdmin 只允许管理员继续。
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := SessionFromContext(c)
		if !ok {
			abortUnauthorized(c)
			return
		}
		if !s.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}
