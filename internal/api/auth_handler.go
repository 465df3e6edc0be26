package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"slidestudio/internal/auth"
	"slidestudio/internal/database"
	"slidestudio/internal/repository"
)

const refreshTokenCookieName = "refresh_token"
const refreshTokenBlacklistKeyPrefix = "auth:refresh:blacklist:"

// UserStore 是账号的持久化协作方。
type UserStore interface {
	CreateUser(ctx context.Context, u *database.User) error
	GetUserByUsername(ctx context.Context, username string) (*database.User, error)
	GetUser(ctx context.Context, id uint) (*database.User, error)
	UpdatePassword(ctx context.Context, id uint, hash string) error
}

// AuthHandler 处理注册、登录、刷新与退出。Redis 为 nil 时跳过限流与黑名单。
type AuthHandler struct {
	users                 UserStore
	authService           *auth.AuthService
	redis                 redis.UniversalClient
	logger                *slog.Logger
	loginRateLimitPerHour int
	loginLockThreshold    int
	loginLockTTL          time.Duration
	cookieDomain          string
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(users UserStore, authService *auth.AuthService, redisClient redis.UniversalClient, logger *slog.Logger, loginRateLimitPerHour int, loginLockThreshold int, loginLockTTL time.Duration, cookieDomain string) *AuthHandler {
	return &AuthHandler{
		users:                 users,
		authService:           authService,
		redis:                 redisClient,
		logger:                logger,
		loginRateLimitPerHour: loginRateLimitPerHour,
		loginLockThreshold:    loginLockThreshold,
		loginLockTTL:          loginLockTTL,
		cookieDomain:          cookieDomain,
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// Register 创建普通成员账号。管理员账号只能通过 admin 命令创建。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := loggerFrom(c).With(slog.String("username", req.Username))

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	user := database.User{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hashed,
		Role:         string(auth.RoleMember),
	}
	if err := h.users.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			logger.Info("register conflict: user already exists")
			Conflict(c, "username already taken")
			return
		}
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	c.Status(http.StatusCreated)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken        string       `json:"access_token"`
	TokenType          string       `json:"token_type"`
	ExpiresIn          int          `json:"expires_in"`
	MustChangePassword bool         `json:"must_change_password"`
	User               auth.Session `json:"user"`
}

// Login 校验口令并返回 Token。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	username := strings.ToLower(strings.TrimSpace(req.Username))
	logger := loggerFrom(c).With(slog.String("username", req.Username))

	if h.redis != nil {
		// 速率限制：每 IP+用户名 每小时
		rateKey := "rate:login:" + c.ClientIP() + ":" + username + ":" + time.Now().UTC().Format("2006010215")
		if !allowWithinWindow(ctx, h.redis, rateKey, h.loginRateLimitPerHour, time.Hour) {
			TooManyRequests(c, "rate limit exceeded")
			return
		}
		if ttl, _ := h.redis.TTL(ctx, "lock:login:"+username).Result(); ttl > 0 {
			TooManyRequests(c, "account temporarily locked")
			return
		}
	}

	user, err := h.users.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Info("login failed: user not found")
			h.incrementLoginFail(ctx, username)
			Unauthorized(c)
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !h.authService.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		h.incrementLoginFail(ctx, username)
		Unauthorized(c)
		return
	}

	if h.redis != nil {
		_ = h.redis.Del(ctx, "lock:login:fail:"+username).Err()
	}

	h.issueTokens(c, logger, repository.SessionFor(*user))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh 校验刷新令牌并颁发新的 TokenPair，旧令牌随即作废。
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := loggerFrom(c)

	claims, ok := h.validRefreshClaims(c, logger, refreshToken)
	if !ok {
		return
	}

	user, err := h.users.GetUser(ctx, claims.UserID)
	if err != nil {
		logger.Info("refresh user not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	if err := h.revokeRefreshToken(ctx, claims.ID, claims.ExpiresAt); err != nil {
		logger.Error("refresh revoke old token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.issueTokens(c, logger, repository.SessionFor(*user))
}

func (h *AuthHandler) validRefreshClaims(c *gin.Context, logger *slog.Logger, token string) (*auth.TokenClaims, bool) {
	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		logger.Info("refresh token invalid", slog.Any("error", err))
		Unauthorized(c)
		return nil, false
	}
	if claims.TokenType != auth.TokenTypeRefresh || claims.ID == "" {
		logger.Info("refresh token rejected", slog.String("token_type", claims.TokenType))
		Unauthorized(c)
		return nil, false
	}
	if h.redis == nil {
		return claims, true
	}
	err = h.redis.Get(c.Request.Context(), refreshTokenBlacklistKeyPrefix+claims.ID).Err()
	switch {
	case err == nil:
		logger.Info("refresh token revoked", slog.String("jti", claims.ID))
		Unauthorized(c)
		return nil, false
	case !errors.Is(err, redis.Nil):
		logger.Error("refresh token blacklist lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return nil, false
	}
	return claims, true
}

// Me 返回当前账号（从数据库读取，角色变更立即生效）。
func (h *AuthHandler) Me(c *gin.Context) {
	s, ok := sessionFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), s.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			Unauthorized(c)
			return
		}
		Internal(c, "internal error")
		return
	}
	current := repository.SessionFor(*user)
	c.JSON(http.StatusOK, gin.H{
		"user":            current,
		"can_edit_slides": current.CanEditSlides(),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required,min=8,max=72"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required,min=8,max=72"`
}

// ChangePassword 校验当前密码并更新为新密码。
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		BadRequest(c, "password confirmation does not match")
		return
	}

	s, ok := sessionFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := loggerFrom(c)

	user, err := h.users.GetUser(ctx, s.UserID)
	if err != nil {
		logger.Info("change password: user not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}
	if !h.authService.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		logger.Info("change password: current password mismatch")
		Unauthorized(c)
		return
	}
	if strings.TrimSpace(req.NewPassword) == strings.TrimSpace(req.CurrentPassword) {
		BadRequest(c, "new password must be different from current password")
		return
	}

	hashed, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("change password: hash failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if err := h.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		logger.Error("change password: update failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if refreshToken, err := c.Cookie(refreshTokenCookieName); err == nil && refreshToken != "" {
		if claims, err := h.authService.ValidateToken(refreshToken); err == nil && claims.TokenType == auth.TokenTypeRefresh && claims.ID != "" {
			if err := h.revokeRefreshToken(ctx, claims.ID, claims.ExpiresAt); err != nil {
				logger.Error("change password: revoke refresh failed", slog.Any("error", err))
				Internal(c, "internal error")
				return
			}
		}
	}

	user.MustChangePassword = false
	h.issueTokens(c, logger, repository.SessionFor(*user))
}

// Logout 将刷新令牌加入黑名单，防止继续使用。
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		BadRequest(c, "refresh token missing")
		return
	}

	logger := loggerFrom(c)
	claims, ok := h.validRefreshClaims(c, logger, refreshToken)
	if !ok {
		return
	}
	if err := h.revokeRefreshToken(c.Request.Context(), claims.ID, claims.ExpiresAt); err != nil {
		logger.Error("logout revoke token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    "",
		MaxAge:   -1,
		Path:     "/",
		Secure:   isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Domain:   strings.TrimSpace(h.cookieDomain),
	})
	c.Status(http.StatusOK)
}

func (h *AuthHandler) issueTokens(c *gin.Context, logger *slog.Logger, s auth.Session) {
	tokenPair, err := h.authService.GenerateTokenPair(s)
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	h.setRefreshCookie(c, tokenPair.RefreshToken)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:        tokenPair.AccessToken,
		TokenType:          "Bearer",
		ExpiresIn:          int(h.authService.AccessTokenTTL().Seconds()),
		MustChangePassword: s.MustChangePassword,
		User:               s,
	})
}

func (h *AuthHandler) extractRefreshToken(c *gin.Context) string {
	if token, err := c.Cookie(refreshTokenCookieName); err == nil && token != "" {
		return token
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, refreshToken string) {
	maxAge := int(h.authService.RefreshTokenTTL().Seconds())
	if maxAge <= 0 {
		maxAge = int(time.Hour.Seconds())
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    refreshToken,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Domain:   strings.TrimSpace(h.cookieDomain),
		Expires:  time.Now().Add(h.authService.RefreshTokenTTL()),
	})
}

func (h *AuthHandler) revokeRefreshToken(ctx context.Context, jti string, expiresAt *jwt.NumericDate) error {
	if h.redis == nil {
		return nil
	}
	ttl := h.authService.RefreshTokenTTL()
	if expiresAt != nil {
		ttl = time.Until(expiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return h.redis.Set(ctx, refreshTokenBlacklistKeyPrefix+jti, "revoked", ttl).Err()
}

func (h *AuthHandler) incrementLoginFail(ctx context.Context, username string) {
	if h.redis == nil {
		return
	}
	failKey := "lock:login:fail:" + username
	count, err := incrWithTTL(ctx, h.redis, failKey, h.loginLockTTL)
	if err != nil {
		return
	}
	if h.loginLockThreshold > 0 && count >= int64(h.loginLockThreshold) {
		_ = h.redis.Set(ctx, "lock:login:"+username, "1", h.loginLockTTL).Err()
	}
}

func isHTTPSRequest(c *gin.Context) bool {
	if c.Request == nil {
		return false
	}
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}
