package auth

import (
	"context"
	"errors"
	"time"

	"github.com/zimablue/zima-blue/cache"
	"github.com/zimablue/zima-blue/database/models"
	"github.com/zimablue/zima-blue/database/repo/users"
	"github.com/zimablue/zima-blue/utils"
	"github.com/zimablue/zima-blue/utils/crypto"
)

// ErrInvalidCredentials 用户名或密码错误
// 对外统一返回同一个错误，不泄露用户是否存在
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrInvalidRefreshToken 刷新令牌无效或已过期
var ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

// refreshSession 刷新令牌在缓存中的关联信息
type refreshSession struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginService 登录服务
type LoginService struct {
	usersRepo *users.Repository
	jwt       *JWTService
	cache     cache.Provider
}

// NewLoginService 创建登录服务
func NewLoginService(usersRepo *users.Repository, jwtService *JWTService, cacheProvider cache.Provider) *LoginService {
	return &LoginService{
		usersRepo: usersRepo,
		jwt:       jwtService,
		cache:     cacheProvider,
	}
}

// Login 校验凭证并签发令牌对
// 刷新令牌写入缓存，有效期与令牌一致
func (s *LoginService) Login(ctx context.Context, username, password string) (*models.User, *TokenPair, error) {
	user, err := s.usersRepo.GetByUsername(username)
	if err != nil {
		utils.LogIfDevf("[Auth] Login failed for %s: %v", utils.SanitizeLogMessage(username), err)
		return nil, nil, ErrInvalidCredentials
	}

	match, err := crypto.ComparePasswordAndHash(password, user.Password)
	if err != nil || !match {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.jwt.GenerateTokens(user.Username, user.ID, user.Role)
	if err != nil {
		return nil, nil, err
	}

	if err := s.storeRefreshToken(ctx, pair.RefreshToken, user); err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh 用刷新令牌换取新的令牌对，旧令牌随即失效（轮换）
func (s *LoginService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var session refreshSession
	err := s.cache.Get(ctx, cache.AuthRefresh.Build(refreshToken), &session)
	if err != nil {
		if cache.IsCacheMiss(err) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	user, err := s.usersRepo.GetByID(session.UserID)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	pair, err := s.jwt.GenerateTokens(user.Username, user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Delete(ctx, cache.AuthRefresh.Build(refreshToken)); err != nil {
		utils.LogIfDevf("[Auth] Failed to revoke rotated refresh token: %v", err)
	}
	if err := s.storeRefreshToken(ctx, pair.RefreshToken, user); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout 吊销刷新令牌
func (s *LoginService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.cache.Delete(ctx, cache.AuthRefresh.Build(refreshToken))
}

func (s *LoginService) storeRefreshToken(ctx context.Context, token string, user *models.User) error {
	session := refreshSession{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}
	ttl := s.jwt.RefreshExpiresIn()
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}
	return s.cache.Set(ctx, cache.AuthRefresh.Build(token), session, ttl)
}
