package authn

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zimablue/zima-blue/api/common"
	"github.com/zimablue/zima-blue/internal/auth"
)

// Handler 认证接口处理器
type Handler struct {
	login *auth.LoginService
}

// NewHandler 创建认证处理器
func NewHandler(loginService *auth.LoginService) *Handler {
	return &Handler{login: loginService}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 用户名密码登录
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "username and password are required")
		return
	}

	user, pair, err := h.login.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			common.RespondError(c, http.StatusUnauthorized, err.Error())
			return
		}
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	common.RespondSuccess(c, gin.H{
		"access_token":         pair.AccessToken,
		"access_token_expiry":  pair.AccessTokenExpiry,
		"refresh_token":        pair.RefreshToken,
		"refresh_token_expiry": pair.RefreshTokenExpiry,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh 刷新令牌换取新令牌对
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := h.login.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			common.RespondError(c, http.StatusUnauthorized, err.Error())
			return
		}
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	common.RespondSuccess(c, gin.H{
		"access_token":         pair.AccessToken,
		"access_token_expiry":  pair.AccessTokenExpiry,
		"refresh_token":        pair.RefreshToken,
		"refresh_token_expiry": pair.RefreshTokenExpiry,
	})
}

// Logout 吊销刷新令牌
func (h *Handler) Logout(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.login.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccessMessage(c, "Logged out", nil)
}
