package messages

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zimablue/zima-blue/api/common"
	"github.com/zimablue/zima-blue/database/models"
	messagerepo "github.com/zimablue/zima-blue/database/repo/messages"
)

// Handler 留言接口处理器
type Handler struct {
	repo *messagerepo.Repository
}

// NewHandler 创建留言处理器
func NewHandler(repo *messagerepo.Repository) *Handler {
	return &Handler{repo: repo}
}

type createMessageRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
}

// CreateMessage 公开的联系表单入口
func (h *Handler) CreateMessage(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "email, subject and body are required")
		return
	}

	message := &models.Message{
		Email:   strings.TrimSpace(req.Email),
		Subject: strings.TrimSpace(req.Subject),
		Body:    req.Body,
	}
	if err := h.repo.Create(message); err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccessMessage(c, "Message received", gin.H{"id": message.ID})
}

// ListMessages 管理端收件箱，支持只看未读
func (h *Handler) ListMessages(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	unreadOnly := c.Query("unread") == "true"

	list, total, err := h.repo.List(unreadOnly, page, pageSize)
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	common.RespondSuccess(c, gin.H{
		"items":     list,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// MarkRead 标记留言为已读
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid message id")
		return
	}

	if err := h.repo.MarkRead(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.RespondError(c, http.StatusNotFound, "Message not found")
			return
		}
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccessMessage(c, "Message marked as read", nil)
}

// DeleteMessage 删除留言
func (h *Handler) DeleteMessage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid message id")
		return
	}

	if err := h.repo.Delete(uint(id)); err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccessMessage(c, "Message deleted", nil)
}
