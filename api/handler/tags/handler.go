package tags

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zimablue/zima-blue/api/common"
	"github.com/zimablue/zima-blue/database/models"
	tagrepo "github.com/zimablue/zima-blue/database/repo/tags"
	"github.com/zimablue/zima-blue/internal/tags"
	"github.com/zimablue/zima-blue/utils"
)

// Handler 标签接口处理器
type Handler struct {
	repo *tagrepo.Repository
}

// NewHandler 创建标签处理器
func NewHandler(repo *tagrepo.Repository) *Handler {
	return &Handler{repo: repo}
}

// ListTags 列出全部标签，按使用次数降序
func (h *Handler) ListTags(c *gin.Context) {
	list, err := h.repo.List()
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccess(c, list)
}

type tagRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

// 颜色只接受 #rgb / #rrggbb 形式
var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func validColor(color string) bool {
	return color == "" || hexColorPattern.MatchString(color)
}

// CreateTag 创建标签，名称在入口处规范化
func (h *Handler) CreateTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	refs, err := tags.Normalize(req.Name)
	if err != nil || len(refs) == 0 {
		common.RespondError(c, http.StatusBadRequest, "Invalid tag name")
		return
	}
	if !validColor(req.Color) {
		common.RespondError(c, http.StatusBadRequest, "Invalid color, expected #rgb or #rrggbb")
		return
	}
	name := refs[0].Name

	tag, err := h.repo.GetOrCreateByName(name, utils.Slugify(name))
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if req.Color != "" && tag.Color != req.Color {
		tag.Color = req.Color
		if err := h.repo.Update(tag); err != nil {
			common.RespondError(c, http.StatusInternalServerError, err.Error())
			return
		}
	}
	common.RespondSuccess(c, tag)
}

// UpdateTag 更新标签名称或颜色
func (h *Handler) UpdateTag(c *gin.Context) {
	tag, ok := h.lookup(c)
	if !ok {
		return
	}

	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	refs, err := tags.Normalize(req.Name)
	if err != nil || len(refs) == 0 {
		common.RespondError(c, http.StatusBadRequest, "Invalid tag name")
		return
	}
	if !validColor(req.Color) {
		common.RespondError(c, http.StatusBadRequest, "Invalid color, expected #rgb or #rrggbb")
		return
	}

	tag.Name = refs[0].Name
	tag.Slug = utils.Slugify(tag.Name)
	if req.Color != "" {
		tag.Color = req.Color
	}

	if err := h.repo.Update(tag); err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccess(c, tag)
}

// DeleteTag 删除标签并清理图片关联
func (h *Handler) DeleteTag(c *gin.Context) {
	tag, ok := h.lookup(c)
	if !ok {
		return
	}

	if err := h.repo.Delete(tag); err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccessMessage(c, "Tag deleted", nil)
}

func (h *Handler) lookup(c *gin.Context) (*models.Tag, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid tag id")
		return nil, false
	}

	tag, err := h.repo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.RespondError(c, http.StatusNotFound, "Tag not found")
			return nil, false
		}
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return tag, true
}
