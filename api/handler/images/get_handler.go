package images

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zimablue/zima-blue/api/common"
	"github.com/zimablue/zima-blue/internal/grid"
	"github.com/zimablue/zima-blue/internal/tags"
	"github.com/zimablue/zima-blue/utils"
)

// GetImage 按 slug 查询单张图片
func (h *Handler) GetImage(c *gin.Context) {
	slug := c.Param("slug")
	if slug == "" {
		common.RespondError(c, http.StatusBadRequest, "Image slug is required")
		return
	}

	image, err := h.repo.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.RespondError(c, http.StatusNotFound, "Image not found")
			return
		}
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	common.RespondSuccess(c, grid.RecordFromImage(image))
}

// ListImages 分页列出图片，支持按名称/描述搜索
func (h *Handler) ListImages(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	search := c.Query("search")

	list, total, err := h.repo.List(search, page, pageSize)
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	records := make([]grid.LayoutRecord, 0, len(list))
	for _, image := range list {
		records = append(records, grid.RecordFromImage(image))
	}

	common.RespondSuccess(c, gin.H{
		"items":     records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

type updateImageRequest struct {
	Name        *string     `json:"name"`
	Description *string     `json:"description"`
	Tags        interface{} `json:"tags"`
}

// UpdateImage 更新图片元数据与标签
func (h *Handler) UpdateImage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid image id")
		return
	}

	var req updateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}

	image, err := h.repo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.RespondError(c, http.StatusNotFound, "Image not found")
			return
		}
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if len(updates) > 0 {
		image, err = h.repo.UpdateFields(uint(id), updates)
		if err != nil {
			common.RespondError(c, http.StatusInternalServerError, err.Error())
			return
		}
	}

	if req.Tags != nil {
		refs, err := tags.Normalize(req.Tags)
		if err != nil {
			common.RespondError(c, http.StatusBadRequest, "Invalid tags payload")
			return
		}
		if err := h.applyTags(image, refs); err != nil {
			common.RespondError(c, http.StatusInternalServerError, err.Error())
			return
		}
	}

	record := grid.RecordFromImage(image)
	if err := h.grid.UpdateCachedEntry(c.Request.Context(), image.ID, func(r *grid.LayoutRecord) {
		r.Name = record.Name
		r.Description = record.Description
		r.Tags = record.Tags
		r.UpdatedAt = record.UpdatedAt
	}); err != nil {
		utils.LogIfDevf("[Images] Failed to refresh grid cache after update of %d: %v", id, err)
	}

	common.RespondSuccess(c, record)
}
