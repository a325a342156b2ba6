package images

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zimablue/zima-blue/api/common"
	"github.com/zimablue/zima-blue/internal/grid"
	imagesvc "github.com/zimablue/zima-blue/internal/images"
	"github.com/zimablue/zima-blue/utils"
)

// DeleteImage 删除单张图片，返回被删除的记录
func (h *Handler) DeleteImage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid image id")
		return
	}

	image, err := h.service.Delete(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.RespondError(c, http.StatusNotFound, "Image not found")
			return
		}
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.grid.RemoveFromCache(c.Request.Context(), []uint{uint(id)}); err != nil {
		utils.LogIfDevf("[Images] Failed to purge grid cache after delete of %d: %v", id, err)
	}

	c.JSON(http.StatusOK, okRecord{LayoutRecord: grid.RecordFromImage(image), OK: true})
}

type bulkDeleteRequest struct {
	IDs []uint `json:"imageIds" binding:"required"`
}

// BulkDeleteImages 批量删除，逐 id 汇报结果
func (h *Handler) BulkDeleteImages(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	outcome, err := h.service.BulkDelete(c.Request.Context(), req.IDs)
	if err != nil {
		if errors.Is(err, imagesvc.ErrBulkDeleteBatch) {
			common.RespondError(c, http.StatusBadRequest, err.Error())
			return
		}
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": outcome.Failed == 0,
		"counts": gin.H{
			"requested":  outcome.Requested,
			"successful": outcome.Successful,
			"failed":     outcome.Failed,
		},
		"results": outcome.Results,
	})
}
