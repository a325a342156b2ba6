package images

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zimablue/zima-blue/api/common"
	"github.com/zimablue/zima-blue/internal/grid"
)

// ReplaceImage 替换图片像素内容，id、slug 与网格占位保持不变
func (h *Handler) ReplaceImage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid image id")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "A file is required under the 'file' key")
		return
	}

	data, mimeType, err := readUploadFile(fileHeader)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	image, err := h.service.Replace(c.Request.Context(), uint(id), data, mimeType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.RespondError(c, http.StatusNotFound, "Image not found")
			return
		}
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": []grid.LayoutRecord{grid.RecordFromImage(image)},
	})
}
