package images

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zimablue/zima-blue/api/common"
	"github.com/zimablue/zima-blue/utils/pool"
)

var contentTypeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
}

// ServeBlob 按存储路径直接输出图片内容
// 路由形如 GET /images/{prefix}/{size}.{ext}
func (h *Handler) ServeBlob(c *gin.Context) {
	pathname := strings.TrimPrefix(c.Param("filepath"), "/")
	if pathname == "" || strings.Contains(pathname, "..") {
		common.RespondError(c, http.StatusBadRequest, "Invalid path")
		return
	}

	reader, err := h.storage.GetWithContext(c.Request.Context(), pathname)
	if err != nil {
		common.RespondError(c, http.StatusNotFound, "Image not found")
		return
	}
	defer reader.Close()

	contentType := contentTypeByExt[strings.ToLower(path.Ext(pathname))]
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Status(http.StatusOK)

	buf := pool.SharedBufferPool.Get().(*[]byte)
	defer pool.SharedBufferPool.Put(buf)
	_, _ = io.CopyBuffer(c.Writer, reader, *buf)
}
