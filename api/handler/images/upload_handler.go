package images

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zimablue/zima-blue/api/common"
	"github.com/zimablue/zima-blue/api/middleware"
	"github.com/zimablue/zima-blue/database/models"
	"github.com/zimablue/zima-blue/internal/grid"
	imagesvc "github.com/zimablue/zima-blue/internal/images"
	"github.com/zimablue/zima-blue/internal/tags"
	"github.com/zimablue/zima-blue/utils"
)

// 单次批量上传允许的最大文件数
const maxUploadBatch = 10

// okRecord 扁平化的布局记录加 ok 标志，上传与删除共用
type okRecord struct {
	grid.LayoutRecord
	OK bool `json:"ok"`
}

// UploadImage 处理图片上传，单文件返回扁平记录，多文件返回会话与逐文件结果
func (h *Handler) UploadImage(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid form data")
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		files = form.File["files"]
	}
	if len(files) == 0 {
		common.RespondError(c, http.StatusBadRequest, "At least one file is required under the 'file' or 'files' key")
		return
	}
	if len(files) > maxUploadBatch {
		common.RespondError(c, http.StatusBadRequest, "Maximum 10 files allowed per upload")
		return
	}

	x := formInt(c, "x", 0)
	y := formInt(c, "y", 0)
	w := formInt(c, "w", 1)
	height := formInt(c, "h", 1)
	userID := c.GetUint(middleware.ContextUserIDKey)
	tagRefs := h.parseTags(c)

	if len(files) == 1 {
		image, err := h.uploadOne(c, files[0], x, y, w, height, userID, tagRefs)
		if err != nil {
			common.RespondError(c, http.StatusBadRequest, err.Error())
			return
		}
		c.JSON(http.StatusOK, okRecord{LayoutRecord: grid.RecordFromImage(image), OK: true})
		return
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Filename
	}
	session := h.sessions.Begin(names)

	results := make([]gin.H, 0, len(files))
	for i, fileHeader := range files {
		_ = h.sessions.SetProgress(session.ID, i, 0)

		image, err := h.uploadOne(c, fileHeader, x, y, w, height, userID, tagRefs)
		if err != nil {
			_ = h.sessions.Fail(session.ID, i, err.Error())
			results = append(results, gin.H{"filename": fileHeader.Filename, "ok": false, "error": err.Error()})
			continue
		}

		record := grid.RecordFromImage(image)
		_ = h.sessions.Complete(session.ID, i, &record)
		results = append(results, gin.H{"filename": fileHeader.Filename, "ok": true, "image": record})
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"session_id": session.ID,
		"results":    results,
	})
}

// UploadStatus 查询上传会话进度
func (h *Handler) UploadStatus(c *gin.Context) {
	session, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		common.RespondError(c, http.StatusNotFound, "Upload session not found")
		return
	}
	common.RespondSuccess(c, session)
}

func (h *Handler) uploadOne(c *gin.Context, fileHeader *multipart.FileHeader, x, y, w, height int, userID uint, tagRefs []tags.TagRef) (*models.Image, error) {
	data, mimeType, err := readUploadFile(fileHeader)
	if err != nil {
		return nil, err
	}

	image, err := h.service.Upload(c.Request.Context(), imagesvc.UploadInput{
		Data:     data,
		FileName: fileHeader.Filename,
		MimeType: mimeType,
		X:        x,
		Y:        y,
		W:        w,
		H:        height,
		UserID:   userID,
	})
	if err != nil {
		return nil, err
	}

	if err := h.applyTags(image, tagRefs); err != nil {
		utils.LogIfDevf("[Images] Failed to apply tags to image %d: %v", image.ID, err)
	}

	// 追加到网格缓存文档；失败不影响上传结果
	if err := h.grid.AppendToCache(c.Request.Context(), grid.RecordFromImage(image)); err != nil {
		utils.LogIfDevf("[Images] Failed to append image %d to grid cache: %v", image.ID, err)
	}
	return image, nil
}

func formInt(c *gin.Context, key string, fallback int) int {
	raw := c.PostForm(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// parseTags 解析宽松的标签载荷，解析失败按无标签处理
func (h *Handler) parseTags(c *gin.Context) []tags.TagRef {
	raw := c.PostForm("tags")
	if raw == "" {
		return nil
	}
	refs, err := tags.Normalize(raw)
	if err != nil {
		utils.LogIfDevf("[Images] Failed to normalize tags payload: %v", err)
		return nil
	}
	return refs
}

// applyTags 把规范化标签挂到图片上并刷新使用计数
func (h *Handler) applyTags(image *models.Image, refs []tags.TagRef) error {
	if len(refs) == 0 {
		return nil
	}

	tagModels := make([]*models.Tag, 0, len(refs))
	for _, ref := range refs {
		tag, err := h.tagsRepo.GetOrCreateByName(ref.Name, utils.Slugify(ref.Name))
		if err != nil {
			return err
		}
		tagModels = append(tagModels, tag)
	}

	if err := h.repo.ReplaceTags(image, tagModels); err != nil {
		return err
	}
	for _, tag := range tagModels {
		if err := h.tagsRepo.RecomputeUsageCount(tag.ID); err != nil {
			utils.LogIfDevf("[Images] Failed to recompute usage count for tag %d: %v", tag.ID, err)
		}
	}
	return nil
}
