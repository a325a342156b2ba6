package gridlayout

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zimablue/zima-blue/api/common"
	"github.com/zimablue/zima-blue/database/repo/images"
	"github.com/zimablue/zima-blue/internal/grid"
	"github.com/zimablue/zima-blue/utils"
)

// Handler 网格布局接口处理器
type Handler struct {
	store *grid.Store
	repo  *images.Repository
}

// NewHandler 创建网格布局处理器
func NewHandler(store *grid.Store, repo *images.Repository) *Handler {
	return &Handler{store: store, repo: repo}
}

// GetGrid 返回网格布局文档，响应体就是记录数组本身
// 缓存为空时从数据库重建并回填缓存
func (h *Handler) GetGrid(c *gin.Context) {
	records, err := h.store.LoadFromCache(c.Request.Context())
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if len(records) == 0 {
		records, err = h.rebuild(c)
		if err != nil {
			common.RespondError(c, http.StatusInternalServerError, err.Error())
			return
		}
	}

	if records == nil {
		records = []grid.LayoutRecord{}
	}
	c.JSON(http.StatusOK, records)
}

type saveGridRequest struct {
	Layout []grid.LayoutRecord `json:"layout" binding:"required"`
}

// SaveGrid 保存网格布局
// 占位坐标写回数据库行，整个文档 last-writer-wins 写入缓存；
// 本地预览条目和数据库中不存在的 id 不会被持久化
func (h *Handler) SaveGrid(c *gin.Context) {
	var req saveGridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	for _, record := range req.Layout {
		if record.IsLocalPreview() || record.ID == 0 {
			continue
		}
		if err := h.repo.UpdatePlacement(record.ID, record.X, record.Y, record.W, record.H); err != nil {
			utils.LogIfDevf("[Grid] Failed to persist placement for image %d: %v", record.ID, err)
		}
	}

	h.store.ApplySnapshot(req.Layout)

	if err := h.store.PersistRecords(c.Request.Context(), req.Layout); err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Grid layout saved",
	})
}

// rebuild 从数据库重建布局文档并回填缓存
func (h *Handler) rebuild(c *gin.Context) ([]grid.LayoutRecord, error) {
	all, err := h.repo.All()
	if err != nil {
		return nil, err
	}

	records := make([]grid.LayoutRecord, 0, len(all))
	for _, image := range all {
		records = append(records, grid.RecordFromImage(image))
	}
	grid.SortByPlacement(records)

	h.store.ApplySnapshot(records)
	if len(records) > 0 {
		if err := h.store.PersistRecords(c.Request.Context(), records); err != nil {
			utils.LogIfDevf("[Grid] Failed to backfill grid cache: %v", err)
		}
	}
	return records, nil
}
