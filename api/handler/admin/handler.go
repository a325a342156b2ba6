package admin

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zimablue/zima-blue/api/common"
	imagerepo "github.com/zimablue/zima-blue/database/repo/images"
	"github.com/zimablue/zima-blue/internal/dashboard"
	"github.com/zimablue/zima-blue/internal/grid"
	imagesvc "github.com/zimablue/zima-blue/internal/images"
	"github.com/zimablue/zima-blue/internal/worker"
)

// Handler 管理端接口处理器
type Handler struct {
	service   *imagesvc.Service
	repo      *imagerepo.Repository
	dashboard *dashboard.Service
}

// NewHandler 创建管理端处理器
func NewHandler(service *imagesvc.Service, repo *imagerepo.Repository, dashboardService *dashboard.Service) *Handler {
	return &Handler{
		service:   service,
		repo:      repo,
		dashboard: dashboardService,
	}
}

// RegenerateImage 同步重建一张图片的变体阶梯
func (h *Handler) RegenerateImage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid image id")
		return
	}

	image, err := h.service.Regenerate(c.Request.Context(), uint(id))
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
		"data":    grid.RecordFromImage(image),
	})
}

// RegenerateAll 把全部图片的重建任务排入后台队列
func (h *Handler) RegenerateAll(c *gin.Context) {
	all, err := h.repo.All()
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	queued := 0
	for _, image := range all {
		task := &worker.RegenerateTask{ImageID: image.ID, Service: h.service}
		if worker.TrySubmit(task, 2, 100*time.Millisecond) {
			queued++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"total": len(all), "queued": queued},
	})
}

// Dashboard 管理面板首屏聚合数据
func (h *Handler) Dashboard(c *gin.Context) {
	summary, err := h.dashboard.Summarize()
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccess(c, summary)
}
