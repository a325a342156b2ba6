package images

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zimablue/zima-blue/api/common"
	imagerepo "github.com/zimablue/zima-blue/database/repo/images"
	"github.com/zimablue/zima-blue/internal/worker"
)

var counterColumns = map[string]string{
	"view":     imagerepo.CounterViews,
	"download": imagerepo.CounterDownloads,
	"like":     imagerepo.CounterLikes,
}

// IncrementCounter 递增浏览/下载/点赞计数
// 递增在后台执行，接口立即返回
func (h *Handler) IncrementCounter(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid image id")
		return
	}

	column, ok := counterColumns[c.Param("counter")]
	if !ok {
		common.RespondError(c, http.StatusBadRequest, "Unknown counter, expected view, download or like")
		return
	}

	task := &worker.CounterTask{
		ImageID: uint(id),
		Column:  column,
		Repo:    h.repo,
	}
	if !worker.TrySubmit(task, 2, 50*time.Millisecond) {
		common.RespondError(c, http.StatusServiceUnavailable, "Server is busy, please try again later")
		return
	}

	common.RespondSuccessMessage(c, "accepted", nil)
}
