package worker

import (
	"context"
	"time"

	imagesvc "github.com/zimablue/zima-blue/internal/images"
	"github.com/zimablue/zima-blue/utils"
)

// RegenerateTask 后台变体重建任务
// 批量维护时逐张入队，单张失败不影响其余
type RegenerateTask struct {
	ImageID uint
	Service *imagesvc.Service
}

// Execute 执行任务
func (t *RegenerateTask) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := t.Service.Regenerate(ctx, t.ImageID); err != nil {
		utils.LogIfDevf("[RegenerateTask] Failed to regenerate image %d: %v", t.ImageID, err)
		return
	}
	utils.LogIfDevf("[RegenerateTask] Regenerated image %d", t.ImageID)
}
