package worker

import (
	"github.com/zimablue/zima-blue/database/repo/images"
	"github.com/zimablue/zima-blue/utils"
)

// CounterTask 异步计数任务
// 浏览/下载/点赞计数走后台递增，不阻塞请求路径
type CounterTask struct {
	ImageID uint
	Column  string
	Repo    *images.Repository
}

// Execute 执行任务
func (t *CounterTask) Execute() {
	if err := t.Repo.IncrementCounter(t.ImageID, t.Column); err != nil {
		utils.LogIfDevf("[CounterTask] Failed to increment %s for image %d: %v", t.Column, t.ImageID, err)
	}
}
