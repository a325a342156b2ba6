package images

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/zimablue/zima-blue/database/models"
	"github.com/zimablue/zima-blue/utils"
)

// 单次批量删除允许的 id 数上限
const MaxBulkDeleteIDs = 50

// 批量删除的并发度
const bulkDeleteConcurrency = 4

// ErrBulkDeleteBatch 批量删除请求不在 1..MaxBulkDeleteIDs 范围内
var ErrBulkDeleteBatch = errors.New("bulk delete accepts between 1 and 50 ids")

// DeleteResult 单个 id 的删除结果
type DeleteResult struct {
	ID      uint   `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BulkDeleteOutcome 批量删除的聚合结果
type BulkDeleteOutcome struct {
	Requested  int            `json:"requested"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Results    []DeleteResult `json:"results"`
}

// Delete 删除一张图片：先删 blob，最后删数据库行
// 行是图片存在性的权威记录，最后删除保证失败时仍可重试；
// blob 删除失败只记日志，残留对象由对账任务回收。
// 删除期间 id 处于 pending-delete，并发的布局刷新不会把它带回来
func (s *Service) Delete(ctx context.Context, id uint) (*models.Image, error) {
	image, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	removed, index, tracked := s.grid.MarkPendingDelete(id)

	if variantList, err := image.VariantList(); err == nil {
		s.deleteVariantBlobs(ctx, variantList)
	} else {
		utils.LogIfDevf("[Images] Failed to parse variants for image %d: %v", id, err)
	}

	if err := s.repo.Delete(image); err != nil {
		// 行还在：恢复网格镜像里的记录到原位置
		if tracked {
			s.grid.FailDelete(id, removed, index)
		} else {
			s.grid.CompleteDelete(id)
		}
		return nil, err
	}

	s.grid.CompleteDelete(id)
	return image, nil
}

// BulkDelete 并发删除一批图片，任何单个失败不影响其余
// 缓存文档只在最后按成功的 id 做一次全量重写
func (s *Service) BulkDelete(ctx context.Context, ids []uint) (*BulkDeleteOutcome, error) {
	if len(ids) == 0 || len(ids) > MaxBulkDeleteIDs {
		return nil, ErrBulkDeleteBatch
	}

	outcome := &BulkDeleteOutcome{
		Requested: len(ids),
		Results:   make([]DeleteResult, len(ids)),
	}

	var mu sync.Mutex
	var deleted []uint

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkDeleteConcurrency)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if _, err := s.Delete(gctx, id); err != nil {
				outcome.Results[i] = DeleteResult{ID: id, Error: err.Error()}
				return nil
			}
			outcome.Results[i] = DeleteResult{ID: id, Success: true}

			mu.Lock()
			deleted = append(deleted, id)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range outcome.Results {
		if r.Success {
			outcome.Successful++
		} else {
			outcome.Failed++
		}
	}

	if len(deleted) > 0 {
		if err := s.grid.RemoveFromCache(ctx, deleted); err != nil {
			utils.LogIfDevf("[Images] Failed to purge grid cache after bulk delete: %v", err)
		}
	}
	return outcome, nil
}
