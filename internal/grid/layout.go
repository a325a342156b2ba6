package grid

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zimablue/zima-blue/cache"
	"github.com/zimablue/zima-blue/database/models"
	"github.com/zimablue/zima-blue/utils"
)

// LocalPreviewPrefix 本地预览占位的路径前缀（data URL）
// 带此前缀的条目永远不会被持久化到缓存
const LocalPreviewPrefix = "data:"

// LayoutRecord 网格布局文档中的一条占位记录
// 缓存与传输共用同一形状；数据库始终是图片存在性的权威来源
type LayoutRecord struct {
	ID          uint             `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Pathname    string           `json:"pathname"`
	Slug        string           `json:"slug"`
	Variants    []models.Variant `json:"variants"`
	W           int              `json:"w"`
	H           int              `json:"h"`
	X           int              `json:"x"`
	Y           int              `json:"y"`
	I           int              `json:"i"`

	StatsViews     int64 `json:"stats_views"`
	StatsDownloads int64 `json:"stats_downloads"`
	StatsLikes     int64 `json:"stats_likes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `json:"user_id"`

	Tags []*models.Tag `json:"tags,omitempty"`
}

// IsLocalPreview 判断记录是否还持有本地预览路径
func (r *LayoutRecord) IsLocalPreview() bool {
	return strings.HasPrefix(r.Pathname, LocalPreviewPrefix)
}

// RecordFromImage 从数据库行构建布局记录
func RecordFromImage(image *models.Image) LayoutRecord {
	variants, err := image.VariantList()
	if err != nil {
		utils.LogIfDevf("[Grid] Failed to parse variants for image %d: %v", image.ID, err)
	}
	return LayoutRecord{
		ID:             image.ID,
		Name:           image.Name,
		Description:    image.Description,
		Pathname:       image.Pathname,
		Slug:           image.Slug,
		Variants:       variants,
		W:              image.W,
		H:              image.H,
		X:              image.X,
		Y:              image.Y,
		StatsViews:     image.StatsViews,
		StatsDownloads: image.StatsDownloads,
		StatsLikes:     image.StatsLikes,
		CreatedAt:      image.CreatedAt,
		UpdatedAt:      image.UpdatedAt,
		UserID:         image.UserID,
		Tags:           image.Tags,
	}
}

// ExistsFunc 过滤出数据库中真实存在的图片ID
type ExistsFunc func(ids []uint) (map[uint]bool, error)

// Store 网格同步层
// 持有内存布局镜像和 pending-delete 集合，保证后台刷新不会
// 复活一条正在删除中的记录；缓存文档是 last-writer-wins 的
// 便利快照，不是权威状态
type Store struct {
	mu             sync.Mutex
	layout         []LayoutRecord
	pendingDeletes map[uint]struct{}

	cache  cache.Provider
	exists ExistsFunc
}

// NewStore 创建网格同步层
func NewStore(cacheProvider cache.Provider, exists ExistsFunc) *Store {
	return &Store{
		layout:         []LayoutRecord{},
		pendingDeletes: make(map[uint]struct{}),
		cache:          cacheProvider,
		exists:         exists,
	}
}

// Snapshot 返回内存布局的副本
func (s *Store) Snapshot() []LayoutRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]LayoutRecord, len(s.layout))
	copy(out, s.layout)
	return out
}

// ApplySnapshot 应用一份来自服务器或缓存的布局快照
// 任何处于 pending-delete 的 id 会先被滤掉，防止慢速刷新复活已删记录
func (s *Store) ApplySnapshot(records []LayoutRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := records[:0:0]
	for _, r := range records {
		if _, pending := s.pendingDeletes[r.ID]; pending {
			continue
		}
		filtered = append(filtered, r)
	}
	s.layout = filtered
}

// MarkPendingDelete 开始一次删除：id 进入 pending 集合，记录被乐观移除
// 返回被移除的记录与其位置，供失败时回滚
func (s *Store) MarkPendingDelete(id uint) (LayoutRecord, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pendingDeletes[id] = struct{}{}

	for i, r := range s.layout {
		if r.ID == id {
			removed := r
			s.layout = append(s.layout[:i], s.layout[i+1:]...)
			return removed, i, true
		}
	}
	return LayoutRecord{}, -1, false
}

// CompleteDelete 删除确认成功，清除 pending 标记
func (s *Store) CompleteDelete(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pendingDeletes, id)
}

// FailDelete 删除失败，恢复记录到原位置并清除 pending 标记
func (s *Store) FailDelete(id uint, record LayoutRecord, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pendingDeletes, id)

	if index < 0 || index > len(s.layout) {
		index = len(s.layout)
	}
	s.layout = append(s.layout[:index], append([]LayoutRecord{record}, s.layout[index:]...)...)
}

// IsPendingDelete 检查 id 是否处于删除中
func (s *Store) IsPendingDelete(id uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pendingDeletes[id]
	return ok
}

// InsertPlaceholder 乐观插入一条占位记录（本地预览），返回其位置
func (s *Store) InsertPlaceholder(record LayoutRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.layout = append(s.layout, record)
	return len(s.layout) - 1
}

// CommitPlaceholder 上传成功：占位记录原位替换为服务器返回的真实记录
func (s *Store) CommitPlaceholder(index int, record LayoutRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.layout) {
		return false
	}
	s.layout[index] = record
	return true
}

// RemovePlaceholder 上传失败：整条移除占位记录
func (s *Store) RemovePlaceholder(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.layout) {
		return
	}
	s.layout = append(s.layout[:index], s.layout[index+1:]...)
}

// BeginReplace 乐观替换：路径先切到本地预览，返回替换前的路径供回滚
func (s *Store) BeginReplace(id uint, previewPathname string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.layout {
		if s.layout[i].ID == id {
			prior := s.layout[i].Pathname
			s.layout[i].Pathname = previewPathname
			return prior, true
		}
	}
	return "", false
}

// CommitReplace 替换成功：采用服务器返回的路径/变体/slug/时间戳
func (s *Store) CommitReplace(id uint, record LayoutRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.layout {
		if s.layout[i].ID == id {
			s.layout[i].Pathname = record.Pathname
			s.layout[i].Variants = record.Variants
			s.layout[i].Slug = record.Slug
			s.layout[i].UpdatedAt = record.UpdatedAt
			return true
		}
	}
	return false
}

// RollbackReplace 替换失败：路径精确恢复为替换前的值
func (s *Store) RollbackReplace(id uint, priorPathname string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.layout {
		if s.layout[i].ID == id {
			s.layout[i].Pathname = priorPathname
			return true
		}
	}
	return false
}

// LoadFromCache 从缓存加载布局文档并应用到内存布局
// 缓存为空时应用空布局
func (s *Store) LoadFromCache(ctx context.Context) ([]LayoutRecord, error) {
	var records []LayoutRecord
	err := s.cache.Get(ctx, cache.GridLayoutKey(), &records)
	if err != nil && !cache.IsCacheMiss(err) {
		return nil, err
	}
	if records == nil {
		records = []LayoutRecord{}
	}
	s.ApplySnapshot(records)
	return s.Snapshot(), nil
}

// SaveLayout 将内存布局全量持久化到缓存
// 仍持有本地预览路径的条目被滤掉；空布局也会写入，
// 这样删掉最后一张图会清空缓存而不是留下陈旧条目
func (s *Store) SaveLayout(ctx context.Context) error {
	return s.PersistRecords(ctx, s.Snapshot())
}

// PersistRecords 持久化一份布局数组到缓存
// 数据库中不存在的 id 和本地预览条目在写入前被剔除
func (s *Store) PersistRecords(ctx context.Context, records []LayoutRecord) error {
	filtered := make([]LayoutRecord, 0, len(records))

	var ids []uint
	for _, r := range records {
		if !r.IsLocalPreview() {
			ids = append(ids, r.ID)
		}
	}

	existing := map[uint]bool{}
	if s.exists != nil && len(ids) > 0 {
		var err error
		existing, err = s.exists(ids)
		if err != nil {
			return err
		}
	}

	for _, r := range records {
		if r.IsLocalPreview() {
			continue
		}
		if s.exists != nil && !existing[r.ID] {
			continue
		}
		filtered = append(filtered, r)
	}

	return s.cache.Set(ctx, cache.GridLayoutKey(), filtered, 0)
}

// AppendToCache 上传成功后把新记录追加到缓存文档末尾
func (s *Store) AppendToCache(ctx context.Context, record LayoutRecord) error {
	records, err := s.cachedRecords(ctx)
	if err != nil {
		return err
	}

	for _, r := range records {
		if r.ID == record.ID {
			return nil
		}
	}
	records = append(records, record)
	return s.cache.Set(ctx, cache.GridLayoutKey(), records, 0)
}

// RemoveFromCache 从缓存文档中移除指定 id，单次全量重写
func (s *Store) RemoveFromCache(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	records, err := s.cachedRecords(ctx)
	if err != nil {
		return err
	}

	drop := make(map[uint]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	kept := make([]LayoutRecord, 0, len(records))
	for _, r := range records {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	return s.cache.Set(ctx, cache.GridLayoutKey(), kept, 0)
}

// UpdateCachedEntry 更新缓存文档中匹配 id 的条目
func (s *Store) UpdateCachedEntry(ctx context.Context, id uint, mutate func(*LayoutRecord)) error {
	records, err := s.cachedRecords(ctx)
	if err != nil {
		return err
	}

	for i := range records {
		if records[i].ID == id {
			mutate(&records[i])
			break
		}
	}
	return s.cache.Set(ctx, cache.GridLayoutKey(), records, 0)
}

// SortByPlacement 按 (x+y) 投影排序，与数据库默认排序一致
func SortByPlacement(records []LayoutRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		si, sj := records[i].X+records[i].Y, records[j].X+records[j].Y
		if si != sj {
			return si < sj
		}
		return records[i].ID < records[j].ID
	})
}

func (s *Store) cachedRecords(ctx context.Context) ([]LayoutRecord, error) {
	var records []LayoutRecord
	err := s.cache.Get(ctx, cache.GridLayoutKey(), &records)
	if err != nil && !cache.IsCacheMiss(err) {
		return nil, err
	}
	if records == nil {
		records = []LayoutRecord{}
	}
	return records, nil
}
