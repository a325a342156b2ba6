package images

import (
	"github.com/zimablue/zima-blue/database/models"
	"gorm.io/gorm"
)

// 可自增的计数器列
const (
	CounterViews     = "stats_views"
	CounterDownloads = "stats_downloads"
	CounterLikes     = "stats_likes"
)

// Repository 图片仓库
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建新的图片仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create 保存图片
func (r *Repository) Create(image *models.Image) error {
	return r.db.Create(image).Error
}

// GetByID 通过ID获取图片
func (r *Repository) GetByID(id uint) (*models.Image, error) {
	var image models.Image
	err := r.db.Preload("Tags").First(&image, id).Error
	return &image, err
}

// GetBySlug 通过 slug 获取图片
func (r *Repository) GetBySlug(slug string) (*models.Image, error) {
	var image models.Image
	err := r.db.Preload("Tags").Where("slug = ?", slug).First(&image).Error
	return &image, err
}

// GetByIDs 批量获取图片
func (r *Repository) GetByIDs(ids []uint) ([]*models.Image, error) {
	if len(ids) == 0 {
		return []*models.Image{}, nil
	}
	var images []*models.Image
	err := r.db.Where("id IN ?", ids).Find(&images).Error
	return images, err
}

// List 分页获取图片列表，默认按 (x+y) 投影排序
func (r *Repository) List(search string, page, pageSize int) ([]*models.Image, int64, error) {
	var images []*models.Image
	var total int64

	db := r.db.Model(&models.Image{})
	if search != "" {
		like := "%" + search + "%"
		db = db.Where("name LIKE ? OR description LIKE ? OR slug LIKE ?", like, like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	offset := (page - 1) * pageSize
	err := db.Preload("Tags").
		Order("sum asc, sum_abs asc, id asc").
		Offset(offset).Limit(pageSize).
		Find(&images).Error
	return images, total, err
}

// Update 全量更新图片
func (r *Repository) Update(image *models.Image) error {
	return r.db.Save(image).Error
}

// UpdateFields 部分更新图片
func (r *Repository) UpdateFields(id uint, updates map[string]interface{}) (*models.Image, error) {
	result := r.db.Model(&models.Image{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var image models.Image
	err := r.db.First(&image, id).Error
	return &image, err
}

// UpdatePlacement 更新网格占位并同步派生排序列
// map 更新不会触发模型钩子，派生列在这里一并写入
func (r *Repository) UpdatePlacement(id uint, x, y, w, h int) error {
	result := r.db.Model(&models.Image{}).Where("id = ?", id).Updates(map[string]interface{}{
		"x":       x,
		"y":       y,
		"w":       w,
		"h":       h,
		"sum":     x + y,
		"sum_abs": absInt(x) + absInt(y),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Delete 删除图片及其标签关联
func (r *Repository) Delete(image *models.Image) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(image).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Where("image_id = ?", image.ID).Delete(&models.CollectionImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(image).Error
	})
}

// SlugExists 检查 slug 是否已被占用
func (r *Repository) SlugExists(slug string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Image{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// PathnameExists 检查存储前缀是否已被占用
func (r *Repository) PathnameExists(pathname string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Image{}).Where("pathname = ?", pathname).Count(&count).Error
	return count > 0, err
}

// ExistingIDs 过滤出数据库中真实存在的图片ID
func (r *Repository) ExistingIDs(ids []uint) (map[uint]bool, error) {
	existing := make(map[uint]bool, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	var found []uint
	err := r.db.Model(&models.Image{}).Where("id IN ?", ids).Pluck("id", &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

// IncrementCounter 原子自增统计列
func (r *Repository) IncrementCounter(id uint, column string) error {
	result := r.db.Model(&models.Image{}).Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReplaceTags 重建图片的标签关联
func (r *Repository) ReplaceTags(image *models.Image, tags []*models.Tag) error {
	return r.db.Model(image).Association("Tags").Replace(tags)
}

// Count 统计图片总数
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Image{}).Count(&count).Error
	return count, err
}

// Recent 最近上传的图片
func (r *Repository) Recent(limit int) ([]*models.Image, error) {
	var images []*models.Image
	err := r.db.Order("created_at desc").Limit(limit).Find(&images).Error
	return images, err
}

// All 全量图片（regenerate/reconcile 用）
func (r *Repository) All() ([]*models.Image, error) {
	var images []*models.Image
	err := r.db.Find(&images).Error
	return images, err
}
