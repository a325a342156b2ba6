package tags

import (
	"github.com/zimablue/zima-blue/database/models"
	"gorm.io/gorm"
)

// Repository 标签仓库
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建标签仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create 保存标签
func (r *Repository) Create(tag *models.Tag) error {
	return r.db.Create(tag).Error
}

// GetByID 通过ID获取标签
func (r *Repository) GetByID(id uint) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.First(&tag, id).Error
	return &tag, err
}

// GetByName 通过名称获取标签
func (r *Repository) GetByName(name string) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.Where("name = ?", name).First(&tag).Error
	return &tag, err
}

// List 按使用次数降序返回所有标签
func (r *Repository) List() ([]*models.Tag, error) {
	var tags []*models.Tag
	err := r.db.Order("usage_count desc, name asc").Find(&tags).Error
	return tags, err
}

// Update 更新标签
func (r *Repository) Update(tag *models.Tag) error {
	return r.db.Save(tag).Error
}

// Delete 删除标签及其图片关联
func (r *Repository) Delete(tag *models.Tag) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM image_tags WHERE tag_id = ?", tag.ID).Error; err != nil {
			return err
		}
		return tx.Delete(tag).Error
	})
}

// GetOrCreateByName 按名称取标签，不存在则新建
func (r *Repository) GetOrCreateByName(name, slug string) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.Where("name = ?", name).First(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	tag = models.Tag{Name: name, Slug: slug}
	if err := r.db.Create(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// RecomputeUsageCount 按关联表重算冗余计数，修正应用层漂移
func (r *Repository) RecomputeUsageCount(tagID uint) error {
	var count int64
	if err := r.db.Table("image_tags").Where("tag_id = ?", tagID).Count(&count).Error; err != nil {
		return err
	}
	return r.db.Model(&models.Tag{}).Where("id = ?", tagID).
		UpdateColumn("usage_count", count).Error
}

// RecomputeAllUsageCounts 重算全部标签计数
func (r *Repository) RecomputeAllUsageCounts() error {
	var ids []uint
	if err := r.db.Model(&models.Tag{}).Pluck("id", &ids).Error; err != nil {
		return err
	}
	for _, id := range ids {
		if err := r.RecomputeUsageCount(id); err != nil {
			return err
		}
	}
	return nil
}

// Count 统计标签总数
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Tag{}).Count(&count).Error
	return count, err
}
