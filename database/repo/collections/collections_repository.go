package collections

import (
	"github.com/zimablue/zima-blue/database/models"
	"gorm.io/gorm"
)

// Repository 合集仓库
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建合集仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create 保存合集
func (r *Repository) Create(collection *models.Collection) error {
	return r.db.Create(collection).Error
}

// GetByID 通过ID获取合集
func (r *Repository) GetByID(id uint) (*models.Collection, error) {
	var collection models.Collection
	err := r.db.First(&collection, id).Error
	return &collection, err
}

// GetBySlug 通过 slug 获取合集
func (r *Repository) GetBySlug(slug string) (*models.Collection, error) {
	var collection models.Collection
	err := r.db.Where("slug = ?", slug).First(&collection).Error
	return &collection, err
}

// List 获取合集列表；publicOnly 为 true 时仅返回公开合集
func (r *Repository) List(publicOnly bool) ([]*models.Collection, error) {
	var collections []*models.Collection
	db := r.db.Order("created_at desc")
	if publicOnly {
		db = db.Where("is_public = ?", true)
	}
	err := db.Find(&collections).Error
	return collections, err
}

// Update 更新合集
func (r *Repository) Update(collection *models.Collection) error {
	return r.db.Save(collection).Error
}

// Delete 删除合集及其图片关联
func (r *Repository) Delete(collection *models.Collection) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection_id = ?", collection.ID).Delete(&models.CollectionImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(collection).Error
	})
}

// SlugExists 检查 slug 是否已被占用
func (r *Repository) SlugExists(slug string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Collection{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// ImageIDs 按位置顺序返回合集内的图片ID
func (r *Repository) ImageIDs(collectionID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.CollectionImage{}).
		Where("collection_id = ?", collectionID).
		Order("position asc").
		Pluck("image_id", &ids).Error
	return ids, err
}

// AddImages 将图片追加到合集末尾，位置保持稠密
func (r *Repository) AddImages(collectionID uint, imageIDs []uint) error {
	if len(imageIDs) == 0 {
		return nil
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var maxPos int
		row := tx.Model(&models.CollectionImage{}).
			Where("collection_id = ?", collectionID).
			Select("COALESCE(MAX(position), -1)").Row()
		if err := row.Scan(&maxPos); err != nil {
			return err
		}

		for i, imageID := range imageIDs {
			entry := models.CollectionImage{
				CollectionID: collectionID,
				ImageID:      imageID,
				Position:     maxPos + 1 + i,
			}
			if err := tx.Where(&models.CollectionImage{CollectionID: collectionID, ImageID: imageID}).
				FirstOrCreate(&entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveImage 从合集移除一张图片并压实位置序列
func (r *Repository) RemoveImage(collectionID, imageID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("collection_id = ? AND image_id = ?", collectionID, imageID).
			Delete(&models.CollectionImage{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return compactPositions(tx, collectionID)
	})
}

// Reorder 以给定顺序整体重排合集，位置重新赋为稠密序列
func (r *Repository) Reorder(collectionID uint, orderedImageIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for position, imageID := range orderedImageIDs {
			result := tx.Model(&models.CollectionImage{}).
				Where("collection_id = ? AND image_id = ?", collectionID, imageID).
				Update("position", position)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}

// IncrementCounter 原子自增统计列
func (r *Repository) IncrementCounter(id uint, column string) error {
	result := r.db.Model(&models.Collection{}).Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Count 统计合集总数
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Collection{}).Count(&count).Error
	return count, err
}

// compactPositions 将位置序列重新压实为 0..n-1
func compactPositions(tx *gorm.DB, collectionID uint) error {
	var entries []models.CollectionImage
	if err := tx.Where("collection_id = ?", collectionID).
		Order("position asc").Find(&entries).Error; err != nil {
		return err
	}

	for i := range entries {
		if entries[i].Position == i {
			continue
		}
		if err := tx.Model(&models.CollectionImage{}).
			Where("collection_id = ? AND image_id = ?", collectionID, entries[i].ImageID).
			Update("position", i).Error; err != nil {
			return err
		}
	}
	return nil
}
