package messages

import (
	"github.com/zimablue/zima-blue/database/models"
	"gorm.io/gorm"
)

// Repository 留言仓库
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建留言仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create 保存留言
func (r *Repository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

// GetByID 通过ID获取留言
func (r *Repository) GetByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.First(&message, id).Error
	return &message, err
}

// List 分页获取留言；unreadOnly 为 true 时仅返回未读
func (r *Repository) List(unreadOnly bool, page, pageSize int) ([]*models.Message, int64, error) {
	var messages []*models.Message
	var total int64

	db := r.db.Model(&models.Message{})
	if unreadOnly {
		db = db.Where("read = ?", false)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	offset := (page - 1) * pageSize
	err := db.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&messages).Error
	return messages, total, err
}

// MarkRead 标记留言为已读
func (r *Repository) MarkRead(id uint) error {
	result := r.db.Model(&models.Message{}).Where("id = ?", id).Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 删除留言
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&models.Message{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountUnread 统计未读留言数
func (r *Repository) CountUnread() (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).Where("read = ?", false).Count(&count).Error
	return count, err
}
