package users

import (
	"github.com/zimablue/zima-blue/database/models"
	"gorm.io/gorm"
)

// Repository 用户仓库
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建用户仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create 保存用户
func (r *Repository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID 通过ID获取用户
func (r *Repository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	return &user, err
}

// GetByUsername 通过用户名获取用户
func (r *Repository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.Where("username = ?", username).First(&user).Error
	return &user, err
}

// Update 更新用户
func (r *Repository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Count 统计用户总数
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
