package todos

import (
	"github.com/zimablue/zima-blue/database/models"
	"gorm.io/gorm"
)

// Repository 任务仓库
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建任务仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create 保存任务
func (r *Repository) Create(todo *models.Todo) error {
	return r.db.Create(todo).Error
}

// GetByID 通过ID获取任务
func (r *Repository) GetByID(id uint) (*models.Todo, error) {
	var todo models.Todo
	err := r.db.First(&todo, id).Error
	return &todo, err
}

// List 获取任务列表，可按状态过滤，高优先级在前
func (r *Repository) List(status string) ([]*models.Todo, error) {
	var todos []*models.Todo
	db := r.db.Model(&models.Todo{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	err := db.Order(
		"CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, due_date asc",
	).Find(&todos).Error
	return todos, err
}

// Update 更新任务
func (r *Repository) Update(todo *models.Todo) error {
	return r.db.Save(todo).Error
}

// Delete 删除任务
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&models.Todo{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountByStatus 按状态统计任务数
func (r *Repository) CountByStatus() (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.Model(&models.Todo{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
