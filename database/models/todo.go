package models

import "time"

// Todo 状态常量
const (
	TodoStatusPending    = "pending"
	TodoStatusInProgress = "in_progress"
	TodoStatusCompleted  = "completed"
)

// Todo 优先级常量
const (
	TodoPriorityLow    = "low"
	TodoPriorityMedium = "medium"
	TodoPriorityHigh   = "high"
)

// IsValidTodoStatus 校验状态取值
func IsValidTodoStatus(status string) bool {
	switch status {
	case TodoStatusPending, TodoStatusInProgress, TodoStatusCompleted:
		return true
	}
	return false
}

// IsValidTodoPriority 校验优先级取值
func IsValidTodoPriority(priority string) bool {
	switch priority {
	case TodoPriorityLow, TodoPriorityMedium, TodoPriorityHigh:
		return true
	}
	return false
}

// Todo 管理端任务
type Todo struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      string     `gorm:"default:pending;size:20;index" json:"status"`
	Priority    string     `gorm:"default:medium;size:20;index" json:"priority"`
	UserID      uint       `gorm:"index" json:"user_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
