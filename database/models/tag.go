package models

import "time"

// Tag 规范化标签
// UsageCount 是关联图片数的冗余计数，由应用代码维护
type Tag struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Description string `json:"description"`
	Color       string `gorm:"size:16" json:"color"`
	UsageCount  int64  `gorm:"default:0;not null" json:"usage_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
