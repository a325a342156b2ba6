package models

import "time"

// Collection 有序的图片分组，可选公开
type Collection struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	Name         string `gorm:"not null" json:"name"`
	Slug         string `gorm:"uniqueIndex;not null" json:"slug"`
	Description  string `json:"description"`
	IsPublic     bool   `gorm:"default:false;not null" json:"is_public"`
	CoverImageID *uint  `json:"cover_image_id,omitempty"`

	StatsViews     int64 `gorm:"default:0;not null" json:"stats_views"`
	StatsDownloads int64 `gorm:"default:0;not null" json:"stats_downloads"`
	StatsLikes     int64 `gorm:"default:0;not null" json:"stats_likes"`

	UserID uint `gorm:"index" json:"user_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CollectionImage 合集与图片的有序关联
// Position 为每个合集内的稠密整数序列，整体重排时全量重写
type CollectionImage struct {
	CollectionID uint `gorm:"primaryKey" json:"collection_id"`
	ImageID      uint `gorm:"primaryKey" json:"image_id"`
	Position     int  `gorm:"not null;index" json:"position"`
}

// TableName 指定表名
func (CollectionImage) TableName() string {
	return "collection_images"
}
