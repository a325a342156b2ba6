package models

import "time"

// Message 联系表单留言
type Message struct {
	ID      uint   `gorm:"primarykey" json:"id"`
	Email   string `gorm:"not null" json:"email"`
	Subject string `gorm:"not null" json:"subject"`
	Body    string `gorm:"type:text" json:"body"`
	Read    bool   `gorm:"default:false;not null" json:"read"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
