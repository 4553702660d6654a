package models

import (
	"time"
)

// Post represents a blog post. CreatedAt doubles as the publication timestamp
// and is immutable after creation; feeds order by it descending.
type Post struct {
	ID        uint   `gorm:"primaryKey"`
	Title     string `gorm:"size:200;not null"`
	Content   string `gorm:"type:text;not null"`
	UserID    uint   `gorm:"not null;index"`
	User      User   `gorm:"foreignKey:UserID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
