// Package models contains the application's domain models.
package models

import (
	"time"
)

// DefaultImageFile is the placeholder avatar assigned to new accounts. It must
// exist under the static profile_pics directory.
const DefaultImageFile = "default.jpg"

// User represents a registered account.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"size:20;uniqueIndex;not null"`
	Email     string `gorm:"size:120;uniqueIndex;not null"`
	// bcrypt hash, never plaintext; excluded from the cached JSON representation
	Password  string `gorm:"not null" json:"-"`
	ImageFile string `gorm:"size:64;not null;default:default.jpg"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Posts     []Post `gorm:"foreignKey:UserID"`
}

// ImageFileOrDefault returns the stored avatar filename, falling back to the
// placeholder for rows created before the column default existed.
func (u *User) ImageFileOrDefault() string {
	if u.ImageFile == "" {
		return DefaultImageFile
	}
	return u.ImageFile
}
