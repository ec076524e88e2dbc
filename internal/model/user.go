package model

import (
	"strings"
	"time"
)

// User stores Telegram user metadata.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName returns the name shown to other users.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "Unknown"
}

// Ally links a user to one of their allies. Allyship is stored in both
// directions; the row ID preserves the order in which allies were added.
type Ally struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"uniqueIndex:idx_user_ally"`
	AllyID    uint `gorm:"uniqueIndex:idx_user_ally"`
	CreatedAt time.Time
}
