package model

import "time"

// Category tags strategies. Names are unique per owner and case-sensitive.
type Category struct {
	ID         uint       `gorm:"primaryKey"`
	UserID     uint       `gorm:"uniqueIndex:idx_user_category_name"`
	Name       string     `gorm:"uniqueIndex:idx_user_category_name;not null"`
	Strategies []Strategy `gorm:"many2many:strategy_categories;"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
