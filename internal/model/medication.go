package model

import "time"

// Medication is a drug the user takes, with optional email-style reminders.
type Medication struct {
	ID                    uint   `gorm:"primaryKey"`
	UserID                uint   `gorm:"index"`
	Name                  string `gorm:"not null"`
	Dosage                string
	DosageUnit            string
	Strength              string
	StrengthUnit          string
	Total                 string
	TotalUnit             string
	Refill                *time.Time
	Comments              string
	RefillReminderEnabled bool `gorm:"default:false"`
	DailyReminderEnabled  bool `gorm:"default:false"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
