package model

import "time"

const (
	ViewerModeExplicit = "explicit"
	ViewerModeAll      = "all"
)

// Strategy is a self-care technique the user can share with allies.
type Strategy struct {
	ID              uint   `gorm:"primaryKey"`
	UserID          uint   `gorm:"index"`
	Name            string `gorm:"not null"`
	Description     string
	CommentsAllowed bool       `gorm:"default:false"`
	ViewerMode      string     `gorm:"default:explicit"`
	Categories      []Category `gorm:"many2many:strategy_categories;"`
	ViewerUsers     []User     `gorm:"many2many:strategy_viewers;"`
	Comments        []Comment
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Viewers reports the stored viewer selection. ViewerUsers must be preloaded
// for explicit selections.
func (s Strategy) Viewers() ViewerSelection {
	if s.ViewerMode == ViewerModeAll {
		return AllAllies{}
	}
	ids := make([]uint, 0, len(s.ViewerUsers))
	for _, u := range s.ViewerUsers {
		ids = append(ids, u.ID)
	}
	return ExplicitViewers{AllyIDs: ids}
}

// Comment is a note left on a strategy by its owner or one of its viewers.
type Comment struct {
	ID         uint   `gorm:"primaryKey"`
	StrategyID uint   `gorm:"index"`
	UserID     uint   `gorm:"index"`
	User       User   `gorm:"foreignKey:UserID"`
	Body       string `gorm:"not null"`
	CreatedAt  time.Time
}

// ViewerSelection is either AllAllies or ExplicitViewers.
type ViewerSelection interface {
	isViewerSelection()
}

// AllAllies grants visibility to every current and future ally of the owner.
type AllAllies struct{}

// ExplicitViewers grants visibility to a fixed set of allies.
type ExplicitViewers struct {
	AllyIDs []uint
}

func (AllAllies) isViewerSelection()       {}
func (ExplicitViewers) isViewerSelection() {}
