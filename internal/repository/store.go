package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one connection or transaction.
type Store struct {
	db          *gorm.DB
	Users       *UserRepository
	Categories  *CategoryRepository
	Medications *MedicationRepository
	Strategies  *StrategyRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Users:       NewUserRepository(db),
		Categories:  NewCategoryRepository(db),
		Medications: NewMedicationRepository(db),
		Strategies:  NewStrategyRepository(db),
	}
}

// Transaction runs fn against a store bound to a single transaction.
// Any error returned by fn rolls back everything fn wrote.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
