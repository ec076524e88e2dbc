package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"selfcare/internal/model"
)

// CategoryRepository manages strategy categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// FindByOwnerAndName does an exact, case-sensitive lookup within the owner's categories.
func (r *CategoryRepository) FindByOwnerAndName(ctx context.Context, userID uint, name string) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("user_id = ? AND name = ?", userID, name).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// Create inserts a category. A name already used by the same owner fails
// with gorm.ErrDuplicatedKey.
func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) ListByUser(ctx context.Context, userID uint) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, userID, id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *CategoryRepository) Rename(ctx context.Context, category *model.Category, name string) error {
	if err := r.db.WithContext(ctx).Model(category).Update("name", name).Error; err != nil {
		return fmt.Errorf("rename category: %w", err)
	}
	return nil
}

// Delete removes the category and its strategy links. Strategies themselves are kept.
func (r *CategoryRepository) Delete(ctx context.Context, category *model.Category) error {
	if err := r.db.WithContext(ctx).Select("Strategies").Delete(category).Error; err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
