package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"selfcare/internal/metrics"
	"selfcare/internal/model"
	"selfcare/internal/repository"
)

const (
	sourceInline      = "inline"
	sourceQuickCreate = "quick_create"
)

// CategoryService resolves, creates and attaches categories.
type CategoryService struct {
	store *repository.Store
}

func NewCategoryService(store *repository.Store) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) List(ctx context.Context, owner *model.User) ([]model.Category, error) {
	if owner == nil {
		return nil, ErrUnauthorized
	}
	return s.store.Categories.ListByUser(ctx, owner.ID)
}

// Create is the quick-create action. It returns the owner's category with that
// name, minting it when missing; created reports whether a new row was written.
func (s *CategoryService) Create(ctx context.Context, owner *model.User, name string) (category *model.Category, created bool, err error) {
	if owner == nil {
		return nil, false, ErrUnauthorized
	}
	name = NormalizeCategoryName(name)
	if name == "" {
		return nil, false, invalid("name", "can't be blank")
	}
	category, created, err = getOrCreate(ctx, s.store.Categories, owner.ID, name)
	if err != nil {
		return nil, false, err
	}
	if created {
		metrics.IncCategoryCreated(sourceQuickCreate)
	}
	return category, created, nil
}

// ResolveAndAttach resolves names against the owner's categories, creating the
// missing ones, and makes the result the strategy's category set.
func (s *CategoryService) ResolveAndAttach(ctx context.Context, owner *model.User, strategyID uint, names []string) ([]model.Category, error) {
	if owner == nil {
		return nil, ErrUnauthorized
	}
	var attached []model.Category
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		strategy, err := tx.Strategies.FindByID(ctx, owner.ID, strategyID)
		if err != nil {
			return notFound(err)
		}
		categories, err := resolveCategories(ctx, tx.Categories, owner.ID, names)
		if err != nil {
			return err
		}
		if err := tx.Strategies.ReplaceCategories(ctx, strategy, categories); err != nil {
			return err
		}
		attached = categories
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attached, nil
}

// Rename changes a category name. Unlike Create, a collision is an error here.
func (s *CategoryService) Rename(ctx context.Context, owner *model.User, id uint, name string) (*model.Category, error) {
	if owner == nil {
		return nil, ErrUnauthorized
	}
	name = NormalizeCategoryName(name)
	if name == "" {
		return nil, invalid("name", "can't be blank")
	}
	category, err := s.store.Categories.FindByID(ctx, owner.ID, id)
	if err != nil {
		return nil, notFound(err)
	}
	if category.Name == name {
		return category, nil
	}
	if err := s.store.Categories.Rename(ctx, category, name); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateCategoryName
		}
		return nil, err
	}
	category.Name = name
	return category, nil
}

// Delete removes a category and unlinks it from strategies.
func (s *CategoryService) Delete(ctx context.Context, owner *model.User, id uint) error {
	if owner == nil {
		return ErrUnauthorized
	}
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		category, err := tx.Categories.FindByID(ctx, owner.ID, id)
		if err != nil {
			return notFound(err)
		}
		return tx.Categories.Delete(ctx, category)
	})
}

// NormalizeCategoryName trims surrounding whitespace. Case is preserved and significant.
func NormalizeCategoryName(name string) string {
	return strings.TrimSpace(name)
}

// resolveCategories maps names to categories in first-seen order, skipping
// blank and repeated names.
func resolveCategories(ctx context.Context, repo *repository.CategoryRepository, ownerID uint, names []string) ([]model.Category, error) {
	seen := make(map[uint]struct{}, len(names))
	categories := make([]model.Category, 0, len(names))
	for _, raw := range names {
		name := NormalizeCategoryName(raw)
		if name == "" {
			continue
		}
		category, created, err := getOrCreate(ctx, repo, ownerID, name)
		if err != nil {
			return nil, err
		}
		if created {
			metrics.IncCategoryCreated(sourceInline)
		}
		if _, dup := seen[category.ID]; dup {
			continue
		}
		seen[category.ID] = struct{}{}
		categories = append(categories, *category)
	}
	return categories, nil
}

// getOrCreate looks the name up and inserts it when missing. A unique-key
// conflict from a concurrent insert falls back to the row that won.
func getOrCreate(ctx context.Context, repo *repository.CategoryRepository, ownerID uint, name string) (*model.Category, bool, error) {
	category, err := repo.FindByOwnerAndName(ctx, ownerID, name)
	switch {
	case err == nil:
		return category, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, fmt.Errorf("find category: %w", err)
	}

	category = &model.Category{UserID: ownerID, Name: name}
	err = repo.Create(ctx, category)
	switch {
	case err == nil:
		return category, true, nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		existing, findErr := repo.FindByOwnerAndName(ctx, ownerID, name)
		if findErr != nil {
			return nil, false, fmt.Errorf("%w: %q", ErrDuplicateCategoryName, name)
		}
		return existing, false, nil
	default:
		return nil, false, err
	}
}
