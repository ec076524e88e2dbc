package repository

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"selfcare/internal/model"
)

// sharedWith matches strategies of other owners that @viewer may read.
const sharedWith = `((strategies.viewer_mode = 'all' AND strategies.user_id IN
	(SELECT allies.user_id FROM allies WHERE allies.ally_id = @viewer))
 OR (strategies.viewer_mode = 'explicit' AND strategies.id IN
	(SELECT strategy_viewers.strategy_id FROM strategy_viewers WHERE strategy_viewers.user_id = @viewer)))`

// StrategyRepository handles strategies, their category links, viewers and comments.
type StrategyRepository struct {
	db *gorm.DB
}

func NewStrategyRepository(db *gorm.DB) *StrategyRepository {
	return &StrategyRepository{db: db}
}

// Create inserts the strategy row only; links are written with ReplaceCategories and SetViewers.
func (r *StrategyRepository) Create(ctx context.Context, strategy *model.Strategy) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(strategy).Error; err != nil {
		return fmt.Errorf("create strategy: %w", err)
	}
	return nil
}

func (r *StrategyRepository) Save(ctx context.Context, strategy *model.Strategy) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(strategy).Error; err != nil {
		return fmt.Errorf("save strategy: %w", err)
	}
	return nil
}

// FindByID loads a strategy owned by the user with categories, viewers and comments.
func (r *StrategyRepository) FindByID(ctx context.Context, userID, id uint) (*model.Strategy, error) {
	var strategy model.Strategy
	if err := r.preloaded(ctx).Where("strategies.user_id = ? AND strategies.id = ?", userID, id).First(&strategy).Error; err != nil {
		return nil, err
	}
	return &strategy, nil
}

// FindVisible loads a strategy the viewer owns or has been granted access to.
func (r *StrategyRepository) FindVisible(ctx context.Context, viewerID, id uint) (*model.Strategy, error) {
	var strategy model.Strategy
	if err := r.preloaded(ctx).
		Where("strategies.id = ?", id).
		Where("(strategies.user_id = @viewer OR "+sharedWith+")", sql.Named("viewer", viewerID)).
		First(&strategy).Error; err != nil {
		return nil, err
	}
	return &strategy, nil
}

func (r *StrategyRepository) ListByUser(ctx context.Context, userID uint) ([]model.Strategy, error) {
	var strategies []model.Strategy
	if err := r.db.WithContext(ctx).
		Preload("Categories", byName).
		Where("strategies.user_id = ?", userID).
		Order("strategies.name ASC, strategies.id ASC").
		Find(&strategies).Error; err != nil {
		return nil, err
	}
	return strategies, nil
}

// ListShared returns other owners' strategies visible to the viewer.
func (r *StrategyRepository) ListShared(ctx context.Context, viewerID uint) ([]model.Strategy, error) {
	var strategies []model.Strategy
	if err := r.db.WithContext(ctx).
		Preload("Categories", byName).
		Where("strategies.user_id <> @viewer AND "+sharedWith, sql.Named("viewer", viewerID)).
		Order("strategies.name ASC, strategies.id ASC").
		Find(&strategies).Error; err != nil {
		return nil, err
	}
	return strategies, nil
}

// ReplaceCategories makes categories the exact link set of the strategy.
func (r *StrategyRepository) ReplaceCategories(ctx context.Context, strategy *model.Strategy, categories []model.Category) error {
	assoc := r.db.WithContext(ctx).Model(strategy).Association("Categories")
	var err error
	if len(categories) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(categories)
	}
	if err != nil {
		return fmt.Errorf("replace strategy categories: %w", err)
	}
	strategy.Categories = categories
	return nil
}

// SetViewers stores the viewer mode and replaces the explicit viewer list.
// users must be empty for ViewerModeAll.
func (r *StrategyRepository) SetViewers(ctx context.Context, strategy *model.Strategy, mode string, users []model.User) error {
	db := r.db.WithContext(ctx)
	// A bare model keeps gorm from re-saving the stale preloaded associations.
	if err := db.Model(&model.Strategy{ID: strategy.ID}).Update("viewer_mode", mode).Error; err != nil {
		return fmt.Errorf("update viewer mode: %w", err)
	}
	assoc := db.Model(strategy).Association("ViewerUsers")
	var err error
	if len(users) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(users)
	}
	if err != nil {
		return fmt.Errorf("replace strategy viewers: %w", err)
	}
	strategy.ViewerMode = mode
	strategy.ViewerUsers = users
	return nil
}

// Delete removes the strategy with its comments and link rows. Categories and users are kept.
func (r *StrategyRepository) Delete(ctx context.Context, strategy *model.Strategy) error {
	if err := r.db.WithContext(ctx).Select(clause.Associations).Delete(strategy).Error; err != nil {
		return fmt.Errorf("delete strategy: %w", err)
	}
	return nil
}

func (r *StrategyRepository) AddComment(ctx context.Context, comment *model.Comment) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(comment).Error; err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (r *StrategyRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Categories", byName).
		Preload("ViewerUsers").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("comments.id ASC") }).
		Preload("Comments.User")
}

func byName(db *gorm.DB) *gorm.DB {
	return db.Order("categories.name ASC")
}
