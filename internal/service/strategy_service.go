package service

import (
	"context"
	"strings"

	"selfcare/internal/metrics"
	"selfcare/internal/model"
	"selfcare/internal/repository"
)

// StrategyInput represents one submission of the strategy form.
type StrategyInput struct {
	Name            string
	Description     string
	CommentsAllowed bool
	Categories      []string
	Viewers         model.ViewerSelection
}

// InputFromStrategy prefills a form from a stored strategy.
func InputFromStrategy(strategy model.Strategy) StrategyInput {
	names := make([]string, 0, len(strategy.Categories))
	for _, c := range strategy.Categories {
		names = append(names, c.Name)
	}
	return StrategyInput{
		Name:            strategy.Name,
		Description:     strategy.Description,
		CommentsAllowed: strategy.CommentsAllowed,
		Categories:      names,
		Viewers:         strategy.Viewers(),
	}
}

// StrategyService wraps strategy business logic.
type StrategyService struct {
	store *repository.Store
}

func NewStrategyService(store *repository.Store) *StrategyService {
	return &StrategyService{store: store}
}

// Create stores a new strategy with its categories and viewers as one unit.
func (s *StrategyService) Create(ctx context.Context, owner *model.User, input StrategyInput) (*model.Strategy, error) {
	if owner == nil {
		return nil, ErrUnauthorized
	}
	input, err := normalizeStrategyInput(input)
	if err != nil {
		return nil, err
	}

	var id uint
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		strategy := model.Strategy{
			UserID:          owner.ID,
			Name:            input.Name,
			Description:     input.Description,
			CommentsAllowed: input.CommentsAllowed,
			ViewerMode:      model.ViewerModeExplicit,
		}
		if err := tx.Strategies.Create(ctx, &strategy); err != nil {
			return err
		}
		if err := s.applyInput(ctx, tx, owner.ID, &strategy, input); err != nil {
			return err
		}
		id = strategy.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncStrategySaved("create")
	return s.Get(ctx, owner, id)
}

// Update replaces every field of an existing strategy as one unit.
func (s *StrategyService) Update(ctx context.Context, owner *model.User, id uint, input StrategyInput) (*model.Strategy, error) {
	if owner == nil {
		return nil, ErrUnauthorized
	}
	input, err := normalizeStrategyInput(input)
	if err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		strategy, err := tx.Strategies.FindByID(ctx, owner.ID, id)
		if err != nil {
			return notFound(err)
		}
		strategy.Name = input.Name
		strategy.Description = input.Description
		strategy.CommentsAllowed = input.CommentsAllowed
		if err := tx.Strategies.Save(ctx, strategy); err != nil {
			return err
		}
		return s.applyInput(ctx, tx, owner.ID, strategy, input)
	})
	if err != nil {
		return nil, err
	}
	metrics.IncStrategySaved("update")
	return s.Get(ctx, owner, id)
}

// Get returns a strategy owned by owner.
func (s *StrategyService) Get(ctx context.Context, owner *model.User, id uint) (*model.Strategy, error) {
	if owner == nil {
		return nil, ErrUnauthorized
	}
	strategy, err := s.store.Strategies.FindByID(ctx, owner.ID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return strategy, nil
}

// GetVisible returns a strategy the viewer owns or may read.
func (s *StrategyService) GetVisible(ctx context.Context, viewer *model.User, id uint) (*model.Strategy, error) {
	if viewer == nil {
		return nil, ErrUnauthorized
	}
	strategy, err := s.store.Strategies.FindVisible(ctx, viewer.ID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return strategy, nil
}

func (s *StrategyService) List(ctx context.Context, owner *model.User) ([]model.Strategy, error) {
	if owner == nil {
		return nil, ErrUnauthorized
	}
	return s.store.Strategies.ListByUser(ctx, owner.ID)
}

// ListShared returns strategies other users shared with viewer.
func (s *StrategyService) ListShared(ctx context.Context, viewer *model.User) ([]model.Strategy, error) {
	if viewer == nil {
		return nil, ErrUnauthorized
	}
	return s.store.Strategies.ListShared(ctx, viewer.ID)
}

func (s *StrategyService) Delete(ctx context.Context, owner *model.User, id uint) error {
	if owner == nil {
		return ErrUnauthorized
	}
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		strategy, err := tx.Strategies.FindByID(ctx, owner.ID, id)
		if err != nil {
			return notFound(err)
		}
		return tx.Strategies.Delete(ctx, strategy)
	})
}

// AddComment posts a comment on a strategy the author can read, if the owner allows comments.
func (s *StrategyService) AddComment(ctx context.Context, author *model.User, strategyID uint, body string) (*model.Comment, error) {
	if author == nil {
		return nil, ErrUnauthorized
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, invalid("comment", "can't be blank")
	}
	strategy, err := s.store.Strategies.FindVisible(ctx, author.ID, strategyID)
	if err != nil {
		return nil, notFound(err)
	}
	if !strategy.CommentsAllowed {
		return nil, invalid("comment", "is not allowed on this strategy")
	}
	comment := model.Comment{StrategyID: strategy.ID, UserID: author.ID, Body: body}
	if err := s.store.Strategies.AddComment(ctx, &comment); err != nil {
		return nil, err
	}
	comment.User = *author
	return &comment, nil
}

func (s *StrategyService) applyInput(ctx context.Context, tx *repository.Store, ownerID uint, strategy *model.Strategy, input StrategyInput) error {
	categories, err := resolveCategories(ctx, tx.Categories, ownerID, input.Categories)
	if err != nil {
		return err
	}
	if err := tx.Strategies.ReplaceCategories(ctx, strategy, categories); err != nil {
		return err
	}
	return applyViewers(ctx, tx, ownerID, strategy, input.Viewers)
}

func normalizeStrategyInput(input StrategyInput) (StrategyInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if input.Name == "" {
		return input, invalid("name", "can't be blank")
	}
	if input.Viewers == nil {
		input.Viewers = model.ExplicitViewers{}
	}
	return input, nil
}
