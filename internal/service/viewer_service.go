package service

import (
	"context"
	"fmt"

	"selfcare/internal/model"
	"selfcare/internal/repository"
)

// ViewerService manages who may read a strategy.
type ViewerService struct {
	store *repository.Store
}

func NewViewerService(store *repository.Store) *ViewerService {
	return &ViewerService{store: store}
}

// SetViewers replaces the strategy's viewer selection. The previous mode's
// data is discarded.
func (s *ViewerService) SetViewers(ctx context.Context, owner *model.User, strategyID uint, selection model.ViewerSelection) error {
	if owner == nil {
		return ErrUnauthorized
	}
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		strategy, err := tx.Strategies.FindByID(ctx, owner.ID, strategyID)
		if err != nil {
			return notFound(err)
		}
		return applyViewers(ctx, tx, owner.ID, strategy, selection)
	})
}

// Viewers lists the users who can read the strategy, ordered by when they
// became allies of the owner. ViewerUsers must be preloaded.
func (s *ViewerService) Viewers(ctx context.Context, strategy *model.Strategy) ([]model.User, error) {
	allies, err := s.store.Users.ListAllies(ctx, strategy.UserID)
	if err != nil {
		return nil, err
	}
	switch sel := strategy.Viewers().(type) {
	case model.AllAllies:
		return allies, nil
	case model.ExplicitViewers:
		wanted := make(map[uint]struct{}, len(sel.AllyIDs))
		for _, id := range sel.AllyIDs {
			wanted[id] = struct{}{}
		}
		viewers := make([]model.User, 0, len(sel.AllyIDs))
		for _, ally := range allies {
			if _, ok := wanted[ally.ID]; ok {
				viewers = append(viewers, ally)
				delete(wanted, ally.ID)
			}
		}
		// Viewers who are no longer allies keep access; list them last.
		for _, u := range strategy.ViewerUsers {
			if _, ok := wanted[u.ID]; ok {
				viewers = append(viewers, u)
			}
		}
		return viewers, nil
	default:
		return nil, fmt.Errorf("unknown viewer selection %T", sel)
	}
}

func applyViewers(ctx context.Context, tx *repository.Store, ownerID uint, strategy *model.Strategy, selection model.ViewerSelection) error {
	switch sel := selection.(type) {
	case model.AllAllies:
		return tx.Strategies.SetViewers(ctx, strategy, model.ViewerModeAll, nil)
	case model.ExplicitViewers:
		users, err := selectAllies(ctx, tx.Users, ownerID, sel.AllyIDs)
		if err != nil {
			return err
		}
		return tx.Strategies.SetViewers(ctx, strategy, model.ViewerModeExplicit, users)
	case nil:
		return invalid("viewers", "must be selected")
	default:
		return fmt.Errorf("unknown viewer selection %T", selection)
	}
}

// selectAllies returns the requested allies in ally order and rejects anyone
// who is not an ally of the owner.
func selectAllies(ctx context.Context, users *repository.UserRepository, ownerID uint, ids []uint) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	allies, err := users.ListAllies(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	wanted := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	selected := make([]model.User, 0, len(wanted))
	for _, ally := range allies {
		if _, ok := wanted[ally.ID]; ok {
			selected = append(selected, ally)
			delete(wanted, ally.ID)
		}
	}
	if len(wanted) > 0 {
		return nil, invalid("viewers", "must be your allies")
	}
	return selected, nil
}
