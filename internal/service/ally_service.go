package service

import (
	"context"

	"selfcare/internal/model"
	"selfcare/internal/repository"
)

// AllyService manages the user-to-user relation strategies are shared over.
type AllyService struct {
	userRepo *repository.UserRepository
}

func NewAllyService(userRepo *repository.UserRepository) *AllyService {
	return &AllyService{userRepo: userRepo}
}

// Add makes the user with the given Telegram username an ally of owner.
// The other user must have signed in at least once.
func (s *AllyService) Add(ctx context.Context, owner *model.User, username string) (*model.User, error) {
	if owner == nil {
		return nil, ErrUnauthorized
	}
	ally, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err)
	}
	if ally.ID == owner.ID {
		return nil, invalid("ally", "can't be yourself")
	}
	if err := s.userRepo.AddAlly(ctx, owner.ID, ally.ID); err != nil {
		return nil, err
	}
	return ally, nil
}

// List returns the owner's allies in the order they were added.
func (s *AllyService) List(ctx context.Context, owner *model.User) ([]model.User, error) {
	if owner == nil {
		return nil, ErrUnauthorized
	}
	return s.userRepo.ListAllies(ctx, owner.ID)
}
