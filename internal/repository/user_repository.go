package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"selfcare/internal/model"
)

// UserRepository handles CRUD for users and their allies.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertFromTelegram finds or creates a user based on TelegramID and updates basic profile info.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"first_name": firstName,
			"last_name":  lastName,
			"username":   username,
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{
			TelegramID: telegramID,
			FirstName:  firstName,
			LastName:   lastName,
			Username:   username,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername matches a Telegram username, with or without the leading @.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// AddAlly records a mutual allyship. Existing pairs are left untouched.
func (r *UserRepository) AddAlly(ctx context.Context, userID, allyID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, pair := range [][2]uint{{userID, allyID}, {allyID, userID}} {
			row := model.Ally{UserID: pair[0], AllyID: pair[1]}
			if err := tx.Where("user_id = ? AND ally_id = ?", pair[0], pair[1]).FirstOrCreate(&row).Error; err != nil {
				return fmt.Errorf("add ally: %w", err)
			}
		}
		return nil
	})
}

// ListAllies returns the user's allies in the order they were added.
func (r *UserRepository) ListAllies(ctx context.Context, userID uint) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).
		Joins("JOIN allies ON allies.ally_id = users.id").
		Where("allies.user_id = ?", userID).
		Order("allies.id ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) IsAlly(ctx context.Context, userID, allyID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Ally{}).
		Where("user_id = ? AND ally_id = ?", userID, allyID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
