package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"selfcare/internal/model"
)

// MedicationRepository handles CRUD for medications.
type MedicationRepository struct {
	db *gorm.DB
}

func NewMedicationRepository(db *gorm.DB) *MedicationRepository {
	return &MedicationRepository{db: db}
}

func (r *MedicationRepository) Create(ctx context.Context, medication *model.Medication) error {
	if err := r.db.WithContext(ctx).Create(medication).Error; err != nil {
		return fmt.Errorf("create medication: %w", err)
	}
	return nil
}

func (r *MedicationRepository) Save(ctx context.Context, medication *model.Medication) error {
	if err := r.db.WithContext(ctx).Save(medication).Error; err != nil {
		return fmt.Errorf("save medication: %w", err)
	}
	return nil
}

func (r *MedicationRepository) FindByID(ctx context.Context, userID, id uint) (*model.Medication, error) {
	var medication model.Medication
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&medication).Error; err != nil {
		return nil, err
	}
	return &medication, nil
}

func (r *MedicationRepository) ListByUser(ctx context.Context, userID uint) ([]model.Medication, error) {
	var medications []model.Medication
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC, id ASC").Find(&medications).Error; err != nil {
		return nil, err
	}
	return medications, nil
}

// ListWithReminders returns the user's medications that have any reminder enabled.
func (r *MedicationRepository) ListWithReminders(ctx context.Context, userID uint) ([]model.Medication, error) {
	var medications []model.Medication
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND (refill_reminder_enabled = ? OR daily_reminder_enabled = ?)", userID, true, true).
		Order("name ASC, id ASC").
		Find(&medications).Error; err != nil {
		return nil, err
	}
	return medications, nil
}

// Delete removes one medication owned by the user and reports how many rows went away.
func (r *MedicationRepository) Delete(ctx context.Context, userID, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Delete(&model.Medication{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete medication: %w", res.Error)
	}
	return res.RowsAffected, nil
}
