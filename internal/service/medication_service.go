package service

import (
	"context"
	"strings"
	"time"

	"selfcare/internal/metrics"
	"selfcare/internal/model"
	"selfcare/internal/repository"
)

// MedicationInput represents data required to create or edit a medication.
type MedicationInput struct {
	Name         string
	Dosage       string
	DosageUnit   string
	Strength     string
	StrengthUnit string
	Total        string
	TotalUnit    string
	Refill       *time.Time
	Comments     string
	Reminders    ReminderFlags
}

// MedicationService wraps medication business logic.
type MedicationService struct {
	medRepo *repository.MedicationRepository
}

func NewMedicationService(medRepo *repository.MedicationRepository) *MedicationService {
	return &MedicationService{medRepo: medRepo}
}

func (s *MedicationService) Create(ctx context.Context, owner *model.User, input MedicationInput) (*model.Medication, error) {
	if owner == nil {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, invalid("name", "can't be blank")
	}
	medication := model.Medication{UserID: owner.ID}
	applyMedicationInput(&medication, input)
	if err := s.medRepo.Create(ctx, &medication); err != nil {
		return nil, err
	}
	return &medication, nil
}

func (s *MedicationService) Update(ctx context.Context, owner *model.User, id uint, input MedicationInput) (*model.Medication, error) {
	if owner == nil {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, invalid("name", "can't be blank")
	}
	medication, err := s.medRepo.FindByID(ctx, owner.ID, id)
	if err != nil {
		return nil, notFound(err)
	}
	applyMedicationInput(medication, input)
	if err := s.medRepo.Save(ctx, medication); err != nil {
		return nil, err
	}
	return medication, nil
}

// SetReminders switches the two reminder flags of a medication.
func (s *MedicationService) SetReminders(ctx context.Context, owner *model.User, id uint, flags ReminderFlags) (*model.Medication, error) {
	if owner == nil {
		return nil, ErrUnauthorized
	}
	medication, err := s.medRepo.FindByID(ctx, owner.ID, id)
	if err != nil {
		return nil, notFound(err)
	}
	medication.RefillReminderEnabled = flags.Refill
	medication.DailyReminderEnabled = flags.Daily
	if err := s.medRepo.Save(ctx, medication); err != nil {
		return nil, err
	}
	return medication, nil
}

func (s *MedicationService) Get(ctx context.Context, owner *model.User, id uint) (*model.Medication, error) {
	if owner == nil {
		return nil, ErrUnauthorized
	}
	medication, err := s.medRepo.FindByID(ctx, owner.ID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return medication, nil
}

func (s *MedicationService) List(ctx context.Context, owner *model.User) ([]model.Medication, error) {
	if owner == nil {
		return nil, ErrUnauthorized
	}
	return s.medRepo.ListByUser(ctx, owner.ID)
}

// Delete removes exactly one medication of the owner.
func (s *MedicationService) Delete(ctx context.Context, owner *model.User, id uint) error {
	if owner == nil {
		return ErrUnauthorized
	}
	deleted, err := s.medRepo.Delete(ctx, owner.ID, id)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNotFound
	}
	metrics.IncMedicationDeleted()
	return nil
}

func applyMedicationInput(m *model.Medication, input MedicationInput) {
	m.Name = strings.TrimSpace(input.Name)
	m.Dosage = strings.TrimSpace(input.Dosage)
	m.DosageUnit = strings.TrimSpace(input.DosageUnit)
	m.Strength = strings.TrimSpace(input.Strength)
	m.StrengthUnit = strings.TrimSpace(input.StrengthUnit)
	m.Total = strings.TrimSpace(input.Total)
	m.TotalUnit = strings.TrimSpace(input.TotalUnit)
	m.Refill = input.Refill
	m.Comments = strings.TrimSpace(input.Comments)
	m.RefillReminderEnabled = input.Reminders.Refill
	m.DailyReminderEnabled = input.Reminders.Daily
}
