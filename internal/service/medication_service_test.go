package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedicationLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newTestUser(t, store, 1, "Sam", "")
	svc := NewMedicationService(store.Medications)
	refill := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	med, err := svc.Create(ctx, owner, MedicationInput{
		Name: " Sertraline ", Dosage: "1", DosageUnit: "tablet",
		Strength: "50", StrengthUnit: "mg", Refill: &refill,
		Reminders: ReminderFlags{Refill: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sertraline", med.Name)
	assert.True(t, med.RefillReminderEnabled)
	assert.False(t, med.DailyReminderEnabled)

	med, err = svc.SetReminders(ctx, owner, med.ID, ReminderFlags{Daily: true})
	require.NoError(t, err)
	assert.Equal(t, ReminderFlags{Daily: true}, FlagsOf(*med))

	updated, err := svc.Update(ctx, owner, med.ID, MedicationInput{Name: "Sertraline", Total: "30", TotalUnit: "tablets"})
	require.NoError(t, err)
	assert.Equal(t, "30", updated.Total)
	assert.Nil(t, updated.Refill)

	loaded, err := svc.Get(ctx, owner, med.ID)
	require.NoError(t, err)
	assert.Equal(t, "tablets", loaded.TotalUnit)

	_, err = svc.Create(ctx, owner, MedicationInput{Name: " "})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestDeleteMedicationRemovesExactlyOne(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	alice := newTestUser(t, store, 1, "Alice", "")
	bob := newTestUser(t, store, 2, "Bob", "")
	svc := NewMedicationService(store.Medications)

	first, err := svc.Create(ctx, alice, MedicationInput{Name: "Sertraline"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, alice, MedicationInput{Name: "Vitamin D"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, MedicationInput{Name: "Sertraline"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, alice, first.ID))

	left, err := svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "Vitamin D", left[0].Name)

	theirs, err := svc.List(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)

	assert.ErrorIs(t, svc.Delete(ctx, alice, first.ID), ErrNotFound)
}

func TestMedicationRequiresOwner(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	alice := newTestUser(t, store, 1, "Alice", "")
	bob := newTestUser(t, store, 2, "Bob", "")
	svc := NewMedicationService(store.Medications)

	med, err := svc.Create(ctx, alice, MedicationInput{Name: "Sertraline"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, nil, med.ID), ErrUnauthorized)
	assert.ErrorIs(t, svc.Delete(ctx, bob, med.ID), ErrNotFound)
	_, err = svc.Get(ctx, bob, med.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.SetReminders(ctx, bob, med.ID, ReminderFlags{Daily: true})
	assert.ErrorIs(t, err, ErrNotFound)

	still, err := svc.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, still, 1)
}

func TestAllyService(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sam := newTestUser(t, store, 1, "Sam", "")
	kim := newTestUser(t, store, 2, "Kim", "")
	svc := NewAllyService(store.Users)

	ally, err := svc.Add(ctx, sam, "@kim")
	require.NoError(t, err)
	assert.Equal(t, kim.ID, ally.ID)

	_, err = svc.Add(ctx, sam, "sam")
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = svc.Add(ctx, sam, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	allies, err := svc.List(ctx, kim)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sam"}, userNames(allies))
}
