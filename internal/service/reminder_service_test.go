package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"selfcare/internal/model"
)

func TestComposeReminders(t *testing.T) {
	const open = `<div class="small_margin_top"><i class="fa fa-bell small_margin_right"></i>`
	tests := []struct {
		name  string
		flags ReminderFlags
		want  string
	}{
		{name: "none", flags: ReminderFlags{}, want: ""},
		{name: "refill only", flags: ReminderFlags{Refill: true}, want: open + "Refill reminder email</div>"},
		{name: "daily only", flags: ReminderFlags{Daily: true}, want: open + "Daily reminder email</div>"},
		{name: "both", flags: ReminderFlags{Refill: true, Daily: true}, want: open + "Refill reminder email, Daily reminder email</div>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeReminders(tt.flags, WebReminderMarkup))
		})
	}
}

func TestComposeRemindersTelegramMarkup(t *testing.T) {
	got := ComposeReminders(FlagsOf(model.Medication{DailyReminderEnabled: true}), TelegramReminderMarkup)
	assert.Equal(t, "🔔 <i>Daily reminder email</i>", got)
}

func TestDoseLine(t *testing.T) {
	assert.Equal(t, "2 tablets, 50 mg", DoseLine(model.Medication{Dosage: "2", DosageUnit: "tablets", Strength: "50", StrengthUnit: "mg"}))
	assert.Equal(t, "50 mg", DoseLine(model.Medication{Strength: "50", StrengthUnit: "mg"}))
	assert.Empty(t, DoseLine(model.Medication{DosageUnit: "tablets"}))
}

func TestDailyDigest(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	user := newTestUser(t, store, 1, "Sam", "")
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	soon := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC)
	past := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	meds := []model.Medication{
		{UserID: user.ID, Name: "Sertraline", Dosage: "1", DosageUnit: "tablet", DailyReminderEnabled: true},
		{UserID: user.ID, Name: "Inhaler", Refill: &soon, RefillReminderEnabled: true},
		{UserID: user.ID, Name: "Drops", Refill: &late, RefillReminderEnabled: true},
		{UserID: user.ID, Name: "Cream", Refill: &past, RefillReminderEnabled: true},
		{UserID: user.ID, Name: "Silent", Refill: &past},
	}
	for i := range meds {
		require.NoError(t, store.Medications.Create(ctx, &meds[i]))
	}

	svc := NewReminderService(store.Medications, 3)
	digest, err := svc.DailyDigest(ctx, *user, now)
	require.NoError(t, err)

	assert.Contains(t, digest, "<b>Take today</b>\n• Sertraline · 1 tablet")
	assert.Contains(t, digest, "• Inhaler · by 2026-03-12")
	assert.Contains(t, digest, "• Cream · overdue since 2026-03-01")
	assert.NotContains(t, digest, "Drops")
	assert.NotContains(t, digest, "Silent")
}

func TestDailyDigestEmpty(t *testing.T) {
	store := newTestStore(t)
	user := newTestUser(t, store, 1, "Sam", "")

	digest, err := NewReminderService(store.Medications, 3).DailyDigest(context.Background(), *user, time.Now())
	require.NoError(t, err)
	assert.Empty(t, digest)
}
