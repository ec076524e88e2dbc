package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"selfcare/internal/metrics"
	"selfcare/internal/model"
	"selfcare/internal/repository"
)

const (
	refillReminderLabel = "Refill reminder email"
	dailyReminderLabel  = "Daily reminder email"
)

// ReminderFlags are the two independent reminder switches of a medication.
type ReminderFlags struct {
	Refill bool
	Daily  bool
}

// FlagsOf extracts the reminder flags of a medication.
func FlagsOf(m model.Medication) ReminderFlags {
	return ReminderFlags{Refill: m.RefillReminderEnabled, Daily: m.DailyReminderEnabled}
}

// ReminderMarkup is the container the reminder labels are wrapped in.
type ReminderMarkup struct {
	Open  string
	Close string
}

var (
	// WebReminderMarkup is the bell icon container of the medication page.
	WebReminderMarkup = ReminderMarkup{
		Open:  `<div class="small_margin_top"><i class="fa fa-bell small_margin_right"></i>`,
		Close: `</div>`,
	}
	// TelegramReminderMarkup renders the same line in Telegram HTML.
	TelegramReminderMarkup = ReminderMarkup{Open: "🔔 <i>", Close: "</i>"}
)

// ComposeReminders returns the enabled reminder labels, refill first, inside a
// single container, or "" when no reminder is enabled.
func ComposeReminders(flags ReminderFlags, markup ReminderMarkup) string {
	labels := make([]string, 0, 2)
	if flags.Refill {
		labels = append(labels, refillReminderLabel)
	}
	if flags.Daily {
		labels = append(labels, dailyReminderLabel)
	}
	if len(labels) == 0 {
		return ""
	}
	return markup.Open + strings.Join(labels, ", ") + markup.Close
}

// ReminderService builds the daily medication digest.
type ReminderService struct {
	medRepo  *repository.MedicationRepository
	leadDays int
}

func NewReminderService(medRepo *repository.MedicationRepository, refillLeadDays int) *ReminderService {
	if refillLeadDays < 0 {
		refillLeadDays = 0
	}
	return &ReminderService{medRepo: medRepo, leadDays: refillLeadDays}
}

// DailyDigest lists medications to take today and refills coming due.
// It returns "" when there is nothing to remind the user about.
func (s *ReminderService) DailyDigest(ctx context.Context, user model.User, now time.Time) (string, error) {
	medications, err := s.medRepo.ListWithReminders(ctx, user.ID)
	if err != nil {
		return "", err
	}

	var daily, refills []model.Medication
	for _, med := range medications {
		if med.DailyReminderEnabled {
			daily = append(daily, med)
		}
		if med.RefillReminderEnabled && s.refillDue(med, now) {
			refills = append(refills, med)
		}
	}
	if len(daily) == 0 && len(refills) == 0 {
		return "", nil
	}

	var builder strings.Builder
	builder.WriteString("💊 <b>Medication reminders</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("2006-01-02")))

	if len(daily) > 0 {
		builder.WriteString("\n<b>Take today</b>\n")
		for _, med := range daily {
			builder.WriteString("• " + html.EscapeString(strings.TrimSpace(med.Name)))
			if dose := DoseLine(med); dose != "" {
				builder.WriteString(" · " + html.EscapeString(dose))
			}
			builder.WriteByte('\n')
		}
	}

	if len(refills) > 0 {
		builder.WriteString("\n<b>Refill soon</b>\n")
		for _, med := range refills {
			refill := med.Refill.In(now.Location())
			status := fmt.Sprintf("by %s", refill.Format("2006-01-02"))
			if dateOnly(refill).Before(dateOnly(now)) {
				status = fmt.Sprintf("overdue since %s", refill.Format("2006-01-02"))
			}
			builder.WriteString(fmt.Sprintf("• %s · %s\n", html.EscapeString(strings.TrimSpace(med.Name)), status))
		}
	}

	metrics.IncReminderDigestSent()
	return strings.TrimSpace(builder.String()), nil
}

func (s *ReminderService) refillDue(med model.Medication, now time.Time) bool {
	if med.Refill == nil {
		return false
	}
	due := dateOnly(med.Refill.In(now.Location()))
	horizon := dateOnly(now).AddDate(0, 0, s.leadDays)
	return !due.After(horizon)
}

// DoseLine joins dosage and strength with their units, e.g. "2 tablets, 50 mg".
func DoseLine(m model.Medication) string {
	parts := make([]string, 0, 2)
	if v := joinUnit(m.Dosage, m.DosageUnit); v != "" {
		parts = append(parts, v)
	}
	if v := joinUnit(m.Strength, m.StrengthUnit); v != "" {
		parts = append(parts, v)
	}
	return strings.Join(parts, ", ")
}

func joinUnit(value, unit string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return strings.TrimSpace(value + " " + strings.TrimSpace(unit))
}

func dateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
