package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"selfcare/internal/model"
	"selfcare/internal/service"
)

func (b *Bot) startNewMedication(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.currentUser(ctx, msg.From); err != nil {
		return b.sendError(ctx, msg.Chat.ID, "add a medication", err)
	}
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageMedicationName})
	return b.sendWithReplyMarkup(msg.Chat.ID, "💊 New medication.\n<b>Step 1:</b> what is it called?", cancelKeyboard())
}

func (b *Bot) handleMedicationStage(ctx context.Context, chatID int64, user *model.User, state *conversationState, text string) error {
	switch state.stage {
	case stageMedicationName:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "The name can't be blank. What is the medication called?", cancelKeyboard())
		}
		state.medication.Name = text
		state.stage = stageMedicationDosage
		return b.sendWithReplyMarkup(chatID, "<b>Step 2:</b> dosage per intake, e.g. <code>1 tablet</code> (or Skip).", skipKeyboard())
	case stageMedicationDosage:
		if !isSkipInput(text) {
			state.medication.Dosage, state.medication.DosageUnit = splitQuantity(text)
		}
		state.stage = stageMedicationStrength
		return b.sendWithReplyMarkup(chatID, "<b>Step 3:</b> strength, e.g. <code>50 mg</code> (or Skip).", skipKeyboard())
	case stageMedicationStrength:
		if !isSkipInput(text) {
			state.medication.Strength, state.medication.StrengthUnit = splitQuantity(text)
		}
		state.stage = stageMedicationRefill
		return b.sendWithReplyMarkup(chatID, "<b>Step 4:</b> next refill date as YYYY-MM-DD (or Skip).", skipKeyboard())
	case stageMedicationRefill:
		if !isSkipInput(text) {
			refill, err := time.ParseInLocation(dateLayout, text, b.location)
			if err != nil {
				return b.sendWithReplyMarkup(chatID, "I couldn't read that date. Use YYYY-MM-DD, e.g. 2024-05-31.", skipKeyboard())
			}
			state.medication.Refill = &refill
		}
		state.stage = stageMedicationRefillReminder
		return b.sendWithReplyMarkup(chatID, "🔔 Remind you before the refill date?", yesNoKeyboard())
	case stageMedicationRefillReminder:
		enabled, ok := parseYesNo(text)
		if !ok {
			return b.sendWithReplyMarkup(chatID, "Tap Yes or No.", yesNoKeyboard())
		}
		state.medication.Reminders.Refill = enabled
		state.stage = stageMedicationDailyReminder
		return b.sendWithReplyMarkup(chatID, "🔔 Send a daily reminder to take it?", yesNoKeyboard())
	case stageMedicationDailyReminder:
		enabled, ok := parseYesNo(text)
		if !ok {
			return b.sendWithReplyMarkup(chatID, "Tap Yes or No.", yesNoKeyboard())
		}
		state.medication.Reminders.Daily = enabled
		return b.submitMedication(ctx, chatID, user, state)
	default:
		b.clearConversation(user.TelegramID)
		return b.sendText(chatID, "The dialog was reset. Start again with /newmed.")
	}
}

func (b *Bot) submitMedication(ctx context.Context, chatID int64, user *model.User, state *conversationState) error {
	b.clearConversation(user.TelegramID)
	medication, err := b.svc.Medications.Create(ctx, user, state.medication)
	if err != nil {
		return b.sendError(ctx, chatID, "save the medication", err)
	}
	zerolog.Ctx(ctx).Info().Uint("medication_id", medication.ID).Uint("user_id", user.ID).Msg("medication created")
	return b.sendMedication(chatID, medication)
}

func (b *Bot) handleListMedications(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.currentUser(ctx, msg.From)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "list medications", err)
	}
	medications, err := b.svc.Medications.List(ctx, user)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "list medications", err)
	}
	if len(medications) == 0 {
		return b.sendText(msg.Chat.ID, "💊 No medications yet. Add one with /newmed.")
	}

	var builder strings.Builder
	builder.WriteString("💊 <b>Medications</b>\n\n")
	buttons := make([][]tgbotapi.InlineKeyboardButton, 0, len(medications))
	for _, m := range medications {
		builder.WriteString(fmt.Sprintf("<b>#%d</b> %s", m.ID, escape(m.Name)))
		if dose := service.DoseLine(m); dose != "" {
			builder.WriteString(" · " + escape(dose))
		}
		builder.WriteString("\n")
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("#%d · %s", m.ID, shortTitle(m.Name, 24)), fmt.Sprintf("%s%d", cbMedicationPrefix, m.ID)),
		))
	}
	return b.sendWithReplyMarkup(msg.Chat.ID, strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

func (b *Bot) handleShowMedication(ctx context.Context, chatID int64, from *tgbotapi.User, id uint) error {
	user, err := b.currentUser(ctx, from)
	if err != nil {
		return b.sendError(ctx, chatID, "show the medication", err)
	}
	medication, err := b.svc.Medications.Get(ctx, user, id)
	if err != nil {
		return b.sendError(ctx, chatID, "show the medication", err)
	}
	return b.sendMedication(chatID, medication)
}

func (b *Bot) sendMedication(chatID int64, medication *model.Medication) error {
	refillLabel := "🔔 Refill reminder: off"
	if medication.RefillReminderEnabled {
		refillLabel = "🔕 Refill reminder: on"
	}
	dailyLabel := "🔔 Daily reminder: off"
	if medication.DailyReminderEnabled {
		dailyLabel = "🔕 Daily reminder: on"
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(refillLabel, fmt.Sprintf("%s%d", cbRefillTogglePrefix, medication.ID))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(dailyLabel, fmt.Sprintf("%s%d", cbDailyTogglePrefix, medication.ID))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", fmt.Sprintf("%s%d", cbMedicationDelPrefix, medication.ID))),
	)
	return b.sendWithReplyMarkup(chatID, formatMedication(*medication), markup)
}

func (b *Bot) toggleReminder(ctx context.Context, chatID int64, from *tgbotapi.User, id uint, refill bool) error {
	user, err := b.currentUser(ctx, from)
	if err != nil {
		return b.sendError(ctx, chatID, "change the reminder", err)
	}
	medication, err := b.svc.Medications.Get(ctx, user, id)
	if err != nil {
		return b.sendError(ctx, chatID, "change the reminder", err)
	}
	flags := service.FlagsOf(*medication)
	if refill {
		flags.Refill = !flags.Refill
	} else {
		flags.Daily = !flags.Daily
	}
	medication, err = b.svc.Medications.SetReminders(ctx, user, id, flags)
	if err != nil {
		return b.sendError(ctx, chatID, "change the reminder", err)
	}
	return b.sendMedication(chatID, medication)
}

func (b *Bot) askDeleteMedication(ctx context.Context, chatID int64, from *tgbotapi.User, id uint) error {
	user, err := b.currentUser(ctx, from)
	if err != nil {
		return b.sendError(ctx, chatID, "delete the medication", err)
	}
	medication, err := b.svc.Medications.Get(ctx, user, id)
	if err != nil {
		return b.sendError(ctx, chatID, "delete the medication", err)
	}
	b.setConfirmation(from.ID, confirmationRequest{id: medication.ID, action: actionDeleteMedication})
	return b.sendWithReplyMarkup(chatID, fmt.Sprintf("Delete medication “%s” (#%d)?", escape(medication.Name), medication.ID), confirmKeyboard())
}

func (b *Bot) deleteMedication(ctx context.Context, chatID int64, from *tgbotapi.User, id uint) error {
	user, err := b.currentUser(ctx, from)
	if err != nil {
		return b.sendError(ctx, chatID, "delete the medication", err)
	}
	if err := b.svc.Medications.Delete(ctx, user, id); err != nil {
		return b.sendError(ctx, chatID, "delete the medication", err)
	}
	zerolog.Ctx(ctx).Info().Uint("medication_id", id).Uint("user_id", user.ID).Msg("medication deleted")
	return b.sendText(chatID, "🗑 Medication deleted.")
}

// splitQuantity splits "50 mg" into its amount and unit.
func splitQuantity(text string) (string, string) {
	amount, unit, _ := strings.Cut(strings.TrimSpace(text), " ")
	return amount, strings.TrimSpace(unit)
}
