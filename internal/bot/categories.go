package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"selfcare/internal/export"
)

// handleNewCategory creates a category right away. Inside the categories step of
// the strategy dialog the new (or existing) category is also selected.
func (b *Bot) handleNewCategory(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.currentUser(ctx, msg.From)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "create the category", err)
	}
	category, created, err := b.svc.Categories.Create(ctx, user, msg.CommandArguments())
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "create the category", err)
	}

	note := fmt.Sprintf("🏷 Category “%s” created.", escape(category.Name))
	if !created {
		note = fmt.Sprintf("🏷 You already have “%s”.", escape(category.Name))
	}

	state := b.getConversation(msg.From.ID)
	if state == nil || state.stage != stageStrategyCategories {
		return b.sendText(msg.Chat.ID, note)
	}
	state.strategy.Categories = addCategoryName(state.strategy.Categories, category.Name)
	if err := b.sendWithReplyMarkup(msg.Chat.ID, note, tgbotapi.NewRemoveKeyboard(false)); err != nil {
		return err
	}
	return b.promptStrategyStage(ctx, msg.Chat.ID, user, state)
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.currentUser(ctx, msg.From)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "list categories", err)
	}
	categories, err := b.svc.Categories.List(ctx, user)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "list categories", err)
	}
	if len(categories) == 0 {
		return b.sendText(msg.Chat.ID, "📂 No categories yet. Create one with /newcategory &lt;name&gt;.")
	}
	var builder strings.Builder
	builder.WriteString("📂 <b>Categories</b>\n\n")
	for _, c := range categories {
		builder.WriteString(fmt.Sprintf("<b>#%d</b> %s\n", c.ID, escape(c.Name)))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleRenameCategory(ctx context.Context, msg *tgbotapi.Message) error {
	rawID, name, _ := strings.Cut(strings.TrimSpace(msg.CommandArguments()), " ")
	id, err := parseID(rawID)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /renamecategory 3 New name")
	}
	user, err := b.currentUser(ctx, msg.From)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "rename the category", err)
	}
	category, err := b.svc.Categories.Rename(ctx, user, id, name)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "rename the category", err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🏷 Renamed to “%s”.", escape(category.Name)))
}

func (b *Bot) handleDeleteCategory(ctx context.Context, msg *tgbotapi.Message, id uint) error {
	user, err := b.currentUser(ctx, msg.From)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "delete the category", err)
	}
	if err := b.svc.Categories.Delete(ctx, user, id); err != nil {
		return b.sendError(ctx, msg.Chat.ID, "delete the category", err)
	}
	return b.sendText(msg.Chat.ID, "🗑 Category deleted. Strategies that used it keep their other categories.")
}

func (b *Bot) handleAddAlly(ctx context.Context, msg *tgbotapi.Message) error {
	username := strings.TrimSpace(msg.CommandArguments())
	if username == "" {
		return b.sendText(msg.Chat.ID, "Usage: /ally @username")
	}
	user, err := b.currentUser(ctx, msg.From)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "add the ally", err)
	}
	ally, err := b.svc.Allies.Add(ctx, user, username)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "add the ally", err)
	}
	zerolog.Ctx(ctx).Info().Uint("user_id", user.ID).Uint("ally_id", ally.ID).Msg("ally added")
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🤝 %s is now your ally.", escape(ally.DisplayName())))
}

func (b *Bot) handleListAllies(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.currentUser(ctx, msg.From)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "list allies", err)
	}
	allies, err := b.svc.Allies.List(ctx, user)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "list allies", err)
	}
	if len(allies) == 0 {
		return b.sendText(msg.Chat.ID, "No allies yet. Add one with /ally @username.")
	}
	names := make([]string, 0, len(allies))
	for _, a := range allies {
		names = append(names, "• "+escape(a.DisplayName()))
	}
	return b.sendText(msg.Chat.ID, "🤝 <b>Allies</b>\n\n"+strings.Join(names, "\n"))
}

func (b *Bot) handleExport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.currentUser(ctx, msg.From)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "export", err)
	}
	medications, err := b.svc.Medications.List(ctx, user)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "export", err)
	}
	strategies, err := b.svc.Strategies.List(ctx, user)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "export", err)
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, medications, strategies); err != nil {
		return b.sendError(ctx, msg.Chat.ID, "export", err)
	}
	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{Name: "selfcare.xlsx", Bytes: buf.Bytes()})
	doc.Caption = "📎 Your medications and strategies."
	_, err = b.api.Send(doc)
	return err
}
