package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"selfcare/internal/model"
	"selfcare/internal/service"
)

func (b *Bot) startNewStrategy(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.currentUser(ctx, msg.From)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "start a strategy", err)
	}
	b.clearConfirmation(msg.From.ID)
	state := &conversationState{
		stage:    stageStrategyName,
		strategy: service.StrategyInput{Viewers: model.ExplicitViewers{}},
	}
	b.setConversation(msg.From.ID, state)
	zerolog.Ctx(ctx).Info().Uint("user_id", user.ID).Msg("start new strategy conversation")
	return b.promptStrategyStage(ctx, msg.Chat.ID, user, state)
}

func (b *Bot) startEditStrategy(ctx context.Context, msg *tgbotapi.Message, id uint) error {
	user, err := b.currentUser(ctx, msg.From)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "edit the strategy", err)
	}
	strategy, err := b.svc.Strategies.Get(ctx, user, id)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "edit the strategy", err)
	}
	b.clearConfirmation(msg.From.ID)
	state := &conversationState{
		stage:     stageStrategyReview,
		strategy:  service.InputFromStrategy(*strategy),
		editingID: strategy.ID,
	}
	b.setConversation(msg.From.ID, state)
	return b.promptStrategyStage(ctx, msg.Chat.ID, user, state)
}

func (b *Bot) handleStrategyStage(ctx context.Context, chatID int64, user *model.User, state *conversationState, text string) error {
	switch state.stage {
	case stageStrategyName:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "The name can't be blank. What is the strategy called?", cancelKeyboard())
		}
		state.strategy.Name = text
		return b.advanceStrategy(ctx, chatID, user, state, stageStrategyCategories)
	case stageStrategyCategories:
		switch text {
		case btnDone:
			return b.advanceStrategy(ctx, chatID, user, state, stageStrategyViewers)
		case btnClear:
			state.strategy.Categories = nil
		default:
			for _, name := range strings.Split(text, ",") {
				state.strategy.Categories = addCategoryName(state.strategy.Categories, name)
			}
		}
		return b.promptStrategyStage(ctx, chatID, user, state)
	case stageStrategyViewers:
		switch text {
		case btnDone:
			return b.advanceStrategy(ctx, chatID, user, state, stageStrategyComments)
		case btnAllAllies:
			state.strategy.Viewers = model.AllAllies{}
		default:
			allies, err := b.svc.Allies.List(ctx, user)
			if err != nil {
				return b.sendError(ctx, chatID, "load your allies", err)
			}
			ally := findAlly(allies, strings.TrimPrefix(text, allyButtonPrefix))
			if ally == nil {
				return b.sendWithReplyMarkup(chatID, "Pick an ally from the keyboard or tap Done.", viewersKeyboard(allies))
			}
			state.strategy.Viewers = toggleViewer(state.strategy.Viewers, ally.ID)
		}
		return b.promptStrategyStage(ctx, chatID, user, state)
	case stageStrategyComments:
		allowed, ok := parseYesNo(text)
		if !ok {
			return b.sendWithReplyMarkup(chatID, "Tap Yes or No.", yesNoKeyboard())
		}
		state.strategy.CommentsAllowed = allowed
		return b.advanceStrategy(ctx, chatID, user, state, stageStrategyDescription)
	case stageStrategyDescription:
		if !isSkipInput(text) {
			state.strategy.Description = text
		}
		return b.advanceStrategy(ctx, chatID, user, state, stageNone)
	case stageStrategyReview:
		switch text {
		case btnSave:
			return b.submitStrategy(ctx, chatID, user, state)
		case fieldName:
			state.stage = stageStrategyName
		case fieldCategories:
			state.stage = stageStrategyCategories
		case fieldViewers:
			state.stage = stageStrategyViewers
		case fieldComments:
			state.stage = stageStrategyComments
		case fieldDescription:
			state.stage = stageStrategyDescription
		}
		return b.promptStrategyStage(ctx, chatID, user, state)
	default:
		b.clearConversation(user.TelegramID)
		return b.sendText(chatID, "The dialog was reset. Start again with /newstrategy.")
	}
}

// advanceStrategy moves to the next step of a new strategy. Edits go back to
// the review menu after every field; stageNone submits.
func (b *Bot) advanceStrategy(ctx context.Context, chatID int64, user *model.User, state *conversationState, next conversationStage) error {
	switch {
	case state.editingID != 0 || state.reviewing:
		state.stage = stageStrategyReview
	case next == stageNone:
		return b.submitStrategy(ctx, chatID, user, state)
	default:
		state.stage = next
	}
	return b.promptStrategyStage(ctx, chatID, user, state)
}

func (b *Bot) promptStrategyStage(ctx context.Context, chatID int64, user *model.User, state *conversationState) error {
	switch state.stage {
	case stageStrategyName:
		text := "🆕 New strategy.\n<b>Step 1:</b> what is it called?"
		if state.strategy.Name != "" {
			text = fmt.Sprintf("✏️ Current name: <b>%s</b>\nSend the new name.", escape(state.strategy.Name))
		}
		return b.sendWithReplyMarkup(chatID, text, cancelKeyboard())
	case stageStrategyCategories:
		categories, err := b.svc.Categories.List(ctx, user)
		if err != nil {
			return b.sendError(ctx, chatID, "load your categories", err)
		}
		text := "🏷 <b>Categories</b>\nType a category name, new or existing (several separated by commas), " +
			"or tap one below. Create one right away with /newcategory &lt;name&gt;.\n\n<b>Selected:</b> " +
			escape(listOrNone(state.strategy.Categories))
		return b.sendWithReplyMarkup(chatID, text, categoriesKeyboard(unselectedNames(categories, state.strategy.Categories)))
	case stageStrategyViewers:
		allies, err := b.svc.Allies.List(ctx, user)
		if err != nil {
			return b.sendError(ctx, chatID, "load your allies", err)
		}
		text := "👀 <b>Viewers</b>\nWho can see this strategy? Tap “All allies” or pick allies one by one.\n\n<b>Current:</b> " +
			escape(describeSelection(state.strategy.Viewers, allies))
		return b.sendWithReplyMarkup(chatID, text, viewersKeyboard(allies))
	case stageStrategyComments:
		return b.sendWithReplyMarkup(chatID, "💬 Allow comments on this strategy?", yesNoKeyboard())
	case stageStrategyDescription:
		return b.sendWithReplyMarkup(chatID, "📝 Describe the strategy (or tap Skip).", skipKeyboard())
	case stageStrategyReview:
		allies, err := b.svc.Allies.List(ctx, user)
		if err != nil {
			return b.sendError(ctx, chatID, "load your allies", err)
		}
		return b.sendWithReplyMarkup(chatID, formatStrategyDraft(state.strategy, allies), reviewKeyboard())
	default:
		return nil
	}
}

func (b *Bot) submitStrategy(ctx context.Context, chatID int64, user *model.User, state *conversationState) error {
	var (
		strategy *model.Strategy
		err      error
	)
	if state.editingID != 0 {
		strategy, err = b.svc.Strategies.Update(ctx, user, state.editingID, state.strategy)
	} else {
		strategy, err = b.svc.Strategies.Create(ctx, user, state.strategy)
	}
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			// Keep the draft so the user can fix the field and save again.
			state.reviewing = true
			state.stage = stageStrategyReview
			if sendErr := b.sendError(ctx, chatID, "save the strategy", err); sendErr != nil {
				return sendErr
			}
			return b.promptStrategyStage(ctx, chatID, user, state)
		}
		b.clearConversation(user.TelegramID)
		return b.sendError(ctx, chatID, "save the strategy", err)
	}

	b.clearConversation(user.TelegramID)
	zerolog.Ctx(ctx).Info().Uint("strategy_id", strategy.ID).Uint("user_id", user.ID).
		Int("categories", len(strategy.Categories)).Msg("strategy saved")
	return b.sendStrategy(ctx, chatID, user, strategy)
}

func (b *Bot) handleShowStrategy(ctx context.Context, chatID int64, from *tgbotapi.User, id uint) error {
	user, err := b.currentUser(ctx, from)
	if err != nil {
		return b.sendError(ctx, chatID, "show the strategy", err)
	}
	strategy, err := b.svc.Strategies.GetVisible(ctx, user, id)
	if err != nil {
		return b.sendError(ctx, chatID, "show the strategy", err)
	}
	return b.sendStrategy(ctx, chatID, user, strategy)
}

func (b *Bot) sendStrategy(ctx context.Context, chatID int64, user *model.User, strategy *model.Strategy) error {
	owned := strategy.UserID == user.ID
	var viewers []model.User
	if owned {
		var err error
		viewers, err = b.svc.Viewers.Viewers(ctx, strategy)
		if err != nil {
			return b.sendError(ctx, chatID, "show the strategy", err)
		}
	}
	text := formatStrategy(*strategy, viewers, owned, b.location)
	if !owned {
		return b.sendText(chatID, text)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", fmt.Sprintf("%s%d", cbStrategyDeletePrefix, strategy.ID)),
	))
	return b.sendWithReplyMarkup(chatID, text, markup)
}

func (b *Bot) handleListStrategies(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.currentUser(ctx, msg.From)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "list strategies", err)
	}
	strategies, err := b.svc.Strategies.List(ctx, user)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "list strategies", err)
	}
	if len(strategies) == 0 {
		return b.sendText(msg.Chat.ID, "🧠 <b>Strategies</b>\nStrategize self-care to achieve desired thoughts and attitudes towards your moments.\n\n"+
			"You haven't created any custom strategies yet. Start with /newstrategy.")
	}

	var builder strings.Builder
	builder.WriteString("🧠 <b>Strategies</b>\n\n")
	buttons := make([][]tgbotapi.InlineKeyboardButton, 0, len(strategies))
	for _, s := range strategies {
		builder.WriteString(fmt.Sprintf("<b>#%d</b> %s\n", s.ID, escape(s.Name)))
		if len(s.Categories) > 0 {
			builder.WriteString("   " + escape(categoriesLine(s.Categories)) + "\n")
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("#%d · %s", s.ID, shortTitle(s.Name, 24)), fmt.Sprintf("%s%d", cbStrategyPrefix, s.ID)),
		))
	}
	return b.sendWithReplyMarkup(msg.Chat.ID, strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

func (b *Bot) handleShared(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.currentUser(ctx, msg.From)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "list shared strategies", err)
	}
	strategies, err := b.svc.Strategies.ListShared(ctx, user)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "list shared strategies", err)
	}
	if len(strategies) == 0 {
		return b.sendText(msg.Chat.ID, "Nobody has shared a strategy with you yet.")
	}
	var builder strings.Builder
	builder.WriteString("🤝 <b>Shared with you</b>\n\n")
	for _, s := range strategies {
		builder.WriteString(fmt.Sprintf("<b>#%d</b> %s\n", s.ID, escape(s.Name)))
	}
	builder.WriteString("\nOpen one with /strategy &lt;id&gt;.")
	return b.sendText(msg.Chat.ID, builder.String())
}

func (b *Bot) handleComment(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	rawID, body, _ := strings.Cut(args, " ")
	id, err := parseID(rawID)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /comment 3 your comment")
	}
	user, err := b.currentUser(ctx, msg.From)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID, "post the comment", err)
	}
	if _, err := b.svc.Strategies.AddComment(ctx, user, id, body); err != nil {
		return b.sendError(ctx, msg.Chat.ID, "post the comment", err)
	}
	return b.handleShowStrategy(ctx, msg.Chat.ID, msg.From, id)
}

func (b *Bot) askDeleteStrategy(ctx context.Context, chatID int64, from *tgbotapi.User, id uint) error {
	user, err := b.currentUser(ctx, from)
	if err != nil {
		return b.sendError(ctx, chatID, "delete the strategy", err)
	}
	strategy, err := b.svc.Strategies.Get(ctx, user, id)
	if err != nil {
		return b.sendError(ctx, chatID, "delete the strategy", err)
	}
	b.setConfirmation(from.ID, confirmationRequest{id: strategy.ID, action: actionDeleteStrategy})
	return b.sendWithReplyMarkup(chatID, fmt.Sprintf("Delete strategy “%s” (#%d)?", escape(strategy.Name), strategy.ID), confirmKeyboard())
}

func (b *Bot) deleteStrategy(ctx context.Context, chatID int64, from *tgbotapi.User, id uint) error {
	user, err := b.currentUser(ctx, from)
	if err != nil {
		return b.sendError(ctx, chatID, "delete the strategy", err)
	}
	if err := b.svc.Strategies.Delete(ctx, user, id); err != nil {
		return b.sendError(ctx, chatID, "delete the strategy", err)
	}
	zerolog.Ctx(ctx).Info().Uint("strategy_id", id).Uint("user_id", user.ID).Msg("strategy deleted")
	return b.sendText(chatID, "🗑 Strategy deleted.")
}

// addCategoryName appends a trimmed name unless it is blank or already listed.
func addCategoryName(names []string, name string) []string {
	name = service.NormalizeCategoryName(name)
	if name == "" {
		return names
	}
	for _, existing := range names {
		if existing == name {
			return names
		}
	}
	return append(names, name)
}

// toggleViewer adds or removes one ally. Picking an ally while all allies are
// selected switches to an explicit set holding just that ally.
func toggleViewer(selection model.ViewerSelection, allyID uint) model.ViewerSelection {
	switch sel := selection.(type) {
	case model.ExplicitViewers:
		ids := make([]uint, 0, len(sel.AllyIDs)+1)
		found := false
		for _, id := range sel.AllyIDs {
			if id == allyID {
				found = true
				continue
			}
			ids = append(ids, id)
		}
		if !found {
			ids = append(ids, allyID)
		}
		return model.ExplicitViewers{AllyIDs: ids}
	case model.AllAllies, nil:
		return model.ExplicitViewers{AllyIDs: []uint{allyID}}
	default:
		return selection
	}
}

func findAlly(allies []model.User, name string) *model.User {
	name = strings.TrimSpace(name)
	for i := range allies {
		if allies[i].DisplayName() == name {
			return &allies[i]
		}
	}
	return nil
}

func unselectedNames(categories []model.Category, selected []string) []string {
	chosen := make(map[string]struct{}, len(selected))
	for _, name := range selected {
		chosen[name] = struct{}{}
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		if _, ok := chosen[c.Name]; !ok {
			names = append(names, c.Name)
		}
	}
	return names
}
