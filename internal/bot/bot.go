package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"selfcare/internal/model"
	"selfcare/internal/repository"
	"selfcare/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageStrategyName
	stageStrategyCategories
	stageStrategyViewers
	stageStrategyComments
	stageStrategyDescription
	stageStrategyReview
	stageMedicationName
	stageMedicationDosage
	stageMedicationStrength
	stageMedicationRefill
	stageMedicationRefillReminder
	stageMedicationDailyReminder
)

const (
	cbStrategyPrefix       = "strategy:"
	cbStrategyDeletePrefix = "strategydel:"
	cbMedicationPrefix     = "med:"
	cbMedicationDelPrefix  = "meddel:"
	cbRefillTogglePrefix   = "medrefill:"
	cbDailyTogglePrefix    = "meddaily:"
)

const (
	btnSkip          = "⏭️ Skip"
	btnYes           = "Yes"
	btnNo            = "No"
	btnDone          = "✅ Done"
	btnClear         = "🧹 Clear"
	btnSave          = "💾 Save"
	btnConfirm       = "✅ Confirm"
	btnCancel        = "↩️ Cancel"
	btnCancelDialog  = "⏪ Stop editing"
	btnAllAllies     = "👥 All allies"
	allyButtonPrefix = "👤 "

	fieldName        = "Name"
	fieldCategories  = "Categories"
	fieldViewers     = "Viewers"
	fieldComments    = "Comments"
	fieldDescription = "Description"

	menuLabelNewStrategy   = "➕ New strategy"
	menuLabelStrategies    = "🧠 Strategies"
	menuLabelNewMedication = "➕ New medication"
	menuLabelMedications   = "💊 Medications"
	menuLabelCategories    = "📂 Categories"
	menuLabelHelp          = "ℹ️ Help"

	signInText = "🔒 Please sign in first: send /start."
)

type conversationState struct {
	stage      conversationStage
	strategy   service.StrategyInput
	editingID  uint
	reviewing  bool
	medication service.MedicationInput
}

type confirmationAction int

const (
	actionDeleteStrategy confirmationAction = iota
	actionDeleteMedication
)

type confirmationRequest struct {
	id     uint
	action confirmationAction
}

// telegramAPI is the part of *tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Services bundles the business services the bot talks to.
type Services struct {
	Categories  *service.CategoryService
	Strategies  *service.StrategyService
	Viewers     *service.ViewerService
	Medications *service.MedicationService
	Allies      *service.AllyService
	Reminders   *service.ReminderService
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           telegramAPI
	userRepo      *repository.UserRepository
	svc           Services
	location      *time.Location
	logger        *zerolog.Logger
	now           func() time.Time
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

func New(api telegramAPI, userRepo *repository.UserRepository, svc Services, loc *time.Location, logger *zerolog.Logger) *Bot {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Bot{
		api:           api,
		userRepo:      userRepo,
		svc:           svc,
		location:      loc,
		logger:        logger,
		now:           time.Now,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		lc := b.logger.With().Str("request_id", uuid.New().String())
		if from := update.SentFrom(); from != nil {
			lc = lc.Int64("telegram_id", from.ID)
		}
		l := lc.Logger()
		b.handleUpdate(l.WithContext(ctx), update)
	}

	return ctx.Err()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			l.Error().Err(err).Str("data", update.CallbackQuery.Data).Msg("handle callback")
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			l.Error().Err(err).Msg("handle message")
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Stopped. Nothing was saved.")
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok && !msg.IsCommand() {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if !msg.IsCommand() && !b.hasConversation(msg.From.ID) {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		zerolog.Ctx(ctx).Info().Int64("from", msg.From.ID).Str("command", msg.Command()).Msg("command")
		return b.handleCommand(ctx, msg)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I didn't get that. Try /newstrategy, /newmed or /help.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "newstrategy":
		return b.startNewStrategy(ctx, msg)
	case "strategies":
		return b.handleListStrategies(ctx, msg)
	case "strategy":
		return b.withID(msg, "/strategy 3", func(id uint) error { return b.handleShowStrategy(ctx, msg.Chat.ID, msg.From, id) })
	case "editstrategy":
		return b.withID(msg, "/editstrategy 3", func(id uint) error { return b.startEditStrategy(ctx, msg, id) })
	case "deletestrategy":
		return b.withID(msg, "/deletestrategy 3", func(id uint) error { return b.askDeleteStrategy(ctx, msg.Chat.ID, msg.From, id) })
	case "comment":
		return b.handleComment(ctx, msg)
	case "shared":
		return b.handleShared(ctx, msg)
	case "newcategory":
		return b.handleNewCategory(ctx, msg)
	case "categories":
		return b.handleCategories(ctx, msg)
	case "renamecategory":
		return b.handleRenameCategory(ctx, msg)
	case "deletecategory":
		return b.withID(msg, "/deletecategory 3", func(id uint) error { return b.handleDeleteCategory(ctx, msg, id) })
	case "newmed":
		return b.startNewMedication(ctx, msg)
	case "meds":
		return b.handleListMedications(ctx, msg)
	case "med":
		return b.withID(msg, "/med 3", func(id uint) error { return b.handleShowMedication(ctx, msg.Chat.ID, msg.From, id) })
	case "deletemed":
		return b.withID(msg, "/deletemed 3", func(id uint) error { return b.askDeleteMedication(ctx, msg.Chat.ID, msg.From, id) })
	case "ally":
		return b.handleAddAlly(ctx, msg)
	case "allies":
		return b.handleListAllies(ctx, msg)
	case "export":
		return b.handleExport(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Stopped. Nothing was saved.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.userRepo.UpsertFromTelegram(ctx, msg.From.ID, msg.From.FirstName, msg.From.LastName, msg.From.UserName)
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Uint("user_id", user.ID).Msg("user signed in")

	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep track of your self-care strategies and medications.</b>\n\n%s",
		escape(user.DisplayName()), helpText)
	return b.sendText(msg.Chat.ID, text)
}

const helpText = "<b>Strategies</b>\n" +
	"• /newstrategy — create a strategy step by step\n" +
	"• /strategies — your strategies\n" +
	"• /strategy &lt;id&gt; — show one strategy\n" +
	"• /editstrategy &lt;id&gt; — edit a strategy\n" +
	"• /deletestrategy &lt;id&gt; — delete a strategy\n" +
	"• /comment &lt;id&gt; &lt;text&gt; — comment on a strategy\n" +
	"• /shared — strategies your allies share with you\n" +
	"<b>Categories</b>\n" +
	"• /categories — your categories\n" +
	"• /newcategory &lt;name&gt; — create a category\n" +
	"• /renamecategory &lt;id&gt; &lt;name&gt; — rename a category\n" +
	"<b>Medications</b>\n" +
	"• /newmed — add a medication\n" +
	"• /meds — your medications\n" +
	"• /med &lt;id&gt; — show one medication\n" +
	"• /deletemed &lt;id&gt; — delete a medication\n" +
	"<b>Allies</b>\n" +
	"• /ally &lt;username&gt; — add an ally\n" +
	"• /allies — your allies\n" +
	"• /export — download everything as a spreadsheet\n" +
	"• /cancel — stop the current dialog"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ "+helpText)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.TrimSpace(msg.Text) {
	case menuLabelNewStrategy:
		return true, b.startNewStrategy(ctx, msg)
	case menuLabelStrategies:
		return true, b.handleListStrategies(ctx, msg)
	case menuLabelNewMedication:
		return true, b.startNewMedication(ctx, msg)
	case menuLabelMedications:
		return true, b.handleListMedications(ctx, msg)
	case menuLabelCategories:
		return true, b.handleCategories(ctx, msg)
	case menuLabelHelp:
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}
	user, err := b.currentUser(ctx, msg.From)
	if err != nil {
		b.clearConversation(msg.From.ID)
		return b.sendError(ctx, msg.Chat.ID, "continue", err)
	}

	text := strings.TrimSpace(msg.Text)
	if state.stage >= stageMedicationName {
		return b.handleMedicationStage(ctx, msg.Chat.ID, user, state, text)
	}
	return b.handleStrategyStage(ctx, msg.Chat.ID, user, state, text)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("callback ack")
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID
	zerolog.Ctx(ctx).Info().Int64("from", cb.From.ID).Str("data", data).Msg("callback")

	// Longer prefixes first: "strategydel:" also starts with "strategy".
	switch {
	case strings.HasPrefix(data, cbStrategyDeletePrefix):
		return b.withCallbackID(data, cbStrategyDeletePrefix, func(id uint) error { return b.askDeleteStrategy(ctx, chatID, cb.From, id) })
	case strings.HasPrefix(data, cbStrategyPrefix):
		return b.withCallbackID(data, cbStrategyPrefix, func(id uint) error { return b.handleShowStrategy(ctx, chatID, cb.From, id) })
	case strings.HasPrefix(data, cbMedicationDelPrefix):
		return b.withCallbackID(data, cbMedicationDelPrefix, func(id uint) error { return b.askDeleteMedication(ctx, chatID, cb.From, id) })
	case strings.HasPrefix(data, cbRefillTogglePrefix):
		return b.withCallbackID(data, cbRefillTogglePrefix, func(id uint) error { return b.toggleReminder(ctx, chatID, cb.From, id, true) })
	case strings.HasPrefix(data, cbDailyTogglePrefix):
		return b.withCallbackID(data, cbDailyTogglePrefix, func(id uint) error { return b.toggleReminder(ctx, chatID, cb.From, id, false) })
	case strings.HasPrefix(data, cbMedicationPrefix):
		return b.withCallbackID(data, cbMedicationPrefix, func(id uint) error { return b.handleShowMedication(ctx, chatID, cb.From, id) })
	default:
		return nil
	}
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		if req.action == actionDeleteStrategy {
			return b.deleteStrategy(ctx, msg.Chat.ID, msg.From, req.id)
		}
		return b.deleteMedication(ctx, msg.Chat.ID, msg.From, req.id)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Okay, nothing was deleted.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Please confirm or cancel the deletion.", confirmKeyboard())
	}
}

// SendMedicationReminders sends the daily medication digest to every user who has one.
func (b *Bot) SendMedicationReminders(ctx context.Context) error {
	users, err := b.userRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	now := b.now().In(b.location)
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, err := b.svc.Reminders.DailyDigest(ctx, user, now)
		if err != nil {
			b.logger.Error().Err(err).Uint("user_id", user.ID).Msg("build medication digest")
			continue
		}
		if text == "" {
			continue
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			b.logger.Error().Err(err).Uint("user_id", user.ID).Msg("send medication digest")
		}
	}
	return nil
}

// currentUser resolves the signed-in user behind a Telegram account.
func (b *Bot) currentUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	if from == nil {
		return nil, service.ErrUnauthorized
	}
	user, err := b.userRepo.FindByTelegramID(ctx, from.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, service.ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

// sendError turns a service error into a user message. Unexpected errors are logged.
func (b *Bot) sendError(ctx context.Context, chatID int64, action string, err error) error {
	var vErr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return b.sendText(chatID, signInText)
	case errors.Is(err, service.ErrNotFound):
		return b.sendText(chatID, "Not found.")
	case errors.Is(err, service.ErrDuplicateCategoryName):
		return b.sendText(chatID, "You already have a category with that name.")
	case errors.As(err, &vErr):
		return b.sendText(chatID, fmt.Sprintf("⚠️ %s %s.", escape(capitalize(vErr.Field)), escape(vErr.Message)))
	default:
		zerolog.Ctx(ctx).Error().Err(err).Str("action", action).Msg("request failed")
		return b.sendText(chatID, fmt.Sprintf("Could not %s. Please try again.", action))
	}
}

func (b *Bot) withID(msg *tgbotapi.Message, usage string, fn func(uint) error) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		return b.sendText(msg.Chat.ID, "Add the number, e.g. "+usage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "The id must be a number, e.g. "+usage)
	}
	return fn(id)
}

func (b *Bot) withCallbackID(data, prefix string, fn func(uint) error) error {
	id, err := parseID(strings.TrimPrefix(data, prefix))
	if err != nil {
		return nil
	}
	return fn(id)
}

func parseID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
