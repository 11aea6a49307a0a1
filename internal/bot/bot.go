package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"family-tasks/internal/metrics"
	"family-tasks/internal/model"
	"family-tasks/internal/schedule"
	"family-tasks/internal/service"
	"family-tasks/internal/session"
)

const (
	cbTogglePrefix = "toggle:"
)

const (
	btnCancelDialog = "⏪ Отменить ввод"
	iconPending     = "⬜"
	iconDone        = "✅"
	iconMoved       = "🔁"
	menuLabelToday  = "📋 Сегодня"
	menuLabelReport = "📊 Итоги"
	menuLabelHelp   = "ℹ️ Помощь"
)

// sender is the part of the Telegram API the bot writes through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Services are the bot's dependencies.
type Services struct {
	Family    *service.FamilyService
	Tasks     *service.TaskService
	Telegram  *service.TelegramService
	Reminders *service.ReminderService
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api     *tgbotapi.BotAPI
	out     sender
	svc     Services
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time

	// awaitingCode holds users asked for a parent code by /start.
	awaitingCode map[int64]bool
	mu           sync.Mutex
}

func New(token string, svc Services, m *metrics.Metrics, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	b := newBot(api, svc, m, log)
	b.api = api
	b.log.Info("bot authorized", zap.String("account", api.Self.UserName))
	return b, nil
}

func newBot(out sender, svc Services, m *metrics.Metrics, log *zap.Logger) *Bot {
	return &Bot{
		out:          out,
		svc:          svc,
		metrics:      m,
		log:          log.Named("bot"),
		now:          time.Now,
		awaitingCode: make(map[int64]bool),
	}
}

// WithClock replaces the time source used for "today".
func (b *Bot) WithClock(now func() time.Time) *Bot {
	b.now = now
	return b
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot api is not configured")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error("handle callback", zap.Error(err))
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error("handle message", zap.Error(err))
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.setAwaitingCode(msg.From.ID, false)
		return b.sendText(msg.Chat.ID, "⏪ Ввод кода отменён.")
	}

	if msg.IsCommand() {
		b.log.Debug("command", zap.Int64("user", msg.From.ID), zap.String("command", msg.Command()))
		return b.handleCommand(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	if b.isAwaitingCode(msg.From.ID) {
		b.setAwaitingCode(msg.From.ID, false)
		return b.link(ctx, msg, msg.Text)
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Набери /today, чтобы увидеть задачи, или /help для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "link":
		return b.handleLink(ctx, msg)
	case "unlink":
		return b.handleUnlink(ctx, msg)
	case "today":
		return b.handleToday(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "cancel":
		b.setAwaitingCode(msg.From.ID, false)
		return b.sendText(msg.Chat.ID, "⏪ Ввод кода отменён.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if code := strings.TrimSpace(msg.CommandArguments()); code != "" {
		return b.link(ctx, msg, code)
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}

	_, err := b.svc.Telegram.ParentForAccount(ctx, msg.From.ID)
	switch {
	case err == nil:
		return b.sendText(msg.Chat.ID, fmt.Sprintf(
			"👋 Привет, %s!\n<b>Аккаунт уже привязан к семье.</b>\n\n%s", escape(name), commandList))
	case errors.Is(err, service.ErrNotFound):
		b.setAwaitingCode(msg.From.ID, true)
		return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf(
			"👋 Привет, %s!\n<b>Я напоминаю о семейных задачах.</b>\n\n"+
				"Пришли код родителя из приложения, чтобы получать утренние списки и вечерние итоги.",
			escape(name)), cancelKeyboard())
	default:
		return err
	}
}

const commandList = "Команды:\n" +
	"• /today — задачи детей на сегодня с кнопками выполнения\n" +
	"• /report — итоги дня прямо сейчас\n" +
	"• /link &lt;код&gt; — привязать аккаунт к семье\n" +
	"• /unlink — отключить напоминания\n" +
	"• /help — подсказки"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Подсказки</b>\n"+commandList)
}

func (b *Bot) handleLink(ctx context.Context, msg *tgbotapi.Message) error {
	code := strings.TrimSpace(msg.CommandArguments())
	if code == "" {
		return b.sendText(msg.Chat.ID, "Укажи код родителя: /link ABCD1234")
	}
	return b.link(ctx, msg, code)
}

func (b *Bot) link(ctx context.Context, msg *tgbotapi.Message, code string) error {
	parent, err := b.svc.Telegram.Link(ctx, code, service.Account{
		TelegramID: msg.From.ID,
		ChatID:     msg.Chat.ID,
		FirstName:  msg.From.FirstName,
		Username:   msg.From.UserName,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return b.sendText(msg.Chat.ID, "Код не найден. Проверь его в приложении и пришли ещё раз: /link КОД")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось привязать аккаунт: %s", escape(err.Error())))
	}

	children, err := b.svc.Family.Children(ctx, parent)
	if err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf(
		"🔗 <b>Аккаунт привязан.</b>\nДетей в семье: %d. Утром пришлю задачи на день, вечером итоги.", len(children)))
}

func (b *Bot) handleUnlink(ctx context.Context, msg *tgbotapi.Message) error {
	parent, err := b.requireParent(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil || parent == nil {
		return err
	}
	removed, err := b.svc.Telegram.Unlink(ctx, parent)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
	}
	if !removed {
		return b.sendText(msg.Chat.ID, "Аккаунт и так не привязан.")
	}
	return b.sendText(msg.Chat.ID, "🔕 Напоминания отключены. Чтобы вернуть их, пришли /link КОД.")
}

func (b *Bot) handleToday(ctx context.Context, msg *tgbotapi.Message) error {
	parent, err := b.requireParent(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil || parent == nil {
		return err
	}
	return b.sendToday(ctx, msg.Chat.ID, parent)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	parent, err := b.requireParent(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil || parent == nil {
		return err
	}
	text, err := b.svc.Reminders.EveningSummary(ctx, parent.ID, b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось сформировать отчёт: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

// requireParent returns the linked parent. When the account is not linked it
// replies with instructions and returns nil, nil.
func (b *Bot) requireParent(ctx context.Context, telegramID, chatID int64) (*model.Parent, error) {
	parent, err := b.svc.Telegram.ParentForAccount(ctx, telegramID)
	if errors.Is(err, service.ErrNotFound) {
		return nil, b.sendText(chatID, "Сначала привяжи аккаунт: /link КОД родителя из приложения.")
	}
	if err != nil {
		return nil, err
	}
	return parent, nil
}

// todayMessage lists every child's tasks for today with one toggle button per
// task.
func (b *Bot) todayMessage(ctx context.Context, chatID int64, parent *model.Parent) (tgbotapi.MessageConfig, error) {
	children, err := b.svc.Family.Children(ctx, parent)
	if err != nil {
		return tgbotapi.MessageConfig{}, err
	}
	now := b.now()
	if len(children) == 0 {
		return htmlMessage(chatID, "В семье пока нет детей. Добавь их в приложении."), nil
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>Задачи на сегодня</b> · %s\n", now.Format("02.01")))
	builder.WriteString("Нажми на кнопку, чтобы отметить задачу или снять отметку.\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, child := range children {
		st, err := b.svc.Tasks.LoadChild(ctx, child.ID)
		if err != nil {
			return tgbotapi.MessageConfig{}, err
		}
		builder.WriteString("\n" + service.ChildHeader(st.Child))
		tasks := st.ForDate(now)
		if len(tasks) == 0 {
			builder.WriteString("— задач нет\n")
		}
		for _, task := range tasks {
			builder.WriteString(formatTask(task))
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(toggleButton(st.Child, task)))
		}
	}

	msg := htmlMessage(chatID, strings.TrimSpace(builder.String()))
	if len(buttons) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	return msg, nil
}

func (b *Bot) sendToday(ctx context.Context, chatID int64, parent *model.Parent) error {
	msg, err := b.todayMessage(ctx, chatID, parent)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось получить задачи: %s", escape(err.Error())))
	}
	_, err = b.out.Send(msg)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}

	taskID, ok := parseToggleData(cb.Data)
	if !ok {
		b.answer(cb.ID, "")
		return nil
	}

	parent, err := b.svc.Telegram.ParentForAccount(ctx, cb.From.ID)
	if err != nil {
		b.answer(cb.ID, "Аккаунт не привязан")
		if errors.Is(err, service.ErrNotFound) {
			return nil
		}
		return err
	}

	st, err := b.stateWithTask(ctx, parent, taskID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			b.answer(cb.ID, "Задача не найдена")
			return nil
		}
		b.answer(cb.ID, "Ошибка")
		return err
	}

	out, err := b.svc.Tasks.ToggleCompletion(ctx, st, taskID)
	if err != nil {
		b.answer(cb.ID, "Не удалось сохранить")
		return err
	}

	if out.Completed {
		b.answer(cb.ID, fmt.Sprintf("✅ Выполнено! +%d", out.PointsDelta))
	} else {
		b.answer(cb.ID, fmt.Sprintf("↩️ Отметка снята, %d", out.PointsDelta))
	}
	b.log.Info("task toggled from chat",
		zap.String("task_id", taskID),
		zap.String("child_id", st.Child.ID),
		zap.Bool("completed", out.Completed),
		zap.Bool("spawned", out.Spawned != nil))

	return b.sendToday(ctx, cb.Message.Chat.ID, parent)
}

// stateWithTask loads the state of the parent's child that owns taskID.
func (b *Bot) stateWithTask(ctx context.Context, parent *model.Parent, taskID string) (*session.State, error) {
	children, err := b.svc.Family.Children(ctx, parent)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		st, err := b.svc.Tasks.LoadChild(ctx, child.ID)
		if err != nil {
			return nil, err
		}
		if _, ok := st.FindTask(taskID); ok {
			return st, nil
		}
	}
	return nil, fmt.Errorf("task: %w", service.ErrNotFound)
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.out.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Warn("callback ack", zap.Error(err))
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelToday):
		return true, b.handleToday(ctx, msg)
	case strings.ToLower(menuLabelReport):
		return true, b.handleReport(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := htmlMessage(chatID, text)
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := htmlMessage(chatID, text)
	msg.ReplyMarkup = markup
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) isAwaitingCode(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.awaitingCode[userID]
}

func (b *Bot) setAwaitingCode(userID int64, waiting bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if waiting {
		b.awaitingCode[userID] = true
		return
	}
	delete(b.awaitingCode, userID)
}

func htmlMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return msg
}

func toggleButton(child model.Child, task model.Task) tgbotapi.InlineKeyboardButton {
	label := fmt.Sprintf("%s %s · %s", iconPending, child.Name, shortTitle(task.Title, 24))
	if task.IsCompleted {
		label = fmt.Sprintf("↩️ %s · %s", child.Name, shortTitle(task.Title, 24))
	}
	return tgbotapi.NewInlineKeyboardButtonData(label, cbTogglePrefix+task.ID)
}

func parseToggleData(data string) (string, bool) {
	if !strings.HasPrefix(data, cbTogglePrefix) {
		return "", false
	}
	id := strings.TrimPrefix(data, cbTogglePrefix)
	if id == "" {
		return "", false
	}
	return id, true
}

func formatTask(task model.Task) string {
	icon := iconPending
	switch {
	case task.IsCompleted:
		icon = iconDone
	case schedule.IsRescheduled(task):
		icon = iconMoved
	}
	return service.TaskLine(icon, task) + "\n"
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = service.DisplayTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "отменить ввод" || value == "отмена"
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelToday),
			tgbotapi.NewKeyboardButton(menuLabelReport),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}
