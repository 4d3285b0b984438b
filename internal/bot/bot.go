package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-todo/internal/logger"
	"daily-todo/internal/model"
	"daily-todo/internal/service"
)

const (
	cbCompletePrefix = "complete:"
	cbUndoPrefix     = "undo:"
	cbDeletePrefix   = "delete:"
)

const (
	menuLabelToday = "📋 Vandaag"
	menuLabelHelp  = "ℹ️ Help"

	textEmpty     = "Je hebt nog geen taken voor vandaag."
	textStoreDown = "⚠️ De takenlijst is nu niet bereikbaar. Probeer het later opnieuw."
)

// Bot serves today's list over Telegram.
type Bot struct {
	api      *tgbotapi.BotAPI
	tasks    *service.TaskService
	reminder *service.ReminderService
	chatID   int64
	log      *logger.Logger
}

// New authorizes against the Bot API. When chatID is non-zero the bot only
// answers that chat; it is also where the daily summary goes.
func New(token string, chatID int64, tasks *service.TaskService, reminder *service.ReminderService, log *logger.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log = log.WithComponent("bot")
	log.Infow("bot authorized", "account", api.Self.UserName)

	return &Bot{
		api:      api,
		tasks:    tasks,
		reminder: reminder,
		chatID:   chatID,
		log:      log,
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
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
				b.log.WithError(err).Error("handle callback")
			}
		case update.Message != nil:
			if !b.allowed(update.Message.Chat) {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.WithError(err).Error("handle message")
			}
		}
	}

	return nil
}

func (b *Bot) allowed(chat *tgbotapi.Chat) bool {
	if chat == nil {
		return false
	}
	if b.chatID != 0 {
		return chat.ID == b.chatID
	}
	return chat.IsPrivate()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.IsCommand() {
		b.log.Debugw("command", "chat_id", msg.Chat.ID, "command", msg.Command())
		return b.handleCommand(ctx, msg)
	}

	switch strings.TrimSpace(msg.Text) {
	case menuLabelToday:
		return b.sendTaskList(ctx, msg.Chat.ID)
	case menuLabelHelp:
		return b.handleHelp(msg)
	}

	return b.sendText(msg.Chat.ID, "Dat begrijp ik niet. Gebruik /add om een taak toe te voegen of /help voor alle commando's.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "today":
		return b.sendTaskList(ctx, msg.Chat.ID)
	case "add":
		return b.handleAdd(ctx, msg)
	case "done":
		return b.handleSetCompleted(ctx, msg, true)
	case "undo":
		return b.handleSetCompleted(ctx, msg, false)
	case "delete":
		return b.handleDelete(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Onbekend commando. Kijk in /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := "daar"
	if msg.From != nil && strings.TrimSpace(msg.From.FirstName) != "" {
		name = strings.TrimSpace(msg.From.FirstName)
	}
	text := fmt.Sprintf("👋 Hallo %s!\n<b>Ik houd je dagelijkse to-do lijst bij.</b>\n\n%s", html.EscapeString(name), helpText)
	return b.sendText(msg.Chat.ID, text)
}

const helpText = "Commando's:\n" +
	"• /today — taken van vandaag\n" +
	"• /add Titel | link — nieuwe taak (link optioneel)\n" +
	"• /done &lt;id&gt; — markeer als voltooid\n" +
	"• /undo &lt;id&gt; — zet terug naar open\n" +
	"• /delete &lt;id&gt; — verwijder een taak"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Help</b>\n"+helpText)
}

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message) error {
	title, link := parseAddArgs(msg.CommandArguments())
	task, err := b.tasks.CreateTask(ctx, title, link)
	if errors.Is(err, service.ErrTitleRequired) {
		return b.sendText(msg.Chat.ID, "Geef een titel op: /add Boodschappen | https://...")
	}
	if err != nil {
		b.log.WithError(err).Error("create task")
		return b.sendText(msg.Chat.ID, textStoreDown)
	}

	if err := b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Taak toegevoegd: %s", strings.TrimSpace(service.FormatTaskLine(*task)))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID)
}

func (b *Bot) handleSetCompleted(ctx context.Context, msg *tgbotapi.Message, completed bool) error {
	taskID, err := parseTaskID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Geef het nummer van de taak op: /%s 3", msg.Command()))
	}
	if err := b.tasks.SetCompleted(ctx, taskID, completed); err != nil {
		b.log.WithError(err).Errorw("set completed", "task_id", taskID)
		return b.sendText(msg.Chat.ID, textStoreDown)
	}
	return b.sendTaskList(ctx, msg.Chat.ID)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseTaskID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Geef het nummer van de taak op: /delete 3")
	}
	if err := b.tasks.SoftDelete(ctx, taskID); err != nil {
		b.log.WithError(err).Errorw("delete task", "task_id", taskID)
		return b.sendText(msg.Chat.ID, textStoreDown)
	}
	return b.sendTaskList(ctx, msg.Chat.ID)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.Message == nil || !b.allowed(cb.Message.Chat) {
		return nil
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.WithError(err).Warn("callback ack")
	}

	action, taskID, ok := parseCallback(cb.Data)
	if !ok {
		return nil
	}
	b.log.Debugw("callback", "chat_id", cb.Message.Chat.ID, "action", action, "task_id", taskID)

	var err error
	switch action {
	case cbCompletePrefix:
		err = b.tasks.SetCompleted(ctx, taskID, true)
	case cbUndoPrefix:
		err = b.tasks.SetCompleted(ctx, taskID, false)
	case cbDeletePrefix:
		err = b.tasks.SoftDelete(ctx, taskID)
	}
	if err != nil {
		b.log.WithError(err).Errorw("callback mutation", "action", action, "task_id", taskID)
		return b.sendText(cb.Message.Chat.ID, textStoreDown)
	}
	return b.sendTaskList(ctx, cb.Message.Chat.ID)
}

// SendDailySummary posts today's overview to the configured chat.
func (b *Bot) SendDailySummary(ctx context.Context) error {
	if b.chatID == 0 {
		return errors.New("no chat configured for the daily summary")
	}
	text, err := b.reminder.DailySummary(ctx)
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}
	if err := b.sendText(b.chatID, text); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}
	return nil
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64) error {
	tasks, err := b.tasks.FetchToday(ctx)
	if err != nil {
		b.log.WithError(err).Error("fetch today")
		return b.sendText(chatID, textStoreDown)
	}

	text, markup := renderTaskList(b.tasks.Today(), tasks)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

// renderTaskList builds the list message and one row of buttons per task.
// The markup is nil when there is nothing to act on.
func renderTaskList(day string, tasks []model.Task) (string, *tgbotapi.InlineKeyboardMarkup) {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>Dagelijkse To-Do Lijst</b>\n📅 %s\n\n", day))

	if len(tasks) == 0 {
		builder.WriteString(textEmpty)
		return builder.String(), nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tasks))
	for _, task := range tasks {
		builder.WriteString(service.FormatTaskLine(task))

		toggle := tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("✅ #%d · %s", task.ID, shortTitle(task.Title, 24)),
			fmt.Sprintf("%s%d", cbCompletePrefix, task.ID),
		)
		if task.Completed {
			toggle = tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("↩️ #%d · %s", task.ID, shortTitle(task.Title, 24)),
				fmt.Sprintf("%s%d", cbUndoPrefix, task.ID),
			)
		}
		remove := tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("%s%d", cbDeletePrefix, task.ID))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(toggle, remove))
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return strings.TrimSpace(builder.String()), &markup
}

// parseAddArgs splits "Titel | link". Only the first pipe separates.
func parseAddArgs(args string) (title, link string) {
	title, link, _ = strings.Cut(args, "|")
	return strings.TrimSpace(title), strings.TrimSpace(link)
}

func parseTaskID(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, fmt.Errorf("task id must be positive, got %d", value)
	}
	return value, nil
}

func parseCallback(data string) (action string, taskID int, ok bool) {
	for _, prefix := range []string{cbCompletePrefix, cbUndoPrefix, cbDeletePrefix} {
		if !strings.HasPrefix(data, prefix) {
			continue
		}
		id, err := parseTaskID(strings.TrimPrefix(data, prefix))
		if err != nil {
			return "", 0, false
		}
		return prefix, id, true
	}
	return "", 0, false
}

func shortTitle(title string, maxLen int) string {
	clean := strings.Join(strings.Fields(title), " ")
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelToday),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}
