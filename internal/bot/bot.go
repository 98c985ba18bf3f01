package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/danmermels/momentum-spark-app/internal/model"
	"github.com/danmermels/momentum-spark-app/internal/progress"
	"github.com/danmermels/momentum-spark-app/internal/repository"
	"github.com/danmermels/momentum-spark-app/internal/service"
)

const (
	cbTogglePrefix = "toggle:"

	menuLabelTasks    = "📋 Tasks"
	menuLabelProgress = "📈 Progress"
	menuLabelSummary  = "🗓 Summary"
	menuLabelHelp     = "ℹ️ Help"
)

// sender is the part of the Telegram API the bot needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot delivers notifications to one chat and answers a few commands there.
type Bot struct {
	api          *tgbotapi.BotAPI
	out          sender
	chatID       int64
	taskSvc      *service.TaskService
	reminderSvc  *service.ReminderService
	settingsRepo *repository.SettingsRepository
	now          func() time.Time
}

func New(token string, chatID int64, taskSvc *service.TaskService, reminderSvc *service.ReminderService, settingsRepo *repository.SettingsRepository) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, chatID, taskSvc, reminderSvc, settingsRepo)
	b.api = api
	return b, nil
}

func newBot(out sender, chatID int64, taskSvc *service.TaskService, reminderSvc *service.ReminderService, settingsRepo *repository.SettingsRepository) *Bot {
	return &Bot{
		out:          out,
		chatID:       chatID,
		taskSvc:      taskSvc,
		reminderSvc:  reminderSvc,
		settingsRepo: settingsRepo,
		now:          time.Now,
	}
}

// Notify implements service.Notifier by posting to the configured chat.
func (b *Bot) Notify(_ context.Context, n service.Notification) error {
	if b.chatID == 0 {
		return errors.New("no chat configured for notifications")
	}
	text := n.Message
	if !n.HTML {
		text = escape(text)
	}
	if n.Title != "" && !n.HTML {
		text = fmt.Sprintf("<b>%s</b>\n%s", escape(n.Title), text)
	}
	return b.sendText(b.chatID, text)
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot api is not connected")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("[warn] handle callback: %v", err)
			}
		case update.Message != nil:
			if !b.allowed(update.Message.Chat) {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("[warn] handle message: %v", err)
			}
		}
	}

	return ctx.Err()
}

// allowed accepts the configured chat, or any private chat when none is set.
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
		log.Printf("[info] command from chat %d: /%s %s", msg.Chat.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg.Chat.ID, msg.Command(), msg.CommandArguments())
	}

	switch strings.TrimSpace(msg.Text) {
	case menuLabelTasks:
		return b.handleCommand(ctx, msg.Chat.ID, "tasks", "")
	case menuLabelProgress:
		return b.handleCommand(ctx, msg.Chat.ID, "progress", "")
	case menuLabelSummary:
		return b.handleCommand(ctx, msg.Chat.ID, "summary", "")
	case menuLabelHelp:
		return b.handleCommand(ctx, msg.Chat.ID, "help", "")
	}
	return b.sendText(msg.Chat.ID, "I didn't get that. Try /tasks or /help.")
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, command, args string) error {
	switch command {
	case "start", "help":
		return b.sendText(chatID, helpText)
	case "tasks":
		return b.sendTaskList(ctx, chatID)
	case "done":
		return b.handleToggle(ctx, chatID, args, true)
	case "undo":
		return b.handleToggle(ctx, chatID, args, false)
	case "progress":
		return b.handleProgress(ctx, chatID)
	case "summary":
		text, err := b.reminderSvc.DailySummary(ctx, b.now())
		if err != nil {
			return b.replyError(chatID, "build summary", err)
		}
		return b.sendText(chatID, text)
	case "notify":
		return b.handleNotify(ctx, chatID, args)
	default:
		return b.sendText(chatID, "Unknown command. See /help.")
	}
}

const helpText = "✨ <b>Momentum Spark</b>\n" +
	"• /tasks · list tasks with buttons to complete them\n" +
	"• /done &lt;id&gt; · mark a task completed\n" +
	"• /undo &lt;id&gt; · mark a task pending again\n" +
	"• /progress · today's and this month's progress\n" +
	"• /summary · the daily summary right now\n" +
	"• /notify on|off · switch reminders"

func (b *Bot) handleToggle(ctx context.Context, chatID int64, args string, completed bool) error {
	id, err := parseTaskID(args)
	if err != nil {
		verb := "done"
		if !completed {
			verb = "undo"
		}
		return b.sendText(chatID, fmt.Sprintf("Give me a task id: /%s 12", verb))
	}
	return b.toggle(ctx, chatID, id, completed)
}

func (b *Bot) toggle(ctx context.Context, chatID int64, id uint, completed bool) error {
	task, err := b.taskSvc.SetCompleted(ctx, id, completed)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return b.sendText(chatID, "Task not found.")
		}
		return b.replyError(chatID, "update task", err)
	}

	title := escape(strings.TrimSpace(task.Title))
	switch {
	case !completed:
		return b.sendText(chatID, fmt.Sprintf("↩️ «%s» is pending again.", title))
	case bool(task.IsRecurring):
		return b.sendText(chatID, fmt.Sprintf("✅ Daily goal «%s» done for today.", title))
	default:
		return b.sendText(chatID, fmt.Sprintf("✅ «%s» completed.", title))
	}
}

func (b *Bot) handleProgress(ctx context.Context, chatID int64) error {
	report, err := b.taskSvc.Progress(ctx)
	if err != nil {
		return b.replyError(chatID, "compute progress", err)
	}
	return b.sendText(chatID, formatProgress(report))
}

func (b *Bot) handleNotify(ctx context.Context, chatID int64, args string) error {
	enabled, ok := parseSwitch(args)
	if !ok {
		current, err := b.settingsRepo.Get(ctx)
		if err != nil {
			return b.replyError(chatID, "read settings", err)
		}
		return b.sendText(chatID, fmt.Sprintf("Reminders are %s. Use /notify on or /notify off.", onOff(current.EnableNotifications)))
	}
	if _, err := b.settingsRepo.Update(ctx, model.AppSettingsPatch{EnableNotifications: &enabled}); err != nil {
		return b.replyError(chatID, "update settings", err)
	}
	return b.sendText(chatID, fmt.Sprintf("🔔 Reminders %s.", onOff(enabled)))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.Message == nil || !b.allowed(cb.Message.Chat) {
		return nil
	}
	if !strings.HasPrefix(cb.Data, cbTogglePrefix) {
		return nil
	}
	id, err := parseTaskID(strings.TrimPrefix(cb.Data, cbTogglePrefix))
	if err != nil {
		return err
	}

	if _, err := b.out.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("[warn] answer callback: %v", err)
	}

	task, err := b.taskSvc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return b.sendText(cb.Message.Chat.ID, "Task not found.")
		}
		return err
	}
	return b.toggle(ctx, cb.Message.Chat.ID, id, !bool(task.IsCompleted))
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64) error {
	tasks, err := b.taskSvc.List(ctx)
	if err != nil {
		return b.replyError(chatID, "fetch tasks", err)
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, "No tasks yet.")
	}

	now := b.now()
	var builder strings.Builder
	builder.WriteString("📋 <b>Tasks</b>\n")
	builder.WriteString("Tap a button to toggle a task.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		builder.WriteString(service.FormatTask(task, now))
		label := "✅"
		if task.IsCompleted {
			label = "↩️"
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s #%d · %s", label, task.ID, shortTitle(task.Title, 24)), fmt.Sprintf("%s%d", cbTogglePrefix, task.ID)),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.out.Send(msg)
	return err
}

func (b *Bot) replyError(chatID int64, action string, err error) error {
	log.Printf("[error] bot %s: %v", action, err)
	return b.sendText(chatID, fmt.Sprintf("Could not %s, try again later.", action))
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.out.Send(msg)
	return err
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelTasks),
			tgbotapi.NewKeyboardButton(menuLabelProgress),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelSummary),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func formatProgress(report progress.Report) string {
	var sb strings.Builder
	sb.WriteString("📈 <b>Progress</b>\n")
	sb.WriteString(fmt.Sprintf("Today: %s %.0f%% (%d tasks)\n", bar(report.Daily), report.Daily, report.DailyTasks))
	sb.WriteString(fmt.Sprintf("This month: %s %.0f%% (%d tasks)\n", bar(report.Monthly), report.Monthly, report.MonthlyTasks))
	sb.WriteString(fmt.Sprintf("🏆 Milestones this month: %d", report.CompletedThisMonth))
	return sb.String()
}

// bar draws pct as ten blocks.
func bar(pct float64) string {
	filled := int(pct/10 + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
}

func parseTaskID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil {
		return 0, err
	}
	if value == 0 {
		return 0, errors.New("task id must be positive")
	}
	return uint(value), nil
}

func parseSwitch(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "yes", "1", "true":
		return true, true
	case "off", "no", "0", "false":
		return false, true
	default:
		return false, false
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
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

func escape(s string) string {
	return html.EscapeString(s)
}
