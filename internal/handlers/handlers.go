package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deadlinebot/internal/conversation"
	"deadlinebot/internal/models"
	"deadlinebot/internal/timezone"
)

// botAPI is the part of *tgbotapi.BotAPI the handler uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Users is the service surface needed outside the conversation engine.
type Users interface {
	RegisterUser(ctx context.Context, id int64, username string) (*models.User, error)
	ListTasks(ctx context.Context, userID int64, includeCompleted bool) []models.Task
	GetStats(ctx context.Context, userID int64) models.Stats
}

type BotHandler struct {
	bot         botAPI
	botUsername string
	users       Users
	engine      *conversation.Engine
	imagesDir   string
	log         *slog.Logger
}

func NewBotHandler(bot botAPI, botUsername string, users Users, engine *conversation.Engine, imagesDir string, log *slog.Logger) *BotHandler {
	if log == nil {
		log = slog.Default()
	}
	return &BotHandler{
		bot:         bot,
		botUsername: botUsername,
		users:       users,
		engine:      engine,
		imagesDir:   imagesDir,
		log:         log.With("component", "handlers"),
	}
}

func (h *BotHandler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil || message.From == nil || message.Text == "" {
		return
	}

	// Register user
	username := message.From.UserName
	if username == "" {
		username = message.From.FirstName
	}
	if _, err := h.users.RegisterUser(ctx, message.From.ID, username); err != nil {
		h.log.Error("register user", "user_id", message.From.ID, "error", err)
	}

	if message.Chat != nil && message.Chat.IsPrivate() {
		h.handlePrivate(ctx, message)
		return
	}
	h.handleGroup(ctx, message)
}

func (h *BotHandler) handlePrivate(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		switch message.Command() {
		case "start":
			h.engine.Sessions().Reset(message.From.ID)
			h.send(message.Chat.ID, welcomeText(message.From.FirstName), true, conversation.KeyboardMain)
			return
		case "help":
			h.send(message.Chat.ID, helpText, true, conversation.KeyboardMain)
			return
		case "my_tasks":
			h.handleMyTasks(ctx, message)
			return
		case "my_stats":
			h.handleStateInput(ctx, message, conversation.ButtonStatus)
			return
		case "add_deadline":
			h.handleStateInput(ctx, message, conversation.ButtonAddTask)
			return
		}
	}
	h.handleStateInput(ctx, message, message.Text)
}

func (h *BotHandler) handleStateInput(ctx context.Context, message *tgbotapi.Message, text string) {
	for _, r := range h.engine.Handle(ctx, message.From.ID, text) {
		h.sendReply(message.Chat.ID, r)
	}
}

// handleGroup answers commands and mentions only. Conversation flows
// are private.
func (h *BotHandler) handleGroup(ctx context.Context, message *tgbotapi.Message) {
	switch h.groupCommand(message) {
	case "start":
		h.send(message.Chat.ID, groupWelcomeText(message.From.FirstName), true, conversation.KeyboardNone)
	case "add_deadline":
		h.send(message.Chat.ID, h.privateHint(), false, conversation.KeyboardNone)
	case "my_tasks":
		h.handleMyTasks(ctx, message)
	case "my_stats":
		h.handleMyStats(ctx, message)
	case "help":
		h.send(message.Chat.ID, helpText, true, conversation.KeyboardNone)
	}
}

// groupCommand maps a group message to a command name, or "" when the
// bot was neither commanded nor mentioned.
func (h *BotHandler) groupCommand(message *tgbotapi.Message) string {
	if message.IsCommand() {
		return message.Command()
	}
	if h.botUsername == "" || !strings.Contains(message.Text, "@"+h.botUsername) {
		return ""
	}
	text := strings.ToLower(message.Text)
	switch {
	case strings.Contains(text, "начать"):
		return "start"
	case strings.Contains(text, "добавить дедлайн"):
		return "add_deadline"
	case strings.Contains(text, "мои задачи"):
		return "my_tasks"
	case strings.Contains(text, "статистика"):
		return "my_stats"
	case strings.Contains(text, "помощь"):
		return "help"
	}
	return ""
}

func (h *BotHandler) handleMyTasks(ctx context.Context, message *tgbotapi.Message) {
	name := message.From.FirstName
	tasks := h.users.ListTasks(ctx, message.From.ID, false)
	if len(tasks) == 0 {
		h.send(message.Chat.ID, fmt.Sprintf("📭 %s, у вас пока нет активных задач!", escape(name)), true, conversation.KeyboardNone)
		return
	}
	title := fmt.Sprintf("📋 *Задачи %s:*\n\n", escape(name))
	h.send(message.Chat.ID, conversation.RenderActiveList(title, tasks), true, conversation.KeyboardNone)
}

func (h *BotHandler) handleMyStats(ctx context.Context, message *tgbotapi.Message) {
	stats := h.users.GetStats(ctx, message.From.ID)
	text := fmt.Sprintf(`*Статистика %s:*

🎯 *Выполнено задач:* %d
📊 *Активных задач:* %d
💰 *Всего баллов:* %d

🐱 *Продолжайте в том же духе!* 🎁`,
		escape(message.From.FirstName), stats.CompletedTasks, stats.ActiveTasks, stats.TotalPoints)
	h.send(message.Chat.ID, text, true, conversation.KeyboardNone)
}

func (h *BotHandler) privateHint() string {
	return fmt.Sprintf("Чтобы добавить дедлайн, напишите мне в личные сообщения: @%s\n"+
		"Там вы получите удобное меню с кнопками! 🎯", h.botUsername)
}

// sendReply delivers a conversation reply. The status screen goes out as a
// photo with caption; if the image is missing or the upload fails, as text.
func (h *BotHandler) sendReply(chatID int64, r conversation.Reply) {
	if r.Photo != "" && h.sendPhoto(chatID, r) {
		return
	}
	h.send(chatID, r.Text, r.Markdown, r.Keyboard)
}

func (h *BotHandler) sendPhoto(chatID int64, r conversation.Reply) bool {
	path := filepath.Join(h.imagesDir, r.Photo)
	if _, err := os.Stat(path); err != nil {
		h.log.Warn("status image not available", "path", path, "error", err)
		return false
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = r.Text
	if r.Markdown {
		photo.ParseMode = tgbotapi.ModeMarkdown
	}
	if markup := keyboardMarkup(r.Keyboard); markup != nil {
		photo.ReplyMarkup = markup
	}
	if _, err := h.bot.Send(photo); err != nil {
		h.log.Warn("send status photo", "chat_id", chatID, "error", err)
		return false
	}
	return true
}

func (h *BotHandler) send(chatID int64, text string, markdown bool, kb conversation.Keyboard) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if markup := keyboardMarkup(kb); markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := h.bot.Send(msg); err != nil {
		h.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func keyboardMarkup(kb conversation.Keyboard) interface{} {
	switch kb {
	case conversation.KeyboardMain:
		return mainKeyboard()
	case conversation.KeyboardTimezones:
		return timezoneKeyboard()
	case conversation.KeyboardMenuOnly:
		return menuKeyboard()
	}
	return nil
}

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(conversation.ButtonAddTask)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(conversation.ButtonComplete)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(conversation.ButtonTasks)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(conversation.ButtonStatus)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(conversation.ButtonTimezone)),
	)
	kb.InputFieldPlaceholder = "Выберите действие..."
	return kb
}

func timezoneKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	zones := timezone.Zones()
	for i := 0; i < len(zones); i += 2 {
		row := tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(zones[i].Label))
		if i+1 < len(zones) {
			row = append(row, tgbotapi.NewKeyboardButton(zones[i+1].Label))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(conversation.ButtonMenu)))
	return tgbotapi.NewReplyKeyboard(rows...)
}

func menuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(conversation.ButtonMenu)),
	)
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
