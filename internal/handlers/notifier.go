package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends overdue notifications to the owner's private chat,
// whose id equals the Telegram user id.
type Notifier struct {
	bot botAPI
}

func NewNotifier(bot botAPI) *Notifier {
	return &Notifier{bot: bot}
}

func (n *Notifier) SendNotification(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send notification to %d: %w", userID, err)
	}
	return nil
}
