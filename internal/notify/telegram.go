package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
)

type messageSender interface {
	SendMessage(chatId int64, text string, opts *gotgbot.SendMessageOpts) (*gotgbot.Message, error)
}

// telegramNotifier sends operator alerts for promotion lifecycle events.
// Redemptions are too frequent for a chat and are skipped.
type telegramNotifier struct {
	sender messageSender
	chatID int64
}

// NewTelegramNotifier creates a bot client for token that posts to chatID.
func NewTelegramNotifier(token string, chatID int64) (Notifier, error) {
	bot, err := gotgbot.NewBot(token, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &telegramNotifier{sender: bot, chatID: chatID}, nil
}

func (n *telegramNotifier) Notify(ctx context.Context, event Event) error {
	text, ok := alertText(event)
	if !ok {
		return nil
	}

	_, err := n.sender.SendMessage(n.chatID, text, &gotgbot.SendMessageOpts{})
	if err != nil {
		return fmt.Errorf("failed to send telegram alert: %w", err)
	}
	return nil
}

func alertText(event Event) (string, bool) {
	var sb strings.Builder
	switch event.Type {
	case EventPromotionLaunched:
		fmt.Fprintf(&sb, "Flash promotion %s is live", event.Code)
		if event.Discount != "" {
			fmt.Fprintf(&sb, " (%s%% off)", event.Discount)
		}
		if event.ExpiresAt != nil {
			fmt.Fprintf(&sb, " until %s", event.ExpiresAt.UTC().Format(time.RFC3339))
		}
	case EventPromotionClaimed:
		fmt.Fprintf(&sb, "Flash promotion %s was claimed by %s", event.Code, event.UserID)
	case EventPromotionEnded:
		sb.WriteString("Flash promotion ended by operator")
	default:
		return "", false
	}
	return sb.String(), true
}
