package worker

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lecturenotes/internal/models"
)

// botSender is the slice of the Telegram bot API we use.
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

var _ botSender = (*tgbotapi.BotAPI)(nil)

// TelegramNotifier sends a Telegram message when a long-running lecture
// finishes. The owner id doubles as the Telegram chat id for private chats.
type TelegramNotifier struct {
	bot botSender
}

func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot}, nil
}

func (n *TelegramNotifier) NotifyCompleted(ownerID int64, lecture *models.Lecture) {
	text := fmt.Sprintf("Your lecture %q is ready: transcript, summary, notes and Q&A are available.", lecture.Title)
	msg := tgbotapi.NewMessage(ownerID, text)
	if _, err := n.bot.Send(msg); err != nil {
		log.Printf("could not notify user %d about lecture %s: %v", ownerID, lecture.ID, err)
	}
}
