package notify

import (
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// TelegramSender is the part of the bot api used to deliver messages
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends messages to a single chat
type TelegramNotifier struct {
	chatID int64
	token  string

	mu  sync.Mutex
	bot TelegramSender
}

// NewTelegramNotifier creates a notifier that posts to chatID with bot
func NewTelegramNotifier(bot TelegramSender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

// DialTelegram creates a notifier that connects with token on the first
// Send, so commands that never notify do not need the bot api
func DialTelegram(token string, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{token: token, chatID: chatID}
}

func (t *TelegramNotifier) sender() (TelegramSender, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot == nil {
		bot, err := tgbotapi.NewBotAPI(t.token)
		if err != nil {
			return nil, err
		}
		t.bot = bot
	}
	return t.bot, nil
}

// Send posts the title followed by the message as plain text. Item titles
// are not escaped, so no parse mode is set.
func (t *TelegramNotifier) Send(message, title string) error {
	bot, err := t.sender()
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf("%s\n%s", title, message))
	msg.DisableWebPagePreview = true
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}
