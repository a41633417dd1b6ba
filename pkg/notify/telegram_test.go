package notify

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestTelegramNotifierSend(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegramNotifier(sender, 42)

	require.NoError(t, n.Send("Found 1 new items in laptops!", "New laptops Items!"))
	require.Len(t, sender.sent, 1)

	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "New laptops Items!\nFound 1 new items in laptops!", msg.Text)
	assert.True(t, msg.DisableWebPagePreview)
	assert.Empty(t, msg.ParseMode)
}

func TestTelegramNotifierSendError(t *testing.T) {
	n := NewTelegramNotifier(&fakeSender{err: errors.New("chat not found")}, 42)

	err := n.Send("body", "title")
	assert.EqualError(t, err, "telegram: chat not found")
}
