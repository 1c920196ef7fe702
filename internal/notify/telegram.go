package notify

import (
	"context"
	"fmt"

	"github.com/enescakir/emoji"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/thisyearnofear/detective-sub003/internal/logging"
)

// Telegram announces cycle events to a channel. Per-match push stays with the
// external real-time transport, so Push only logs.
type Telegram struct {
	tg      *tgbotapi.BotAPI
	channel string
}

var _ Notifier = (*Telegram)(nil)

func NewTelegram(token, channel string) (*Telegram, error) {
	tg, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("bot api: %v", err)
	}

	return &Telegram{tg: tg, channel: channel}, nil
}

func (t *Telegram) Announce(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessageToChannel(t.channel, emoji.Detective.String()+" "+text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.tg.Send(msg); err != nil {
		return fmt.Errorf("send msg: %w", err)
	}

	return nil
}

func (t *Telegram) Push(ctx context.Context, matchID, messageID string) error {
	logging.FromContext(ctx).Debugf("push message %s in match %s", messageID, matchID)
	return nil
}
