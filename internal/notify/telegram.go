// Package notify delivers human-readable trade and status messages.
package notify

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// StatusFunc renders the current portfolio status for the /status command.
type StatusFunc func() string

// Telegram pushes messages to a single chat and optionally answers /status.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    zerolog.Logger
	status StatusFunc
}

// NewTelegram connects to the bot API. Delivery failures later are logged
// and dropped; the trading path never waits on Telegram.
func NewTelegram(token string, chatID int64, log zerolog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Info().Str("username", bot.Self.UserName).Msg("telegram connected")
	return &Telegram{bot: bot, chatID: chatID, log: log}, nil
}

// SetStatusFunc wires the /status command to a live status renderer.
func (t *Telegram) SetStatusFunc(fn StatusFunc) { t.status = fn }

// Notify sends text to the configured chat, best effort.
func (t *Telegram) Notify(text string) {
	if text == "" {
		return
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		t.log.Warn().Err(err).Msg("telegram send failed")
	}
}

// Listen answers incoming commands until the context is canceled. Only the
// configured chat is served.
func (t *Telegram) Listen(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return
		case up := <-updates:
			if up.Message == nil || up.Message.Chat.ID != t.chatID {
				continue
			}
			text := strings.TrimSpace(up.Message.Text)
			switch {
			case strings.HasPrefix(text, "/start"):
				t.Notify("commands: /status")
			case strings.HasPrefix(text, "/status"):
				if t.status != nil {
					t.Notify(t.status())
				} else {
					t.Notify("status unavailable")
				}
			}
		}
	}
}
