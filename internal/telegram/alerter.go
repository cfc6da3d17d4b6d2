// Package telegram delivers moderation alerts to an admin chat and serves the
// admin bot commands.
package telegram

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI used here.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Alerter posts plain-text alerts to one chat.
type Alerter struct {
	bot    Sender
	chatID int64
}

// NewBotAPI connects to Telegram with the given bot token.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Printf("INFO: Authorized on Telegram account %s", bot.Self.UserName)
	return bot, nil
}

func NewAlerter(bot Sender, chatID int64) *Alerter {
	return &Alerter{bot: bot, chatID: chatID}
}

func (a *Alerter) Alert(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := a.bot.Send(tgbotapi.NewMessage(a.chatID, text))
	return err
}

// NopAlerter swallows alerts when no admin chat is configured.
type NopAlerter struct{}

func (NopAlerter) Alert(context.Context, string) error { return nil }
