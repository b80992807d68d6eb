package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// NewBot creates new telegram bot
func NewBot(c BotConfig, handler *Handler) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	return &Bot{
		Bot:     bot,
		Config:  c,
		handler: handler,
	}, nil
}

// GetUpdatesChannel gets new updates updates
func (b *Bot) GetUpdatesChannel() (tgbotapi.UpdatesChannel, error) {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.Bot.GetUpdatesChan(updatesConfig), nil
}

// StopReceivingUpdates ends the long-polling loop.
func (b *Bot) StopReceivingUpdates() {
	b.Bot.StopReceivingUpdates()
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message to chat %d", m.ChatID)
}

// Deliver sends an alert payload to the subscriber's chat.
func (b *Bot) Deliver(ctx context.Context, subscriberID int64, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.SendMessage(Message{ChatID: subscriberID, Text: payload})
}

// HandleUpdate processes Telegram updates and returns the reply text.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) string {
	return b.handler.Handle(ctx,
		u.Message.Chat.ID,
		chatLabel(u.Message),
		u.Message.Command(),
		u.Message.CommandArguments(),
		u.Message.Text,
	)
}

func chatLabel(m *tgbotapi.Message) string {
	if m.From != nil && m.From.UserName != "" {
		return m.From.UserName
	}
	if m.Chat.Title != "" {
		return m.Chat.Title
	}
	return fmt.Sprintf("%s-%d", "PrivateChat", m.Chat.ID)
}
