package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/robo-sapien-lab/Simpi/internal/dispatch"
)

// Bot is the thin outer event loop: it reads updates from Telegram, hands
// the text to the dispatcher, and sends the reply back. All decisions live
// in the dispatcher.
type Bot struct {
	api        *tgbotapi.BotAPI
	dispatcher *dispatch.Dispatcher
	log        *zap.Logger
}

func New(botToken string, dispatcher *dispatch.Dispatcher, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("init telegram api: %w", err)
	}
	return &Bot{api: api, dispatcher: dispatcher, log: log}, nil
}

// Start blocks consuming updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			b.handleIncomingMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	// Channel posts have no sender; those messages go through anonymously.
	var userID string
	if msg.From != nil {
		userID = strconv.FormatInt(msg.From.ID, 10)
	}

	b.log.Info("incoming message", zap.String("user_id", userID), zap.Int("length", len(msg.Text)))

	reply := b.dispatcher.ProcessMessage(ctx, userID, msg.Text)
	if reply == "" {
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, reply)
	if _, err := b.api.Send(out); err != nil {
		b.log.Error("send reply", zap.Error(err), zap.Int64("chat_id", msg.Chat.ID))
	}
}
