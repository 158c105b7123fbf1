package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramTransport adapts the Telegram Bot API to the Messenger interface
// and feeds the long-poll update stream into a Router.
type TelegramTransport struct {
	api *tgbotapi.BotAPI
	log *zap.SugaredLogger
}

func NewTelegramTransport(token string, log *zap.SugaredLogger) (*TelegramTransport, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot api: %w", err)
	}
	return &TelegramTransport{api: api, log: log}, nil
}

// SendText implements Messenger. Buttons render as an inline keyboard, one
// per row, in order.
func (t *TelegramTransport) SendText(ctx context.Context, chatID int64, text string, buttons ...Button) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if len(buttons) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
		for _, b := range buttons {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Payload),
			))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}

// Run long-polls for updates until ctx is cancelled, decoding each update
// once and handing it to the router. It never stops over a single bad
// update.
func (t *TelegramTransport) Run(ctx context.Context, router *Router) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := t.api.GetUpdatesChan(cfg)

	t.log.Infow("telegram transport running", "bot", t.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if q := update.CallbackQuery; q != nil {
				// Ack so the client stops its spinner even when the
				// payload turns out to be unknown.
				if _, err := t.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
					t.log.Debugw("callback ack failed", "error", err)
				}
			}
			if ev, ok := decodeUpdate(update); ok {
				router.Dispatch(ctx, ev)
			}
		}
	}
}

// decodeUpdate maps a raw Telegram update onto one of the three event
// classes.
func decodeUpdate(update tgbotapi.Update) (Event, bool) {
	if q := update.CallbackQuery; q != nil && q.Message != nil {
		return DecodeCallback(q.Message.Chat.ID, q.Data), true
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return Event{}, false
	}

	if msg.IsCommand() {
		if msg.Command() == "start" {
			return Event{ChatID: msg.Chat.ID, Kind: EventStart}, true
		}
		return Event{}, false
	}

	if msg.Text != "" {
		return Event{ChatID: msg.Chat.ID, Kind: EventText, Text: msg.Text}, true
	}
	return Event{}, false
}
