package alert

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"fundsync/lib/sl"
)

// Telegram delivers high-severity operator alerts (disputes, payout failures)
// to a single operator chat. Delivery is best-effort: the caller logs a
// failure and moves on, it never blocks or rolls back a financial effect.
type Telegram struct {
	api    *tgbotapi.Bot
	chatId int64
	log    *slog.Logger
}

func NewTelegram(apiKey string, chatId int64, logger *slog.Logger) (*Telegram, error) {
	if chatId == 0 {
		return nil, fmt.Errorf("missing telegram chat id")
	}
	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{
		api:    api,
		chatId: chatId,
		log:    logger.With(sl.Module("alert")),
	}, nil
}

// SendAlert posts the alert as a Markdown message, falling back to plain text
// when the subject or body trips Telegram's markup parser.
func (t *Telegram) SendAlert(subject, body string) error {
	text := fmt.Sprintf("*%s*\n%s", subject, body)
	_, err := t.api.SendMessage(t.chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode: "Markdown",
	})
	if err != nil {
		t.log.With(
			sl.Err(err),
		).Debug("markdown send failed, retrying as plain text")
		_, err = t.api.SendMessage(t.chatId, subject+"\n"+body, &tgbotapi.SendMessageOpts{})
	}
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
