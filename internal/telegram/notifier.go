package telegram

import (
	"fmt"

	"bitkub-trade-bot-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const apiBaseURL = "https://api.telegram.org"

// NotifierInterface is the alerting channel the trading engine reports to.
// Delivery is best-effort: implementations must never propagate failures
// into the decision logic.
type NotifierInterface interface {
	Notify(message string)
}

// Notifier sends messages to a Telegram chat via the bot API.
type Notifier struct {
	client *resty.Client
	token  string
	chatID string
	logger *zap.Logger
}

var _ NotifierInterface = (*Notifier)(nil)

// NewNotifier creates a Telegram notifier. With no bot token configured it
// degrades to a logged no-op so the bot can run without a channel.
func NewNotifier(cfg *config.Telegram, logger *zap.Logger) *Notifier {
	return &Notifier{
		client: resty.New().SetBaseURL(apiBaseURL),
		token:  cfg.BotToken,
		chatID: cfg.ChatID,
		logger: logger,
	}
}

// Notify delivers a message to the configured chat. Errors are logged and
// swallowed.
func (n *Notifier) Notify(message string) {
	if n.token == "" {
		n.logger.Debug("Telegram notifier disabled, dropping message", zap.String("message", message))
		return
	}

	resp, err := n.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"chat_id": n.chatID,
			"text":    message,
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", n.token))

	if err != nil {
		n.logger.Warn("Failed to send Telegram notification", zap.Error(err))
		return
	}
	if resp.IsError() {
		n.logger.Warn("Telegram API rejected notification",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
	}
}
