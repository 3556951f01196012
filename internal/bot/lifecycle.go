package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Start runs the bot in polling mode until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	if b.client == nil {
		return errors.New("polling requires a Telegram client")
	}
	b.logger.Info("Starting bot in polling mode")

	// Remove webhook (if any was set previously)
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("Failed to delete webhook", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.client.GetUpdatesChan(u)

	b.logger.Info("Bot started successfully. Waiting for updates...")

	for {
		select {
		case <-ctx.Done():
			b.client.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// StartWebhook registers the webhook URL with Telegram. Updates are posted
// to the secret path served by HTTPServer.
func (b *Bot) StartWebhook(webhookURL, secret string) error {
	b.logger.Info("Setting up webhook", zap.String("webhook_url", webhookURL))

	webhookConfig, err := tgbotapi.NewWebhook(strings.TrimSuffix(webhookURL, "/") + webhookPath + secret)
	if err != nil {
		return err
	}
	webhookConfig.MaxConnections = 40

	if _, err := b.api.Request(webhookConfig); err != nil {
		b.logger.Error("Failed to set webhook", zap.Error(err), zap.String("webhook_url", webhookURL))
		return err
	}

	if b.client != nil {
		info, err := b.client.GetWebhookInfo()
		if err != nil {
			b.logger.Warn("Failed to get webhook info", zap.Error(err))
		} else {
			b.logger.Info("Webhook set successfully",
				zap.String("url", info.URL),
				zap.Int("pending_updates", info.PendingUpdateCount),
			)
		}
	}

	b.logger.Info("Bot configured for webhook mode")
	return nil
}

// HandleUpdate processes one update in its own goroutine. Wait blocks until
// all of them finish.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.tasks.Add(1)
	go func() {
		defer b.tasks.Done()
		b.handleUpdate(ctx, update)
	}()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	}
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}
