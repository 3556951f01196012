package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"geminibot/internal/models"
)

// DefaultBroadcastDelay paces broadcast sends under Telegram's rate limits
const DefaultBroadcastDelay = 100 * time.Millisecond

// DeliveryResult is the outcome of sending a broadcast to one user.
// Err is nil when the message was delivered.
type DeliveryResult struct {
	UserID int64
	Err    error
}

// BroadcastSummary aggregates the per-recipient results of one broadcast
type BroadcastSummary struct {
	ID        uuid.UUID
	Total     int
	Delivered int
	Failed    int
	Results   []DeliveryResult
}

// Broadcaster sends one text to many users sequentially
type Broadcaster struct {
	api    Sender
	delay  time.Duration
	logger *zap.Logger
}

// NewBroadcaster creates a broadcaster; a negative delay disables pacing
func NewBroadcaster(api Sender, delay time.Duration, logger *zap.Logger) *Broadcaster {
	if delay == 0 {
		delay = DefaultBroadcastDelay
	}
	if delay < 0 {
		delay = 0
	}
	return &Broadcaster{api: api, delay: delay, logger: logger}
}

// Run delivers text to every recipient. A failed send is recorded and the
// loop moves on; a cancelled context stops it and marks the rest as failed.
func (br *Broadcaster) Run(ctx context.Context, recipients []models.User, text string) BroadcastSummary {
	summary := BroadcastSummary{
		ID:      uuid.New(),
		Total:   len(recipients),
		Results: make([]DeliveryResult, 0, len(recipients)),
	}
	logger := br.logger.With(zap.String("broadcast_id", summary.ID.String()))
	logger.Info("Broadcast started", zap.Int("recipients", summary.Total))

	for i, u := range recipients {
		if i > 0 && br.delay > 0 {
			if err := sleep(ctx, br.delay); err != nil {
				for _, rest := range recipients[i:] {
					summary.Results = append(summary.Results, DeliveryResult{UserID: rest.UserID, Err: err})
					summary.Failed++
				}
				break
			}
		}

		_, err := br.api.Send(tgbotapi.NewMessage(u.UserID, text))
		if err != nil {
			logger.Debug("Broadcast delivery failed", zap.Error(err), zap.Int64("user_id", u.UserID))
			summary.Failed++
		} else {
			summary.Delivered++
		}
		summary.Results = append(summary.Results, DeliveryResult{UserID: u.UserID, Err: err})
	}

	logger.Info("Broadcast finished",
		zap.Int("delivered", summary.Delivered),
		zap.Int("failed", summary.Failed),
	)
	return summary
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// startBroadcast sends text to all non-banned users in the background and
// reports the delivered count to the admin when done
func (b *Bot) startBroadcast(ctx context.Context, chatID int64, text string) {
	if text == "" {
		b.sendText(chatID, msgBroadcastEmpty)
		return
	}

	recipients, err := b.ledger.Recipients(ctx)
	if err != nil {
		b.logger.Error("Failed to list broadcast recipients", zap.Error(err))
		b.sendText(chatID, storageErrorText(err))
		return
	}

	b.tasks.Add(1)
	go func() {
		defer b.tasks.Done()
		// Outlives the update that started it
		summary := b.broadcaster.Run(b.baseContext(), recipients, text)
		b.sendText(chatID, fmt.Sprintf("✅ Broadcast sent to %d users.", summary.Delivered))
	}()
}
