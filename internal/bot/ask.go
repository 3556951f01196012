package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"geminibot/internal/models"
	"geminibot/internal/state"
)

// handleAsk answers an inline question, or waits for the question in the
// next message when none was given
func (b *Bot) handleAsk(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	question := strings.TrimSpace(message.CommandArguments())
	if question != "" {
		b.processAsk(ctx, message.Chat.ID, user, question)
		return
	}

	if user.Banned {
		b.sendText(message.Chat.ID, msgBanned)
		return
	}
	if !b.keyConfigured(ctx, message.Chat.ID) {
		return
	}

	if err := b.tracker.Set(ctx, user.UserID, state.TagAsk); err != nil {
		b.logger.Error("Failed to set pending tag", zap.Error(err), zap.Int64("user_id", user.UserID))
		b.sendText(message.Chat.ID, msgStorageError)
		return
	}
	b.sendText(message.Chat.ID, msgAskPrompt)
}

// handlePendingAsk treats the follow-up text as the question
func (b *Bot) handlePendingAsk(ctx context.Context, message *tgbotapi.Message) {
	user, err := b.ledger.GetOrCreate(ctx, message.From.ID, profileOf(message.From))
	if err != nil {
		b.logger.Error("Failed to load user", zap.Error(err), zap.Int64("user_id", message.From.ID))
		b.sendText(message.Chat.ID, storageErrorText(err))
		return
	}
	b.processAsk(ctx, message.Chat.ID, user, message.Text)
}

// refundTimeout bounds the refund once the update context is gone
const refundTimeout = 10 * time.Second

// processAsk charges one point and relays the question to the model. The
// point is refunded when the model fails, even if ctx was cancelled in the
// meantime. The balance shown afterwards is computed from the snapshot taken
// before the charge.
func (b *Bot) processAsk(ctx context.Context, chatID int64, user *models.User, question string) {
	if user.Banned {
		b.sendText(chatID, msgBanned)
		return
	}

	apiKey, ok := b.apiKey(ctx, chatID)
	if !ok {
		return
	}

	if user.Points <= 0 {
		b.sendText(chatID, msgNotEnoughPoints)
		return
	}

	deducted, err := b.ledger.TryDeduct(ctx, user.UserID)
	if err != nil {
		b.logger.Error("Failed to deduct point", zap.Error(err), zap.Int64("user_id", user.UserID))
	}
	if err != nil || !deducted {
		b.sendText(chatID, msgDeductFailed)
		return
	}

	// A zero MessageID makes editText send a fresh message instead
	thinking, _ := b.sendText(chatID, msgThinking)

	answer, err := b.ai.Complete(ctx, apiKey, question)
	if err != nil {
		b.logger.Warn("Completion failed",
			zap.Error(err),
			zap.Int64("user_id", user.UserID),
		)
		b.refund(ctx, user.UserID)
		b.editText(chatID, thinking.MessageID, fmt.Sprintf("❌ Error: %v", err), nil)
		return
	}

	text := fmt.Sprintf(answerFormat, truncate(answer, b.answerLimit), user.Points-1)
	b.editText(chatID, thinking.MessageID, text, nil)
}

// refund returns the point charged for a failed question. It still runs
// after ctx is cancelled.
func (b *Bot) refund(ctx context.Context, userID int64) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refundTimeout)
	defer cancel()

	if err := b.ledger.Refund(rctx, userID); err != nil {
		b.logger.Error("Failed to refund point", zap.Error(err), zap.Int64("user_id", userID))
	}
}

// keyConfigured tells the user when no API key is set
func (b *Bot) keyConfigured(ctx context.Context, chatID int64) bool {
	_, ok := b.apiKey(ctx, chatID)
	return ok
}

func (b *Bot) apiKey(ctx context.Context, chatID int64) (string, bool) {
	key, err := b.ledger.APIKey(ctx)
	if err != nil {
		b.logger.Error("Failed to load API key", zap.Error(err))
		b.sendText(chatID, msgStorageError)
		return "", false
	}
	if key == "" {
		b.sendText(chatID, msgNotConfigured)
		return "", false
	}
	return key, true
}
