package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"geminibot/internal/state"
)

// handleConversation completes the interaction the pending tag was waiting
// for. The tag has already been consumed, so a failed attempt never leaves
// the user stuck in it.
func (b *Bot) handleConversation(ctx context.Context, message *tgbotapi.Message, tag state.Tag) {
	userID := message.From.ID

	b.logger.Debug("Completing pending interaction",
		zap.Int64("user_id", userID),
		zap.String("tag", string(tag)),
	)

	if tag == state.TagAsk {
		b.handlePendingAsk(ctx, message)
		return
	}

	if !tag.Admin() {
		b.logger.Warn("Unknown pending tag", zap.String("tag", string(tag)), zap.Int64("user_id", userID))
		return
	}

	// Ownership may have been lost between prompt and reply
	if !b.isOwner(userID) {
		b.logger.Warn("Admin follow-up from non-owner", zap.Int64("user_id", userID), zap.String("tag", string(tag)))
		return
	}

	b.executeAdminAction(ctx, message.Chat.ID, tag, message.Text)
}
