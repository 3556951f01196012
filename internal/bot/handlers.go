package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"geminibot/internal/models"
	"geminibot/internal/storage"
)

// commands maps recognized command keywords to their handlers
func (b *Bot) commands() map[string]commandHandler {
	return map[string]commandHandler{
		"start":          b.handleStart,
		"ask":            b.handleAsk,
		"bonus":          b.handleBonus,
		"balance":        b.handleBalance,
		"admin_settings": b.handleAdminSettings,
		"broadcast":      b.handleBroadcast,
		"stats":          b.handleStats,
		"history":        b.handleHistory,
		"restart":        b.handleRestart,
		"addpoints":      b.handleAddPoints,
		"rempoints":      b.handleRemovePoints,
		"ban":            b.handleBan,
		"unban":          b.handleUnban,
		"setkey":         b.handleSetKey,
	}
}

// handleMessage routes a single message: a recognized command cancels any
// pending interaction and runs; otherwise a pending tag claims the text;
// otherwise the message is ignored.
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			b.sendText(message.Chat.ID, "An error occurred while processing your request. Please try again.")
		}
	}()

	if message.From == nil {
		return
	}
	userID := message.From.ID

	if message.IsCommand() {
		if handler, ok := b.commands()[message.Command()]; ok {
			if err := b.tracker.Clear(ctx, userID); err != nil {
				b.logger.Warn("Failed to clear pending tag", zap.Error(err), zap.Int64("user_id", userID))
			}

			user, err := b.ledger.GetOrCreate(ctx, userID, profileOf(message.From))
			if err != nil {
				b.logger.Error("Failed to load user",
					zap.Error(err),
					zap.Int64("user_id", userID),
					zap.String("command", message.Command()),
				)
				b.sendText(message.Chat.ID, storageErrorText(err))
				return
			}

			b.logger.Debug("Handling command",
				zap.Int64("user_id", userID),
				zap.String("command", message.Command()),
			)
			handler(ctx, message, user)
			return
		}
	}

	// Only private text can complete a pending interaction
	if message.Text == "" || !message.Chat.IsPrivate() {
		return
	}

	tag, ok, err := b.tracker.Take(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to read pending tag", zap.Error(err), zap.Int64("user_id", userID))
		return
	}
	if !ok {
		return
	}

	b.handleConversation(ctx, message, tag)
}

// handleCallbackQuery processes inline keyboard button clicks. Every button
// belongs to the admin panel, so the owner check runs before anything else.
func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	if query.From == nil {
		return
	}
	userID := query.From.ID

	if !b.isOwner(userID) {
		b.logger.Warn("Unauthorized callback query attempt",
			zap.Int64("user_id", userID),
			zap.String("username", query.From.UserName),
			zap.String("callback_data", query.Data),
		)
		b.answerCallback(query.ID, msgOwnerOnly, true)
		return
	}

	b.handleAdminCallback(ctx, query)
	b.answerCallback(query.ID, "", false)
}

// profileOf copies the profile fields stored on first contact
func profileOf(u *tgbotapi.User) models.Profile {
	return models.Profile{
		FirstName: u.FirstName,
		Username:  u.UserName,
	}
}

// storageErrorText picks the user-facing text for a persistence error
func storageErrorText(err error) string {
	if errors.Is(err, storage.ErrNotFound) {
		return "❌ User not found."
	}
	return msgStorageError
}
