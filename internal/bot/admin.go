package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"geminibot/internal/models"
	"geminibot/internal/state"
)

var (
	errPointsFormat = errors.New("expected user_id and points")
	errUserIDFormat = errors.New("expected user_id")
)

// parsePointsInput parses "<user_id> <points>" with a positive amount
func parsePointsInput(input string) (int64, int64, error) {
	fields := strings.Fields(input)
	if len(fields) != 2 {
		return 0, 0, errPointsFormat
	}
	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, 0, errPointsFormat
	}
	amount, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || amount <= 0 {
		return 0, 0, errPointsFormat
	}
	return userID, amount, nil
}

// parseUserID parses a bare user id
func parseUserID(input string) (int64, error) {
	fields := strings.Fields(input)
	if len(fields) != 1 {
		return 0, errUserIDFormat
	}
	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, errUserIDFormat
	}
	return userID, nil
}

// executeAdminAction runs an admin action with its input text. Both the
// two-step panel flow and the one-shot commands end up here.
func (b *Bot) executeAdminAction(ctx context.Context, chatID int64, tag state.Tag, input string) {
	switch tag {
	case state.TagAddPoints, state.TagRemovePoints:
		userID, amount, err := parsePointsInput(input)
		if err != nil {
			b.sendText(chatID, msgPointsFormat)
			return
		}
		b.adjustPoints(ctx, chatID, userID, amount, tag == state.TagAddPoints)

	case state.TagBan, state.TagUnban:
		userID, err := parseUserID(input)
		if err != nil {
			b.sendText(chatID, msgUserIDFormat)
			return
		}
		b.setBanned(ctx, chatID, userID, tag == state.TagBan)

	case state.TagSetKey:
		b.setKey(ctx, chatID, input)

	case state.TagBroadcast:
		b.startBroadcast(ctx, chatID, input)

	default:
		b.logger.Warn("Unknown admin action", zap.String("tag", string(tag)))
	}
}

func (b *Bot) adjustPoints(ctx context.Context, chatID, userID, amount int64, add bool) {
	delta, reason := amount, models.ReasonAdminAdd
	if !add {
		delta, reason = -amount, models.ReasonAdminRemove
	}

	if err := b.ledger.AdjustPoints(ctx, userID, delta, reason); err != nil {
		b.logger.Error("Failed to adjust points",
			zap.Error(err),
			zap.Int64("target_id", userID),
			zap.Int64("delta", delta),
		)
		b.sendText(chatID, storageErrorText(err))
		return
	}

	b.logger.Info("Points adjusted by admin", zap.Int64("target_id", userID), zap.Int64("delta", delta))
	if add {
		b.sendText(chatID, fmt.Sprintf("✅ Added %d points to %d", amount, userID))
	} else {
		b.sendText(chatID, fmt.Sprintf("✅ Removed %d points from %d", amount, userID))
	}
}

func (b *Bot) setBanned(ctx context.Context, chatID, userID int64, banned bool) {
	if err := b.ledger.SetBanned(ctx, userID, banned); err != nil {
		b.logger.Error("Failed to update ban flag",
			zap.Error(err),
			zap.Int64("target_id", userID),
			zap.Bool("banned", banned),
		)
		b.sendText(chatID, storageErrorText(err))
		return
	}

	b.logger.Info("Ban flag updated", zap.Int64("target_id", userID), zap.Bool("banned", banned))
	if banned {
		b.sendText(chatID, fmt.Sprintf("🚫 Banned %d", userID))
	} else {
		b.sendText(chatID, fmt.Sprintf("♻️ Unbanned %d", userID))
	}
}

func (b *Bot) setKey(ctx context.Context, chatID int64, key string) {
	key = strings.TrimSpace(key)
	if key == "" {
		b.sendText(chatID, "❌ API key is empty.")
		return
	}
	if err := b.ledger.SetAPIKey(ctx, key); err != nil {
		b.logger.Error("Failed to set API key", zap.Error(err))
		b.sendText(chatID, storageErrorText(err))
		return
	}
	b.sendText(chatID, msgKeyUpdated)
}

// adminCommand runs an admin action from a one-shot command, or prompts for
// the input when the command came without arguments
func (b *Bot) adminCommand(ctx context.Context, message *tgbotapi.Message, user *models.User, tag state.Tag, prompt string) {
	if !b.isOwner(user.UserID) {
		b.sendText(message.Chat.ID, msgOwnerOnly)
		return
	}

	args := strings.TrimSpace(message.CommandArguments())
	if args != "" {
		b.executeAdminAction(ctx, message.Chat.ID, tag, args)
		return
	}

	if err := b.tracker.Set(ctx, user.UserID, tag); err != nil {
		b.logger.Error("Failed to set pending tag", zap.Error(err), zap.Int64("user_id", user.UserID))
		b.sendText(message.Chat.ID, msgStorageError)
		return
	}
	b.sendText(message.Chat.ID, prompt)
}

func (b *Bot) handleAddPoints(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	b.adminCommand(ctx, message, user, state.TagAddPoints, adminPrompts[cbAddPoints].prompt)
}

func (b *Bot) handleRemovePoints(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	b.adminCommand(ctx, message, user, state.TagRemovePoints, adminPrompts[cbRemovePoints].prompt)
}

func (b *Bot) handleBan(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	b.adminCommand(ctx, message, user, state.TagBan, adminPrompts[cbBan].prompt)
}

func (b *Bot) handleUnban(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	b.adminCommand(ctx, message, user, state.TagUnban, adminPrompts[cbUnban].prompt)
}

func (b *Bot) handleSetKey(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	b.adminCommand(ctx, message, user, state.TagSetKey, adminPrompts[cbSetKey].prompt)
}

func (b *Bot) handleBroadcast(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	b.adminCommand(ctx, message, user, state.TagBroadcast, msgBroadcastPrompt)
}
