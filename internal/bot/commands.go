package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"geminibot/internal/models"
)

// historyLimit is the number of journal entries shown by /history
const historyLimit = 10

// handleStart greets the user and shows their balance
func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	if user.Banned {
		b.sendText(message.Chat.ID, msgBanned)
		return
	}

	cfg := b.ledger.Config()
	b.sendText(message.Chat.ID, fmt.Sprintf(welcomeText, cfg.InitialPoints, cfg.BonusPoints, user.Points))
}

// handleBalance shows the current balance and bonus availability
func (b *Bot) handleBalance(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	if user.Banned {
		b.sendText(message.Chat.ID, msgBannedShort)
		return
	}

	text := fmt.Sprintf("💰 You have: %d points", user.Points)

	remaining, err := b.ledger.BonusCooldown(ctx, user.UserID)
	if err != nil {
		b.logger.Warn("Failed to read bonus cooldown", zap.Error(err), zap.Int64("user_id", user.UserID))
	} else if remaining > 0 {
		text += fmt.Sprintf("\n⏳ Next bonus in %s", formatSeconds(int64(remaining/time.Second)))
	} else {
		text += "\n🎁 Your bonus is ready: /bonus"
	}

	b.sendText(message.Chat.ID, text)
}

// handleBonus claims the periodic bonus
func (b *Bot) handleBonus(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	if user.Banned {
		b.sendText(message.Chat.ID, msgBannedShort)
		return
	}

	result, err := b.ledger.ClaimBonus(ctx, user.UserID)
	if err != nil {
		b.logger.Error("Failed to claim bonus", zap.Error(err), zap.Int64("user_id", user.UserID))
		b.sendText(message.Chat.ID, storageErrorText(err))
		return
	}

	if !result.Granted {
		b.sendText(message.Chat.ID, fmt.Sprintf("⏳ Wait %s before claiming again!", formatSeconds(int64(result.Remaining/time.Second))))
		return
	}

	b.logger.Info("Bonus claimed", zap.Int64("user_id", user.UserID), zap.Int64("amount", result.Amount))
	b.sendText(message.Chat.ID, fmt.Sprintf("🎉 +%d points claimed! Enjoy!", result.Amount))
}

// handleAdminSettings opens the admin panel
func (b *Bot) handleAdminSettings(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	if !b.isOwner(user.UserID) {
		b.sendText(message.Chat.ID, msgOwnerOnly)
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, msgAdminPanel)
	msg.ReplyMarkup = adminKeyboard()
	b.sendMessage(msg)
}

// handleStats shows aggregate statistics
func (b *Bot) handleStats(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	if !b.isOwner(user.UserID) {
		b.sendText(message.Chat.ID, msgOwnerOnly)
		return
	}

	stats, err := b.ledger.Stats(ctx)
	if err != nil {
		b.logger.Error("Failed to get stats", zap.Error(err))
		b.sendText(message.Chat.ID, storageErrorText(err))
		return
	}

	text := fmt.Sprintf("📊 Bot Statistics\n\n👥 Total Users: %d\n🚫 Banned: %d\n💰 Total Points Distributed: %d\n🕐 Server Time: %s UTC",
		stats.TotalUsers,
		stats.BannedUsers,
		stats.TotalPoints,
		time.Now().UTC().Format("2006-01-02 15:04:05"),
	)
	b.sendText(message.Chat.ID, text)
}

// handleHistory shows the latest journal entries of a user
func (b *Bot) handleHistory(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	if !b.isOwner(user.UserID) {
		b.sendText(message.Chat.ID, msgOwnerOnly)
		return
	}

	targetID, err := strconv.ParseInt(strings.TrimSpace(message.CommandArguments()), 10, 64)
	if err != nil {
		b.sendText(message.Chat.ID, msgHistoryUsage)
		return
	}

	entries, err := b.ledger.History(ctx, targetID, historyLimit)
	if err != nil {
		b.logger.Error("Failed to read journal", zap.Error(err), zap.Int64("target_id", targetID))
		b.sendText(message.Chat.ID, storageErrorText(err))
		return
	}
	if len(entries) == 0 {
		b.sendText(message.Chat.ID, msgNoHistory)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📜 Last %d changes for %d:\n", len(entries), targetID)
	for _, e := range entries {
		fmt.Fprintf(&sb, "\n%s  %+d  %s", e.CreatedAt.UTC().Format("2006-01-02 15:04"), e.Delta, e.Reason)
	}
	b.sendText(message.Chat.ID, sb.String())
}

// handleRestart replies and then re-executes the process
func (b *Bot) handleRestart(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	if !b.isOwner(user.UserID) {
		b.sendText(message.Chat.ID, msgOwnerOnly)
		return
	}
	if b.restart == nil {
		b.sendText(message.Chat.ID, msgRestartDisabled)
		return
	}

	b.sendText(message.Chat.ID, msgRestarting)
	b.logger.Info("Restart requested", zap.Int64("user_id", user.UserID))

	if err := b.restart(); err != nil {
		b.logger.Error("Failed to restart", zap.Error(err))
		b.sendText(message.Chat.ID, fmt.Sprintf("❌ Restart failed: %v", err))
	}
}
