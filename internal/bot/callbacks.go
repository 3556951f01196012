package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleAdminCallback processes an admin panel button pressed by the owner
func (b *Bot) handleAdminCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	switch query.Data {
	case cbBanList:
		b.showBanList(ctx, chatID, messageID)
		return
	case cbBack:
		keyboard := adminKeyboard()
		b.editText(chatID, messageID, msgAdminPanel, &keyboard)
		return
	}

	p, ok := adminPrompts[query.Data]
	if !ok {
		b.logger.Warn("Unknown callback data", zap.String("callback_data", query.Data))
		return
	}

	if err := b.tracker.Set(ctx, query.From.ID, p.tag); err != nil {
		b.logger.Error("Failed to set pending tag",
			zap.Error(err),
			zap.Int64("user_id", query.From.ID),
			zap.String("tag", string(p.tag)),
		)
		b.sendText(chatID, msgStorageError)
		return
	}
	b.editText(chatID, messageID, p.prompt, nil)
}

// showBanList replaces the panel with the list of banned users
func (b *Bot) showBanList(ctx context.Context, chatID int64, messageID int) {
	back := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Back", cbBack),
		),
	)

	users, err := b.ledger.Banned(ctx)
	if err != nil {
		b.logger.Error("Failed to list banned users", zap.Error(err))
		b.editText(chatID, messageID, msgStorageError, &back)
		return
	}
	if len(users) == 0 {
		b.editText(chatID, messageID, msgNoBanned, &back)
		return
	}

	var sb strings.Builder
	sb.WriteString("📜 Banned Users:\n")
	for _, u := range users {
		if u.Username != "" {
			fmt.Fprintf(&sb, "\n%d (@%s)", u.UserID, u.Username)
		} else {
			fmt.Fprintf(&sb, "\n%d %s", u.UserID, u.FirstName)
		}
	}
	b.editText(chatID, messageID, sb.String(), &back)
}
