package bot

import (
	"fmt"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// sendText sends a plain text message and logs delivery failures
func (b *Bot) sendText(chatID int64, text string) (tgbotapi.Message, error) {
	return b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

// sendMessage sends a prepared message and logs delivery failures
func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) (tgbotapi.Message, error) {
	sent, err := b.api.Send(msg)
	if err != nil {
		b.logger.Warn("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", msg.ChatID),
		)
	}
	return sent, err
}

// editText replaces the text of a message sent earlier, falling back to a new
// message when there is nothing to edit or the edit fails
func (b *Bot) editText(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	if messageID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
		edit.ReplyMarkup = markup
		_, err := b.api.Send(edit)
		if err == nil {
			return
		}
		b.logger.Warn("Failed to edit message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID),
		)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	b.sendMessage(msg)
}

// answerCallback acknowledges a button press, optionally as an alert
func (b *Bot) answerCallback(queryID, text string, alert bool) {
	callback := tgbotapi.NewCallback(queryID, text)
	if alert {
		callback = tgbotapi.NewCallbackWithAlert(queryID, text)
	}
	if _, err := b.api.Request(callback); err != nil {
		b.logger.Warn("Failed to answer callback", zap.Error(err), zap.String("query_id", queryID))
	}
}

// truncate caps s at limit runes
func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// formatSeconds renders a cooldown as "1h 2m 3s", or "2m 3s" under an hour
func formatSeconds(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	}
	return fmt.Sprintf("%dm %ds", minutes, secs)
}
