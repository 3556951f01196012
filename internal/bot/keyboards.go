package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"geminibot/internal/state"
)

// Callback payloads of the admin panel
const (
	cbAddPoints    = "admin_add_points"
	cbRemovePoints = "admin_rem_points"
	cbBan          = "admin_ban"
	cbUnban        = "admin_unban"
	cbSetKey       = "admin_set_key"
	cbBanList      = "admin_banlist"
	cbBack         = "admin_back"
)

// adminPrompts maps buttons that need a follow-up message to their pending tag and prompt
var adminPrompts = map[string]struct {
	tag    state.Tag
	prompt string
}{
	cbAddPoints:    {state.TagAddPoints, "➕ Enter user ID and points (e.g., 12345 50):"},
	cbRemovePoints: {state.TagRemovePoints, "➖ Enter user ID and points to remove:"},
	cbBan:          {state.TagBan, "🚫 Enter user ID to ban:"},
	cbUnban:        {state.TagUnban, "♻️ Enter user ID to unban:"},
	cbSetKey:       {state.TagSetKey, "🔑 Send new Gemini API key:"},
}

// adminKeyboard builds the admin panel inline keyboard
func adminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add Points", cbAddPoints),
			tgbotapi.NewInlineKeyboardButtonData("➖ Remove Points", cbRemovePoints),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚫 Ban User", cbBan),
			tgbotapi.NewInlineKeyboardButtonData("♻️ Unban User", cbUnban),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔑 Set Gemini Key", cbSetKey),
			tgbotapi.NewInlineKeyboardButtonData("📜 Ban List", cbBanList),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Back", cbBack),
		),
	)
}
