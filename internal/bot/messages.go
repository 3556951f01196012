package bot

const welcomeText = `👋 Welcome to Gemini AI Bot! 🤖

✨ You're now registered!
🎉 You received %d welcome points!

💡 Use /ask <your question> to talk with Gemini AI
🔄 Claim %d free points daily with /bonus

💰 You have: %d points`

const (
	msgBanned          = "🚫 You are banned from using this bot."
	msgBannedShort     = "🚫 You are banned."
	msgNotConfigured   = "🤖 Gemini API is not configured yet. Contact admin."
	msgAskPrompt       = "💬 Please send your question now:"
	msgNotEnoughPoints = "❌ Not enough points! Claim bonus with /bonus"
	msgDeductFailed    = "❌ Failed to deduct point. Try again."
	msgThinking        = "🤔 Thinking..."
	msgStorageError    = "⚠️ Service is temporarily unavailable. Please try again later."
	msgOwnerOnly       = "❌ Owner only!"
	msgAdminPanel      = "🔧 Admin Panel"
	msgPointsFormat    = "❌ Format: user_id points"
	msgUserIDFormat    = "❌ Format: user_id"
	msgBroadcastPrompt = "📢 Send the message to broadcast:"
	msgBroadcastEmpty  = "❌ Broadcast text is empty."
	msgKeyUpdated      = "✅ Gemini API key updated!"
	msgRestarting      = "🔄 Restarting bot..."
	msgRestartDisabled = "⚠️ Restart is not available in this deployment."
	msgHistoryUsage    = "❌ Usage: /history user_id"
	msgNoHistory       = "No journal entries for this user."
	msgNoBanned        = "No banned users."
)

const answerFormat = "✅ Gemini Answer:\n\n%s\n\n💰 Points left: %d"

