package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"geminibot/internal/ai"
	"geminibot/internal/ledger"
	"geminibot/internal/state"
)

// DefaultAnswerLimit caps the length of answers shown to users
const DefaultAnswerLimit = 4000

// NewBot creates a new Telegram bot
func NewBot(token string, l *ledger.Ledger, tracker state.Tracker, completer ai.Completer, opts Options, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	b := newBot(api, l, tracker, completer, opts, logger)
	b.client = api
	return b, nil
}

// newBot wires a bot around any Sender
func newBot(api Sender, l *ledger.Ledger, tracker state.Tracker, completer ai.Completer, opts Options, logger *zap.Logger) *Bot {
	limit := opts.AnswerLimit
	if limit <= 0 {
		limit = DefaultAnswerLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		api:         api,
		ledger:      l,
		tracker:     tracker,
		ai:          completer,
		broadcaster: NewBroadcaster(api, opts.BroadcastDelay, logger),
		ownerID:     opts.OwnerID,
		answerLimit: limit,
		restart:     opts.Restart,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Wait blocks until in-flight updates and broadcasts finish
func (b *Bot) Wait() {
	b.tasks.Wait()
}

// Stop cancels running broadcasts and webhook updates, then waits for them
func (b *Bot) Stop() {
	b.cancel()
	b.tasks.Wait()
}

func (b *Bot) baseContext() context.Context {
	return b.ctx
}

// isOwner reports whether the user may perform administrative actions
func (b *Bot) isOwner(userID int64) bool {
	return b.ownerID != 0 && userID == b.ownerID
}
