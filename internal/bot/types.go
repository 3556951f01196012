package bot

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"geminibot/internal/ai"
	"geminibot/internal/ledger"
	"geminibot/internal/models"
	"geminibot/internal/state"
)

// Sender is the part of the Telegram API the handlers use
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	client      *tgbotapi.BotAPI // nil in tests
	api         Sender
	ledger      *ledger.Ledger
	tracker     state.Tracker
	ai          ai.Completer
	broadcaster *Broadcaster
	ownerID     int64
	answerLimit int
	restart     func() error
	logger      *zap.Logger

	// ctx outlives single updates; Stop cancels it
	ctx    context.Context
	cancel context.CancelFunc

	// tasks tracks in-flight updates and broadcasts
	tasks sync.WaitGroup
}

// Options configures a Bot
type Options struct {
	OwnerID        int64
	AnswerLimit    int
	BroadcastDelay time.Duration
	// Restart re-executes the process; nil disables /restart
	Restart func() error
}

// commandHandler handles a recognized command for a registered user
type commandHandler func(ctx context.Context, message *tgbotapi.Message, user *models.User)
