package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"geminibot/internal/ai"
	"geminibot/internal/bot"
	"geminibot/internal/config"
	"geminibot/internal/ledger"
	"geminibot/internal/state"
	"geminibot/internal/storage"
	"geminibot/internal/storage/ch"
	"geminibot/internal/storage/mdb"
	"geminibot/internal/storage/stubs"
)

// App represents the application
type App struct {
	config  *config.Config
	logger  *zap.Logger
	db      storage.Storage
	journal storage.Journal
	redis   *redis.Client
	tracker state.Tracker
	bot     *bot.Bot
	server  *http.Server
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	envErr := godotenv.Load()

	// Load configuration from environment variables
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if envErr != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	app := &App{config: cfg, logger: logger}

	logger.Info("Starting Gemini AI Bot...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	if err := app.initJournal(); err != nil {
		return nil, err
	}

	if err := app.initTracker(ctx); err != nil {
		return nil, err
	}

	if err := app.initBot(); err != nil {
		return nil, err
	}

	app.initHTTPServer()

	return app, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// initDatabase initializes the user and settings store
func (a *App) initDatabase(ctx context.Context) error {
	var db storage.Storage
	if a.config.UseMockDB {
		a.logger.Info("Using mock database")
		db = stubs.NewMockDB()
	} else {
		a.logger.Info("Connecting to MongoDB",
			zap.String("database", a.config.Mongo.Database),
		)
		mongoDB, err := mdb.NewMongoDB(ctx, a.config.Mongo.URI, a.config.Mongo.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		db = mongoDB
	}

	if err := db.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.logger.Info("Database initialized successfully")

	a.db = db
	return nil
}

// initJournal connects to ClickHouse when the points journal is enabled
func (a *App) initJournal() error {
	if !a.config.JournalEnabled {
		a.logger.Info("Points journal disabled")
		return nil
	}

	a.logger.Info("Connecting to ClickHouse",
		zap.String("host", a.config.ClickHouseHost),
		zap.Int("port", a.config.ClickHousePort),
		zap.String("database", a.config.ClickHouseDatabase),
		zap.String("user", a.config.ClickHouseUser),
		zap.Bool("tls", a.config.ClickHouseUseTLS),
	)
	journal, err := ch.NewClickHouseJournal(
		a.config.ClickHouseHost,
		a.config.ClickHousePort,
		a.config.ClickHouseDatabase,
		a.config.ClickHouseUser,
		a.config.ClickHousePassword,
		a.config.ClickHouseUseTLS,
	)
	if err != nil {
		return fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	a.journal = journal
	return nil
}

// initTracker selects where pending tags live
func (a *App) initTracker(ctx context.Context) error {
	if a.config.Pending.Store != "redis" {
		a.tracker = state.NewMemory()
		return nil
	}

	a.logger.Info("Using Redis for pending tags", zap.String("addr", a.config.Pending.RedisAddr))
	client, err := state.OpenRedis(ctx, a.config.Pending.RedisAddr, a.config.Pending.RedisPassword, a.config.Pending.RedisDB)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	a.redis = client
	a.tracker = state.NewRedis(client, a.config.Pending.TTL)
	return nil
}

// initBot initializes the Telegram bot
func (a *App) initBot() error {
	l := ledger.New(a.db, a.journal, ledger.Config{
		InitialPoints: a.config.Points.Initial,
		BonusPoints:   a.config.Points.Bonus,
		BonusCooldown: a.config.Points.BonusCooldown,
	}, a.logger)

	completer := ai.NewGemini(a.config.Gemini.Model, a.config.Gemini.Timeout, a.logger)

	telegramBot, err := bot.NewBot(a.config.TelegramToken, l, a.tracker, completer, bot.Options{
		OwnerID:        a.config.OwnerID,
		AnswerLimit:    a.config.AnswerLimit,
		BroadcastDelay: a.config.BroadcastDelay,
		Restart:        a.restart,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	a.logger.Info("Bot created successfully", zap.Int64("owner_id", a.config.OwnerID))

	a.bot = telegramBot
	return nil
}

// initHTTPServer initializes the HTTP server for health checks and webhook
func (a *App) initHTTPServer() {
	mux := http.NewServeMux()
	bot.NewHTTPServer(a.bot, a.config.WebhookMode, a.config.WebhookSecret).RegisterRoutes(mux)

	a.server = &http.Server{
		Addr:         ":" + a.config.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Start HTTP server in background
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("port", a.config.Port))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// restart replaces the running process with a fresh copy of itself
func (a *App) restart() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	a.logger.Info("Re-executing process", zap.String("path", exe))
	_ = a.logger.Sync()
	return syscall.Exec(exe, os.Args, os.Environ())
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.config.WebhookMode {
		a.logger.Info("Starting bot in WEBHOOK mode", zap.String("url", a.config.WebhookURL))
		if err := a.bot.StartWebhook(a.config.WebhookURL, a.config.WebhookSecret); err != nil {
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
		a.logger.Info("Webhook configured. Bot will receive updates via HTTP endpoint /telegram-webhook/<secret>")
	} else {
		go func() {
			a.logger.Info("Starting bot in POLLING mode...")
			if err := a.bot.Start(ctx); err != nil {
				a.logger.Error("Polling stopped", zap.Error(err))
				stop()
			}
		}()
	}

	<-ctx.Done()

	a.logger.Info("Shutting down...")
	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	a.bot.Stop()

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Error closing Redis", zap.Error(err))
		}
	}

	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("Error closing journal", zap.Error(err))
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	_ = a.logger.Sync()
	return nil
}
