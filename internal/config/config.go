package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/caarlos0/env/v10"
)

// webhookSecretPattern matches the characters Telegram allows in a secret token
var webhookSecretPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{16,256}$`)

// Config holds the application configuration
type Config struct {
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN"`
	// BotToken is read when TELEGRAM_BOT_TOKEN is unset
	BotToken string `env:"BOT_TOKEN"`
	OwnerID  int64  `env:"OWNER_ID"`

	// MTProto credentials; not used by the Bot API transport
	APIID   int64  `env:"API_ID"`
	APIHash string `env:"API_HASH"`

	// Bot mode configuration
	WebhookMode   bool   `env:"WEBHOOK_MODE" envDefault:"false"`
	WebhookURL    string `env:"WEBHOOK_URL"`
	// Path segment Telegram must present on every webhook call
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	Port          string `env:"PORT" envDefault:"8080"`

	Debug bool `env:"DEBUG" envDefault:"false"`

	UseMockDB bool `env:"USE_MOCK_DB" envDefault:"false"`

	Mongo struct {
		URI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
		Database string `env:"MONGODB_DATABASE" envDefault:"gemini_bot"`
	}

	Pending struct {
		// Store is "memory" or "redis"
		Store         string        `env:"PENDING_STORE" envDefault:"memory"`
		TTL           time.Duration `env:"PENDING_TTL" envDefault:"0s"`
		RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		RedisPassword string        `env:"REDIS_PASSWORD"`
		RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	}

	// ClickHouse journal configuration
	JournalEnabled     bool   `env:"JOURNAL_ENABLED" envDefault:"false"`
	ClickHouseHost     string `env:"CLICKHOUSE_HOST"`
	ClickHousePort     int    `env:"CLICKHOUSE_PORT" envDefault:"9000"`
	ClickHouseDatabase string `env:"CLICKHOUSE_DATABASE" envDefault:"default"`
	ClickHouseUser     string `env:"CLICKHOUSE_USER" envDefault:"default"`
	ClickHousePassword string `env:"CLICKHOUSE_PASSWORD"`
	ClickHouseUseTLS   bool   `env:"CLICKHOUSE_USE_TLS" envDefault:"false"`

	Gemini struct {
		Model   string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
		Timeout time.Duration `env:"AI_TIMEOUT" envDefault:"2m"`
	}

	Points struct {
		Initial       int64         `env:"INITIAL_POINTS" envDefault:"50"`
		Bonus         int64         `env:"BONUS_POINTS" envDefault:"20"`
		BonusCooldown time.Duration `env:"BONUS_COOLDOWN" envDefault:"24h"`
	}

	AnswerLimit    int           `env:"ANSWER_LIMIT" envDefault:"4000"`
	BroadcastDelay time.Duration `env:"BROADCAST_DELAY" envDefault:"100ms"`
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if config.TelegramToken == "" {
		config.TelegramToken = config.BotToken
	}
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	if config.OwnerID == 0 {
		return nil, fmt.Errorf("OWNER_ID is required (Telegram user ID of the bot owner)")
	}

	if config.APIHash != "" && config.APIID == 0 {
		return nil, fmt.Errorf("API_ID is required when API_HASH is set")
	}

	if config.WebhookMode && config.WebhookURL == "" {
		return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
	}

	if config.WebhookMode && !webhookSecretPattern.MatchString(config.WebhookSecret) {
		return nil, fmt.Errorf("WEBHOOK_SECRET is required when WEBHOOK_MODE is true (16-256 chars of A-Z, a-z, 0-9, _ and -)")
	}

	switch config.Pending.Store {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("invalid PENDING_STORE %q (expected memory or redis)", config.Pending.Store)
	}

	if config.JournalEnabled && config.ClickHouseHost == "" {
		return nil, fmt.Errorf("CLICKHOUSE_HOST is required when JOURNAL_ENABLED is true")
	}

	if config.Points.Initial < 0 || config.Points.Bonus < 0 {
		return nil, fmt.Errorf("INITIAL_POINTS and BONUS_POINTS must not be negative")
	}

	return config, nil
}
