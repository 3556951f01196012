package storage

import (
	"context"
	"errors"
	"time"

	"geminibot/internal/models"
)

var (
	// ErrNotFound is returned when a targeted record does not exist
	ErrNotFound = errors.New("not found")
	// ErrUnavailable is returned when the backing store cannot be reached
	ErrUnavailable = errors.New("persistence unavailable")
)

// SettingGeminiAPIKey is the settings key holding the active Gemini API key
const SettingGeminiAPIKey = "gemini_api_key"

// Storage defines the interface for user and settings persistence
type Storage interface {
	// User operations

	// GetOrCreateUser returns the user with the given ID, inserting a new record
	// with initialPoints if none exists. The bool result reports whether the
	// record was inserted by this call. Concurrent calls for the same ID must
	// produce exactly one record.
	GetOrCreateUser(ctx context.Context, userID int64, profile models.Profile, initialPoints int64, now time.Time) (*models.User, bool, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	ListUsers(ctx context.Context, banned bool) ([]models.User, error)
	SetBanned(ctx context.Context, userID int64, banned bool) error

	// Points operations

	// IncrementPoints adds delta (which may be negative) without any floor
	IncrementPoints(ctx context.Context, userID int64, delta int64) error
	// DecrementIfPositive atomically subtracts one point only if the balance is
	// greater than zero and reports whether the update applied
	DecrementIfPositive(ctx context.Context, userID int64) (bool, error)
	// GrantBonus atomically adds amount and stamps now as the last bonus time,
	// only if the previous bonus is absent or not after cutoff
	GrantBonus(ctx context.Context, userID int64, amount int64, now, cutoff time.Time) (bool, error)

	// Settings operations
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error

	// Statistics operations
	Stats(ctx context.Context) (models.Stats, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}

// Journal records balance changes for auditing
type Journal interface {
	Record(ctx context.Context, entry models.JournalEntry) error
	// History returns the newest entries for a user, newest first
	History(ctx context.Context, userID int64, limit int) ([]models.JournalEntry, error)
	Close() error
}
