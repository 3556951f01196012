// Package ledger applies the points rules on top of the storage layer.
//
// Every balance change goes through the Ledger: the welcome grant on first
// contact, the one-point charge per question (a conditional decrement in the
// store, never read-modify-write here), refunds, bonus claims and admin
// adjustments. Changes are also appended to the journal; journal failures are
// logged and never fail the operation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"geminibot/internal/models"
	"geminibot/internal/storage"
)

// Config holds the points economy parameters
type Config struct {
	InitialPoints int64
	BonusPoints   int64
	BonusCooldown time.Duration
}

// DefaultConfig returns the standard economy: 50 points on signup, 20 points
// bonus once per 24 hours
func DefaultConfig() Config {
	return Config{
		InitialPoints: 50,
		BonusPoints:   20,
		BonusCooldown: 24 * time.Hour,
	}
}

// BonusResult describes the outcome of a bonus claim
type BonusResult struct {
	Granted bool
	Amount  int64
	// Remaining is the time left before the next claim when not granted
	Remaining time.Duration
}

// Ledger wraps storage with the points rules
type Ledger struct {
	store   storage.Storage
	journal storage.Journal
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a ledger. journal may be nil.
func New(store storage.Storage, journal storage.Journal, cfg Config, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:   store,
		journal: journal,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock replaces the time source
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// Config returns the economy parameters
func (l *Ledger) Config() Config {
	return l.cfg
}

// GetOrCreate returns the user, creating it with the initial grant on first contact
func (l *Ledger) GetOrCreate(ctx context.Context, userID int64, profile models.Profile) (*models.User, error) {
	user, created, err := l.store.GetOrCreateUser(ctx, userID, profile, l.cfg.InitialPoints, l.now())
	if err != nil {
		return nil, err
	}
	if created {
		l.logger.Info("New user registered",
			zap.Int64("user_id", userID),
			zap.String("username", profile.Username),
			zap.Int64("points", user.Points),
		)
		l.record(ctx, userID, l.cfg.InitialPoints, models.ReasonWelcome)
	}
	return user, nil
}

// AdjustPoints changes the balance by delta with no floor
func (l *Ledger) AdjustPoints(ctx context.Context, userID int64, delta int64, reason models.Reason) error {
	if err := l.store.IncrementPoints(ctx, userID, delta); err != nil {
		return err
	}
	l.record(ctx, userID, delta, reason)
	return nil
}

// TryDeduct charges one point if the balance is positive and reports whether it did
func (l *Ledger) TryDeduct(ctx context.Context, userID int64) (bool, error) {
	ok, err := l.store.DecrementIfPositive(ctx, userID)
	if err != nil {
		return false, err
	}
	if ok {
		l.record(ctx, userID, -1, models.ReasonAsk)
	}
	return ok, nil
}

// Refund returns the point charged by TryDeduct
func (l *Ledger) Refund(ctx context.Context, userID int64) error {
	return l.AdjustPoints(ctx, userID, 1, models.ReasonRefund)
}

// ClaimBonus grants the bonus when the cooldown has elapsed. A second claim
// racing this one is settled by the store's conditional update.
func (l *Ledger) ClaimBonus(ctx context.Context, userID int64) (BonusResult, error) {
	user, err := l.store.GetUser(ctx, userID)
	if err != nil {
		return BonusResult{}, err
	}

	now := l.now()
	if remaining := l.remaining(user.LastBonusTime, now); remaining > 0 {
		return BonusResult{Remaining: remaining}, nil
	}

	granted, err := l.store.GrantBonus(ctx, userID, l.cfg.BonusPoints, now, now.Add(-l.cfg.BonusCooldown))
	if err != nil {
		return BonusResult{}, err
	}
	if !granted {
		user, err := l.store.GetUser(ctx, userID)
		if err != nil {
			return BonusResult{}, err
		}
		remaining := l.remaining(user.LastBonusTime, now)
		if remaining <= 0 {
			remaining = time.Second
		}
		return BonusResult{Remaining: remaining}, nil
	}

	l.record(ctx, userID, l.cfg.BonusPoints, models.ReasonBonus)
	return BonusResult{Granted: true, Amount: l.cfg.BonusPoints}, nil
}

// BonusCooldown returns the time left before the user may claim again, zero if claimable
func (l *Ledger) BonusCooldown(ctx context.Context, userID int64) (time.Duration, error) {
	user, err := l.store.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return l.remaining(user.LastBonusTime, l.now()), nil
}

// remaining never reports less than a second while still cooling down
func (l *Ledger) remaining(last *time.Time, now time.Time) time.Duration {
	if last == nil {
		return 0
	}
	next := last.Add(l.cfg.BonusCooldown)
	if !now.Before(next) {
		return 0
	}
	left := next.Sub(now).Truncate(time.Second)
	if left < time.Second {
		left = time.Second
	}
	return left
}

// SetBanned sets the banned flag. Unknown users get a record first so a ban
// can be issued before their first contact.
func (l *Ledger) SetBanned(ctx context.Context, userID int64, banned bool) error {
	if _, err := l.GetOrCreate(ctx, userID, models.Profile{}); err != nil {
		return err
	}
	return l.store.SetBanned(ctx, userID, banned)
}

// IsBanned reports the banned flag; unknown users are not banned
func (l *Ledger) IsBanned(ctx context.Context, userID int64) (bool, error) {
	user, err := l.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.Banned, nil
}

// Banned lists banned users
func (l *Ledger) Banned(ctx context.Context) ([]models.User, error) {
	return l.store.ListUsers(ctx, true)
}

// Recipients lists users eligible for broadcasts
func (l *Ledger) Recipients(ctx context.Context) ([]models.User, error) {
	return l.store.ListUsers(ctx, false)
}

// Stats returns aggregate user statistics
func (l *Ledger) Stats(ctx context.Context) (models.Stats, error) {
	return l.store.Stats(ctx)
}

// History returns recent journal entries for a user
func (l *Ledger) History(ctx context.Context, userID int64, limit int) ([]models.JournalEntry, error) {
	if l.journal == nil {
		return nil, nil
	}
	return l.journal.History(ctx, userID, limit)
}

// APIKey returns the configured Gemini API key, empty if not configured
func (l *Ledger) APIKey(ctx context.Context) (string, error) {
	key, ok, err := l.store.GetSetting(ctx, storage.SettingGeminiAPIKey)
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	if !ok {
		return "", nil
	}
	return key, nil
}

// SetAPIKey stores a new Gemini API key
func (l *Ledger) SetAPIKey(ctx context.Context, key string) error {
	if err := l.store.SetSetting(ctx, storage.SettingGeminiAPIKey, key); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}
	l.logger.Info("Gemini API key updated")
	return nil
}

func (l *Ledger) record(ctx context.Context, userID int64, delta int64, reason models.Reason) {
	if l.journal == nil {
		return
	}
	entry := models.JournalEntry{
		UserID:    userID,
		Delta:     delta,
		Reason:    reason,
		CreatedAt: l.now().UTC(),
	}
	if err := l.journal.Record(ctx, entry); err != nil {
		l.logger.Warn("Failed to record journal entry",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.Int64("delta", delta),
			zap.String("reason", string(reason)),
		)
	}
}
