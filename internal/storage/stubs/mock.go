package stubs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"geminibot/internal/models"
	"geminibot/internal/storage"
)

// MockDB is an in-memory implementation of the Storage interface for testing
type MockDB struct {
	mu       sync.RWMutex
	users    map[int64]*models.User
	settings map[string]string

	// Fail makes every call return storage.ErrUnavailable when set
	Fail bool
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		users:    make(map[int64]*models.User),
		settings: make(map[string]string),
	}
}

// Initialize does nothing for mock DB
func (m *MockDB) Initialize(ctx context.Context) error {
	return m.check()
}

func (m *MockDB) check() error {
	if m.Fail {
		return fmt.Errorf("mock db: %w", storage.ErrUnavailable)
	}
	return nil
}

// GetOrCreateUser returns the stored user or inserts a new one
func (m *MockDB) GetOrCreateUser(ctx context.Context, userID int64, profile models.Profile, initialPoints int64, now time.Time) (*models.User, bool, error) {
	if err := m.check(); err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if user, ok := m.users[userID]; ok {
		u := *user
		return &u, false, nil
	}

	firstName := profile.FirstName
	if firstName == "" {
		firstName = "User"
	}
	user := &models.User{
		UserID:    userID,
		FirstName: firstName,
		Username:  profile.Username,
		Points:    initialPoints,
		JoinedAt:  now,
	}
	m.users[userID] = user

	u := *user
	return &u, true, nil
}

// GetUser returns a copy of the stored user
func (m *MockDB) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	if err := m.check(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, storage.ErrNotFound)
	}
	u := *user
	return &u, nil
}

// ListUsers returns users with the given banned flag, sorted by ID
func (m *MockDB) ListUsers(ctx context.Context, banned bool) ([]models.User, error) {
	if err := m.check(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var users []models.User
	for _, user := range m.users {
		if user.Banned == banned {
			users = append(users, *user)
		}
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].UserID < users[j].UserID
	})

	return users, nil
}

// SetBanned updates the banned flag
func (m *MockDB) SetBanned(ctx context.Context, userID int64, banned bool) error {
	return m.update(userID, func(u *models.User) {
		u.Banned = banned
	})
}

// IncrementPoints adds delta to the balance
func (m *MockDB) IncrementPoints(ctx context.Context, userID int64, delta int64) error {
	return m.update(userID, func(u *models.User) {
		u.Points += delta
	})
}

// DecrementIfPositive subtracts one point when the balance allows it
func (m *MockDB) DecrementIfPositive(ctx context.Context, userID int64) (bool, error) {
	applied := false
	err := m.update(userID, func(u *models.User) {
		if u.Points > 0 {
			u.Points--
			applied = true
		}
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// GrantBonus adds the bonus when the previous claim is old enough
func (m *MockDB) GrantBonus(ctx context.Context, userID int64, amount int64, now, cutoff time.Time) (bool, error) {
	applied := false
	err := m.update(userID, func(u *models.User) {
		if u.LastBonusTime != nil && u.LastBonusTime.After(cutoff) {
			return
		}
		stamp := now
		u.Points += amount
		u.LastBonusTime = &stamp
		applied = true
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// update applies fn to the stored user under the write lock
func (m *MockDB) update(userID int64, fn func(u *models.User)) error {
	if err := m.check(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, storage.ErrNotFound)
	}
	fn(user)
	return nil
}

// GetSetting returns a setting value and whether it exists
func (m *MockDB) GetSetting(ctx context.Context, key string) (string, bool, error) {
	if err := m.check(); err != nil {
		return "", false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.settings[key]
	return value, ok, nil
}

// SetSetting creates or overwrites a setting
func (m *MockDB) SetSetting(ctx context.Context, key, value string) error {
	if err := m.check(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings[key] = value
	return nil
}

// Stats returns aggregate user statistics
func (m *MockDB) Stats(ctx context.Context) (models.Stats, error) {
	if err := m.check(); err != nil {
		return models.Stats{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats models.Stats
	for _, user := range m.users {
		stats.TotalUsers++
		if user.Banned {
			stats.BannedUsers++
		}
		stats.TotalPoints += user.Points
	}
	return stats, nil
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}
