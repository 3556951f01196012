package stubs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geminibot/internal/models"
	"geminibot/internal/storage"
)

func TestMockDB_GetOrCreateUser(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	user, created, err := db.GetOrCreateUser(ctx, 10, models.Profile{FirstName: "Ann", Username: "ann"}, 50, now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(50), user.Points)
	assert.Equal(t, "ann", user.Username)
	assert.Equal(t, now, user.JoinedAt)

	// Mutating the returned copy does not touch the store
	user.Points = 1000

	again, created, err := db.GetOrCreateUser(ctx, 10, models.Profile{FirstName: "Other"}, 99, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(50), again.Points)
	assert.Equal(t, "Ann", again.FirstName)
}

func TestMockDB_UnknownUser(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	_, err := db.GetUser(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, db.IncrementPoints(ctx, 1, 5), storage.ErrNotFound)
	assert.ErrorIs(t, db.SetBanned(ctx, 1, true), storage.ErrNotFound)

	_, err = db.DecrementIfPositive(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMockDB_DecrementIfPositive(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	_, _, err := db.GetOrCreateUser(ctx, 1, models.Profile{}, 1, time.Now())
	require.NoError(t, err)

	ok, err := db.DecrementIfPositive(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.DecrementIfPositive(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	user, err := db.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), user.Points)
}

func TestMockDB_GrantBonus(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	_, _, err := db.GetOrCreateUser(ctx, 1, models.Profile{}, 0, now)
	require.NoError(t, err)

	ok, err := db.GrantBonus(ctx, 1, 20, now, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	later := now.Add(time.Hour)
	ok, err = db.GrantBonus(ctx, 1, 20, later, later.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	user, err := db.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(20), user.Points)
	require.NotNil(t, user.LastBonusTime)
	assert.Equal(t, now, *user.LastBonusTime)
}

func TestMockDB_ListAndStats(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	for _, id := range []int64{3, 1, 2} {
		_, _, err := db.GetOrCreateUser(ctx, id, models.Profile{}, 10, time.Now())
		require.NoError(t, err)
	}
	require.NoError(t, db.SetBanned(ctx, 2, true))

	active, err := db.ListUsers(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, int64(1), active[0].UserID)
	assert.Equal(t, int64(3), active[1].UserID)

	banned, err := db.ListUsers(ctx, true)
	require.NoError(t, err)
	require.Len(t, banned, 1)
	assert.Equal(t, int64(2), banned[0].UserID)

	stats, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{TotalUsers: 3, BannedUsers: 1, TotalPoints: 30}, stats)
}

func TestMockDB_Settings(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	_, ok, err := db.GetSetting(ctx, storage.SettingGeminiAPIKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.SetSetting(ctx, storage.SettingGeminiAPIKey, "k1"))
	require.NoError(t, db.SetSetting(ctx, storage.SettingGeminiAPIKey, "k2"))

	value, ok, err := db.GetSetting(ctx, storage.SettingGeminiAPIKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "k2", value)
}

func TestMockDB_Fail(t *testing.T) {
	db := NewMockDB()
	db.Fail = true

	_, _, err := db.GetOrCreateUser(context.Background(), 1, models.Profile{}, 50, time.Now())
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.ErrorIs(t, db.Initialize(context.Background()), storage.ErrUnavailable)
}

func TestMemoryJournal_History(t *testing.T) {
	j := NewMemoryJournal()
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, j.Record(ctx, models.JournalEntry{UserID: 1, Delta: i, Reason: models.ReasonAdminAdd}))
		require.NoError(t, j.Record(ctx, models.JournalEntry{UserID: 2, Delta: -i, Reason: models.ReasonAdminRemove}))
	}

	history, err := j.History(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, int64(5), history[0].Delta)
	assert.Equal(t, int64(3), history[2].Delta)

	assert.Len(t, j.Entries(), 10)
}
