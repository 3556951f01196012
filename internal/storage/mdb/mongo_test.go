package mdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mongoTC "github.com/testcontainers/testcontainers-go/modules/mongodb"

	"geminibot/internal/models"
	"geminibot/internal/storage"
)

// setupTestDB starts MongoDB in a container and returns an initialized store
func setupTestDB(t *testing.T) (*MongoDB, func()) {
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongoTC.Run(ctx, "mongo:7")
	require.NoError(t, err, "Failed to start MongoDB container")

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := NewMongoDB(ctx, uri, "gemini_bot_test")
	require.NoError(t, err, "Failed to connect to MongoDB")
	require.NoError(t, db.Initialize(ctx))

	cleanup := func() {
		db.Close()
		mongoContainer.Terminate(ctx)
	}
	return db, cleanup
}

func TestMongoDB_GetOrCreateUser(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	user, created, err := db.GetOrCreateUser(ctx, 42, models.Profile{FirstName: "Ada", Username: "ada"}, 50, now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(50), user.Points)

	again, created, err := db.GetOrCreateUser(ctx, 42, models.Profile{FirstName: "Other"}, 99, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(50), again.Points)
	assert.Equal(t, "Ada", again.FirstName)
	assert.Equal(t, "ada", again.Username)
	assert.False(t, again.Banned)
	assert.Nil(t, again.LastBonusTime)
	assert.True(t, now.Equal(again.JoinedAt))
}

func TestMongoDB_GetOrCreateUserConcurrent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		creates int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := db.GetOrCreateUser(ctx, 7, models.Profile{}, 50, time.Now())
			assert.NoError(t, err)
			if created {
				mu.Lock()
				creates++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, creates)
	stats, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalUsers)
	assert.Equal(t, int64(50), stats.TotalPoints)
}

func TestMongoDB_DecrementIfPositive(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

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

func TestMongoDB_IncrementAndBan(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	_, _, err := db.GetOrCreateUser(ctx, 1, models.Profile{}, 50, time.Now())
	require.NoError(t, err)

	require.NoError(t, db.IncrementPoints(ctx, 1, -80))
	user, err := db.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(-30), user.Points)

	require.NoError(t, db.SetBanned(ctx, 1, true))
	banned, err := db.ListUsers(ctx, true)
	require.NoError(t, err)
	require.Len(t, banned, 1)
	assert.Equal(t, int64(1), banned[0].UserID)

	assert.ErrorIs(t, db.IncrementPoints(ctx, 404, 1), storage.ErrNotFound)
	assert.ErrorIs(t, db.SetBanned(ctx, 404, true), storage.ErrNotFound)
	_, err = db.GetUser(ctx, 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMongoDB_GrantBonus(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	_, _, err := db.GetOrCreateUser(ctx, 1, models.Profile{}, 0, now)
	require.NoError(t, err)

	ok, err := db.GrantBonus(ctx, 1, 20, now, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	later := now.Add(time.Hour)
	ok, err = db.GrantBonus(ctx, 1, 20, later, later.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	next := now.Add(24 * time.Hour)
	ok, err = db.GrantBonus(ctx, 1, 20, next, next.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	user, err := db.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(40), user.Points)
	require.NotNil(t, user.LastBonusTime)
	assert.True(t, next.Equal(*user.LastBonusTime))
}

func TestMongoDB_Settings(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	_, ok, err := db.GetSetting(ctx, storage.SettingGeminiAPIKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.SetSetting(ctx, storage.SettingGeminiAPIKey, "first"))
	require.NoError(t, db.SetSetting(ctx, storage.SettingGeminiAPIKey, "second"))

	value, ok, err := db.GetSetting(ctx, storage.SettingGeminiAPIKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", value)
}

func TestMongoDB_Stats(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	stats, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{}, stats)

	for _, id := range []int64{1, 2, 3} {
		_, _, err := db.GetOrCreateUser(ctx, id, models.Profile{}, 50, time.Now())
		require.NoError(t, err)
	}
	require.NoError(t, db.SetBanned(ctx, 2, true))
	require.NoError(t, db.IncrementPoints(ctx, 3, 5))

	stats, err = db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{TotalUsers: 3, BannedUsers: 1, TotalPoints: 155}, stats)

	active, err := db.ListUsers(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, int64(1), active[0].UserID)
	assert.Equal(t, int64(3), active[1].UserID)
}
