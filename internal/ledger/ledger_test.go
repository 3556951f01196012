package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"geminibot/internal/models"
	"geminibot/internal/storage"
	"geminibot/internal/storage/stubs"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setup(t *testing.T) (*Ledger, *stubs.MockDB, *stubs.MemoryJournal, *fakeClock) {
	t.Helper()
	db := stubs.NewMockDB()
	journal := stubs.NewMemoryJournal()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

	l := New(db, journal, DefaultConfig(), zap.NewNop())
	l.SetClock(clock.Now)
	return l, db, journal, clock
}

func TestLedger_GetOrCreate(t *testing.T) {
	l, _, journal, _ := setup(t)
	ctx := context.Background()

	user, err := l.GetOrCreate(ctx, 42, models.Profile{FirstName: "Ada", Username: "ada"})
	require.NoError(t, err)
	assert.Equal(t, int64(50), user.Points)
	assert.False(t, user.Banned)
	assert.Nil(t, user.LastBonusTime)
	assert.Equal(t, "Ada", user.FirstName)

	again, err := l.GetOrCreate(ctx, 42, models.Profile{FirstName: "Changed"})
	require.NoError(t, err)
	assert.Equal(t, *user, *again)

	// Only the first contact grants points
	entries := journal.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, models.ReasonWelcome, entries[0].Reason)
	assert.Equal(t, int64(50), entries[0].Delta)
}

func TestLedger_GetOrCreateDefaultName(t *testing.T) {
	l, _, _, _ := setup(t)

	user, err := l.GetOrCreate(context.Background(), 7, models.Profile{})
	require.NoError(t, err)
	assert.Equal(t, "User", user.FirstName)
}

func TestLedger_GetOrCreateConcurrent(t *testing.T) {
	l, db, journal, _ := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.GetOrCreate(ctx, 42, models.Profile{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	user, err := db.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(50), user.Points)
	assert.Len(t, journal.Entries(), 1)
}

func TestLedger_TryDeductFloor(t *testing.T) {
	l, db, _, _ := setup(t)
	ctx := context.Background()

	_, err := l.GetOrCreate(ctx, 1, models.Profile{})
	require.NoError(t, err)
	require.NoError(t, l.AdjustPoints(ctx, 1, -49, models.ReasonAdminRemove))

	ok, err := l.TryDeduct(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	user, err := db.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), user.Points)

	ok, err = l.TryDeduct(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	user, err = db.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), user.Points)
}

func TestLedger_TryDeductConcurrent(t *testing.T) {
	l, db, _, _ := setup(t)
	ctx := context.Background()

	_, err := l.GetOrCreate(ctx, 1, models.Profile{})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.TryDeduct(ctx, 1)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, applied)
	user, err := db.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), user.Points)
}

func TestLedger_DeductThenRefundIsNetZero(t *testing.T) {
	l, db, journal, _ := setup(t)
	ctx := context.Background()

	_, err := l.GetOrCreate(ctx, 1, models.Profile{})
	require.NoError(t, err)

	ok, err := l.TryDeduct(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, l.Refund(ctx, 1))

	user, err := db.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50), user.Points)

	reasons := []models.Reason{}
	for _, e := range journal.Entries() {
		reasons = append(reasons, e.Reason)
	}
	assert.Equal(t, []models.Reason{models.ReasonWelcome, models.ReasonAsk, models.ReasonRefund}, reasons)
}

func TestLedger_AdjustUnknownUser(t *testing.T) {
	l, _, journal, _ := setup(t)

	err := l.AdjustPoints(context.Background(), 404, 10, models.ReasonAdminAdd)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Empty(t, journal.Entries())
}

func TestLedger_BonusCooldown(t *testing.T) {
	l, db, _, clock := setup(t)
	ctx := context.Background()

	_, err := l.GetOrCreate(ctx, 1, models.Profile{})
	require.NoError(t, err)

	first, err := l.ClaimBonus(ctx, 1)
	require.NoError(t, err)
	assert.True(t, first.Granted)
	assert.Equal(t, int64(20), first.Amount)

	clock.Advance(time.Hour)
	second, err := l.ClaimBonus(ctx, 1)
	require.NoError(t, err)
	assert.False(t, second.Granted)
	assert.Equal(t, 23*time.Hour, second.Remaining)
	assert.Greater(t, second.Remaining, time.Duration(0))
	assert.LessOrEqual(t, second.Remaining, 24*time.Hour)

	user, err := db.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(70), user.Points)

	remaining, err := l.BonusCooldown(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 23*time.Hour, remaining)

	clock.Advance(23 * time.Hour)
	third, err := l.ClaimBonus(ctx, 1)
	require.NoError(t, err)
	assert.True(t, third.Granted)

	user, err = db.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(90), user.Points)
}

func TestLedger_BonusRemainingNeverZeroWhileCooling(t *testing.T) {
	l, _, _, clock := setup(t)
	ctx := context.Background()

	_, err := l.GetOrCreate(ctx, 1, models.Profile{})
	require.NoError(t, err)
	_, err = l.ClaimBonus(ctx, 1)
	require.NoError(t, err)

	clock.Advance(24*time.Hour - 300*time.Millisecond)
	result, err := l.ClaimBonus(ctx, 1)
	require.NoError(t, err)
	assert.False(t, result.Granted)
	assert.Equal(t, time.Second, result.Remaining)
}

func TestLedger_BonusConcurrentClaims(t *testing.T) {
	l, db, _, _ := setup(t)
	ctx := context.Background()

	_, err := l.GetOrCreate(ctx, 1, models.Profile{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.ClaimBonus(ctx, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	user, err := db.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(70), user.Points)
}

func TestLedger_Ban(t *testing.T) {
	l, _, _, _ := setup(t)
	ctx := context.Background()

	banned, err := l.IsBanned(ctx, 555)
	require.NoError(t, err)
	assert.False(t, banned)

	// Banning creates the record when the user never wrote to the bot
	require.NoError(t, l.SetBanned(ctx, 555, true))
	banned, err = l.IsBanned(ctx, 555)
	require.NoError(t, err)
	assert.True(t, banned)

	_, err = l.GetOrCreate(ctx, 556, models.Profile{})
	require.NoError(t, err)

	list, err := l.Banned(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(555), list[0].UserID)

	recipients, err := l.Recipients(ctx)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, int64(556), recipients[0].UserID)

	require.NoError(t, l.SetBanned(ctx, 555, false))
	banned, err = l.IsBanned(ctx, 555)
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestLedger_APIKey(t *testing.T) {
	l, _, _, _ := setup(t)
	ctx := context.Background()

	key, err := l.APIKey(ctx)
	require.NoError(t, err)
	assert.Empty(t, key)

	require.NoError(t, l.SetAPIKey(ctx, "first"))
	require.NoError(t, l.SetAPIKey(ctx, "second"))

	key, err = l.APIKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", key)
}

func TestLedger_StatsAndHistory(t *testing.T) {
	l, _, _, _ := setup(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		_, err := l.GetOrCreate(ctx, id, models.Profile{})
		require.NoError(t, err)
	}
	require.NoError(t, l.SetBanned(ctx, 3, true))
	_, err := l.TryDeduct(ctx, 1)
	require.NoError(t, err)

	stats, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{TotalUsers: 3, BannedUsers: 1, TotalPoints: 149}, stats)

	history, err := l.History(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.ReasonAsk, history[0].Reason)
	assert.Equal(t, models.ReasonWelcome, history[1].Reason)
}

func TestLedger_WithoutJournal(t *testing.T) {
	l := New(stubs.NewMockDB(), nil, DefaultConfig(), zap.NewNop())
	ctx := context.Background()

	_, err := l.GetOrCreate(ctx, 1, models.Profile{})
	require.NoError(t, err)

	history, err := l.History(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestLedger_StoreUnavailable(t *testing.T) {
	l, db, _, _ := setup(t)
	db.Fail = true

	_, err := l.GetOrCreate(context.Background(), 1, models.Profile{})
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	_, err = l.TryDeduct(context.Background(), 1)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}
