package ch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clickhouseTC "github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"geminibot/internal/models"
)

// createJournalTable mirrors migrations/00001_create_points_journal.sql
func createJournalTable(ctx context.Context, j *ClickHouseJournal) error {
	_ = j.conn.Exec(ctx, "DROP TABLE IF EXISTS points_journal")

	return j.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS points_journal (
			user_id Int64,
			delta Int64,
			reason LowCardinality(String),
			created_at DateTime64(3, 'UTC')
		) ENGINE = MergeTree()
		ORDER BY (user_id, created_at)
	`)
}

// setupTestJournal creates a test ClickHouse instance using testcontainers
func setupTestJournal(t *testing.T) (*ClickHouseJournal, func()) {
	if testing.Short() {
		t.Skip("skipping ClickHouse integration test in short mode")
	}
	ctx := context.Background()

	clickhouseContainer, err := clickhouseTC.Run(ctx,
		"clickhouse/clickhouse-server:24.3.3.102-alpine",
		clickhouseTC.WithUsername("default"),
		clickhouseTC.WithPassword(""),
		clickhouseTC.WithDatabase("default"),
	)
	require.NoError(t, err, "Failed to start ClickHouse container")

	host, err := clickhouseContainer.Host(ctx)
	require.NoError(t, err)

	port, err := clickhouseContainer.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	journal, err := NewClickHouseJournal(host, port.Int(), "default", "default", "", false)
	require.NoError(t, err, "Failed to connect to ClickHouse")

	require.NoError(t, createJournalTable(ctx, journal), "Failed to create journal table")

	cleanup := func() {
		journal.Close()
		clickhouseContainer.Terminate(ctx)
	}

	return journal, cleanup
}

func TestClickHouseJournal_RecordAndHistory(t *testing.T) {
	journal, cleanup := setupTestJournal(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	entries := []models.JournalEntry{
		{UserID: 1, Delta: 50, Reason: models.ReasonWelcome, CreatedAt: base},
		{UserID: 1, Delta: -1, Reason: models.ReasonAsk, CreatedAt: base.Add(time.Minute)},
		{UserID: 2, Delta: 50, Reason: models.ReasonWelcome, CreatedAt: base.Add(2 * time.Minute)},
		{UserID: 1, Delta: 1, Reason: models.ReasonRefund, CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, e := range entries {
		require.NoError(t, journal.Record(ctx, e))
	}

	history, err := journal.History(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)

	// Newest first
	assert.Equal(t, models.ReasonRefund, history[0].Reason)
	assert.Equal(t, int64(1), history[0].Delta)
	assert.Equal(t, models.ReasonAsk, history[1].Reason)
	assert.Equal(t, models.ReasonWelcome, history[2].Reason)
	assert.WithinDuration(t, base, history[2].CreatedAt, time.Millisecond)
	for _, e := range history {
		assert.Equal(t, int64(1), e.UserID)
	}
}

func TestClickHouseJournal_HistoryLimit(t *testing.T) {
	journal, cleanup := setupTestJournal(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i := 0; i < 15; i++ {
		err := journal.Record(ctx, models.JournalEntry{
			UserID:    7,
			Delta:     int64(i),
			Reason:    models.ReasonAdminAdd,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	history, err := journal.History(ctx, 7, 5)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, int64(14), history[0].Delta)
	assert.Equal(t, int64(10), history[4].Delta)
}

func TestClickHouseJournal_EmptyHistory(t *testing.T) {
	journal, cleanup := setupTestJournal(t)
	defer cleanup()

	history, err := journal.History(context.Background(), 999, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}
