package ch

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"

	"geminibot/internal/models"
)

// ClickHouseJournal appends points changes to the points_journal table
type ClickHouseJournal struct {
	conn clickhouse.Conn
}

// NewClickHouseJournal creates a new ClickHouse connection for the journal
func NewClickHouseJournal(host string, port int, database, user, password string, useTLS bool) (*ClickHouseJournal, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
	}

	// Configure TLS if enabled
	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test the connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseJournal{conn: conn}, nil
}

// Record inserts a single journal entry
func (j *ClickHouseJournal) Record(ctx context.Context, entry models.JournalEntry) error {
	err := j.conn.Exec(ctx, `INSERT INTO points_journal (user_id, delta, reason, created_at) VALUES (?, ?, ?, ?)`,
		entry.UserID, entry.Delta, string(entry.Reason), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

// History returns the last N entries for a user
func (j *ClickHouseJournal) History(ctx context.Context, userID int64, limit int) ([]models.JournalEntry, error) {
	rows, err := j.conn.Query(ctx, `
		SELECT user_id, delta, reason, created_at
		FROM points_journal
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var (
			entry  models.JournalEntry
			reason string
		)
		if err := rows.Scan(&entry.UserID, &entry.Delta, &reason, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entry.Reason = models.Reason(reason)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close closes the database connection
func (j *ClickHouseJournal) Close() error {
	if j.conn != nil {
		return j.conn.Close()
	}
	return nil
}
