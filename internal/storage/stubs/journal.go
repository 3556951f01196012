package stubs

import (
	"context"
	"sync"

	"geminibot/internal/models"
)

// MemoryJournal keeps journal entries in memory
type MemoryJournal struct {
	mu      sync.RWMutex
	entries []models.JournalEntry
}

// NewMemoryJournal creates an empty in-memory journal
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

// Record appends an entry
func (j *MemoryJournal) Record(ctx context.Context, entry models.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = append(j.entries, entry)
	return nil
}

// History returns the newest entries for a user, newest first
func (j *MemoryJournal) History(ctx context.Context, userID int64, limit int) ([]models.JournalEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var result []models.JournalEntry
	for i := len(j.entries) - 1; i >= 0; i-- {
		if j.entries[i].UserID != userID {
			continue
		}
		result = append(result, j.entries[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// Entries returns a copy of every recorded entry in insertion order
func (j *MemoryJournal) Entries() []models.JournalEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]models.JournalEntry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Close does nothing for the in-memory journal
func (j *MemoryJournal) Close() error {
	return nil
}
