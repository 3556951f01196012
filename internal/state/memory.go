package state

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps pending tags in process memory. Tags are lost on restart.
type Memory struct {
	mu   sync.Mutex
	tags map[int64]Tag
}

// NewMemory creates an empty in-memory tracker
func NewMemory() *Memory {
	return &Memory{tags: make(map[int64]Tag)}
}

func (m *Memory) Set(ctx context.Context, userID int64, tag Tag) error {
	if !tag.Valid() {
		return fmt.Errorf("invalid pending tag %q", tag)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.tags[userID] = tag
	return nil
}

func (m *Memory) Get(ctx context.Context, userID int64) (Tag, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tag, ok := m.tags[userID]
	return tag, ok, nil
}

func (m *Memory) Take(ctx context.Context, userID int64) (Tag, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tag, ok := m.tags[userID]
	delete(m.tags, userID)
	return tag, ok, nil
}

func (m *Memory) Clear(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tags, userID)
	return nil
}

// Len returns the number of users with a pending tag
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.tags)
}
