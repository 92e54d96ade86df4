package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore keeps encoded records in process.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string][]byte{}}
}

func (m *MemoryStore) LoadProgress(ctx context.Context, sessionID string) (*Record, error) {
	m.mu.Lock()
	data, ok := m.records[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return DecodeRecord(data)
}

func (m *MemoryStore) SaveProgress(ctx context.Context, sessionID string, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("could not encode progress: %w", err)
	}
	m.mu.Lock()
	m.records[sessionID] = data
	m.mu.Unlock()
	return nil
}

func DecodeRecord(data []byte) (*Record, error) {
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("could not decode progress: %w", err)
	}
	if record.Weeks == nil {
		record.Weeks = map[int]*WeekProgress{}
	}
	return &record, nil
}
