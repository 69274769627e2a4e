package scores

import (
	"context"
	"sync"
)

// MemoryStore keeps high scores in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Best(ctx context.Context, configID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[configID]
	if !ok {
		return Record{}, ErrNoScore
	}
	return record, nil
}

func (s *MemoryStore) Submit(ctx context.Context, record Record) (bool, error) {
	record, err := prepare(record)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.records[record.ConfigID]; ok && record.Score <= current.Score {
		return false, nil
	}
	if record.Score == 0 {
		return false, nil
	}
	s.records[record.ConfigID] = record
	return true, nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	records := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	s.mu.RUnlock()

	sortRecords(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
