package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the in-process Journal used in tests and when persistence
// is disabled in config.
type MemoryStore struct {
	mu      sync.Mutex
	records []FileOperationRecord
}

// NewMemoryStore returns an empty in-memory journal.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append stores a copy of the record; callers cannot mutate it afterwards.
func (m *MemoryStore) Append(rec FileOperationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if len(rec.Metadata) > 0 {
		meta := make(map[string]string, len(rec.Metadata))
		for k, v := range rec.Metadata {
			meta[k] = v
		}
		rec.Metadata = meta
	}
	m.records = append(m.records, rec)
	return nil
}

// Recent returns up to limit records, newest first.
func (m *MemoryStore) Recent(limit int) ([]FileOperationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = normalizeLimit(limit)

	var out []FileOperationRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

// ByPath returns up to limit records touching path, newest first.
func (m *MemoryStore) ByPath(path string, limit int) ([]FileOperationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = normalizeLimit(limit)

	var out []FileOperationRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].Source == path || m.records[i].Destination == path {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

// Len reports the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
