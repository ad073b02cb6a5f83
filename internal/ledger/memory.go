package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
)

// MemoryStore keeps attendance in process memory. Used in tests and when
// running without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.AttendanceRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) ListSince(ctx context.Context, identityID string, since time.Time) ([]domain.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.AttendanceRecord
	for _, rec := range s.records {
		if rec.IdentityID == identityID && !rec.Timestamp.Before(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, rec *domain.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, *rec)
	return nil
}

// List returns records matching filter, newest first.
func (s *MemoryStore) List(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceRecord, error) {
	s.mu.RLock()
	out := make([]domain.AttendanceRecord, 0, len(s.records))
	for _, rec := range s.records {
		if filter.IdentityID != "" && rec.IdentityID != filter.IdentityID {
			continue
		}
		if !filter.From.IsZero() && rec.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !rec.Timestamp.Before(filter.To) {
			continue
		}
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
