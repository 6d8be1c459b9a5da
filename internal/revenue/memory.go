package revenue

import (
	"context"
	"sort"
	"sync"

	"github.com/Dibyendu78/Brain-O-Math/pkg/sentinel"
)

// InMemory is the development and test ledger.
type InMemory struct {
	mu             sync.RWMutex
	byRegistration map[string]*Record
}

func NewInMemory() *InMemory {
	return &InMemory{byRegistration: make(map[string]*Record)}
}

func cloneRecord(r *Record) *Record {
	clone := *r
	return &clone
}

func (s *InMemory) CreateIfAbsent(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byRegistration[record.RegistrationID]; exists {
		return nil
	}
	s.byRegistration[record.RegistrationID] = cloneRecord(record)
	return nil
}

func (s *InMemory) DeleteByRegistration(ctx context.Context, registrationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byRegistration, registrationID)
	return nil
}

func (s *InMemory) FindByRegistration(ctx context.Context, registrationID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.byRegistration[registrationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRecord(record), nil
}

func (s *InMemory) Summarize(ctx context.Context) (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary := &Summary{}
	for _, record := range s.byRegistration {
		summary.TotalAmount += record.Amount
		summary.Students += record.StudentCount
		summary.Registrations++
	}
	return summary, nil
}

func (s *InMemory) sortedRecords() []*Record {
	records := make([]*Record, 0, len(s.byRegistration))
	for _, record := range s.byRegistration {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].VerifiedAt.After(records[j].VerifiedAt)
	})
	return records
}

func (s *InMemory) Monthly(ctx context.Context, months int) ([]*MonthlyTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct{ year, month int }
	totals := make(map[key]*MonthlyTotal)
	for _, record := range s.byRegistration {
		k := key{record.VerifiedAt.Year(), int(record.VerifiedAt.Month())}
		total, ok := totals[k]
		if !ok {
			total = &MonthlyTotal{Year: k.year, Month: k.month}
			totals[k] = total
		}
		total.Amount += record.Amount
		total.Registrations++
	}

	rollups := make([]*MonthlyTotal, 0, len(totals))
	for _, total := range totals {
		rollups = append(rollups, total)
	}
	sort.Slice(rollups, func(i, j int) bool {
		if rollups[i].Year != rollups[j].Year {
			return rollups[i].Year > rollups[j].Year
		}
		return rollups[i].Month > rollups[j].Month
	})
	if months > 0 && len(rollups) > months {
		rollups = rollups[:months]
	}
	return rollups, nil
}

func (s *InMemory) Recent(ctx context.Context, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.sortedRecords()
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	out := make([]*Record, 0, len(records))
	for _, record := range records {
		out = append(out, cloneRecord(record))
	}
	return out, nil
}

func (s *InMemory) List(ctx context.Context, page, limit int) ([]*Record, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.sortedRecords()
	total := len(records)

	if limit > 0 {
		if page < 1 {
			page = 1
		}
		start := (page - 1) * limit
		if start > total {
			start = total
		}
		end := start + limit
		if end > total {
			end = total
		}
		records = records[start:end]
	}
	out := make([]*Record, 0, len(records))
	for _, record := range records {
		out = append(out, cloneRecord(record))
	}
	return out, total, nil
}
