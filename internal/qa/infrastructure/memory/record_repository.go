package memory

import (
	"context"
	"sort"
	"sync"

	qa "mpc-plus/internal/qa/domain"
)

// RecordRepository is an in-memory check record store.
type RecordRepository struct {
	mu   sync.RWMutex
	data map[string]qa.CheckRecord
}

// NewRecordRepository constructs a repository seeded with records.
func NewRecordRepository(seed ...qa.CheckRecord) *RecordRepository {
	repo := &RecordRepository{data: make(map[string]qa.CheckRecord, len(seed))}
	for _, record := range seed {
		repo.data[record.ID] = record.Clone()
	}
	return repo
}

// GetAll returns matching records ordered by capture time.
func (r *RecordRepository) GetAll(ctx context.Context, filter qa.RecordFilter) ([]qa.CheckRecord, error) {
	_ = ctx
	r.mu.RLock()
	out := make([]qa.CheckRecord, 0, len(r.data))
	for _, record := range r.data {
		if filter.Matches(record) {
			out = append(out, record.Clone())
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].EffectiveTime(), out[j].EffectiveTime()
		if ti.Equal(tj) {
			return out[i].ID < out[j].ID
		}
		return ti.Before(tj)
	})
	return out, nil
}

// GetByID loads a record; nil when missing.
func (r *RecordRepository) GetByID(ctx context.Context, id string) (*qa.CheckRecord, error) {
	_ = ctx
	r.mu.RLock()
	record, ok := r.data[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	copy := record.Clone()
	return &copy, nil
}

// Create stores a new record.
func (r *RecordRepository) Create(ctx context.Context, record qa.CheckRecord) error {
	_ = ctx
	if err := record.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[record.ID]; exists {
		return qa.ErrRecordExists
	}
	r.data[record.ID] = record.Clone()
	return nil
}

// Update overwrites an existing record.
func (r *RecordRepository) Update(ctx context.Context, record qa.CheckRecord) error {
	_ = ctx
	if err := record.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[record.ID]; !exists {
		return qa.ErrRecordNotFound
	}
	r.data[record.ID] = record.Clone()
	return nil
}

// Delete removes a record.
func (r *RecordRepository) Delete(ctx context.Context, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[id]; !exists {
		return qa.ErrRecordNotFound
	}
	delete(r.data, id)
	return nil
}
