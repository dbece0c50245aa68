package memory

import (
	"context"
	"sync"

	qa "mpc-plus/internal/qa/domain"
)

// ThresholdRepository holds a replaceable threshold set.
type ThresholdRepository struct {
	mu         sync.RWMutex
	thresholds []qa.Threshold
}

// NewThresholdRepository constructs a repository.
func NewThresholdRepository(thresholds ...qa.Threshold) *ThresholdRepository {
	return &ThresholdRepository{thresholds: append([]qa.Threshold(nil), thresholds...)}
}

// GetAll returns a copy of the current set.
func (r *ThresholdRepository) GetAll(ctx context.Context) ([]qa.Threshold, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]qa.Threshold(nil), r.thresholds...), nil
}

// Replace swaps the whole set after validating every entry.
func (r *ThresholdRepository) Replace(thresholds []qa.Threshold) error {
	for _, t := range thresholds {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.thresholds = append([]qa.Threshold(nil), thresholds...)
	r.mu.Unlock()
	return nil
}
