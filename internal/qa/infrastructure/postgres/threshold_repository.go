package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	qa "mpc-plus/internal/qa/domain"
)

// ThresholdRepository reads tolerances from the thresholds table.
type ThresholdRepository struct {
	db *sql.DB
}

// NewThresholdRepository constructs a repository.
func NewThresholdRepository(db *sql.DB) *ThresholdRepository {
	return &ThresholdRepository{db: db}
}

// GetAll returns every configured threshold.
func (r *ThresholdRepository) GetAll(ctx context.Context) ([]qa.Threshold, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("threshold repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT machine_id, check_category, beam_variant, metric_type, tolerance, last_updated
FROM thresholds
ORDER BY machine_id, check_category, beam_variant, metric_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []qa.Threshold
	for rows.Next() {
		var (
			t        qa.Threshold
			category string
		)
		if err := rows.Scan(&t.MachineID, &category, &t.BeamVariant, &t.MetricType, &t.ToleranceValue, &t.LastUpdated); err != nil {
			return nil, err
		}
		t.CheckCategory = qa.CheckCategory(category)
		t.LastUpdated = t.LastUpdated.UTC()
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Upsert stores one threshold keyed by (machine, category, variant, metric).
// Variant and metric compare case-insensitively, so "6E" replaces "6e".
func (r *ThresholdRepository) Upsert(ctx context.Context, t qa.Threshold) error {
	if r == nil || r.db == nil {
		return errors.New("threshold repo: nil db")
	}
	if err := t.Validate(); err != nil {
		return err
	}
	updated := t.LastUpdated.UTC()
	if t.LastUpdated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO thresholds (machine_id, check_category, beam_variant, metric_type, tolerance, last_updated)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (machine_id, check_category, lower(beam_variant), lower(metric_type))
DO UPDATE SET beam_variant = EXCLUDED.beam_variant, metric_type = EXCLUDED.metric_type,
	tolerance = EXCLUDED.tolerance, last_updated = EXCLUDED.last_updated`,
		t.MachineID, string(t.CheckCategory), strings.TrimSpace(t.BeamVariant), strings.TrimSpace(t.MetricType), t.ToleranceValue, updated)
	return err
}
