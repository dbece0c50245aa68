package qa

import (
	"strings"
	"time"
)

// Threshold is the tolerance configured for one metric of a machine.
// An empty BeamVariant marks a generic entry used when no variant-specific one exists.
type Threshold struct {
	MachineID      string        `json:"machineId" yaml:"machine_id"`
	CheckCategory  CheckCategory `json:"checkCategory" yaml:"check_category"`
	BeamVariant    string        `json:"beamVariant,omitempty" yaml:"beam_variant"`
	MetricType     string        `json:"metricType" yaml:"metric_type"`
	ToleranceValue float64       `json:"toleranceValue" yaml:"tolerance"`
	LastUpdated    time.Time     `json:"lastUpdated" yaml:"last_updated"`
}

// Validate checks threshold invariants.
func (t Threshold) Validate() error {
	if t.MachineID == "" {
		return ErrEmptyMachineID
	}
	if !t.CheckCategory.IsValid() {
		return ErrInvalidCategory
	}
	if strings.TrimSpace(t.MetricType) == "" {
		return ErrEmptyMetricType
	}
	if t.ToleranceValue < 0 {
		return ErrNegativeTolerance
	}
	return nil
}

// IsGeneric reports whether the threshold applies to every variant.
func (t Threshold) IsGeneric() bool {
	return normalizeKey(t.BeamVariant) == ""
}

// Key returns the uniqueness tuple (machine, category, variant, metric).
func (t Threshold) Key() string {
	return t.MachineID + "|" + string(t.CheckCategory) + "|" + normalizeKey(t.BeamVariant) + "|" + normalizeKey(t.MetricType)
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
