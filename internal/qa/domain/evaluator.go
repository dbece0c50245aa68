package qa

import (
	"math"
	"sort"
)

// EvaluatedStatus is the verdict for one record against the current thresholds.
type EvaluatedStatus struct {
	PerMetric    map[string]Status        `json:"perMetricStatus"`
	FailedLeaves map[LeafBank][]LeafIndex `json:"failedLeaves,omitempty"`
	Overall      Status                   `json:"overall"`
}

// Failed returns the names of failing metrics in sorted order.
func (s EvaluatedStatus) Failed() []string {
	var out []string
	for metric, status := range s.PerMetric {
		if status == StatusFail {
			out = append(out, metric)
		}
	}
	sort.Strings(out)
	return out
}

// Evaluate compares every non-null measurement of the record with its resolved tolerance.
// Metrics without a configured threshold pass. Leaf banks share one tolerance per bank.
func Evaluate(record CheckRecord, thresholds []Threshold) EvaluatedStatus {
	result := EvaluatedStatus{
		PerMetric: make(map[string]Status, len(record.Measurements)),
		Overall:   StatusPass,
	}

	for metric, value := range record.Measurements {
		if value == nil {
			continue
		}
		status := StatusPass
		if threshold, ok := ResolveThreshold(thresholds, record.MachineID, record.CheckCategory, metric, record.Variant); ok {
			if exceeds(*value, threshold.ToleranceValue) {
				status = StatusFail
			}
		}
		result.PerMetric[metric] = status
		result.Overall = MergeStatus(result.Overall, status)
	}

	for _, bank := range LeafBanks {
		values := record.Leaves[bank]
		if len(values) == 0 {
			continue
		}
		status := StatusPass
		// Leaf banks use the generic tolerance regardless of beam variant.
		if threshold, ok := ResolveThreshold(thresholds, record.MachineID, record.CheckCategory, string(bank), ""); ok {
			for _, idx := range values.Indices() {
				if !exceeds(values[idx], threshold.ToleranceValue) {
					continue
				}
				status = StatusFail
				if result.FailedLeaves == nil {
					result.FailedLeaves = make(map[LeafBank][]LeafIndex)
				}
				result.FailedLeaves[bank] = append(result.FailedLeaves[bank], idx)
			}
		}
		result.PerMetric[string(bank)] = status
		result.Overall = MergeStatus(result.Overall, status)
	}

	return result
}

func exceeds(value, tolerance float64) bool {
	return math.Abs(value) > tolerance
}
