package qa

// ResolveThreshold returns the tolerance for a metric, preferring a variant-specific
// entry over a generic one. A false result means no threshold is configured.
func ResolveThreshold(thresholds []Threshold, machineID string, category CheckCategory, metricType, variant string) (*Threshold, bool) {
	metric := normalizeKey(metricType)
	want := normalizeKey(variant)

	var generic *Threshold
	for i := range thresholds {
		candidate := &thresholds[i]
		if candidate.MachineID != machineID || candidate.CheckCategory != category {
			continue
		}
		if normalizeKey(candidate.MetricType) != metric {
			continue
		}
		have := normalizeKey(candidate.BeamVariant)
		if want != "" && have == want {
			return candidate, true
		}
		if have == "" && generic == nil {
			generic = candidate
		}
	}
	if generic != nil {
		return generic, true
	}
	return nil, false
}
