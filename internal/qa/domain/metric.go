package qa

// Metric names shared by extraction, thresholds and read models.
const (
	MetricRelativeOutput     = "relativeOutput"
	MetricRelativeUniformity = "relativeUniformity"
	MetricCenterShift        = "centerShift"

	MetricIsoCenterSize     = "isoCenterSize"
	MetricIsoCenterMVOffset = "isoCenterMVOffset"
	MetricIsoCenterKVOffset = "isoCenterKVOffset"

	MetricCollimationRotationOffset = "collimationRotationOffset"
	MetricGantryAbsolute            = "gantryAbsolute"
	MetricGantryRelative            = "gantryRelative"

	MetricCouchMaxPositionError              = "couchMaxPositionError"
	MetricCouchLat                           = "couchLat"
	MetricCouchLng                           = "couchLng"
	MetricCouchVrt                           = "couchVrt"
	MetricCouchRtnFine                       = "couchRtnFine"
	MetricCouchRtnLarge                      = "couchRtnLarge"
	MetricRotationInducedCouchShiftFullRange = "rotationInducedCouchShiftFullRange"

	MetricMaxOffsetA       = "maxOffsetA"
	MetricMaxOffsetB       = "maxOffsetB"
	MetricMeanOffsetA      = "meanOffsetA"
	MetricMeanOffsetB      = "meanOffsetB"
	MetricMLCBacklashMaxA  = "mlcBacklashMaxA"
	MetricMLCBacklashMaxB  = "mlcBacklashMaxB"
	MetricMLCBacklashMeanA = "mlcBacklashMeanA"
	MetricMLCBacklashMeanB = "mlcBacklashMeanB"

	MetricJawX1            = "jawX1"
	MetricJawX2            = "jawX2"
	MetricJawY1            = "jawY1"
	MetricJawY2            = "jawY2"
	MetricJawParallelismX1 = "jawParallelismX1"
	MetricJawParallelismX2 = "jawParallelismX2"
	MetricJawParallelismY1 = "jawParallelismY1"
	MetricJawParallelismY2 = "jawParallelismY2"
)

// Measurement is a single named value; a nil Value means no data.
type Measurement struct {
	MetricName string
	Value      *float64
}

// Measurements maps metric name to value. A nil value is an explicit "no data".
type Measurements map[string]*float64

// Set stores a value for a metric.
func (m Measurements) Set(metric string, value float64) {
	v := value
	m[metric] = &v
}

// SetNull records the metric as present without a value.
func (m Measurements) SetNull(metric string) {
	m[metric] = nil
}

// Value returns the metric value when present and non-null.
func (m Measurements) Value(metric string) (float64, bool) {
	value, ok := m[metric]
	if !ok || value == nil {
		return 0, false
	}
	return *value, true
}

// Clone copies the map and its values.
func (m Measurements) Clone() Measurements {
	if m == nil {
		return nil
	}
	out := make(Measurements, len(m))
	for key, value := range m {
		if value == nil {
			out[key] = nil
			continue
		}
		v := *value
		out[key] = &v
	}
	return out
}

// Float returns a pointer to value.
func Float(value float64) *float64 {
	return &value
}
