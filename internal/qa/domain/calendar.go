package qa

import (
	"sort"
	"time"
)

// DateLayout is the calendar day format used by read models.
const DateLayout = "2006-01-02"

var (
	beamValuePreference = []string{MetricRelativeOutput, MetricRelativeUniformity, MetricCenterShift}
	geoValuePreference  = []string{MetricRelativeOutput, MetricRelativeUniformity, MetricCenterShift, MetricIsoCenterSize}
)

// DayStatus is one calendar cell merging both check categories.
// Category fields are null when the day has no record of that category.
type DayStatus struct {
	Date         string   `json:"date"`
	BeamStatus   *Status  `json:"beamStatus"`
	BeamValue    *float64 `json:"beamValue"`
	BeamApproved *bool    `json:"beamApproved"`
	BeamCount    int      `json:"beamCount"`
	GeoStatus    *Status  `json:"geoStatus"`
	GeoValue     *float64 `json:"geoValue"`
	GeoApproved  *bool    `json:"geoApproved"`
	GeoCount     int      `json:"geoCount"`
}

// MonthRange returns the first and last day of a month in UTC.
func MonthRange(year int, month time.Month) (time.Time, time.Time, error) {
	if month < time.January || month > time.December {
		return time.Time{}, time.Time{}, ErrInvalidMonth
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first, last, nil
}

// RepresentativeValue picks the display value for a record: the first non-null metric
// of the category's preference list.
func RepresentativeValue(record CheckRecord) (float64, bool) {
	preference := beamValuePreference
	if record.CheckCategory == CategoryGeometry {
		preference = geoValuePreference
	}
	for _, metric := range preference {
		if value, ok := record.Measurements.Value(metric); ok {
			return value, true
		}
	}
	return 0, false
}

type categoryBucket struct {
	status   Status
	value    *float64
	approved bool
	count    int
}

func (b *categoryBucket) add(record CheckRecord, status Status) {
	if b.count == 0 {
		b.status = status
		b.approved = true
	} else {
		b.status = MergeStatus(b.status, status)
	}
	if b.value == nil {
		if value, ok := RepresentativeValue(record); ok {
			b.value = &value
		}
	}
	if !record.Approved() {
		b.approved = false
	}
	b.count++
}

type dayBucket struct {
	beam categoryBucket
	geo  categoryBucket
}

// AggregateCalendar builds one DayStatus per date of the month that has at least one
// beam or geometry record of the machine. Days without data are omitted.
func AggregateCalendar(machineID string, year int, month time.Month, beamRecords, geoRecords []CheckRecord, thresholds []Threshold) ([]DayStatus, error) {
	first, last, err := MonthRange(year, month)
	if err != nil {
		return nil, err
	}

	days := make(map[time.Time]*dayBucket)
	collect := func(records []CheckRecord, pick func(*dayBucket) *categoryBucket) {
		for _, record := range records {
			if machineID != "" && record.MachineID != machineID {
				continue
			}
			day := record.Day()
			if day.Before(first) || day.After(last) {
				continue
			}
			bucket, ok := days[day]
			if !ok {
				bucket = &dayBucket{}
				days[day] = bucket
			}
			pick(bucket).add(record, Evaluate(record, thresholds).Overall)
		}
	}
	collect(beamRecords, func(b *dayBucket) *categoryBucket { return &b.beam })
	collect(geoRecords, func(b *dayBucket) *categoryBucket { return &b.geo })

	keys := make([]time.Time, 0, len(days))
	for day := range days {
		keys = append(keys, day)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	out := make([]DayStatus, 0, len(keys))
	for _, day := range keys {
		bucket := days[day]
		cell := DayStatus{Date: day.Format(DateLayout)}
		cell.BeamStatus, cell.BeamValue, cell.BeamApproved, cell.BeamCount = bucket.beam.fields()
		cell.GeoStatus, cell.GeoValue, cell.GeoApproved, cell.GeoCount = bucket.geo.fields()
		out = append(out, cell)
	}
	return out, nil
}

func (b categoryBucket) fields() (*Status, *float64, *bool, int) {
	if b.count == 0 {
		return nil, nil, nil, 0
	}
	status := b.status
	approved := b.approved
	var value *float64
	if b.value != nil {
		v := *b.value
		value = &v
	}
	return &status, value, &approved, b.count
}
