package qa

import (
	"sort"
	"time"
)

// DefaultSessionWindow is the maximum distance from a session's first record.
const DefaultSessionWindow = 2 * time.Minute

// CheckSession is a group of records captured during one physical QA run.
type CheckSession struct {
	ReferenceTime time.Time
	Records       []CheckRecord
}

// GroupSessions clusters records whose time lies within window of the first record
// of the current group. The reference never slides. Sessions are returned newest first.
func GroupSessions(records []CheckRecord, window time.Duration) []CheckSession {
	if len(records) == 0 {
		return nil
	}
	if window <= 0 {
		window = DefaultSessionWindow
	}

	sorted := make([]CheckRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveTime().Before(sorted[j].EffectiveTime())
	})

	var sessions []CheckSession
	current := CheckSession{ReferenceTime: sorted[0].EffectiveTime()}
	for _, record := range sorted {
		at := record.EffectiveTime()
		if absDuration(at.Sub(current.ReferenceTime)) > window {
			sessions = append(sessions, current)
			current = CheckSession{ReferenceTime: at}
		}
		current.Records = append(current.Records, record)
	}
	sessions = append(sessions, current)

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].ReferenceTime.After(sessions[j].ReferenceTime)
	})
	return sessions
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
