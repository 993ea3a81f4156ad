package timing

import (
	"time"

	"k8s.io/utils/clock"
)

// Tracker owns the ordered log of the phases measured during one cycle.
// A new Tracker is created for every cycle; it is not safe for concurrent use,
// since a cycle only ever has a single owner.
type Tracker struct {
	clock        clock.PassiveClock
	publisher    Publisher
	measurements []PhaseMeasurement
	// Derived from measurements; never updated independently.
	byCategory map[Category][]time.Duration
}

// NewTracker returns an empty tracker forwarding each measurement to publisher.
// publisher may be nil.
func NewTracker(c clock.PassiveClock, publisher Publisher) *Tracker {
	return &Tracker{
		clock:      c,
		publisher:  publisher,
		byCategory: make(map[Category][]time.Duration),
	}
}

// Record appends a measurement and publishes it immediately. Negative durations are clamped to zero.
func (t *Tracker) Record(name string, d time.Duration, category Category, region string) {
	if d < 0 {
		d = 0
	}
	m := PhaseMeasurement{
		Name:       name,
		Duration:   d,
		Category:   category,
		Region:     region,
		RecordedAt: t.clock.Now(),
	}
	t.measurements = append(t.measurements, m)
	t.byCategory[category] = append(t.byCategory[category], d)
	if t.publisher != nil {
		t.publisher.Publish(m)
	}
}

// RecordTotalTime records the current TotalTime as a measurement of category total.
func (t *Tracker) RecordTotalTime(region string) {
	t.Record(TotalOperationName, t.TotalTime(), CategoryTotal, region)
}

// TotalTime is the sum of every recorded duration.
func (t *Tracker) TotalTime() time.Duration {
	var total time.Duration
	for _, m := range t.measurements {
		total += m.Duration
	}
	return total
}

// CategoryTotal is the sum of the durations recorded under category, zero if there are none.
func (t *Tracker) CategoryTotal(category Category) time.Duration {
	var total time.Duration
	for _, d := range t.byCategory[category] {
		total += d
	}
	return total
}

// Measurements returns a copy of the recorded measurements in insertion order.
func (t *Tracker) Measurements() []PhaseMeasurement {
	rv := make([]PhaseMeasurement, len(t.measurements))
	copy(rv, t.measurements)
	return rv
}

// Len returns the number of recorded measurements.
func (t *Tracker) Len() int {
	return len(t.measurements)
}
