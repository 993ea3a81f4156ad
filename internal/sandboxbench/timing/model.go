package timing

import "time"

// Category is a coarse grouping of phases used for aggregate reporting.
type Category string

const (
	CategorySetup      Category = "setup"
	CategoryMonitoring Category = "monitoring"
	CategoryCleanup    Category = "cleanup"
	// CategoryTotal holds the synthetic per-cycle total recorded by RecordTotalTime.
	CategoryTotal Category = "total"
)

// Categories lists every category in reporting order.
var Categories = []Category{CategorySetup, CategoryMonitoring, CategoryCleanup, CategoryTotal}

// TotalOperationName is the name under which RecordTotalTime records the cycle total.
const TotalOperationName = "Total"

// PhaseMeasurement is the timing of one observed lifecycle transition.
// Duration comes from the monotonic clock; RecordedAt is wall-clock time for display only.
type PhaseMeasurement struct {
	Name       string        `json:"name"`
	Duration   time.Duration `json:"duration"`
	Category   Category      `json:"category"`
	Region     string        `json:"region,omitempty"`
	RecordedAt time.Time     `json:"recordedAt"`
}

// Publisher receives every measurement as soon as it is recorded.
type Publisher interface {
	Publish(m PhaseMeasurement)
}
