package metrics

const (

	// common prefix for all metric names
	prefix = "sandbox_"

	// Prometheus Labels
	operationLabel = "operation"
	categoryLabel  = "category"
	regionLabel    = "region"
	resultLabel    = "result"
	reasonLabel    = "reason"

	// Cycle results
	success = "success"
	failure = "failure"
)

// DurationBuckets span sub-second creation calls up to provisioning that takes minutes.
var DurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300}
