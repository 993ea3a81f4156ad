package report

import (
	"time"

	"github.com/armadaproject/sandboxbench/internal/sandboxbench/timing"
)

// CycleReport is the outcome of one measurement cycle.
type CycleReport struct {
	Number       int                       `json:"number"`
	Region       string                    `json:"region,omitempty"`
	StartedAt    time.Time                 `json:"startedAt"`
	Succeeded    bool                      `json:"succeeded"`
	Error        string                    `json:"error,omitempty"`
	Measurements []timing.PhaseMeasurement `json:"measurements"`
}

// Statistics describe the durations of one phase across cycles, in seconds.
type Statistics struct {
	Count             int     `json:"count"`
	Min               float64 `json:"min"`
	Max               float64 `json:"max"`
	Average           float64 `json:"average"`
	StandardDeviation float64 `json:"standardDeviation"`
	P50               float64 `json:"p50"`
	P95               float64 `json:"p95"`
	P99               float64 `json:"p99"`
}

// PhaseStatistics pairs a phase name with its statistics.
type PhaseStatistics struct {
	Phase      string      `json:"phase"`
	Statistics *Statistics `json:"statistics"`
}

// Summary aggregates the cycles retained by a History.
type Summary struct {
	// Cycles and Failures count every cycle added, including those no longer retained.
	Cycles   int `json:"cycles"`
	Failures int `json:"failures"`
	// Statistics cover only the retained cycles, in the order phases were first seen.
	Window     int                `json:"window"`
	Statistics []*PhaseStatistics `json:"statistics"`
	LastCycle  *CycleReport       `json:"lastCycle,omitempty"`
}
