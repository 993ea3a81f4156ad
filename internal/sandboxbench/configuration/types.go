package configuration

import (
	"time"

	"github.com/armadaproject/sandboxbench/internal/sandboxbench/metrics"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/report"
)

type ReadinessMode string

const (
	// ReadinessHealth waits for the control plane to report the sandbox healthy.
	ReadinessHealth ReadinessMode = "health"
	// ReadinessHttp waits for the sandbox's public URL to answer 200.
	ReadinessHttp ReadinessMode = "http"
)

type SandboxBenchConfig struct {
	// Port on which /metrics and /health are served
	MetricsPort uint16 `validate:"required"`
	// Whether phase durations are exported as gauges or histograms
	MetricType metrics.MetricType `validate:"oneof=gauge histogram"`
	// Base URL of the control-plane API
	ApiUrl string `validate:"required,url"`
	// Environment variable holding the API token
	TokenEnvVar string `validate:"required"`
	// Regions cycles rotate through. Empty runs every cycle without a region.
	Regions []string
	// Pause between the end of one cycle and the start of the next
	CycleInterval time.Duration `validate:"gte=0"`
	// Stop after this many cycles. 0 runs until interrupted.
	MaxCycles int `validate:"gte=0"`
	// Print a summary of the history every this many cycles. 0 disables summaries.
	SummaryEvery int `validate:"gte=0"`
	// Number of cycles summaries are computed over
	HistorySize int `validate:"gte=1"`
	// If set, the summary is written to this file after every cycle
	ReportFile   string
	ReportFormat report.Format `validate:"oneof=yaml json"`
	Sandbox      SandboxConfig
	Polling      PollingConfig
}

type SandboxConfig struct {
	Image string `validate:"required"`
	// Random suffixes are appended to keep names unique; platform names are limited to 23 characters.
	NamePrefix string `validate:"required,max=14"`
	// Port exposed through a public route. Required for http readiness.
	Port int `validate:"gte=0,lte=65535"`
	// Delay after which the platform removes the sandbox even if teardown never ran
	TTL       time.Duration `validate:"gte=0"`
	Readiness ReadinessMode `validate:"oneof=health http"`
	// Timeout of a single readiness probe in http mode
	ProbeTimeout time.Duration `validate:"gt=0"`
}

type PollingConfig struct {
	StatusInterval    time.Duration `validate:"gt=0"`
	ReadinessInterval time.Duration `validate:"gt=0"`
	// Upper bound on each polled phase. 0 waits forever.
	PhaseTimeout    time.Duration `validate:"gte=0"`
	TeardownTimeout time.Duration `validate:"gt=0"`
}
