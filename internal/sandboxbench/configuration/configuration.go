// Package configuration holds the settings of the sandbox lifecycle prober.
package configuration

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/armadaproject/sandboxbench/internal/common/sandboxerrors"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/metrics"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/report"
)

const DefaultTokenEnvVar = "KOYEB_API_TOKEN"

// Default returns the settings used for keys missing from every config source.
func Default() SandboxBenchConfig {
	return SandboxBenchConfig{
		MetricsPort:   7777,
		MetricType:    metrics.Gauge,
		ApiUrl:        "https://app.koyeb.com",
		TokenEnvVar:   DefaultTokenEnvVar,
		CycleInterval: 5 * time.Minute,
		SummaryEvery:  12,
		HistorySize:   288,
		ReportFormat:  report.FormatYaml,
		Sandbox: SandboxConfig{
			Image:        "koyeb/sandbox",
			NamePrefix:   "sandboxbench",
			TTL:          time.Minute,
			Readiness:    ReadinessHealth,
			ProbeTimeout: 5 * time.Second,
		},
		Polling: PollingConfig{
			StatusInterval:    100 * time.Millisecond,
			ReadinessInterval: 50 * time.Millisecond,
			PhaseTimeout:      10 * time.Minute,
			TeardownTimeout:   2 * time.Minute,
		},
	}
}

func (c SandboxBenchConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Sandbox.Readiness == ReadinessHttp && c.Sandbox.Port == 0 {
		return errors.WithStack(&sandboxerrors.ErrInvalidArgument{
			Name:    "sandbox.port",
			Value:   c.Sandbox.Port,
			Message: "http readiness needs a port to route to",
		})
	}
	return nil
}

// ApiToken reads the API token from the configured environment variable using lookup.
func (c SandboxBenchConfig) ApiToken(lookup func(string) (string, bool)) (string, error) {
	token, ok := lookup(c.TokenEnvVar)
	if !ok || token == "" {
		return "", errors.WithStack(&sandboxerrors.ErrMissingCredential{EnvVar: c.TokenEnvVar})
	}
	return token, nil
}
