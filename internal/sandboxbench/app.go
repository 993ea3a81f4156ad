package sandboxbench

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/armadaproject/sandboxbench/internal/common"
	commonconfig "github.com/armadaproject/sandboxbench/internal/common/config"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/build"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/configuration"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/lifecycle"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/metrics"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/platform"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/probe"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/report"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/scheduler"
)

// Timeout of a single control-plane request.
const apiRequestTimeout = 30 * time.Second

type App struct {
	// Parameters passed to the CLI by the user.
	Params *Params
	// Out is used to write the output. Defaults to standard out,
	// but can be overridden in tests to make assertions on the application's output.
	Out io.Writer
	// Registry every metric of the app is registered with and served from.
	Registry *prometheus.Registry
	Clock    clock.Clock
	// Used to read the API token. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
	// If set, used instead of a client built from Params. Tests use this to substitute a fake.
	Client platform.Client
}

// Params struct holds all user-customizable parameters.
type Params struct {
	Config configuration.SandboxBenchConfig
}

// New instantiates an App with default parameters, writing to standard output.
func New() *App {
	return &App{
		Params:    &Params{Config: configuration.Default()},
		Out:       os.Stdout,
		Registry:  prometheus.NewRegistry(),
		Clock:     clock.RealClock{},
		LookupEnv: os.LookupEnv,
	}
}

// Version prints build information (e.g., current git commit) to the app output.
func (a *App) Version() error {
	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Version:\t%s\n", build.ReleaseVersion)
	fmt.Fprintf(w, "Commit:\t%s\n", build.GitCommit)
	fmt.Fprintf(w, "Go version:\t%s\n", build.GoVersion)
	fmt.Fprintf(w, "Built:\t%s\n", build.BuildTime)
	return nil
}

// Run measures sandbox lifecycles until ctx is cancelled or the configured number of
// cycles has run, serving metrics for the whole duration.
func (a *App) Run(ctx context.Context) error {
	config := a.Params.Config
	if err := config.Validate(); err != nil {
		commonconfig.LogValidationErrors(err)
		return err
	}

	client, err := a.platformClient(config)
	if err != nil {
		return err
	}

	var readiness lifecycle.Readiness
	if config.Sandbox.Readiness == configuration.ReadinessHttp {
		readiness = &lifecycle.HTTPReadiness{
			Prober:  probe.NewHttpProber(&http.Client{}),
			Timeout: config.Sandbox.ProbeTimeout,
		}
	}
	poller := lifecycle.NewPoller(client, readiness, a.Clock, lifecycle.Config{
		Image:                 config.Sandbox.Image,
		NamePrefix:            config.Sandbox.NamePrefix,
		Port:                  config.Sandbox.Port,
		TTL:                   config.Sandbox.TTL,
		StatusPollInterval:    config.Polling.StatusInterval,
		ReadinessPollInterval: config.Polling.ReadinessInterval,
		PhaseTimeout:          config.Polling.PhaseTimeout,
		TeardownTimeout:       config.Polling.TeardownTimeout,
	})

	exporter := metrics.NewExporter(config.MetricType, a.Clock)
	if err := a.Registry.Register(exporter); err != nil {
		return errors.WithStack(err)
	}
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registerOnce(a.Registry, c); err != nil {
			return err
		}
	}

	sched := scheduler.New(poller, exporter, report.NewHistory(config.HistorySize), a.Clock, scheduler.Config{
		Regions:         config.Regions,
		CycleInterval:   config.CycleInterval,
		MaxCycles:       config.MaxCycles,
		SummaryEvery:    config.SummaryEvery,
		ReportFile:      config.ReportFile,
		ReportFormatter: config.ReportFormat.Formatter(),
		StaleAfter:      staleAfter(config),
	}, a.Out)

	log.Infof("Measuring sandbox lifecycles with %s metrics on port %d", config.MetricType, config.MetricsPort)
	g, ctx := errgroup.WithContext(ctx)
	serverCtx, stopServer := context.WithCancel(ctx)
	g.Go(func() error {
		return common.ServeHttp(serverCtx, common.NewMetricsServer(config.MetricsPort, a.Registry, sched))
	})
	g.Go(func() error {
		defer stopServer()
		return sched.Run(ctx)
	})
	return g.Wait()
}

func (a *App) platformClient(config configuration.SandboxBenchConfig) (platform.Client, error) {
	if a.Client != nil {
		return a.Client, nil
	}
	token, err := config.ApiToken(a.LookupEnv)
	if err != nil {
		return nil, err
	}
	return platform.NewKoyebClient(config.ApiUrl, token, &http.Client{Timeout: apiRequestTimeout})
}

// registerOnce registers c with reg, tolerating an identical collector registered by an earlier Run.
func registerOnce(reg prometheus.Registerer, c prometheus.Collector) error {
	err := reg.Register(c)
	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		return nil
	}
	return errors.WithStack(err)
}

// staleAfter bounds how long a healthy prober can go without completing a cycle:
// the pause between cycles plus every polled phase running to its timeout and a full teardown.
func staleAfter(config configuration.SandboxBenchConfig) time.Duration {
	if config.Polling.PhaseTimeout == 0 {
		return 0
	}
	const polledPhases = 4
	return config.CycleInterval + polledPhases*config.Polling.PhaseTimeout + config.Polling.TeardownTimeout + apiRequestTimeout
}
