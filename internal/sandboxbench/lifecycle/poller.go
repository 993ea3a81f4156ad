// Package lifecycle drives one measurement cycle: it creates a sandbox, polls the control
// plane until each lifecycle transition is observed, tears the sandbox down and records
// the time spent in every phase.
package lifecycle

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/armadaproject/sandboxbench/internal/common/logging"
	"github.com/armadaproject/sandboxbench/internal/common/sandboxerrors"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/platform"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/timing"
)

const (
	PhaseCreation   = "Sandbox creation"
	PhaseDiscovery  = "Instance discovery"
	PhaseAllocation = "Instance allocation"
	PhaseStarting   = "Instance starting"
	PhaseReadiness  = "Readiness check"
	PhaseDeletion   = "Sandbox deletion"
)

type Config struct {
	Image string
	// Sandbox names are NamePrefix followed by a random suffix.
	NamePrefix string
	// Port exposed publicly; 0 creates a sandbox without a public route.
	Port int
	// Delay after which the platform deletes the sandbox even if teardown never ran.
	TTL                   time.Duration
	StatusPollInterval    time.Duration
	ReadinessPollInterval time.Duration
	// Upper bound on each polled phase; 0 waits forever.
	PhaseTimeout    time.Duration
	TeardownTimeout time.Duration
}

// Poller runs measurement cycles against a control plane. A Poller holds no per-cycle
// state, but cycles are expected to run one at a time.
type Poller struct {
	client    platform.Client
	readiness Readiness
	// Whether the instance status is polled alongside readiness, so that an instance
	// failing after it started ends the cycle. Platform health already reflects it.
	watchStatus bool
	clock       clock.Clock
	config      Config
}

// NewPoller returns a Poller. If readiness is nil the control plane health is used.
func NewPoller(client platform.Client, readiness Readiness, c clock.Clock, config Config) *Poller {
	if readiness == nil {
		readiness = &HealthReadiness{Client: client}
	}
	_, platformHealth := readiness.(*HealthReadiness)
	return &Poller{
		client:      client,
		readiness:   readiness,
		watchStatus: !platformHealth,
		clock:       c,
		config:      config,
	}
}

// RunCycle creates a sandbox in region and records one measurement per phase into tracker.
// Once the sandbox exists it is always deleted before RunCycle returns, after which the
// cycle total is recorded. The first phase error is returned; deletion errors are only logged.
func (p *Poller) RunCycle(ctx context.Context, region string, tracker *timing.Tracker) error {
	name := p.sandboxName()
	logger := log.WithFields(log.Fields{"sandbox": name, "region": region})

	logger.Info("Creating sandbox")
	stopwatch := timing.StartStopwatch(p.clock)
	handle, err := p.client.Create(ctx, platform.CreateRequest{
		Image:  p.config.Image,
		Name:   name,
		Region: region,
		Port:   p.config.Port,
		TTL:    p.config.TTL,
	})
	if err != nil {
		return errors.WithMessagef(err, "creating sandbox %s", name)
	}
	p.record(tracker, logger, PhaseCreation, stopwatch.Split(), timing.CategorySetup, region)

	defer func() {
		p.teardown(handle, tracker, logger, region)
		tracker.RecordTotalTime(region)
	}()

	status := &observedStatus{}
	statusPhases := []struct {
		name string
		done func(*observedStatus) bool
	}{
		{PhaseDiscovery, func(o *observedStatus) bool { return o.visible }},
		{PhaseAllocation, func(o *observedStatus) bool { return o.best.AtLeast(platform.StatusAllocating) }},
		{PhaseStarting, func(o *observedStatus) bool { return o.best.AtLeast(platform.StatusStarting) }},
	}
	for _, phase := range statusPhases {
		logger.Debugf("Waiting for %s", phase.name)
		if err := p.waitForStatus(ctx, phase.name, handle, status, phase.done, logger); err != nil {
			return err
		}
		p.record(tracker, logger, phase.name, stopwatch.Split(), timing.CategorySetup, region)
	}

	logger.Debugf("Waiting for %s", PhaseReadiness)
	err = p.poll(ctx, PhaseReadiness, p.config.ReadinessPollInterval, func(ctx context.Context) (bool, error) {
		if p.watchStatus {
			if err := p.refreshStatus(ctx, handle, status, logger); err != nil {
				return false, err
			}
		}
		return p.readiness.Ready(ctx, handle)
	}, status.lastStatus)
	if err != nil {
		return err
	}
	p.record(tracker, logger, PhaseReadiness, stopwatch.Split(), timing.CategoryMonitoring, region)
	return nil
}

func (p *Poller) waitForStatus(
	ctx context.Context,
	phase string,
	handle *platform.Handle,
	status *observedStatus,
	done func(*observedStatus) bool,
	logger *log.Entry,
) error {
	return p.poll(ctx, phase, p.config.StatusPollInterval, func(ctx context.Context) (bool, error) {
		// A status observed during an earlier phase may already satisfy this one.
		if done(status) {
			return true, nil
		}
		if err := p.refreshStatus(ctx, handle, status, logger); err != nil {
			return false, err
		}
		return done(status), nil
	}, status.lastStatus)
}

// refreshStatus queries the instance status once and folds it into status.
// A terminal status is returned as ErrResourceFailed.
func (p *Poller) refreshStatus(ctx context.Context, handle *platform.Handle, status *observedStatus, logger *log.Entry) error {
	s, err := p.client.ListStatus(ctx, handle)
	if err != nil {
		return err
	}
	if s.IsTerminal() {
		return errors.WithStack(&sandboxerrors.ErrResourceFailed{Resource: handle.Name, Status: s.String()})
	}
	if status.observe(s) {
		logger.Debugf("Ignoring status %s reported after %s", s, status.best)
	}
	return nil
}

// poll runs Until under the phase timeout, turning expiry of that timeout into ErrPhaseTimeout.
// The timeout is measured on the poller's clock; when it fires any in-flight check is cancelled.
func (p *Poller) poll(ctx context.Context, phase string, interval time.Duration, condition ConditionFunc, lastStatus func() string) error {
	phaseCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var expired atomic.Bool
	if p.config.PhaseTimeout > 0 {
		deadline := p.clock.NewTimer(p.config.PhaseTimeout)
		defer deadline.Stop()
		go func() {
			select {
			case <-deadline.C():
				expired.Store(true)
				cancel()
			case <-phaseCtx.Done():
			}
		}()
	}
	err := Until(phaseCtx, p.clock, interval, condition)
	if err != nil && ctx.Err() == nil && expired.Load() {
		return errors.WithStack(&sandboxerrors.ErrPhaseTimeout{
			Phase:      phase,
			Timeout:    p.config.PhaseTimeout,
			LastStatus: lastStatus(),
		})
	}
	return errors.WithMessagef(err, "waiting for %s", phase)
}

// teardown deletes the sandbox on a context of its own so that a cancelled cycle
// does not leave the sandbox running.
func (p *Poller) teardown(handle *platform.Handle, tracker *timing.Tracker, logger *log.Entry, region string) {
	ctx := context.Background()
	if p.config.TeardownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.TeardownTimeout)
		defer cancel()
	}

	logger.Info("Deleting sandbox")
	stopwatch := timing.StartStopwatch(p.clock)
	if err := p.client.Delete(ctx, handle); err != nil {
		logging.WithStacktrace(logger, err).Error("Failed to delete sandbox")
		return
	}
	p.record(tracker, logger, PhaseDeletion, stopwatch.Elapsed(), timing.CategoryCleanup, region)
}

func (p *Poller) record(tracker *timing.Tracker, logger *log.Entry, phase string, d time.Duration, category timing.Category, region string) {
	tracker.Record(phase, d, category, region)
	logger.Infof("%s took %.1fs", phase, d.Seconds())
}

func (p *Poller) sandboxName() string {
	return fmt.Sprintf("%s-%s", p.config.NamePrefix, uuid.New().String()[:8])
}

// observedStatus is the status stream shared by the polled phases.
type observedStatus struct {
	// Highest ranked status seen so far.
	best platform.InstanceStatus
	// Most recent status reported.
	last platform.InstanceStatus
	// Whether any instance has been reported yet.
	visible bool
}

func (o *observedStatus) lastStatus() string {
	if !o.visible {
		return ""
	}
	return o.last.String()
}

// observe folds s into the stream and reports whether s is a retreat from the best status.
func (o *observedStatus) observe(s platform.InstanceStatus) (retreat bool) {
	o.last = s
	if s != platform.StatusUnknown {
		o.visible = true
	}
	if s.Rank() > o.best.Rank() {
		o.best = s
		return false
	}
	return s != o.best
}
