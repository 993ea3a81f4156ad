// Package scheduler runs measurement cycles one after another until told to stop.
package scheduler

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/armadaproject/sandboxbench/internal/common/logging"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/report"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/timing"
)

// CycleRunner performs one measurement cycle in region, recording into tracker.
type CycleRunner interface {
	RunCycle(ctx context.Context, region string, tracker *timing.Tracker) error
}

// Observer is told about every measurement and every finished cycle.
type Observer interface {
	timing.Publisher
	CycleCompleted(region string, err error)
}

type Config struct {
	// Regions are used in turn, one per cycle. Empty means a single unlabelled region.
	Regions       []string
	CycleInterval time.Duration
	// 0 runs until the context is cancelled.
	MaxCycles int
	// Print a summary every this many cycles; 0 never does.
	SummaryEvery int
	// If set, the summary is rewritten here after every cycle.
	ReportFile      string
	ReportFormatter report.Formatter
	// Check fails once no cycle has completed for this long; 0 disables the check.
	StaleAfter time.Duration
}

type Scheduler struct {
	runner   CycleRunner
	observer Observer
	history  *report.History
	clock    clock.Clock
	config   Config
	out      io.Writer

	mu            sync.Mutex
	running       bool
	lastCompleted time.Time
}

func New(runner CycleRunner, observer Observer, history *report.History, c clock.Clock, config Config, out io.Writer) *Scheduler {
	if len(config.Regions) == 0 {
		config.Regions = []string{""}
	}
	return &Scheduler{
		runner:   runner,
		observer: observer,
		history:  history,
		clock:    c,
		config:   config,
		out:      out,
	}
}

// Run executes cycles until ctx is cancelled or MaxCycles cycles have run.
// Cycle failures are logged and counted but never returned.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.lastCompleted = s.clock.Now()
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for number := 1; ; number++ {
		region := s.config.Regions[(number-1)%len(s.config.Regions)]
		s.runCycle(ctx, number, region)
		if ctx.Err() != nil {
			return nil
		}
		if s.config.MaxCycles != 0 && number == s.config.MaxCycles {
			break
		}

		log.Infof("Sleeping %s before the next cycle", s.config.CycleInterval)
		t := s.clock.NewTimer(s.config.CycleInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C():
		}
	}
	log.Infof("Completed %d cycles", s.history.Cycles())
	return nil
}

// runRecovered runs one cycle, turning a panic into the cycle's error so that the loop carries on.
func (s *Scheduler) runRecovered(ctx context.Context, region string, tracker *timing.Tracker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("cycle panicked: %v", r)
		}
	}()
	return s.runner.RunCycle(ctx, region, tracker)
}

func (s *Scheduler) runCycle(ctx context.Context, number int, region string) {
	logger := log.WithFields(log.Fields{"cycle": number, "region": region})
	logger.Info("Starting cycle")

	tracker := timing.NewTracker(s.clock, s.observer)
	startedAt := s.clock.Now()
	err := s.runRecovered(ctx, region, tracker)
	if ctx.Err() != nil {
		logger.Warn("Cycle interrupted by shutdown")
		return
	}

	r := &report.CycleReport{
		Number:       number,
		Region:       region,
		StartedAt:    startedAt,
		Succeeded:    err == nil,
		Measurements: tracker.Measurements(),
	}
	if err != nil {
		r.Error = err.Error()
		logging.WithStacktrace(logger, err).Error("Cycle failed")
	} else {
		logger.Infof("Cycle completed in %s", s.clock.Since(startedAt))
		tracker.PrintRecap(s.out)
	}
	s.observer.CycleCompleted(region, err)
	s.history.Add(r)

	s.mu.Lock()
	s.lastCompleted = s.clock.Now()
	s.mu.Unlock()

	if s.config.SummaryEvery > 0 && number%s.config.SummaryEvery == 0 {
		s.history.Summary().Print(s.out)
	}
	if s.config.ReportFile != "" {
		if err := s.history.Summary().WriteFile(s.config.ReportFile, s.config.ReportFormatter); err != nil {
			logging.WithStacktrace(logger, err).Warnf("Failed to write report to %s", s.config.ReportFile)
		}
	}
}

// Check reports whether cycles are still being run.
func (s *Scheduler) Check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return errors.New("scheduler is not running")
	}
	if s.config.StaleAfter > 0 {
		if since := s.clock.Since(s.lastCompleted); since > s.config.StaleAfter {
			return errors.Errorf("no cycle completed for %s", since.Round(time.Second))
		}
	}
	return nil
}
