package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/clock"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/armadaproject/sandboxbench/internal/common/sandboxerrors"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/platform"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/platform/fake"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/timing"
)

const region = "fra"

var allPhases = []string{
	PhaseCreation,
	PhaseDiscovery,
	PhaseAllocation,
	PhaseStarting,
	PhaseReadiness,
	PhaseDeletion,
	timing.TotalOperationName,
}

func testConfig() Config {
	return Config{
		Image:                 "koyeb/sandbox",
		NamePrefix:            "test",
		TTL:                   time.Minute,
		StatusPollInterval:    time.Millisecond,
		ReadinessPollInterval: time.Millisecond,
		PhaseTimeout:          5 * time.Second,
		TeardownTimeout:       time.Second,
	}
}

func runCycle(t *testing.T, client *fake.Client, readiness Readiness, config Config) (*timing.Tracker, error) {
	t.Helper()
	tracker := timing.NewTracker(clock.RealClock{}, nil)
	poller := NewPoller(client, readiness, clock.RealClock{}, config)
	err := poller.RunCycle(context.Background(), region, tracker)
	return tracker, err
}

func phaseNames(tracker *timing.Tracker) []string {
	var names []string
	for _, m := range tracker.Measurements() {
		names = append(names, m.Name)
	}
	return names
}

func TestRunCycle_RecordsEachPhaseOnce(t *testing.T) {
	client := &fake.Client{
		Statuses: []platform.InstanceStatus{
			platform.StatusUnknown,
			platform.StatusUnknown,
			platform.StatusAllocating,
			platform.StatusStarting,
			platform.StatusHealthy,
		},
		PollLatency: 100 * time.Millisecond,
	}

	tracker, err := runCycle(t, client, nil, testConfig())
	require.NoError(t, err)

	assert.Equal(t, allPhases, phaseNames(tracker))
	for _, m := range tracker.Measurements() {
		assert.GreaterOrEqual(t, m.Duration, time.Duration(0))
		assert.Equal(t, region, m.Region)
	}
	// Four status polls are needed to see STARTING.
	assert.Equal(t, 4, client.Polls(1))
	assert.GreaterOrEqual(t, tracker.CategoryTotal(timing.CategorySetup), 400*time.Millisecond)
	assert.Len(t, client.Deleted(), 1)

	created := client.Created()
	require.Len(t, created, 1)
	assert.Equal(t, "koyeb/sandbox", created[0].Image)
	assert.Equal(t, region, created[0].Region)
	assert.Equal(t, time.Minute, created[0].TTL)
	assert.Regexp(t, "^test-[0-9a-f]{8}$", created[0].Name)
}

func TestRunCycle_CategoriesAndTotal(t *testing.T) {
	client := &fake.Client{Statuses: []platform.InstanceStatus{platform.StatusStarting}}

	tracker, err := runCycle(t, client, nil, testConfig())
	require.NoError(t, err)

	categories := map[string]timing.Category{}
	for _, m := range tracker.Measurements() {
		categories[m.Name] = m.Category
	}
	assert.Equal(t, map[string]timing.Category{
		PhaseCreation:             timing.CategorySetup,
		PhaseDiscovery:            timing.CategorySetup,
		PhaseAllocation:           timing.CategorySetup,
		PhaseStarting:             timing.CategorySetup,
		PhaseReadiness:            timing.CategoryMonitoring,
		PhaseDeletion:             timing.CategoryCleanup,
		timing.TotalOperationName: timing.CategoryTotal,
	}, categories)

	phases := tracker.CategoryTotal(timing.CategorySetup) +
		tracker.CategoryTotal(timing.CategoryMonitoring) +
		tracker.CategoryTotal(timing.CategoryCleanup)
	assert.Equal(t, phases, tracker.CategoryTotal(timing.CategoryTotal))
	// Discovery already observed STARTING, so later status phases need no further polls.
	assert.Equal(t, 1, client.Polls(1))
}

func TestRunCycle_CreateFailureSkipsTeardown(t *testing.T) {
	client := &fake.Client{
		CreateErrors: map[int]error{1: &sandboxerrors.ErrPlatform{Operation: "create app", StatusCode: 500}},
	}

	tracker, err := runCycle(t, client, nil, testConfig())

	assert.Equal(t, sandboxerrors.KindPlatform, sandboxerrors.KindFromError(err))
	assert.Empty(t, client.Deleted())
	assert.Equal(t, 0, tracker.Len())
}

func TestRunCycle_PlatformErrorDuringAllocationTearsDownOnce(t *testing.T) {
	client := &fake.Client{
		Statuses: []platform.InstanceStatus{platform.StatusSleeping},
		ListStatusErr: func(sandbox int, poll int) error {
			if poll == 2 {
				return &sandboxerrors.ErrPlatform{Operation: "list instances", StatusCode: 502}
			}
			return nil
		},
	}

	tracker, err := runCycle(t, client, nil, testConfig())

	var platformErr *sandboxerrors.ErrPlatform
	require.True(t, errors.As(err, &platformErr))
	assert.Equal(t, "list instances", platformErr.Operation)
	assert.Len(t, client.Deleted(), 1)
	assert.Equal(t,
		[]string{PhaseCreation, PhaseDiscovery, PhaseDeletion, timing.TotalOperationName},
		phaseNames(tracker))
}

func TestRunCycle_TerminalStatusAbortsCycle(t *testing.T) {
	client := &fake.Client{
		Statuses: []platform.InstanceStatus{platform.StatusUnknown, platform.StatusError},
	}

	_, err := runCycle(t, client, nil, testConfig())

	var failed *sandboxerrors.ErrResourceFailed
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "ERROR", failed.Status)
	assert.Len(t, client.Deleted(), 1)
}

func TestRunCycle_PhaseTimeout(t *testing.T) {
	client := &fake.Client{
		Statuses: []platform.InstanceStatus{platform.StatusAllocating},
	}
	config := testConfig()
	config.PhaseTimeout = time.Hour
	fakeClock := clocktesting.NewFakeClock(time.Now())
	tracker := timing.NewTracker(fakeClock, nil)
	poller := NewPoller(client, nil, fakeClock, config)

	done := make(chan error, 1)
	go func() { done <- poller.RunCycle(context.Background(), region, tracker) }()

	var err error
	require.Eventually(t, func() bool {
		select {
		case err = <-done:
			return true
		default:
			// Only expire the deadline once the starting phase is polling.
			if client.Polls(1) >= 2 {
				fakeClock.Step(config.PhaseTimeout)
			}
			return false
		}
	}, 5*time.Second, time.Millisecond)

	var timeout *sandboxerrors.ErrPhaseTimeout
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, PhaseStarting, timeout.Phase)
	assert.Equal(t, time.Hour, timeout.Timeout)
	assert.Equal(t, "ALLOCATING", timeout.LastStatus)
	assert.Equal(t, sandboxerrors.KindTimeout, sandboxerrors.KindFromError(err))
	assert.Len(t, client.Deleted(), 1)
	assert.Contains(t, phaseNames(tracker), PhaseDeletion)
}

func TestRunCycle_CancelledContextStillTearsDown(t *testing.T) {
	client := &fake.Client{Statuses: []platform.InstanceStatus{platform.StatusUnknown}}
	config := testConfig()
	config.PhaseTimeout = 0
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	tracker := timing.NewTracker(clock.RealClock{}, nil)
	err := NewPoller(client, nil, clock.RealClock{}, config).RunCycle(ctx, region, tracker)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var timeout *sandboxerrors.ErrPhaseTimeout
	assert.False(t, errors.As(err, &timeout))
	assert.Len(t, client.Deleted(), 1)
}

func TestRunCycle_RetreatingStatusIsIgnored(t *testing.T) {
	client := &fake.Client{
		Statuses: []platform.InstanceStatus{
			platform.StatusUnknown,
			platform.StatusAllocating,
			platform.StatusUnknown,
			platform.StatusAllocating,
			platform.StatusStarting,
		},
	}

	tracker, err := runCycle(t, client, nil, testConfig())
	require.NoError(t, err)

	assert.Equal(t, allPhases, phaseNames(tracker))
	assert.Equal(t, 5, client.Polls(1))
}

func TestRunCycle_WaitsForHealth(t *testing.T) {
	client := &fake.Client{
		Statuses:   []platform.InstanceStatus{platform.StatusHealthy},
		ReadyAfter: 3,
	}

	tracker, err := runCycle(t, client, nil, testConfig())
	require.NoError(t, err)
	assert.Equal(t, allPhases, phaseNames(tracker))
}

func TestRunCycle_ReadinessErrorFailsCycle(t *testing.T) {
	client := &fake.Client{
		Statuses: []platform.InstanceStatus{platform.StatusHealthy},
		IsReadyErr: func(sandbox int, check int) error {
			return &sandboxerrors.ErrPlatform{Operation: "get service", StatusCode: 503}
		},
	}

	tracker, err := runCycle(t, client, nil, testConfig())

	assert.Equal(t, sandboxerrors.KindPlatform, sandboxerrors.KindFromError(err))
	assert.NotContains(t, phaseNames(tracker), PhaseReadiness)
	assert.Len(t, client.Deleted(), 1)
}

func TestRunCycle_DeleteFailureIsNotReturned(t *testing.T) {
	client := &fake.Client{
		Statuses:  []platform.InstanceStatus{platform.StatusHealthy},
		DeleteErr: &sandboxerrors.ErrPlatform{Operation: "delete app", StatusCode: 409},
	}

	tracker, err := runCycle(t, client, nil, testConfig())

	require.NoError(t, err)
	assert.Len(t, client.Deleted(), 1)
	assert.NotContains(t, phaseNames(tracker), PhaseDeletion)
	assert.Contains(t, phaseNames(tracker), timing.TotalOperationName)
}
