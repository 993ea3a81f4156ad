package timing

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clock "k8s.io/utils/clock/testing"
)

type recordingPublisher struct {
	published []PhaseMeasurement
}

func (p *recordingPublisher) Publish(m PhaseMeasurement) {
	p.published = append(p.published, m)
}

func TestTracker_EmptyTotals(t *testing.T) {
	tracker := NewTracker(clock.NewFakePassiveClock(time.Now()), nil)

	assert.Equal(t, time.Duration(0), tracker.TotalTime())
	for _, c := range Categories {
		assert.Equal(t, time.Duration(0), tracker.CategoryTotal(c))
	}
	assert.Equal(t, time.Duration(0), tracker.CategoryTotal("never-recorded"))
}

func TestTracker_TotalsMatchRecordedDurations(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		tracker := NewTracker(clock.NewFakePassiveClock(time.Now()), nil)
		var expectedTotal time.Duration
		expectedByCategory := make(map[Category]time.Duration)

		n := r.Intn(20)
		for j := 0; j < n; j++ {
			category := Categories[r.Intn(len(Categories))]
			d := time.Duration(r.Int63n(int64(10 * time.Second)))
			tracker.Record("op", d, category, "")
			expectedTotal += d
			expectedByCategory[category] += d
		}

		assert.Equal(t, expectedTotal, tracker.TotalTime())
		for _, c := range Categories {
			assert.Equal(t, expectedByCategory[c], tracker.CategoryTotal(c), "category %s", c)
		}
		assert.Equal(t, n, tracker.Len())
	}
}

func TestTracker_RecordPublishesImmediately(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	publisher := &recordingPublisher{}
	tracker := NewTracker(clock.NewFakePassiveClock(now), publisher)

	tracker.Record("Sandbox creation", 1500*time.Millisecond, CategorySetup, "fra")
	require.Len(t, publisher.published, 1)
	assert.Equal(t, PhaseMeasurement{
		Name:       "Sandbox creation",
		Duration:   1500 * time.Millisecond,
		Category:   CategorySetup,
		Region:     "fra",
		RecordedAt: now,
	}, publisher.published[0])

	tracker.Record("Health check", 200*time.Millisecond, CategoryMonitoring, "fra")
	assert.Len(t, publisher.published, 2)
	assert.Equal(t, tracker.Measurements(), publisher.published)
}

func TestTracker_NegativeDurationClampedToZero(t *testing.T) {
	tracker := NewTracker(clock.NewFakePassiveClock(time.Now()), nil)
	tracker.Record("skewed", -time.Second, CategorySetup, "")

	assert.Equal(t, time.Duration(0), tracker.Measurements()[0].Duration)
	assert.Equal(t, time.Duration(0), tracker.TotalTime())
}

func TestTracker_RecordTotalTime(t *testing.T) {
	publisher := &recordingPublisher{}
	tracker := NewTracker(clock.NewFakePassiveClock(time.Now()), publisher)
	tracker.Record("Sandbox creation", 2*time.Second, CategorySetup, "was")
	tracker.Record("Health check", time.Second, CategoryMonitoring, "was")
	tracker.Record("Sandbox deletion", time.Second, CategoryCleanup, "was")

	tracker.RecordTotalTime("was")

	last := publisher.published[len(publisher.published)-1]
	assert.Equal(t, TotalOperationName, last.Name)
	assert.Equal(t, CategoryTotal, last.Category)
	assert.Equal(t, 4*time.Second, last.Duration)
	assert.Equal(t, "was", last.Region)
	assert.Equal(t, 4*time.Second, tracker.CategoryTotal(CategoryTotal))
}

func TestTracker_MeasurementsReturnsCopy(t *testing.T) {
	tracker := NewTracker(clock.NewFakePassiveClock(time.Now()), nil)
	tracker.Record("a", time.Second, CategorySetup, "")

	measurements := tracker.Measurements()
	measurements[0].Name = "mutated"

	assert.Equal(t, "a", tracker.Measurements()[0].Name)
}

func TestPrintRecap_Empty(t *testing.T) {
	tracker := NewTracker(clock.NewFakePassiveClock(time.Now()), nil)
	out := &bytes.Buffer{}

	tracker.PrintRecap(out)

	assert.Contains(t, out.String(), "No operations recorded")
	assert.NotContains(t, out.String(), "%")
}

func TestPrintRecap_OnlyZeroDurations(t *testing.T) {
	tracker := NewTracker(clock.NewFakePassiveClock(time.Now()), nil)
	tracker.Record("instant", 0, CategorySetup, "")
	out := &bytes.Buffer{}

	tracker.PrintRecap(out)

	assert.Contains(t, out.String(), "    0.0%")
	assert.NotContains(t, out.String(), "NaN")
}

func TestPrintRecap_PercentagesAndBars(t *testing.T) {
	tracker := NewTracker(clock.NewFakePassiveClock(time.Now()), nil)
	tracker.Record("Sandbox creation", 3*time.Second, CategorySetup, "")
	tracker.Record("Sandbox deletion", time.Second, CategoryCleanup, "")
	tracker.RecordTotalTime("")
	out := &bytes.Buffer{}

	tracker.PrintRecap(out)

	lines := strings.Split(out.String(), "\n")
	assert.Contains(t, lines, "  Sandbox creation                 3.00s   75.0%  "+strings.Repeat("█", 37))
	assert.Contains(t, lines, "  Sandbox deletion                 1.00s   25.0%  "+strings.Repeat("█", 12))
	assert.Contains(t, lines, "  TOTAL                            4.00s  100.0%")
	assert.NotContains(t, out.String(), TotalOperationName+" ")
	assert.NotContains(t, out.String(), "\x1b[")
}

func TestStopwatch(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Now())
	stopwatch := StartStopwatch(fakeClock)

	fakeClock.Step(2 * time.Second)
	assert.Equal(t, 2*time.Second, stopwatch.Split())

	fakeClock.Step(500 * time.Millisecond)
	assert.Equal(t, 500*time.Millisecond, stopwatch.Split())
	assert.Equal(t, 2500*time.Millisecond, stopwatch.Elapsed())
}
