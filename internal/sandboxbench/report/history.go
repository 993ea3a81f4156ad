// Package report keeps the recent history of measurement cycles and summarises it.
package report

import (
	"sync"
	"time"

	"github.com/armadaproject/sandboxbench/internal/sandboxbench/timing"
)

// History retains the last window cycle reports. It is safe for concurrent use.
type History struct {
	window   int
	mu       sync.Mutex
	cycles   int
	failures int
	// Ring of retained reports; next is the slot the next report is written to.
	retained []*CycleReport
	next     int
}

func NewHistory(window int) *History {
	if window < 1 {
		window = 1
	}
	return &History{
		window:   window,
		retained: make([]*CycleReport, 0, window),
	}
}

// Add records a completed cycle.
func (h *History) Add(r *CycleReport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cycles++
	if !r.Succeeded {
		h.failures++
	}
	if len(h.retained) < h.window {
		h.retained = append(h.retained, r)
	} else {
		h.retained[h.next] = r
	}
	h.next = (h.next + 1) % h.window
}

// Last returns the most recently added report, or nil.
func (h *History) Last() *CycleReport {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last()
}

// Cycles returns the number of cycles added so far.
func (h *History) Cycles() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cycles
}

// Summary computes per-phase statistics over the retained cycles. Failed cycles
// contribute the phases they completed. The synthetic total is only taken from
// successful cycles so that aborted cycles do not skew it.
func (h *History) Summary() *Summary {
	h.mu.Lock()
	defer h.mu.Unlock()

	var phases []string
	durationsByPhase := make(map[string][]time.Duration)
	for _, r := range h.ordered() {
		for _, m := range r.Measurements {
			if m.Category == timing.CategoryTotal && !r.Succeeded {
				continue
			}
			if _, ok := durationsByPhase[m.Name]; !ok {
				phases = append(phases, m.Name)
			}
			durationsByPhase[m.Name] = append(durationsByPhase[m.Name], m.Duration)
		}
	}

	stats := make([]*PhaseStatistics, 0, len(phases))
	for _, phase := range phases {
		stats = append(stats, &PhaseStatistics{
			Phase:      phase,
			Statistics: statistics(durationsByPhase[phase]),
		})
	}
	return &Summary{
		Cycles:     h.cycles,
		Failures:   h.failures,
		Window:     len(h.retained),
		Statistics: stats,
		LastCycle:  h.last(),
	}
}

func (h *History) last() *CycleReport {
	if len(h.retained) == 0 {
		return nil
	}
	return h.retained[(h.next-1+h.window)%h.window]
}

// ordered returns the retained reports oldest first.
func (h *History) ordered() []*CycleReport {
	if len(h.retained) < h.window {
		return h.retained
	}
	return append(append([]*CycleReport(nil), h.retained[h.next:]...), h.retained[:h.next]...)
}
