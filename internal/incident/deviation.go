package incident

import (
	"sync"

	"github.com/tuemi-io/tuemi/pkg/geo"
)

// DeviationRun is a streak of consecutive deviating samples of one vehicle,
// each within DeviationMeters of the one before.
type DeviationRun struct {
	Last  Position
	Count int
}

// DeviationTracker keeps the current DeviationRun of each vehicle. A run that
// grows long enough means the vehicle is following a new path, and the caller
// can move its baseline there. It is safe for concurrent use.
type DeviationTracker struct {
	mu   sync.Mutex
	runs map[string]DeviationRun
}

// NewDeviationTracker creates an empty tracker.
func NewDeviationTracker() *DeviationTracker {
	return &DeviationTracker{runs: map[string]DeviationRun{}}
}

// Next returns the run vehicleID would have after deviating at p. It does not
// record it; call Set once the sample is committed.
func (t *DeviationTracker) Next(vehicleID string, p Position, th Thresholds) DeviationRun {
	t.mu.Lock()
	defer t.mu.Unlock()

	run, ok := t.runs[vehicleID]
	if ok && geo.Distance(run.Last.Point(), p.Point()) <= th.DeviationMeters {
		return DeviationRun{Last: p, Count: run.Count + 1}
	}
	return DeviationRun{Last: p, Count: 1}
}

// Set records run for vehicleID. A zero run ends the streak.
func (t *DeviationTracker) Set(vehicleID string, run DeviationRun) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if run.Count == 0 {
		delete(t.runs, vehicleID)
		return
	}
	t.runs[vehicleID] = run
}

// Forget drops any run kept for vehicleID.
func (t *DeviationTracker) Forget(vehicleID string) {
	t.Set(vehicleID, DeviationRun{})
}
