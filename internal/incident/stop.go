package incident

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"

	fsmutil "github.com/tuemi-io/tuemi/internal/pkg/util/fsm"
)

// Stop tracker states.
const (
	StateMoving        = "moving"
	StateStopped       = "stopped"
	StateProlongedStop = "prolonged_stop"
)

const (
	eventHalt  = "halt"
	eventDwell = "dwell"
	eventMove  = "move"
)

// StopStatus is what the tracker knows about a vehicle after a sample.
type StopStatus struct {
	State string

	// Since is when the current stop began; nil while moving.
	Since *time.Time
}

// StopTracker follows each vehicle through moving → stopped → prolonged_stop so
// that callers can feed Input.StoppedSince into Evaluate. It is safe for
// concurrent use.
type StopTracker struct {
	mu       sync.Mutex
	machines map[string]*stopMachine
}

// NewStopTracker creates an empty tracker.
func NewStopTracker() *StopTracker {
	return &StopTracker{machines: map[string]*stopMachine{}}
}

type stopMachine struct {
	*fsm.FSM
	since time.Time

	// seq counts observations, so Restore can tell whether it is still undoing the latest one.
	seq uint64
}

func newStopMachine() *stopMachine {
	m := &stopMachine{}

	events := fsm.Events{
		{Name: eventHalt, Src: []string{StateMoving}, Dst: StateStopped},
		{Name: eventDwell, Src: []string{StateStopped}, Dst: StateProlongedStop},
		{Name: eventMove, Src: []string{StateStopped, StateProlongedStop}, Dst: StateMoving},
	}

	callbacks := fsm.Callbacks{
		"before_" + eventDwell: fsmutil.Guard(m.guardDwell),
		"enter_" + StateStopped: fsmutil.WrapEvent(func(_ context.Context, e *fsm.Event) error {
			ts, ok := fsmutil.Arg[time.Time](e, 0)
			if !ok {
				return fmt.Errorf("halt requires a timestamp")
			}
			m.since = ts
			return nil
		}),
		"enter_" + StateMoving: func(_ context.Context, _ *fsm.Event) {
			m.since = time.Time{}
		},
	}

	m.FSM = fsm.NewFSM(StateMoving, events, callbacks)
	return m
}

// guardDwell only lets the stop become prolonged once the minimum duration has elapsed.
func (m *stopMachine) guardDwell(_ context.Context, e *fsm.Event) (bool, error) {
	ts, ok := fsmutil.Arg[time.Time](e, 0)
	if !ok {
		return false, fmt.Errorf("dwell requires a timestamp")
	}
	minimum, _ := fsmutil.Arg[time.Duration](e, 1)
	return ts.Sub(m.since) >= minimum, nil
}

// Observe feeds one sample for vehicleID and returns the resulting stop status.
func (t *StopTracker) Observe(ctx context.Context, vehicleID string, ts time.Time, speed float64, th Thresholds) (StopStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.machines[vehicleID]
	if !ok {
		m = newStopMachine()
		t.machines[vehicleID] = m
	}

	m.seq++
	var err error
	switch {
	case speed > th.StopSpeed:
		if !m.Is(StateMoving) {
			err = m.Event(ctx, eventMove)
		}
	case m.Is(StateMoving):
		err = m.Event(ctx, eventHalt, ts)
	case m.Is(StateStopped) && th.StopDuration > 0:
		err = m.Event(ctx, eventDwell, ts, th.StopDuration)
	}
	if !fsmutil.IsBenign(err) {
		return StopStatus{State: m.Current()}, fmt.Errorf("stop tracker for %s: %w", vehicleID, err)
	}

	status := StopStatus{State: m.Current()}
	if !m.Is(StateMoving) {
		since := m.since
		status.Since = &since
	}
	return status, nil
}

// Forget drops any state kept for vehicleID.
func (t *StopTracker) Forget(vehicleID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.machines, vehicleID)
}

// StopSnapshot is the tracker state of one vehicle taken before an Observe.
type StopSnapshot struct {
	vehicleID string
	known     bool
	state     string
	since     time.Time
	seq       uint64
}

// Snapshot records the state of vehicleID so that the next Observe can be undone.
func (t *StopTracker) Snapshot(vehicleID string) StopSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.machines[vehicleID]
	if !ok {
		return StopSnapshot{vehicleID: vehicleID}
	}
	return StopSnapshot{vehicleID: vehicleID, known: true, state: m.Current(), since: m.since, seq: m.seq}
}

// Restore undoes the single Observe that followed snap. It is a no-op once the
// vehicle has been observed again or forgotten.
func (t *StopTracker) Restore(snap StopSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.machines[snap.vehicleID]
	if !ok || m.seq != snap.seq+1 {
		return
	}
	if !snap.known {
		delete(t.machines, snap.vehicleID)
		return
	}
	m.SetState(snap.state)
	m.since = snap.since
	m.seq = snap.seq
}
