package driver

import (
	"fmigo/internal/fmicore"
	"fmigo/internal/modeldesc"
)

// HistoryEntry is one point on the prediction ring: a time, the
// continuous state at that time, and a snapshot of the model's
// Real-valued output variables, per spec §3's HistoryEntry entity.
type HistoryEntry struct {
	T       float64
	State   fmicore.StateVector
	Outputs map[string]float64
}

// SetLookaheadHooks installs the user-overridable checkForEvent and
// handleEvent hooks consulted while filling the prediction ring. Either
// may be nil; a nil checkForEvent never truncates the ring early.
func (d *Driver) SetLookaheadHooks(checkForEvent func(HistoryEntry) bool, handleEvent func(HistoryEntry)) {
	d.checkForEvent = checkForEvent
	d.handleEventFn = handleEvent
}

// PredictState fills the ring from currentTime to t1 in fixed
// lookaheadStepSize chunks, snapshotting state and outputs after each
// chunk, per spec §4.4.2. Filling stops early — truncating the ring at
// the entry that triggered it — if an event is latched (stop-before-event
// mode) or checkForEvent accepts the newest prediction. On return the
// driver's time and continuous state are restored to their values before
// the call, and any rollback snapshot is discarded.
func (d *Driver) PredictState(t1, lookaheadStepSize, dtHint float64) ([]HistoryEntry, error) {
	d.ring = d.ring[:0]

	saved := &snapshot{t: d.currentTime, state: d.state.Clone()}
	defer func() {
		d.rb = saved
		_ = d.rollback()
		d.rb = nil
	}()

	t := d.currentTime
	for t < t1 {
		step := lookaheadStepSize
		if t+step > t1 {
			step = t1 - t
		}
		newT, err := d.Integrate(t+step, dtHint)
		if err != nil {
			return nil, err
		}
		t = newT

		entry := HistoryEntry{T: t, State: d.state.Clone(), Outputs: d.sampleOutputs()}
		d.ring = append(d.ring, entry)

		if !d.pending.None() {
			if d.handleEventFn != nil {
				d.handleEventFn(entry)
			}
			break
		}
		if d.checkForEvent != nil && d.checkForEvent(entry) {
			if d.handleEventFn != nil {
				d.handleEventFn(entry)
			}
			break
		}
	}

	return d.ring, nil
}

func (d *Driver) sampleOutputs() map[string]float64 {
	desc := d.handle.Description()
	outputs := make(map[string]float64)
	for _, v := range desc.Variables {
		if v.Causality != modeldesc.CausalityOutput {
			continue
		}
		val, err := d.handle.GetByName(v.Name)
		if err != nil {
			continue
		}
		outputs[v.Name] = val
	}
	return outputs
}

// UpdateState locates the ring pair bracketing t1 and commits the left
// (pre-event) limit — the exact entry at t1, or the linear interpolation
// of the bracketing pair when t1 falls strictly between two entries — as
// the new current state, dropping every entry with t < t1, per spec
// §4.4.2.
func (d *Driver) UpdateState(t1 float64) error {
	entry, idx, ok := d.bracketLeft(t1)
	if !ok {
		return fmicore.NewError(fmicore.KindRangeViolation, "updateState: t1 not covered by prediction ring")
	}
	if err := d.commitEntry(entry); err != nil {
		return err
	}
	d.ring = dropBefore(d.ring, idx, t1)
	return nil
}

// UpdateStateFromTheRight commits the right limit of the bracketing
// pair instead of the left, and may advance time by up to
// timeDiffResolution past t1 to land on the entry it commits.
func (d *Driver) UpdateStateFromTheRight(t1, timeDiffResolution float64) error {
	entry, idx, ok := d.bracketRight(t1, timeDiffResolution)
	if !ok {
		return fmicore.NewError(fmicore.KindRangeViolation, "updateStateFromTheRight: t1 not covered by prediction ring")
	}
	if err := d.commitEntry(entry); err != nil {
		return err
	}
	d.ring = dropBefore(d.ring, idx, t1)
	return nil
}

// SyncState commits updateState(t1), pushes the given Real-valued named
// inputs to the model, then re-integrates to t1, the compound operation
// an event-driven host uses to resynchronize after committing to a
// discrete decision.
func (d *Driver) SyncState(t1, dtHint float64, inputs map[string]float64) error {
	if err := d.UpdateState(t1); err != nil {
		return err
	}
	for name, val := range inputs {
		if err := d.handle.SetByName(name, val); err != nil {
			return err
		}
	}
	_, err := d.Integrate(t1, dtHint)
	return err
}

// Sync is the "update then predict" compound used by host schedulers:
// it syncs to t0 with the given inputs, then predicts out to t1.
func (d *Driver) Sync(t0, t1, lookaheadStepSize, dtHint float64, inputs map[string]float64) ([]HistoryEntry, error) {
	if err := d.SyncState(t0, dtHint, inputs); err != nil {
		return nil, err
	}
	return d.PredictState(t1, lookaheadStepSize, dtHint)
}

func (d *Driver) commitEntry(e HistoryEntry) error {
	d.state = e.State.Clone()
	if err := d.handle.SetContinuousStates(d.state); err != nil {
		return err
	}
	if err := d.handle.SetTime(e.T); err != nil {
		return err
	}
	d.currentTime = e.T
	d.stepper.Reset()
	return d.refreshIndicators()
}

// bracketLeft locates the ring pair bracketing t1. An exact hit on a
// ring entry's time returns that entry unchanged, preserving the
// interpolation-continuity invariant (updateState(H_k.t) == H_k). A t1
// strictly between two entries returns the linear per-component
// interpolation of the bracketing pair evaluated at t1, per spec
// §4.4.2's "interpolation between adjacent history entries is linear
// per component" — the pre-event ("left limit") semantics only bite at
// an actual ring truncation boundary, where there is no right-hand
// entry to interpolate against and the exact-match branch above applies.
func (d *Driver) bracketLeft(t1 float64) (HistoryEntry, int, bool) {
	for i := 0; i < len(d.ring); i++ {
		if d.ring[i].T == t1 {
			return d.ring[i], i, true
		}
		if d.ring[i].T > t1 {
			if i == 0 {
				return HistoryEntry{}, 0, false
			}
			return interpolateEntry(d.ring[i-1], d.ring[i], t1), i - 1, true
		}
	}
	if len(d.ring) > 0 {
		return d.ring[len(d.ring)-1], len(d.ring) - 1, true
	}
	return HistoryEntry{}, 0, false
}

// bracketRight mirrors bracketLeft but commits the right-hand side of
// the bracketing pair: an entry within timeDiffResolution of t1 is
// used directly (the "may enhance time by up to timeDiffResolution to
// land on a prediction" allowance), otherwise the bracketing pair is
// linearly interpolated at t1, same as bracketLeft.
func (d *Driver) bracketRight(t1, timeDiffResolution float64) (HistoryEntry, int, bool) {
	for i := 0; i < len(d.ring); i++ {
		if d.ring[i].T >= t1-timeDiffResolution {
			if d.ring[i].T <= t1+timeDiffResolution {
				return d.ring[i], i, true
			}
			if i == 0 {
				return HistoryEntry{}, 0, false
			}
			return interpolateEntry(d.ring[i-1], d.ring[i], t1), i, true
		}
	}
	return HistoryEntry{}, 0, false
}

// interpolateEntry returns the linear per-component interpolation of a
// and b at time t (a.T <= t <= b.T), matching the reference
// IncrementalFMU's interpolateValue helper for both continuous state
// components and named Real outputs.
func interpolateEntry(a, b HistoryEntry, t float64) HistoryEntry {
	span := b.T - a.T
	frac := 0.0
	if span != 0 {
		frac = (t - a.T) / span
	}

	state := make(fmicore.StateVector, len(a.State))
	for i := range state {
		state[i] = a.State[i] + frac*(b.State[i]-a.State[i])
	}

	outputs := make(map[string]float64, len(a.Outputs))
	for name, av := range a.Outputs {
		bv, ok := b.Outputs[name]
		if !ok {
			bv = av
		}
		outputs[name] = av + frac*(bv-av)
	}

	return HistoryEntry{T: t, State: state, Outputs: outputs}
}

func dropBefore(ring []HistoryEntry, idx int, t1 float64) []HistoryEntry {
	cut := idx
	for cut < len(ring) && ring[cut].T < t1 {
		cut++
	}
	remaining := make([]HistoryEntry, len(ring)-cut)
	copy(remaining, ring[cut:])
	return remaining
}
