package driver

import "fmigo/internal/fmicore"

// snapshot is the single rollback slot described in spec §4.4.1: at most
// one saved (t, state) pair, write-locked between SaveCurrentStateForRollback
// and ReleaseRollbackState.
type snapshot struct {
	t      float64
	state  fmicore.StateVector
	locked bool
}

// SaveCurrentStateForRollback captures (currentTime, state) into the
// rollback slot. A second save before the first is released reports
// fmicore.Discard rather than silently overwriting the earlier snapshot;
// the core is single-threaded cooperative, so "write-locked" here means
// "not yet released", not a concurrency mutex.
func (d *Driver) SaveCurrentStateForRollback() error {
	if d.rb != nil && d.rb.locked {
		return fmicore.NewError(fmicore.KindRangeViolation, "saveCurrentStateForRollback: snapshot already locked; call ReleaseRollbackState first")
	}
	d.rb = &snapshot{t: d.currentTime, state: d.state.Clone(), locked: true}
	return nil
}

// ReleaseRollbackState discards the current snapshot, if any.
func (d *Driver) ReleaseRollbackState() {
	d.rb = nil
}

// HasRollbackState reports whether a snapshot is available.
func (d *Driver) HasRollbackState() bool { return d.rb != nil }

// rollback restores the driver to the saved snapshot so that Integrate
// can continue forward from there. It is a private helper, invoked from
// Integrate and from PredictState's restore of the pre-prediction point;
// for Integrate, per spec §4.4.1: "the driver checks whether
// tEnd precedes currentTime and, if a snapshot covers it, restores from
// the snapshot before continuing" — there is no public rollback entry
// point, matching the reference RollbackFMU's protected rollback().
func (d *Driver) rollback() error {
	d.state = d.rb.state.Clone()
	if err := d.handle.SetContinuousStates(d.state); err != nil {
		return err
	}
	if err := d.handle.SetTime(d.rb.t); err != nil {
		return err
	}
	d.currentTime = d.rb.t
	d.pending = fmicore.Clear()
	d.stepper.Reset()
	return d.refreshIndicators()
}
