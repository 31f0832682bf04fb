package steppers

import "fmigo/internal/fmicore"

// stepOnceFunc performs one accepted integration step of at most
// dtHint (fixed steppers) or an adaptively chosen size no larger than
// dtHint (adaptive steppers), returning the resulting state, the dt it
// actually used, and the dt it suggests for the next call.
type stepOnceFunc func(model Model, x fmicore.StateVector, t, dtHint float64) (xNew fmicore.StateVector, dtUsed, dtNext float64, err error)

// interpolateFunc evaluates a dense-output stepper's last accepted step
// at an absolute time inside it.
type interpolateFunc func(tOut float64, out fmicore.StateVector) bool

// loopResult carries the outcome of runAcceptedSubsteps back to the
// concrete stepper, which stores dtNext for its next InvokeMethod call.
type loopResult struct {
	t      float64
	info   fmicore.EventInfo
	nextDt float64
}

// runAcceptedSubsteps is the shared accepted-substep loop described in
// spec §4.2: after each accepted substep it commits (t, state) to the
// model and checks the event indicators for a strict sign change; on a
// state event it rewinds to the pre-substep values, and on a step event
// (CompletedIntegratorStep requesting event mode) it does not rewind.
// When interpolate is non-nil the final landing point (when neither
// event occurred) is obtained by dense-output interpolation instead of
// an extra step, preserving stepper-internal history.
func runAcceptedSubsteps(model Model, state fmicore.StateVector, t, span, dtHint float64, nIndicators int, step stepOnceFunc, interpolate interpolateFunc) (loopResult, error) {
	if span <= 0 {
		return loopResult{t: t, info: fmicore.NoEvent(), nextDt: dtHint}, nil
	}

	tEnd := t + span
	prevIndicators := make(fmicore.EventIndicators, nIndicators)
	if nIndicators > 0 {
		if err := model.GetEventIndicators(prevIndicators); err != nil {
			return loopResult{}, err
		}
	}

	curIndicators := make(fmicore.EventIndicators, nIndicators)
	dt := dtHint

	for t < tEnd {
		remaining := tEnd - t
		hint := dt
		if interpolate == nil && hint > remaining {
			hint = remaining
		}

		backupT := t
		backupState := state.Clone()

		xNew, dtUsed, dtNext, err := step(model, state, t, hint)
		if err != nil {
			return loopResult{}, err
		}

		newT := t + dtUsed
		if err := model.SetTime(newT); err != nil {
			return loopResult{}, err
		}
		if err := model.SetContinuousStates(xNew); err != nil {
			return loopResult{}, err
		}

		stepInfo, err := model.CompletedIntegratorStep(false)
		if err != nil {
			return loopResult{}, err
		}
		if stepInfo.EnterEventMode {
			copy(state, xNew)
			return loopResult{t: newT, info: fmicore.EventInfo{StepEvent: true}, nextDt: dtNext}, nil
		}

		if nIndicators > 0 {
			if err := model.GetEventIndicators(curIndicators); err != nil {
				return loopResult{}, err
			}
			if _, changed := fmicore.SignChanged(prevIndicators, curIndicators); changed {
				// rewind to the committed values before this substep
				copy(state, backupState)
				if err := model.SetTime(backupT); err != nil {
					return loopResult{}, err
				}
				if err := model.SetContinuousStates(backupState); err != nil {
					return loopResult{}, err
				}
				return loopResult{
					t:      backupT,
					info:   fmicore.EventInfo{StateEvent: true, TLower: backupT, TUpper: newT},
					nextDt: dtNext,
				}, nil
			}
			copy(prevIndicators, curIndicators)
		}

		copy(state, xNew)
		t = newT
		dt = dtNext

		if interpolate != nil && t > tEnd {
			break
		}
	}

	if interpolate != nil && t != tEnd {
		out := make(fmicore.StateVector, len(state))
		if ok := interpolate(tEnd, out); ok {
			copy(state, out)
			t = tEnd
			if err := model.SetTime(t); err != nil {
				return loopResult{}, err
			}
			if err := model.SetContinuousStates(state); err != nil {
				return loopResult{}, err
			}
		}
	}

	return loopResult{t: t, info: fmicore.NoEvent(), nextDt: dt}, nil
}
