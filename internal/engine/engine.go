// Package engine implements the Integration Engine (IE): it drives a
// [steppers.Stepper] over an interval, and when the stepper reports a
// state event it binary-searches the event to within a caller-specified
// precision without calling back into adaptive integration across the
// event, per spec §4.3.
package engine

import (
	"fmigo/internal/fmicore"
	"fmigo/internal/steppers"
)

// Model is the subset of ModelHandle the engine touches directly:
// steppers.Model plus the indicator count needed to size bisection
// buffers and the event-indicator read used between bisection probes.
type Model interface {
	steppers.Model
	NEventIndicators() int
}

// Integrate advances state from tStart to tEnd using stepper, detecting
// and — for state events — bisecting to within eps. On a step event no
// bisection occurs; the stepper's own boundary is returned unchanged.
func Integrate(model Model, stepper steppers.Stepper, state fmicore.StateVector, tStart, tEnd, dtHint, eps float64) (float64, fmicore.EventInfo, error) {
	span := tEnd - tStart
	t, info, err := stepper.InvokeMethod(model, state, tStart, span, dtHint)
	if err != nil {
		return tStart, fmicore.NoEvent(), err
	}

	// Defensive completion: if the stepper's own substep loop stopped
	// short of tEnd without reporting an event (an adaptive horizon
	// undershoot), finish the remainder with an exact step and re-check
	// for a state event before handing back to the driver, per spec §4.3.
	if !info.StateEvent && !info.StepEvent && t < tEnd {
		tBefore := t
		stateBefore := state.Clone()
		gBefore := make(fmicore.EventIndicators, model.NEventIndicators())
		if err := model.GetEventIndicators(gBefore); err != nil {
			return t, fmicore.NoEvent(), err
		}

		remaining := tEnd - t
		if err := stepper.DoStepConst(model, state, t, remaining); err != nil {
			return t, fmicore.NoEvent(), err
		}
		if err := model.SetContinuousStates(state); err != nil {
			return t, fmicore.NoEvent(), err
		}
		if err := model.SetTime(tEnd); err != nil {
			return t, fmicore.NoEvent(), err
		}
		gAfter := make(fmicore.EventIndicators, len(gBefore))
		if err := model.GetEventIndicators(gAfter); err != nil {
			return t, fmicore.NoEvent(), err
		}

		if _, changed := fmicore.SignChanged(gBefore, gAfter); changed {
			copy(state, stateBefore)
			if err := model.SetContinuousStates(state); err != nil {
				return tBefore, fmicore.EventInfo{}, err
			}
			if err := model.SetTime(tBefore); err != nil {
				return tBefore, fmicore.EventInfo{}, err
			}
			return bisect(model, stepper, state, tBefore, tEnd, eps)
		}

		t = tEnd
	}

	if !info.StateEvent {
		return t, info, nil
	}

	return bisect(model, stepper, state, info.TLower, info.TUpper, eps)
}

// bisect implements the event-location loop of spec §4.3: repeatedly
// halve [tLower, tUpper], probing whether stepping from tLower to the
// midpoint crosses a state event. A crossing shrinks tUpper and rewinds
// the probe; no crossing advances tLower and keeps it. The final tUpper
// is nudged forward by eps/8 so a caller re-entering integration at
// tUpper starts strictly past the event.
func bisect(model Model, stepper steppers.Stepper, state fmicore.StateVector, tLower, tUpper, eps float64) (float64, fmicore.EventInfo, error) {
	gLower := make(fmicore.EventIndicators, model.NEventIndicators())
	if err := model.GetEventIndicators(gLower); err != nil {
		return tLower, fmicore.EventInfo{}, err
	}

	savedState := state.Clone()
	savedT := tLower
	gNow := make(fmicore.EventIndicators, len(gLower))

	for tUpper-tLower > eps/2 {
		dt := (tUpper - tLower) / 2

		if err := stepper.DoStepConst(model, state, tLower, dt); err != nil {
			return tLower, fmicore.EventInfo{}, err
		}
		if err := model.SetContinuousStates(state); err != nil {
			return tLower, fmicore.EventInfo{}, err
		}
		if err := model.SetTime(tLower + dt); err != nil {
			return tLower, fmicore.EventInfo{}, err
		}
		if err := model.GetEventIndicators(gNow); err != nil {
			return tLower, fmicore.EventInfo{}, err
		}

		if _, changed := fmicore.SignChanged(gLower, gNow); changed {
			copy(state, savedState)
			if err := model.SetContinuousStates(state); err != nil {
				return tLower, fmicore.EventInfo{}, err
			}
			if err := model.SetTime(savedT); err != nil {
				return tLower, fmicore.EventInfo{}, err
			}
			stepper.Reset()
			tUpper = (tLower + tUpper) / 2
			continue
		}

		tLower += dt
		savedState = state.Clone()
		savedT = tLower
		copy(gLower, gNow)
	}

	tUpper += eps / 8

	return tLower, fmicore.EventInfo{StateEvent: true, TLower: tLower, TUpper: tUpper}, nil
}
